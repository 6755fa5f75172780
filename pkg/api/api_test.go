package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/jspipe/jspipe/internal/test"
	"github.com/jspipe/jspipe/pkg/api"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for path, contents := range files {
		absPath := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(absPath, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func run(t *testing.T, js string) goja.Value {
	t.Helper()
	value, err := goja.New().RunString(js)
	if err != nil {
		t.Fatalf("%s\n\n%s", err, js)
	}
	return value
}

func expectKind(t *testing.T, err error, kind error) *api.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %q but the operation succeeded", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("Expected %q but got: %s", kind, err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected an *api.Error but got %T", err)
	}
	return apiErr
}

func TestParseAndPrint(t *testing.T) {
	ctx := context.Background()
	contents := "let a = 1;\nf(a);\n"

	json, err := api.Parse(ctx, contents, api.ParseOptions{IsModule: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(json, `{"type":"Module"`) {
		t.Fatalf("Unexpected tree: %s", json)
	}

	output, err := api.Print(ctx, json, api.PrintOptions{})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, output.Code, contents)
}

func TestParseScript(t *testing.T) {
	json, err := api.Parse(context.Background(), "with (a) b", api.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(json, `{"type":"Script"`) {
		t.Fatalf("Unexpected tree: %s", json)
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := api.Parse(context.Background(), "let a = 1;\nlet b = ;", api.ParseOptions{IsModule: true, Sourcefile: "in.js"})
	apiErr := expectKind(t, err, api.ErrSyntax)
	if apiErr.Location == nil {
		t.Fatal("Missing location")
	}
	test.AssertEqual(t, apiErr.Location.File, "in.js")
	test.AssertEqual(t, apiErr.Location.Line, 2)
	test.AssertEqual(t, apiErr.Location.LineText, "let b = ;")
}

func TestParseRecover(t *testing.T) {
	json, err := api.Parse(context.Background(), "let a = ; b()", api.ParseOptions{IsModule: true, Recover: true})
	expectKind(t, err, api.ErrSyntax)
	if json == "" {
		t.Fatal("Recover mode must return a tree")
	}
}

func TestParseFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"in.js": "export default 1"})
	json, err := api.ParseFile(context.Background(), filepath.Join(dir, "in.js"), api.ParseOptions{IsModule: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(json, `{"type":"Module"`) {
		t.Fatalf("Unexpected tree: %s", json)
	}

	_, err = api.ParseFile(context.Background(), filepath.Join(dir, "missing.js"), api.ParseOptions{})
	expectKind(t, err, api.ErrResolution)
}

func TestTransformLowering(t *testing.T) {
	output, err := api.Transform(context.Background(), "x = a ?? b", false, api.TransformOptions{Target: api.ES2019})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, output.Code, "x = a != null ? a : b;\n")
}

func TestTransformSerializedTree(t *testing.T) {
	ctx := context.Background()
	json, err := api.Parse(ctx, "x = a ?? b", api.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	output, err := api.Transform(ctx, json, false, api.TransformOptions{Target: api.ES2019, InputIsAST: true})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, output.Code, "x = a != null ? a : b;\n")
}

func TestTransformUnsupportedSyntax(t *testing.T) {
	_, err := api.Transform(context.Background(), "class A {}", true, api.TransformOptions{Target: api.ES5})
	apiErr := expectKind(t, err, api.ErrUnsupportedSyntax)
	test.AssertEqual(t, apiErr.Message, "Transforming classes to the configured target environment is not supported yet")
}

func TestTransformIsIdempotent(t *testing.T) {
	ctx := context.Background()
	options := api.TransformOptions{Target: api.ES5}
	first, err := api.Transform(ctx, "var f = (a = 1, ...b) => a ** b.length; var s = `${f(2, 3)}`", false, options)
	if err != nil {
		t.Fatal(err)
	}
	second, err := api.Transform(ctx, first.Code, false, options)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, second.Code, first.Code)
	test.AssertEqual(t, run(t, first.Code+"\ns").String(), "2")
}

func TestTransformDefines(t *testing.T) {
	output, err := api.Transform(context.Background(), "var mode = process.env.NODE_ENV; mode", false, api.TransformOptions{
		Defines: map[string]string{"process.env.NODE_ENV": `"production"`},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(output.Code, "process") {
		t.Fatalf("The define was not substituted:\n%s", output.Code)
	}
	test.AssertEqual(t, run(t, output.Code).String(), "production")

	_, err = api.Transform(context.Background(), "", false, api.TransformOptions{
		Defines: map[string]string{"a-b": "1"},
	})
	expectKind(t, err, api.ErrInvalidOptions)
}

func TestTransformSourceMap(t *testing.T) {
	ctx := context.Background()
	output, err := api.Transform(ctx, "let a = 1;\n", true, api.TransformOptions{
		Sourcefile: "in.js",
		Sourcemap:  api.SourceMapExternal,
	})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, output.Code, "let a = 1;\n")
	if !strings.HasPrefix(output.Map, `{"version":3,"sources":["in.js"]`) {
		t.Fatalf("Unexpected source map: %s", output.Map)
	}

	output, err = api.Transform(ctx, "let a = 1;\n", true, api.TransformOptions{
		Sourcefile: "in.js",
		Sourcemap:  api.SourceMapInline,
	})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, output.Map, "")
	if !strings.Contains(output.Code, "\n//# sourceMappingURL=data:application/json;base64,") {
		t.Fatalf("Missing inline source map:\n%s", output.Code)
	}

	_, err = api.Transform(ctx, "", true, api.TransformOptions{Sourcefile: "in.js", Sourcemap: api.SourceMapLinked})
	expectKind(t, err, api.ErrInvalidOptions)
	_, err = api.Transform(ctx, "", true, api.TransformOptions{Sourcemap: api.SourceMapExternal})
	expectKind(t, err, api.ErrInvalidOptions)
}

func TestTransformFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"in.js": "x = 2 ** 3"})
	output, err := api.TransformFile(context.Background(), filepath.Join(dir, "in.js"), false, api.TransformOptions{Target: api.ES2015})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, output.Code, "x = Math.pow(2, 3);\n")
}

func TestMinify(t *testing.T) {
	contents := "function compute(longParameterName) { var longLocalName = longParameterName * 2; if (longLocalName) { return longLocalName + 1 } return undefined }\ncompute(20)"
	output, err := api.Minify(context.Background(), contents, api.MinifyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(output.Code, "longLocalName") || strings.Contains(output.Code, "longParameterName") {
		t.Fatalf("Nested names were not shortened:\n%s", output.Code)
	}
	if !strings.Contains(output.Code, "compute") {
		t.Fatalf("Top-level names must be kept:\n%s", output.Code)
	}
	if strings.Contains(output.Code, "\n  ") {
		t.Fatalf("Whitespace was not removed:\n%s", output.Code)
	}
	test.AssertEqual(t, run(t, output.Code).Export(), run(t, contents).Export())

	topLevel, err := api.Minify(context.Background(), "var longName = 1; longName + 1", api.MinifyOptions{IsModule: true, TopLevel: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(topLevel.Code, "longName") {
		t.Fatalf("Top-level names were not shortened:\n%s", topLevel.Code)
	}
}

func TestBundle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.js": "export let x = 1;",
		"b.js": "import {x} from './a.js'; export let y = x + 1;",
	})
	chunks, err := api.Bundle(context.Background(), []api.EntryConfig{{Path: filepath.Join(dir, "b.js")}}, api.BundleOptions{
		Format: api.FormatCommonJS,
	})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, len(chunks), 1)
	chunk, ok := chunks["b"]
	if !ok {
		t.Fatalf("Missing chunk \"b\": %v", chunks)
	}
	value := run(t, "var module = {exports: {}};\n"+chunk.Code+"\nmodule.exports.y")
	test.AssertEqual(t, value.ToInteger(), int64(2))
}

func TestBundleResolutionError(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"e.js": "import 'missing'",
	})
	chunks, err := api.Bundle(context.Background(), []api.EntryConfig{{Path: filepath.Join(dir, "e.js")}}, api.BundleOptions{})
	apiErr := expectKind(t, err, api.ErrResolution)
	test.AssertEqual(t, len(chunks), 0)
	if !strings.Contains(apiErr.Message, `"missing"`) {
		t.Fatalf("The error does not name the specifier: %s", apiErr.Message)
	}
	if apiErr.Location == nil || !strings.HasSuffix(apiErr.Location.File, "e.js") {
		t.Fatalf("The error does not point into the importer: %s", apiErr)
	}
}

func TestBundleCancelled(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"entry.js": "console.log(1)",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks, err := api.Bundle(ctx, []api.EntryConfig{{Path: filepath.Join(dir, "entry.js")}}, api.BundleOptions{})
	expectKind(t, err, api.ErrCancelled)
	test.AssertEqual(t, len(chunks), 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected the error to wrap the context error: %s", err)
	}
}

func TestBundleOutdir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/entry.js":        "console.log(1)",
		"public/index.html":   "<script src=entry.js></script>",
		"public/img/logo.txt": "logo",
	})
	outdir := filepath.Join(dir, "out")
	_, err := api.Bundle(context.Background(), []api.EntryConfig{{Path: filepath.Join(dir, "src", "entry.js")}}, api.BundleOptions{
		Sourcemap: api.SourceMapLinked,
		Outdir:    outdir,
		PublicDir: filepath.Join(dir, "public"),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"entry.js", "entry.js.map", "index.html", "img/logo.txt"} {
		if _, err := os.Stat(filepath.Join(outdir, filepath.FromSlash(name))); err != nil {
			t.Fatalf("Missing output file %q: %s", name, err)
		}
	}
	code, err := os.ReadFile(filepath.Join(outdir, "entry.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(code), "//# sourceMappingURL=entry.js.map\n") {
		t.Fatalf("Missing source map comment:\n%s", code)
	}

	_, err = api.Bundle(context.Background(), []api.EntryConfig{{Path: filepath.Join(dir, "src", "entry.js")}}, api.BundleOptions{
		PublicDir: filepath.Join(dir, "public"),
	})
	expectKind(t, err, api.ErrInvalidOptions)
}

func TestParseTargetAndFormat(t *testing.T) {
	for text, expected := range map[string]api.Target{
		"esnext": api.ESNext,
		"es5":    api.ES5,
		"es6":    api.ES2015,
		"ES2017": api.ES2017,
		"es2021": api.ES2021,
	} {
		target, err := api.ParseTarget(text)
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqual(t, target, expected)
	}
	if _, err := api.ParseTarget("es3"); err == nil {
		t.Fatal("Expected an error for \"es3\"")
	}

	format, err := api.ParseFormat("cjs")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, format, api.FormatCommonJS)
	if _, err := api.ParseFormat("umd"); err == nil {
		t.Fatal("Expected an error for \"umd\"")
	}
}

func TestTargetTriple(t *testing.T) {
	triple := api.TargetTriple()
	if runtime.GOOS == "linux" && runtime.GOARCH == "amd64" {
		test.AssertEqual(t, triple, "x86_64-unknown-linux-gnu")
	}
	if !strings.Contains(triple, "-") {
		t.Fatalf("Unexpected triple %q", triple)
	}
}

func TestTraceSubscriber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	stop, err := api.InitTraceSubscriber(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := api.Transform(context.Background(), "x = 1", false, api.TransformOptions{}); err != nil {
		t.Fatal(err)
	}
	stop()

	// Nothing is traced after stopping
	if _, err := api.Transform(context.Background(), "y = 1", false, api.TransformOptions{}); err != nil {
		t.Fatal(err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	test.AssertEqual(t, len(lines), 3)
	for i, phase := range []string{"Parse", "Transform", "Print"} {
		if !strings.Contains(lines[i], `"operation":"transform"`) || !strings.Contains(lines[i], `"phase":"`+phase+`"`) {
			t.Fatalf("Unexpected event %d: %s", i, lines[i])
		}
	}
}
