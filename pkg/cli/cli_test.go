package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jspipe/jspipe/internal/exitcode"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
	"github.com/jspipe/jspipe/pkg/api"
)

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"transform", "--target=es2015", "--minify", "--define:DEBUG=false", "--module", "--outfile=out.js", "in.js"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, args.command, commandTransform)
	test.AssertEqual(t, args.isModule, true)
	test.AssertEqual(t, args.outfile, "out.js")
	test.AssertEqual(t, strings.Join(args.inputs, ","), "in.js")
	test.AssertEqual(t, args.transform.Target, api.ES2015)
	test.AssertEqual(t, args.transform.MinifySyntax, true)
	test.AssertEqual(t, args.transform.MinifyWhitespace, true)
	test.AssertEqual(t, args.transform.MinifyIdentifiers, true)
	test.AssertEqual(t, args.transform.Defines["DEBUG"], "false")

	args, err = parseArgs([]string{"bundle", "a.js", "b.js", "--format=esm", "--external:react", "--resolve-extensions=.mjs,.js", "--max-rename-attempts=3"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, strings.Join(args.inputs, ","), "a.js,b.js")
	test.AssertEqual(t, args.bundle.Format, api.FormatESModule)
	test.AssertEqual(t, strings.Join(args.bundle.Externals, ","), "react")
	test.AssertEqual(t, strings.Join(args.bundle.ResolveExtensions, ","), ".mjs,.js")
	test.AssertEqual(t, args.bundle.MaxRenameAttempts, 3)

	args, err = parseArgs([]string{"parse", "--recover", "--color=false", "--log-level=error"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, args.parse.Recover, true)
	test.AssertEqual(t, args.stderr.Color, logger.ColorNever)
	test.AssertEqual(t, args.stderr.LogLevel, logger.LevelError)
	test.AssertEqual(t, len(args.inputs), 0)
}

func TestParseArgsSourceMap(t *testing.T) {
	expect := func(osArgs []string, observed func(*parsedArgs) api.SourceMap, expected api.SourceMap) {
		t.Helper()
		args, err := parseArgs(osArgs)
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqual(t, observed(args), expected)
	}
	transform := func(args *parsedArgs) api.SourceMap { return args.transform.Sourcemap }
	bundle := func(args *parsedArgs) api.SourceMap { return args.bundle.Sourcemap }

	expect([]string{"transform", "--sourcemap"}, transform, api.SourceMapInline)
	expect([]string{"transform", "--sourcemap=external"}, transform, api.SourceMapExternal)
	expect([]string{"bundle", "a.js", "--sourcemap"}, bundle, api.SourceMapInline)
	expect([]string{"bundle", "a.js", "--sourcemap", "--outdir=out"}, bundle, api.SourceMapLinked)
	expect([]string{"bundle", "a.js", "--sourcemap=external", "--outdir=out"}, bundle, api.SourceMapExternal)
}

func TestParseArgsErrors(t *testing.T) {
	expectError := func(osArgs []string, expected string) {
		t.Helper()
		t.Run(strings.Join(osArgs, " "), func(t *testing.T) {
			t.Helper()
			_, err := parseArgs(osArgs)
			if err == nil {
				t.Fatal("Expected an error")
			}
			test.AssertEqual(t, err.Error(), expected)
			test.AssertEqual(t, exitcode.Get(err), exitcode.Usage)
		})
	}

	expectError(nil, "Missing command (valid: parse, transform, print, minify, bundle, repl, version)")
	expectError([]string{"build"}, "Invalid command: \"build\" (valid: parse, transform, print, minify, bundle, repl, version)")
	expectError([]string{"bundle"}, "Must provide at least one entry point")
	expectError([]string{"parse", "a.js", "b.js"}, "Expected at most one input file but got 2")
	expectError([]string{"parse", "--minify"}, "Invalid parse flag: \"--minify\"")
	expectError([]string{"minify", "--external:x"}, "Invalid minify flag: \"--external:x\"")
	expectError([]string{"transform", "--target=es3"}, "Invalid target: \"es3\" (valid: "+
		"esnext, es5, es2015, es6, es2016, es2017, es2018, es2019, es2020, es2021)")
	expectError([]string{"bundle", "a.js", "--format=umd"}, "Invalid format: \"umd\" (valid: iife, cjs, esm)")
	expectError([]string{"transform", "--define:DEBUG"}, "Missing \"=\": \"DEBUG\"")
	expectError([]string{"bundle", "a.js", "--max-rename-attempts=-1"}, "Invalid rename attempt limit: \"-1\"")
	expectError([]string{"repl", "in.js"}, "The repl does not take input files")
	expectError([]string{"repl", "--sourcemap"}, "The repl does not emit source maps")
}

func runForTest(t *testing.T, stdin string, osArgs ...string) (string, int) {
	t.Helper()
	stdout := &bytes.Buffer{}
	code := run(context.Background(), append(osArgs, "--log-level=silent"), strings.NewReader(stdin), stdout)
	return stdout.String(), code
}

func TestRunTransformStdin(t *testing.T) {
	stdout, code := runForTest(t, "x = a ?? b", "transform", "--target=es2019")
	test.AssertEqual(t, code, exitcode.Success)
	test.AssertEqualWithDiff(t, stdout, "x = a != null ? a : b;\n")
}

func TestRunParseThenPrint(t *testing.T) {
	json, code := runForTest(t, "let a = 1;\nf(a);\n", "parse", "--module")
	test.AssertEqual(t, code, exitcode.Success)
	if !strings.HasPrefix(json, `{"type":"Module"`) || !strings.HasSuffix(json, "\n") {
		t.Fatalf("Unexpected tree: %s", json)
	}

	stdout, code := runForTest(t, json, "print")
	test.AssertEqual(t, code, exitcode.Success)
	test.AssertEqualWithDiff(t, stdout, "let a = 1;\nf(a);\n")
}

func TestRunParseRecover(t *testing.T) {
	stdout, code := runForTest(t, "let a = ; b()", "parse", "--module", "--recover")
	test.AssertEqual(t, code, exitcode.Failure)
	if !strings.HasPrefix(stdout, `{"type":"Module"`) {
		t.Fatalf("Recover mode must still print a tree: %s", stdout)
	}
}

func TestRunSyntaxError(t *testing.T) {
	stdout, code := runForTest(t, "let b = ;", "transform")
	test.AssertEqual(t, code, exitcode.Failure)
	test.AssertEqual(t, stdout, "")
}

func TestRunInvalidOptions(t *testing.T) {
	_, code := runForTest(t, "", "transform", "--define:a-b=1")
	test.AssertEqual(t, code, exitcode.Usage)

	_, code = runForTest(t, "let a = 1", "transform", "--sourcemap=external")
	test.AssertEqual(t, code, exitcode.Usage)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := run(ctx, []string{"minify", "--log-level=silent"}, strings.NewReader("var a = 1"), &bytes.Buffer{})
	test.AssertEqual(t, code, exitcode.Interrupted)
}

func TestRunFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.js")
	output := filepath.Join(dir, "out.js")
	if err := os.WriteFile(input, []byte("x = 2 ** 3"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, code := runForTest(t, "", "transform", "--target=es2015", "--sourcemap=external", "--outfile="+output, input)
	test.AssertEqual(t, code, exitcode.Success)
	test.AssertEqual(t, stdout, "")

	contents, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, string(contents), "x = Math.pow(2, 3);\n")
	sourceMap, err := os.ReadFile(output + ".map")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(sourceMap), `{"version":3`) {
		t.Fatalf("Unexpected source map: %s", sourceMap)
	}

	_, code = runForTest(t, "", "minify", filepath.Join(dir, "missing.js"))
	test.AssertEqual(t, code, exitcode.Failure)
}

func TestRunBundle(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.js": "export let x = 1;",
		"b.js": "import {x} from './a.js'; console.log(x + 1);",
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}

	stdout, code := runForTest(t, "", "bundle", filepath.Join(dir, "b.js"))
	test.AssertEqual(t, code, exitcode.Success)
	if !strings.Contains(stdout, "console.log(") {
		t.Fatalf("Unexpected bundle:\n%s", stdout)
	}

	outdir := filepath.Join(dir, "out")
	stdout, code = runForTest(t, "", "bundle", filepath.Join(dir, "b.js"), "--outdir="+outdir, "--sourcemap")
	test.AssertEqual(t, code, exitcode.Success)
	test.AssertEqual(t, stdout, "")
	for _, name := range []string{"b.js", "b.js.map"} {
		if _, err := os.Stat(filepath.Join(outdir, name)); err != nil {
			t.Fatalf("Missing output file %q: %s", name, err)
		}
	}
}

func TestMsgsForResult(t *testing.T) {
	warning := api.Message{ID: "circular-import", Severity: api.SeverityWarning, Text: "cycle"}
	msgs := msgsForResult([]api.Message{warning}, nil)
	test.AssertEqual(t, len(msgs), 1)
	test.AssertEqual(t, msgs[0].Kind, logger.Warning)
	test.AssertEqual(t, msgs[0].ID, logger.MsgID_Bundler_CircularImport)

	msgs = msgsForResult(nil, &api.Error{
		Kind:     api.ErrSyntax,
		Message:  "Unexpected \";\"",
		Location: &api.Location{File: "in.js", Line: 1, Column: 8, Length: 1, LineText: "let b = ;"},
		Notes: []api.Message{
			warning,
			{ID: "syntax-error", Text: "Unexpected \";\"", Location: &api.Location{File: "in.js", Line: 1, Column: 8, Length: 1, LineText: "let b = ;"}},
		},
	})
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "warning: cycle\nin.js:1:8: error: Unexpected \";\"\nlet b = ;\n        ^\n")

	// Errors without notes still report their message
	msgs = msgsForResult(nil, &api.Error{Kind: api.ErrInternal, Message: "boom"})
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "error: boom\n")

	msgs = msgsForResult(nil, errors.New("Could not read from stdin"))
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "error: Could not read from stdin\n")
}

func TestReplSession(t *testing.T) {
	ctx := context.Background()
	session := &replSession{options: api.TransformOptions{Target: api.ES2019}}

	test.AssertEqual(t, session.isIncomplete(ctx, "function f() {"), true)
	test.AssertEqual(t, session.isIncomplete(ctx, "function f() {}"), false)
	test.AssertEqual(t, session.isIncomplete(ctx, "let = ;"), false)

	output, quit, err := session.eval(ctx, "x = a ?? b")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, quit, false)
	test.AssertEqualWithDiff(t, output, "x = a != null ? a : b;\n")

	output, _, err = session.eval(ctx, ":module")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, output, "module mode\n")
	test.AssertEqual(t, session.isModule, true)

	_, _, err = session.eval(ctx, ":nope")
	if err == nil {
		t.Fatal("Expected an error for an unknown command")
	}

	_, quit, _ = session.eval(ctx, ":quit")
	test.AssertEqual(t, quit, true)
}
