package resolver

import (
	"testing"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
)

var files = map[string]string{
	"/src/entry.js":             "",
	"/src/util.js":              "",
	"/src/util.mjs":             "",
	"/src/data.json":            "{}",
	"/src/lib/index.js":         "",
	"/src/cjs-only.cjs":         "",
	"/src/ext/index.mjs":        "",
	"/src/dir.js/index.js":      "",
	"/src/pkg-dir/main.js":      "",
	"/src/pkg-dir/package.json": `{"main": "./main.js"}`,

	"/node_modules/both/package.json": `{"main": "cjs.js", "module": "esm.js"}`,
	"/node_modules/both/cjs.js":       "",
	"/node_modules/both/esm.js":       "",

	"/node_modules/main-only/package.json": `{"main": "lib"}`,
	"/node_modules/main-only/lib/index.js": "",

	"/node_modules/no-pkg/index.js": "",
	"/node_modules/no-pkg/sub.js":   "",

	"/node_modules/@scope/pkg/index.js": "",

	"/src/node_modules/both/package.json": `{"main": "nearer.js"}`,
	"/src/node_modules/both/nearer.js":    "",

	"/node_modules/broken-main/package.json": `{"main": "missing.js"}`,
	"/node_modules/broken-main/index.js":     "",
}

func expectResolved(t *testing.T, options config.Options, sourceDir string, importPath string, expected string) {
	t.Helper()
	t.Run(importPath, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		r := NewResolver(fs.MockFS(files), log, options)
		result, ok := r.Resolve(sourceDir, importPath)
		test.AssertEqualWithDiff(t, test.MsgsToString(log.Done()), "")
		if !ok {
			t.Fatalf("Could not resolve %q", importPath)
		}
		test.AssertEqual(t, result.IsExternal, false)
		test.AssertEqual(t, result.Path.Text, expected)
		test.AssertEqual(t, result.Path.Namespace, "file")
	})
}

func expectMissing(t *testing.T, sourceDir string, importPath string) {
	t.Helper()
	t.Run(importPath+" [missing]", func(t *testing.T) {
		t.Helper()
		r := NewResolver(fs.MockFS(files), logger.NewDeferLog(), config.Options{})
		if result, ok := r.Resolve(sourceDir, importPath); ok {
			t.Fatalf("Unexpectedly resolved %q to %q", importPath, result.Path.Text)
		}
	})
}

func TestRelative(t *testing.T) {
	options := config.Options{}
	expectResolved(t, options, "/src", "./util.js", "/src/util.js")
	expectResolved(t, options, "/src", "./util", "/src/util.js")
	expectResolved(t, options, "/src", "./data", "/src/data.json")
	expectResolved(t, options, "/src", "./cjs-only", "/src/cjs-only.cjs")
	expectResolved(t, options, "/src/lib", "../util", "/src/util.js")
	expectResolved(t, options, "/src/lib", "/src/util", "/src/util.js")
	expectResolved(t, options, "/src", "./lib", "/src/lib/index.js")
	expectResolved(t, options, "/src/lib", ".", "/src/lib/index.js")
	expectResolved(t, options, "/src", "./ext", "/src/ext/index.mjs")
	expectResolved(t, options, "/src", "./pkg-dir", "/src/pkg-dir/main.js")

	// A directory with an extension in its name
	expectResolved(t, options, "/src", "./dir.js", "/src/dir.js/index.js")

	expectMissing(t, "/src", "./missing")
	expectMissing(t, "/src", "../missing.js")
}

func TestExtensionOrder(t *testing.T) {
	expectResolved(t, config.Options{}, "/src", "./util", "/src/util.js")
	expectResolved(t, config.Options{ExtensionOrder: []string{".mjs", ".js"}}, "/src", "./util", "/src/util.mjs")

	// Extensions that are not configured are not probed
	r := NewResolver(fs.MockFS(files), logger.NewDeferLog(), config.Options{ExtensionOrder: []string{".js"}})
	if _, ok := r.Resolve("/src", "./data"); ok {
		t.Fatal("Unexpectedly resolved \"./data\"")
	}
}

func TestNodeModules(t *testing.T) {
	options := config.Options{}
	expectResolved(t, options, "/", "both", "/node_modules/both/esm.js")
	expectResolved(t, options, "/lib", "both", "/node_modules/both/esm.js")
	expectResolved(t, options, "/src/lib", "both", "/src/node_modules/both/nearer.js")
	expectResolved(t, options, "/src", "main-only", "/node_modules/main-only/lib/index.js")
	expectResolved(t, options, "/src", "no-pkg", "/node_modules/no-pkg/index.js")
	expectResolved(t, options, "/src", "no-pkg/sub", "/node_modules/no-pkg/sub.js")
	expectResolved(t, options, "/src", "@scope/pkg", "/node_modules/@scope/pkg/index.js")
	expectResolved(t, options, "/src", "broken-main", "/node_modules/broken-main/index.js")

	expectMissing(t, "/src", "missing-pkg")
}

func TestExternal(t *testing.T) {
	r := NewResolver(fs.MockFS(files), logger.NewDeferLog(), config.Options{
		ExternalModules: map[string]bool{"both": true, "@scope/pkg": true, "not-installed": true},
	})

	for _, path := range []string{"both", "both/cjs.js", "@scope/pkg", "@scope/pkg/x", "not-installed"} {
		result, ok := r.Resolve("/src", path)
		if !ok {
			t.Fatalf("Could not resolve %q", path)
		}
		test.AssertEqual(t, result.IsExternal, true)
		test.AssertEqual(t, result.Path.Text, path)
	}

	// Relative paths are never external
	result, ok := r.Resolve("/src", "./util")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, result.IsExternal, false)

	// Only the scope does not match
	if _, ok := r.Resolve("/src", "@scope/other"); ok {
		t.Fatal("Unexpectedly resolved \"@scope/other\"")
	}
}

func TestEntryPoint(t *testing.T) {
	r := NewResolver(fs.MockFS(files), logger.NewDeferLog(), config.Options{})

	result, ok := r.ResolveEntryPoint("src/entry.js")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, result.Path.Text, "/src/entry.js")

	result, ok = r.ResolveEntryPoint("/src/lib")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, result.Path.Text, "/src/lib/index.js")

	_, ok = r.ResolveEntryPoint("src/missing.js")
	test.AssertEqual(t, ok, false)
}

func TestInvalidPackageJSON(t *testing.T) {
	log := logger.NewDeferLog()
	r := NewResolver(fs.MockFS(map[string]string{
		"/node_modules/bad/package.json": `{"main": }`,
		"/node_modules/bad/index.js":     "",
		"/node_modules/num/package.json": `{"main": 123}`,
		"/node_modules/num/index.js":     "",
	}), log, config.Options{})

	result, ok := r.Resolve("/", "bad")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, result.Path.Text, "/node_modules/bad/index.js")
	result, ok = r.Resolve("/", "num")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, result.Path.Text, "/node_modules/num/index.js")

	msgs := log.Done()
	if len(msgs) != 2 {
		t.Fatalf("Expected two messages, got:\n%s", test.MsgsToString(msgs))
	}
	test.AssertEqual(t, msgs[0].Kind, logger.Error)
	test.AssertEqual(t, msgs[1].Kind, logger.Warning)
	test.AssertEqualWithDiff(t, msgs[1].Text, "The \"main\" field must be a string")
}

func TestPackageName(t *testing.T) {
	expect := func(path string, name string, subpath string) {
		t.Helper()
		n, s := packageName(path)
		test.AssertEqual(t, n, name)
		test.AssertEqual(t, s, subpath)
	}
	expect("pkg", "pkg", "")
	expect("pkg/a/b", "pkg", "a/b")
	expect("@scope/pkg", "@scope/pkg", "")
	expect("@scope/pkg/a", "@scope/pkg", "a")
	expect("@scope", "@scope", "")
}
