package bundler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
)

type bundled struct {
	files              map[string]string
	entryPaths         []string
	expectedScanLog    string
	expectedCompileLog string
	options            config.Options
}

func msgsText(msgs []logger.Msg) string {
	text := ""
	for _, msg := range msgs {
		text += msg.String(logger.StderrOptions{}, logger.TerminalInfo{})
	}
	return text
}

func (args bundled) compile(t *testing.T) ([]OutputFile, error) {
	t.Helper()
	mockFS := fs.MockFS(args.files)
	log := logger.NewDeferLog()
	bundle, err := ScanBundle(context.Background(), log, mockFS, args.entryPaths, args.options, nil)
	test.AssertEqualWithDiff(t, msgsText(log.Done()), args.expectedScanLog)
	if err != nil {
		t.Fatal(err)
	}

	log = logger.NewDeferLog()
	results, err := bundle.Compile(context.Background(), log, nil)
	test.AssertEqualWithDiff(t, msgsText(log.Done()), args.expectedCompileLog)
	return results, err
}

// Bundles a single entry point and returns its output
func (args bundled) single(t *testing.T) string {
	t.Helper()
	results, err := args.compile(t)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, len(results), 1)
	return string(results[0].Contents)
}

// Runs bundled code in a fresh VM and returns the value of "result"
func run(t *testing.T, prelude string, js string, result string) string {
	t.Helper()
	vm := goja.New()
	if _, err := vm.RunString(prelude + js); err != nil {
		t.Fatalf("%s\n%s", err, js)
	}
	value, err := vm.RunString(result)
	if err != nil {
		t.Fatalf("%s\n%s", err, js)
	}
	return value.String()
}

func iife() config.Options {
	return config.Options{OutputFormat: config.FormatIIFE}
}

func TestBundleESModuleOrder(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import {a} from './a'; f(a)`,
			"/a.js":     `export let a = 1`,
		},
		entryPaths: []string{"/entry.js"},
	}.single(t)

	test.AssertEqualWithDiff(t, js, `// a.js
let a = 1;

// entry.js
f(a);
`)
}

func TestBundleLinkedValue(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import {y} from './b'; result = y`,
			"/b.js":     `import {x} from './a'; export let y = x + 1`,
			"/a.js":     `export let x = 1`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, strings.HasPrefix(js, "(function () {\n"), true)
	test.AssertEqual(t, strings.HasSuffix(js, "})();\n"), true)
	test.AssertEqual(t, run(t, "", js, "result"), "2")
}

func TestBundleEvaluationOrder(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import './a'; import './b'; order.push('entry')`,
			"/a.js":     `order.push('a')`,
			"/b.js":     `import './a'; order.push('b')`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	// Each module is evaluated once, after its dependencies
	test.AssertEqual(t, run(t, "var order = [];\n", js, "order.join()"), "a,b,entry")
}

func TestBundleNameCollision(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `
				import {getA} from './a'
				import {getB} from './b'
				result = getA() + getB()
			`,
			"/a.js": `let x = 'a'; export function getA() { return x }`,
			"/b.js": `let x = 'b'; export function getB() { return x }`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, strings.Contains(js, "let x = \"a\";"), true)
	test.AssertEqual(t, strings.Contains(js, "let x2 = \"b\";"), true)
	test.AssertEqual(t, run(t, "", js, "result"), "ab")
}

func TestBundleRenameLimit(t *testing.T) {
	_, err := bundled{
		files: map[string]string{
			"/entry.js": `
				import {a2} from './x'
				import {a as ya} from './y'
				import {a as za} from './z'
				f(a2, ya, za)
			`,
			"/x.js": `export let a2 = 1`,
			"/y.js": `export let a = 2`,
			"/z.js": `export let a = 3`,
		},
		entryPaths:         []string{"/entry.js"},
		options:            config.Options{MaxRenameAttempts: 1},
		expectedCompileLog: "error: Could not find an unused name for \"a\" after 1 attempts\n",
	}.compile(t)

	if !errors.Is(err, ErrBundleFailed) {
		t.Fatalf("Expected a bundle failure, got %v", err)
	}
}

func TestBundleCycle(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import {a} from './a'; result = a()`,
			"/a.js":     `import {b} from './b'; export function a() { return 'a' + b() }`,
			"/b.js":     `import {a} from './a'; export function b() { return 'b' }; export let c = () => a`,
		},
		entryPaths:      []string{"/entry.js"},
		options:         iife(),
		expectedScanLog: "b.js: warning: Circular import of \"a.js\"\n",
	}.single(t)

	test.AssertEqual(t, run(t, "", js, "result"), "ab")
}

func TestBundleMissingExport(t *testing.T) {
	_, err := bundled{
		files: map[string]string{
			"/entry.js": `import {nope} from './lib'; f(nope)`,
			"/lib.js":   `export let a = 1`,
		},
		entryPaths:         []string{"/entry.js"},
		expectedCompileLog: "entry.js: error: No matching export in \"lib.js\" for import \"nope\" in \"entry.js\"\n",
	}.compile(t)

	if !errors.Is(err, ErrBundleFailed) {
		t.Fatalf("Expected a bundle failure, got %v", err)
	}
}

func TestBundleReExports(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import {a, b, renamed} from './index'; result = [a, b, renamed].join()`,
			"/index.js": `export * from './a'; export * from './b'; export {a as renamed} from './a'`,
			"/a.js":     `export let a = 'a'`,
			"/b.js":     `export let b = 'b'`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, run(t, "", js, "result"), "a,b,a")
}

func TestBundleAmbiguousExportStar(t *testing.T) {
	_, err := bundled{
		files: map[string]string{
			"/entry.js": `import {x} from './index'; f(x)`,
			"/index.js": `export * from './a'; export * from './b'`,
			"/a.js":     `export let x = 1`,
			"/b.js":     `export let x = 2`,
		},
		entryPaths:         []string{"/entry.js"},
		expectedCompileLog: "entry.js: error: No matching export in \"index.js\" for import \"x\" in \"entry.js\"\n",
	}.compile(t)

	if !errors.Is(err, ErrBundleFailed) {
		t.Fatalf("Expected a bundle failure, got %v", err)
	}
}

func TestBundleNamespaceObject(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import * as ns from './lib'; result = Object.keys(ns).join() + ns.a + Object.isFrozen(ns)`,
			"/lib.js":   `export let a = 1; export let b = 2`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, strings.Contains(js, "var lib_exports = Object.freeze({"), true)
	test.AssertEqual(t, run(t, "", js, "result"), "a,b1true")
}

func TestBundleNamespacePropertyOnly(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import * as ns from './lib'; result = ns.a; f(ns.missing)`,
			"/lib.js":   `export let a = 1`,
		},
		entryPaths:         []string{"/entry.js"},
		options:            iife(),
		expectedCompileLog: "entry.js: warning: Import \"missing\" will always be undefined because there is no matching export in \"lib.js\"\n",
	}.single(t)

	// Property reads of a namespace import don't need the object
	test.AssertEqual(t, strings.Contains(js, "lib_exports"), false)
	test.AssertEqual(t, run(t, "function f() {}\n", js, "result"), "1")
}

func TestBundleCommonJSInterop(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import lib, {foo, bar} from './lib'; result = foo() + bar + lib.bar`,
			"/lib.js":   `module.exports = {foo() { return 'foo' }, bar: 2}`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, strings.Contains(js, "var require_lib = __commonJS(function(exports, module) {"), true)
	test.AssertEqual(t, strings.Contains(js, "(0, import_lib.foo)()"), true)
	test.AssertEqual(t, run(t, "", js, "result"), "foo22")
}

func TestBundleRequireESModule(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `const b = require('./b'); result = b.x + Object.keys(b).join()`,
			"/b.js":     `export let x = 3; export default 4`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, run(t, "", js, "result"), "3default,x")
}

func TestBundleWrappedEntryPoint(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `module.exports = 1; result = require('./lib').value`,
			"/lib.js":   `exports.value = 'ran'`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, strings.Contains(js, "require_entry();"), true)
	test.AssertEqual(t, run(t, "", js, "result"), "ran")
}

func TestBundleCommonJSFormat(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `export let x = 5; export default 'd'`,
		},
		entryPaths: []string{"/entry.js"},
		options:    config.Options{OutputFormat: config.FormatCommonJS},
	}.single(t)

	test.AssertEqual(t, strings.Contains(js, "module.exports = entry_exports;"), true)
	test.AssertEqual(t, run(t, "var module = {exports: {}};\n", js, "module.exports.x + module.exports.default"), "5d")
}

func TestBundleESModuleFormat(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `export {b as renamed} from './lib'; export let a = 1; export default function() {}`,
			"/lib.js":   `export let b = 2`,
		},
		entryPaths: []string{"/entry.js"},
	}.single(t)

	test.AssertEqual(t, strings.Contains(js, "function entry_default() {\n}"), true)
	test.AssertEqual(t, strings.HasSuffix(js, "export { a, entry_default as default, b as renamed };\n"), true)
}

func TestBundleExternal(t *testing.T) {
	options := config.Options{ExternalModules: map[string]bool{"ext": true}}
	js := bundled{
		files: map[string]string{
			"/entry.js": `import {x} from 'ext'; f(x)`,
		},
		entryPaths: []string{"/entry.js"},
		options:    options,
	}.single(t)
	test.AssertEqual(t, strings.Contains(js, "from \"ext\";"), true)

	options.OutputFormat = config.FormatIIFE
	js = bundled{
		files: map[string]string{
			"/entry.js": `import {x} from 'ext'; result = x`,
		},
		entryPaths: []string{"/entry.js"},
		options:    options,
	}.single(t)
	prelude := "function require(path) { return {x: path} }\n"
	test.AssertEqual(t, run(t, prelude, js, "result"), "ext")
}

func TestBundleCodeSplitting(t *testing.T) {
	results, err := bundled{
		files: map[string]string{
			"/a.js":      `import {shared} from './shared'; export let fromA = shared + 1`,
			"/b.js":      `import {shared} from './shared'; export let fromB = shared + 2`,
			"/shared.js": `export let shared = 1`,
		},
		entryPaths: []string{"/a.js", "/b.js"},
	}.compile(t)
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, len(results), 3)
	test.AssertEqual(t, results[0].Path, "a.js")
	test.AssertEqual(t, results[1].Path, "b.js")
	test.AssertEqual(t, results[2].Path, "common.js")

	for _, result := range results[:2] {
		contents := string(result.Contents)
		test.AssertEqual(t, strings.Contains(contents, "from \"./common.js\";"), true)
		test.AssertEqual(t, strings.Contains(contents, "// shared.js"), false)
	}
	common := string(results[2].Contents)
	test.AssertEqual(t, strings.Contains(common, "// shared.js"), true)
	test.AssertEqual(t, strings.Contains(common, "export {"), true)
}

// Loads "cjs" chunks through a minimal require() that caches each chunk,
// then returns the value of "result"
func runCommonJSChunks(t *testing.T, results []OutputFile, script string) string {
	t.Helper()
	vm := goja.New()
	files := make(map[string]string, len(results))
	for _, result := range results {
		files["./"+result.Path] = string(result.Contents)
	}
	if err := vm.Set("files", files); err != nil {
		t.Fatal(err)
	}
	loader := `
		var cache = {};
		function require(path) {
			if (!cache[path]) {
				var module = cache[path] = { exports: {} };
				new Function("module", "exports", "require", files[path])(module, module.exports, require);
			}
			return cache[path].exports;
		}
	`
	if _, err := vm.RunString(loader + script); err != nil {
		t.Fatalf("%s\n%v", err, files)
	}
	value, err := vm.RunString("result")
	if err != nil {
		t.Fatal(err)
	}
	return value.String()
}

func TestBundleCommonJSCodeSplitting(t *testing.T) {
	results, err := bundled{
		files: map[string]string{
			"/a.js": `import {count, bump} from './shared'; export function getA() { return count }; export {bump}`,
			"/b.js": `import {count} from './shared'; export function getB() { return count }`,
			"/shared.js": `
				export let count = 0
				export function bump() { count++ }
				bump()
			`,
		},
		entryPaths: []string{"/a.js", "/b.js"},
		options:    config.Options{OutputFormat: config.FormatCommonJS},
	}.compile(t)
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, len(results), 3)
	test.AssertEqual(t, results[2].Path, "common.js")
	containing := 0
	for _, result := range results {
		if strings.Contains(string(result.Contents), "// shared.js") {
			containing++
		}
	}
	test.AssertEqual(t, containing, 1)
	test.AssertEqual(t, strings.Contains(string(results[0].Contents), "var common = require(\"./common.js\");"), true)
	test.AssertEqual(t, strings.Contains(string(results[2].Contents), "__export(exports, {"), true)

	// The shared module runs once and both entries see the same live binding
	script := `
		var a = require("./a.js");
		var b = require("./b.js");
		a.bump();
		var result = a.getA() + "," + b.getB();
	`
	test.AssertEqual(t, runCommonJSChunks(t, results, script), "2,2")
}

func TestBundleCommonJSEntryImportsEntry(t *testing.T) {
	results, err := bundled{
		files: map[string]string{
			"/a.js": `export let name = 'a'`,
			"/b.js": `import {name} from './a'; export let greeting = 'hi ' + name`,
		},
		entryPaths: []string{"/a.js", "/b.js"},
		options:    config.Options{OutputFormat: config.FormatCommonJS},
	}.compile(t)
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, len(results), 2)
	test.AssertEqual(t, strings.Contains(string(results[1].Contents), "// a.js"), false)
	script := `var result = require("./b.js").greeting + "," + require("./a.js").name;`
	test.AssertEqual(t, runCommonJSChunks(t, results, script), "hi a,a")
}

func TestBundleSharedModuleInIIFE(t *testing.T) {
	_, err := bundled{
		files: map[string]string{
			"/a.js":      `import {shared} from './shared'; result = shared + 1`,
			"/b.js":      `import {shared} from './shared'; result = shared + 2`,
			"/shared.js": `export let shared = 1`,
		},
		entryPaths:         []string{"/a.js", "/b.js"},
		options:            iife(),
		expectedCompileLog: "error: \"shared.js\" is imported by more than one entry point, which the \"iife\" format does not support\n",
	}.compile(t)
	if !errors.Is(err, ErrBundleFailed) {
		t.Fatalf("Expected a bundle failure, got %v", err)
	}

	_, err = bundled{
		files: map[string]string{
			"/a.js": `export let a = 1`,
			"/b.js": `import {a} from './a'; result = a`,
		},
		entryPaths:         []string{"/a.js", "/b.js"},
		options:            iife(),
		expectedCompileLog: "error: Entry point \"b.js\" imports entry point \"a.js\", which the \"iife\" format does not support\n",
	}.compile(t)
	if !errors.Is(err, ErrBundleFailed) {
		t.Fatalf("Expected a bundle failure, got %v", err)
	}
}

func TestBundleSeparateEntryPointsWithoutSharing(t *testing.T) {
	results, err := bundled{
		files: map[string]string{
			"/a.js":   `import {x} from './onlyA'; result = x + 1`,
			"/b.js":   `import {y} from './onlyB'; result = y + 2`,
			"/onlyA.js": `export let x = 1`,
			"/onlyB.js": `export let y = 1`,
		},
		entryPaths: []string{"/a.js", "/b.js"},
		options:    iife(),
	}.compile(t)
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, len(results), 2)
	test.AssertEqual(t, run(t, "", string(results[0].Contents), "result"), "2")
	test.AssertEqual(t, run(t, "", string(results[1].Contents), "result"), "3")
}

func TestBundleDynamicImport(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `result = import('./lazy')`,
			"/lazy.js":  `export let value = 'lazy'`,
		},
		entryPaths: []string{"/entry.js"},
		options:    iife(),
	}.single(t)

	test.AssertEqual(t, strings.Contains(js, "__import(function() {"), true)
	test.AssertEqual(t, run(t, "", js, "result instanceof Promise"), "true")
}

func TestBundleMinified(t *testing.T) {
	js := bundled{
		files: map[string]string{
			"/entry.js": `import {longName} from './lib'; result = longName(20)`,
			"/lib.js":   `export function longName(value) { let doubled = value * 2; return doubled + 2 }`,
		},
		entryPaths: []string{"/entry.js"},
		options: config.Options{
			OutputFormat:      config.FormatIIFE,
			MinifyIdentifiers: true,
			RemoveWhitespace:  true,
		},
	}.single(t)

	test.AssertEqual(t, strings.HasPrefix(js, "(function(){"), true)
	test.AssertEqual(t, strings.Contains(js, "longName"), false)
	test.AssertEqual(t, strings.Contains(js, "doubled"), false)
	test.AssertEqual(t, strings.Contains(js, "// lib.js"), false)
	test.AssertEqual(t, run(t, "", js, "result"), "42")
}

func TestBundleSourceMap(t *testing.T) {
	results, err := bundled{
		files: map[string]string{
			"/entry.js": `import {a} from './a'; f(a)`,
			"/a.js":     `export let a = 1`,
		},
		entryPaths: []string{"/entry.js"},
		options:    config.Options{SourceMap: config.SourceMapLinkedWithComment},
	}.compile(t)
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, len(results), 1)
	test.AssertEqual(t, strings.HasSuffix(string(results[0].Contents), "//# sourceMappingURL=entry.js.map\n"), true)
	test.AssertEqual(t, strings.HasPrefix(string(results[0].SourceMap), `{"version":3,"sources":["a.js","entry.js"]`), true)
}

func TestBundleCompileCancelled(t *testing.T) {
	mockFS := fs.MockFS(map[string]string{"/entry.js": `f()`})
	log := logger.NewDeferLog()
	bundle, err := ScanBundle(context.Background(), log, mockFS, []string{"/entry.js"}, config.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = bundle.Compile(ctx, log, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation, got %v", err)
	}
}
