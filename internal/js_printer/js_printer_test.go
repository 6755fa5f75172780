package js_printer

import (
	"regexp"
	"testing"

	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
	"github.com/jspipe/jspipe/internal/sourcemap"
	"github.com/jspipe/jspipe/internal/test"
)

func parseForTest(t *testing.T, contents string) (js_ast.AST, js_ast.SymbolMap) {
	t.Helper()
	log := logger.NewDeferLog()
	tree, ok := js_parser.Parse(log, test.SourceForTest(contents), config.Options{IsModule: true})
	test.AssertEqualWithDiff(t, test.MsgsToString(log.Done()), "")
	if !ok {
		t.Fatal("Parse error")
	}
	symbols := js_ast.NewSymbolMap(1)
	symbols.Outer[0] = tree.Symbols
	return tree, symbols
}

func printForTest(t *testing.T, contents string, options Options) string {
	t.Helper()
	tree, symbols := parseForTest(t, contents)
	return string(Print(tree, symbols, renamer.NewNoOpRenamer(symbols), options).JS)
}

func expectPrintedCommon(t *testing.T, name string, contents string, expected string, options Options) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		t.Helper()
		test.AssertEqualWithDiff(t, printForTest(t, contents, options), expected)
	})
}

func expectPrinted(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents, contents, expected, Options{})
}

func expectPrintedMinify(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents+" [minified]", contents, expected, Options{
		MinifyWhitespace: true,
	})
}

func expectPrintedMangle(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents+" [mangled]", contents, expected, Options{
		MinifySyntax: true,
	})
}

func expectPrintedTarget(t *testing.T, target config.LanguageTarget, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents+" [target]", contents, expected, Options{
		UnsupportedFeatures: compat.UnsupportedJSFeatures(target),
	})
}

// Every "start" and "*Start" offset moves when whitespace changes
var locationFields = regexp.MustCompile(`,"([a-z]*Start|start|singleLine|shorthand)":(\d+|true|false)`)

// Printing and re-parsing must give back the same tree, ignoring locations
// and formatting hints
func expectRoundTrip(t *testing.T, contents string) {
	t.Helper()
	t.Run(contents+" [round trip]", func(t *testing.T) {
		t.Helper()
		for _, options := range []Options{{}, {MinifyWhitespace: true}} {
			tree, symbols := parseForTest(t, contents)
			printed := string(Print(tree, symbols, renamer.NewNoOpRenamer(symbols), options).JS)
			tree2, _ := parseForTest(t, printed)
			before := locationFields.ReplaceAllString(js_ast.SerializeAST(&tree), "")
			after := locationFields.ReplaceAllString(js_ast.SerializeAST(&tree2), "")
			test.AssertEqualWithDiff(t, after, before)
		}
	})
}

func TestNumber(t *testing.T) {
	expectPrinted(t, "x = 0", "x = 0;\n")
	expectPrinted(t, "x = 123", "x = 123;\n")
	expectPrinted(t, "x = 1000", "x = 1e3;\n")
	expectPrinted(t, "x = 0.5", "x = 0.5;\n")
	expectPrinted(t, "x = 0.001", "x = 1e-3;\n")
	expectPrinted(t, "x = 0xFF", "x = 255;\n")
	expectPrinted(t, "x = 1.5e10", "x = 15e9;\n")
	expectPrinted(t, "1..toString()", "1 .toString();\n")
	expectPrinted(t, "x = 10n", "x = 10n;\n")

	expectPrintedMinify(t, "x = 0.5", "x=.5;")
	expectPrintedMinify(t, "x = -0.5", "x=-.5;")
}

func TestString(t *testing.T) {
	expectPrinted(t, "x = 'abc'", "x = \"abc\";\n")
	expectPrinted(t, "x = \"it's\"", "x = \"it's\";\n")
	expectPrinted(t, "x = 'say \"hi\"'", "x = 'say \"hi\"';\n")
	expectPrinted(t, "x = '\\'\"'", "x = `'\"`;\n")
	expectPrinted(t, "x = '\\0'", "x = \"\\0\";\n")
	expectPrinted(t, "x = '\\x001'", "x = \"\\x001\";\n")
	expectPrinted(t, "x = '\\n\\t'", "x = \"\\n\\t\";\n")
	expectPrinted(t, "x = '\\u2028'", "x = \"\\u2028\";\n")
	expectPrinted(t, "x = '</script>'", "x = \"<\\/script>\";\n")
	expectPrinted(t, "x = 'π'", "x = \"π\";\n")

	expectPrintedTarget(t, config.ES5, "x = '\\'\"'", "x = \"'\\\"\";\n")
}

func TestTemplate(t *testing.T) {
	expectPrinted(t, "x = `a${b}c`", "x = `a${b}c`;\n")
	expectPrinted(t, "x = `a\\n${b}`", "x = `a\n${b}`;\n")
	expectPrinted(t, "x = tag`\\n${b}\\u0041`", "x = tag`\\n${b}\\u0041`;\n")

	expectPrintedMangle(t, "x = `abc`", "x = \"abc\";\n")
	expectPrintedMangle(t, "x = tag`abc`", "x = tag`abc`;\n")
}

func TestRegExp(t *testing.T) {
	expectPrinted(t, "x = /a/g", "x = /a/g;\n")
	expectPrintedMinify(t, "x = a / /b/", "x=a/ /b/;")
	expectPrintedMinify(t, "x = /a/ in b", "x=/a/ in b;")
}

func TestOperators(t *testing.T) {
	expectPrinted(t, "a + b * c", "a + b * c;\n")
	expectPrinted(t, "(a + b) * c", "(a + b) * c;\n")
	expectPrinted(t, "a - (b - c)", "a - (b - c);\n")
	expectPrinted(t, "a ** b ** c", "a ** b ** c;\n")
	expectPrinted(t, "(a ** b) ** c", "(a ** b) ** c;\n")
	expectPrinted(t, "(-a) ** b", "(-a) ** b;\n")
	expectPrinted(t, "a ?? (b || c)", "a ?? (b || c);\n")
	expectPrinted(t, "(a && b) ?? c", "(a && b) ?? c;\n")
	expectPrinted(t, "-(-x)", "- -x;\n")
	expectPrinted(t, "+(+x)", "+ +x;\n")
	expectPrinted(t, "-(--x)", "- --x;\n")
	expectPrinted(t, "typeof x", "typeof x;\n")
	expectPrinted(t, "void 0", "void 0;\n")
	expectPrinted(t, "x++", "x++;\n")
	expectPrinted(t, "a = b = c", "a = b = c;\n")
	expectPrinted(t, "(a, b)", "a, b;\n")
	expectPrinted(t, "f((a, b))", "f((a, b));\n")
	expectPrinted(t, "a ? b : c ? d : e", "a ? b : c ? d : e;\n")
	expectPrinted(t, "(a ? b : c) ? d : e", "(a ? b : c) ? d : e;\n")

	expectPrintedMinify(t, "a + +b", "a+ +b;")
	expectPrintedMinify(t, "a - -b", "a- -b;")
	expectPrintedMinify(t, "a + -b", "a+-b;")
	expectPrintedMinify(t, "a in b", "a in b;")
	expectPrintedMinify(t, "typeof (x)", "typeof x;")
}

func TestCalls(t *testing.T) {
	expectPrinted(t, "a(b, c)", "a(b, c);\n")
	expectPrinted(t, "a?.(b)", "a?.(b);\n")
	expectPrinted(t, "a?.b.c", "a?.b.c;\n")
	expectPrinted(t, "(a?.b).c", "(a?.b).c;\n")
	expectPrinted(t, "a[b]", "a[b];\n")
	expectPrinted(t, "a?.[b]", "a?.[b];\n")
	expectPrinted(t, "new Foo", "new Foo();\n")
	expectPrinted(t, "new (foo())", "new (foo())();\n")
	expectPrinted(t, "new (a.b())", "new (a.b())();\n")
	expectPrinted(t, "(new Foo).x", "new Foo().x;\n")
	expectPrinted(t, "import('x')", "import(\"x\");\n")
	expectPrinted(t, "x = import.meta", "x = import.meta;\n")

	expectPrintedMinify(t, "new Foo", "new Foo;")
	expectPrintedMinify(t, "new Foo(a)", "new Foo(a);")
	expectPrintedMinify(t, "(new Foo).x", "new Foo().x;")
}

func TestEval(t *testing.T) {
	expectPrinted(t, "eval(x)", "eval(x);\n")
	expectPrinted(t, "(0, eval)(x)", "(0, eval)(x);\n")
}

func TestObject(t *testing.T) {
	expectPrinted(t, "x = {}", "x = {};\n")
	expectPrinted(t, "x = {a: 1, 'b-c': 2, [d]: 3}", "x = { a: 1, \"b-c\": 2, [d]: 3 };\n")
	expectPrinted(t, "x = {a, b: b, c: d}", "x = { a, b, c: d };\n")
	expectPrinted(t, "x = {...a}", "x = { ...a };\n")
	expectPrinted(t, "x = {get a() {}, set a(v) {}}", "x = { get a() {\n}, set a(v) {\n} };\n")
	expectPrinted(t, "x = {async *f() {}}", "x = { async *f() {\n} };\n")
	expectPrinted(t, "x = {\n  a: 1\n}", "x = {\n  a: 1\n};\n")
	expectPrinted(t, "({}).x", "({}).x;\n")
	expectPrinted(t, "({} = x)", "({} = x);\n")

	expectPrintedTarget(t, config.ES5, "x = {a, b: b}", "x = { a: a, b: b };\n")
	expectPrintedMinify(t, "x = {a: 1, b}", "x={a:1,b};")
}

func TestArray(t *testing.T) {
	expectPrinted(t, "x = []", "x = [];\n")
	expectPrinted(t, "x = [1, , 2]", "x = [1, , 2];\n")
	expectPrinted(t, "x = [1, ,]", "x = [1, ,];\n")
	expectPrinted(t, "x = [...a]", "x = [...a];\n")
	expectPrinted(t, "x = [\n  1,\n  2\n]", "x = [\n  1,\n  2\n];\n")
}

func TestArrow(t *testing.T) {
	expectPrinted(t, "x => x", "(x) => x;\n")
	expectPrinted(t, "async (a, b) => a", "async (a, b) => a;\n")
	expectPrinted(t, "() => ({})", "() => ({});\n")
	expectPrinted(t, "() => {}", "() => {\n};\n")
	expectPrinted(t, "(...a) => a", "(...a) => a;\n")
	expectPrinted(t, "x = (a = 1) => a", "x = (a = 1) => a;\n")
	expectPrinted(t, "(() => {})()", "(() => {\n})();\n")

	expectPrintedMinify(t, "x => x", "x=>x;")
	expectPrintedMinify(t, "(x) => x", "x=>x;")
	expectPrintedMinify(t, "(x = 1) => x", "(x=1)=>x;")
	expectPrintedMinify(t, "async x => x", "async x=>x;")
}

func TestFunction(t *testing.T) {
	expectPrinted(t, "function f(a, b = 1, ...c) {}", "function f(a, b = 1, ...c) {\n}\n")
	expectPrinted(t, "async function f() { await x }", "async function f() {\n  await x;\n}\n")
	expectPrinted(t, "function* f() { yield; yield x; yield* y }", "function* f() {\n  yield;\n  yield x;\n  yield* y;\n}\n")
	expectPrinted(t, "(function() {})", "(function() {\n});\n")
	expectPrinted(t, "(function f() {})()", "(function f() {\n})();\n")
	expectPrinted(t, "x = function() {}", "x = function() {\n};\n")
	expectPrinted(t, "function f() { return new.target }", "function f() {\n  return new.target;\n}\n")

	expectPrintedMinify(t, "function f(a, b) { return a + b }", "function f(a,b){return a+b}")
}

func TestClass(t *testing.T) {
	expectPrinted(t, "class A {}", "class A {\n}\n")
	expectPrinted(t, "class A extends B {}", "class A extends B {\n}\n")
	expectPrinted(t, "class A extends (B, C) {}", "class A extends (B, C) {\n}\n")
	expectPrinted(t, "class A { m() {} static s() {} }", "class A {\n  m() {\n  }\n  static s() {\n  }\n}\n")
	expectPrinted(t, "class A { x = 1; static y }", "class A {\n  x = 1;\n  static y;\n}\n")
	expectPrinted(t, "class A { get x() { return 1 } }", "class A {\n  get x() {\n    return 1;\n  }\n}\n")
	expectPrinted(t, "(class {})", "(class {\n});\n")
	expectPrinted(t, "x = class B {}", "x = class B {\n};\n")

	expectPrintedMinify(t, "class A { x = 1; y = 2 }", "class A{x=1;y=2}")
}

func TestBinding(t *testing.T) {
	expectPrinted(t, "let {a, b: c = 1, ...d} = e", "let { a, b: c = 1, ...d } = e;\n")
	expectPrinted(t, "let [a, , b = 1, ...c] = d", "let [a, , b = 1, ...c] = d;\n")
	expectPrinted(t, "let [a, ,] = b", "let [a, ,] = b;\n")
	expectPrinted(t, "let {[a]: b} = c", "let { [a]: b } = c;\n")
	expectPrinted(t, "let {'a-b': c} = d", "let { \"a-b\": c } = d;\n")

	expectPrintedMinify(t, "let {a, b: c} = d", "let{a,b:c}=d;")
	expectPrintedMinify(t, "let [a, b] = c", "let[a,b]=c;")
}

func TestStatements(t *testing.T) {
	expectPrinted(t, "var a = 1, b", "var a = 1, b;\n")
	expectPrinted(t, "const a = 1", "const a = 1;\n")
	expectPrinted(t, ";", ";\n")
	expectPrinted(t, "{ a(); b() }", "{\n  a();\n  b();\n}\n")
	expectPrinted(t, "debugger", "debugger;\n")
	expectPrinted(t, "throw x", "throw x;\n")
	expectPrinted(t, "while (a) b()", "while (a)\n  b();\n")
	expectPrinted(t, "do a(); while (b)", "do\n  a();\nwhile (b);\n")
	expectPrinted(t, "do { a() } while (b)", "do {\n  a();\n} while (b);\n")
	expectPrinted(t, "x: for (;;) { break x; continue x }", "x:\n  for (; ; ) {\n    break x;\n    continue x;\n  }\n")
	expectPrinted(t, "for (let i = 0; i < n; i++) ;", "for (let i = 0; i < n; i++)\n  ;\n")
	expectPrinted(t, "for (var x = (a in b); ;) ;", "for (var x = (a in b); ; )\n  ;\n")
	expectPrinted(t, "for (a in b) {}", "for (a in b) {\n}\n")
	expectPrinted(t, "for (const a of b) {}", "for (const a of b) {\n}\n")
	expectPrinted(t, "async function f() { for await (x of y) ; }", "async function f() {\n  for await (x of y)\n    ;\n}\n")
	expectPrinted(t, "try { a } catch (e) { b } finally { c }", "try {\n  a;\n} catch (e) {\n  b;\n} finally {\n  c;\n}\n")
	expectPrinted(t, "try { a } catch { b }", "try {\n  a;\n} catch {\n  b;\n}\n")
	expectPrinted(t, "switch (x) { case 1: y(); break; default: z() }",
		"switch (x) {\n  case 1:\n    y();\n    break;\n  default:\n    z();\n}\n")
	expectPrinted(t, "switch (x) { case 1: { y() } }", "switch (x) {\n  case 1: {\n    y();\n  }\n}\n")
}

func TestIf(t *testing.T) {
	expectPrinted(t, "if (a) b", "if (a)\n  b;\n")
	expectPrinted(t, "if (a) b; else c", "if (a)\n  b;\nelse\n  c;\n")
	expectPrinted(t, "if (a) { b } else { c }", "if (a) {\n  b;\n} else {\n  c;\n}\n")
	expectPrinted(t, "if (a) b; else if (c) d", "if (a)\n  b;\nelse if (c)\n  d;\n")
	expectPrinted(t, "if (a) { if (b) c } else d", "if (a) {\n  if (b)\n    c;\n} else\n  d;\n")
	expectPrinted(t, "if (a) { for (;;) if (b) c } else d", "if (a) {\n  for (; ; )\n    if (b)\n      c;\n} else\n  d;\n")

	expectPrintedMinify(t, "if (a) { b() } else { c() }", "if(a){b()}else{c()}")
	expectPrintedMinify(t, "if (a) b(); else c()", "if(a)b();else c();")
}

func TestImportExport(t *testing.T) {
	expectPrinted(t, "import 'x'", "import \"x\";\n")
	expectPrinted(t, "import a from 'x'", "import a from \"x\";\n")
	expectPrinted(t, "import a, {b as c, d} from 'x'", "import a, { b as c, d } from \"x\";\n")
	expectPrinted(t, "import * as ns from 'x'", "import * as ns from \"x\";\n")
	expectPrinted(t, "import a, * as ns from 'x'", "import a, * as ns from \"x\";\n")
	expectPrinted(t, "export * from 'x'", "export * from \"x\";\n")
	expectPrinted(t, "export * as ns from 'x'", "export * as ns from \"x\";\n")
	expectPrinted(t, "export {a as b, c} from 'x'", "export { a as b, c } from \"x\";\n")
	expectPrinted(t, "let a, c; export {a as b, c}", "let a, c;\nexport { a as b, c };\n")
	expectPrinted(t, "export let a = 1", "export let a = 1;\n")
	expectPrinted(t, "export function f() {}", "export function f() {\n}\n")
	expectPrinted(t, "export class A {}", "export class A {\n}\n")
	expectPrinted(t, "export default 1 + 2", "export default 1 + 2;\n")
	expectPrinted(t, "export default function() {}", "export default function() {\n}\n")
	expectPrinted(t, "export default class {}", "export default class {\n}\n")
	expectPrinted(t, "export default (function() {})", "export default (function() {\n});\n")

	expectPrintedMinify(t, "import {a} from 'x'", "import{a}from\"x\";")
	expectPrintedMinify(t, "export * from 'x'", "export*from\"x\";")
}

func TestHashbangAndDirectives(t *testing.T) {
	expectPrinted(t, "#!/usr/bin/env node\nlet a", "#!/usr/bin/env node\nlet a;\n")
	expectPrinted(t, "'use strict'; a", "\"use strict\";\na;\n")
	expectPrinted(t, "function f() { 'use strict'; a }", "function f() {\n  \"use strict\";\n  a;\n}\n")

	expectPrintedMinify(t, "#!/usr/bin/env node\n'use strict'; a", "#!/usr/bin/env node\n\"use strict\";a;")
}

func TestMangle(t *testing.T) {
	expectPrintedMangle(t, "x = true", "x = !0;\n")
	expectPrintedMangle(t, "x = false", "x = !1;\n")
	expectPrintedMangle(t, "x = true.toString()", "x = (!0).toString();\n")
	expectPrintedMangle(t, "x = true ** 2", "x = (!0) ** 2;\n")
}

func TestRoundTrip(t *testing.T) {
	expectRoundTrip(t, "let a = 1, b = 'two', c = `t${a}e`, d = /re/g, e = 10n")
	expectRoundTrip(t, "a + b * c - (d - e) / f ** g ** h")
	expectRoundTrip(t, "a ?? (b || c); (a && b) ?? c; a?.b?.[c]?.(d)")
	expectRoundTrip(t, "x = {a, b: c, [d]: e, ...f, get g() { return 1 }, h() {}}")
	expectRoundTrip(t, "let {a, b: [c, , d = 1], ...e} = f")
	expectRoundTrip(t, "function f(a, b = 1, ...c) { return arguments }")
	expectRoundTrip(t, "async function* g() { for await (const x of y) yield* x }")
	expectRoundTrip(t, "class A extends B { x = 1; static y() { super.y() } get z() { return 1 } }")
	expectRoundTrip(t, "if (a) { if (b) c } else d")
	expectRoundTrip(t, "label: for (let i = 0; i < 10; i++) { if (i) continue label; else break label }")
	expectRoundTrip(t, "try { a() } catch ({message}) { b(message) } finally { c() }")
	expectRoundTrip(t, "switch (x) { case 1: case 2: y(); break; default: z() }")
	expectRoundTrip(t, "import a, {b as c} from 'x'; import * as ns from 'y'; export {a, c as d}; export * from 'z'")
	expectRoundTrip(t, "export default class {}")
	expectRoundTrip(t, "(() => ({}))(); (function() {})(); new (a.b())()")
	expectRoundTrip(t, "x = -(-y); x = +(+y); x = - --y; x = a + +b; x = 1..toString()")
	expectRoundTrip(t, "tag`a${b}\\n`")
	expectRoundTrip(t, "x = (-2) ** 2; y = (-a) ** b; z = (typeof a) ** -b")
	expectRoundTrip(t, "x = a ?? (b || c); y = (a ?? b) || c")
}

func TestSourceMapMappings(t *testing.T) {
	contents := "let foo = 1;\nfoo += 2;\n"
	tree, symbols := parseForTest(t, contents)
	result := Print(tree, symbols, renamer.NewNoOpRenamer(symbols), Options{
		MinifyWhitespace:  true,
		AddSourceMappings: true,
		SourceContents:    contents,
		LineOffsetTables:  sourcemap.GenerateLineOffsetTables(contents, tree.ApproximateLineCount),
	})
	test.AssertEqual(t, string(result.JS), "let foo=1;foo+=2;")
	test.AssertEqual(t, result.SourceMapChunk.ShouldIgnore, false)

	joined := sourcemap.Join([]sourcemap.SourceFile{{Path: "in.js", Contents: contents}},
		[]sourcemap.Piece{{Chunk: result.SourceMapChunk}})
	log := logger.NewDeferLog()
	sourceMap := js_parser.ParseSourceMap(log, logger.Source{Contents: string(joined)})
	if sourceMap == nil {
		t.Fatal("Invalid source map: " + string(joined))
	}

	// "foo" in "foo+=2" comes from the start of the second line
	mapping := sourceMap.Find(0, 10)
	if mapping == nil {
		t.Fatal("Missing mapping")
	}
	test.AssertEqual(t, mapping.OriginalLine, int32(1))
	test.AssertEqual(t, mapping.OriginalColumn, int32(0))

	// Every mapping points inside the original file
	for _, m := range sourceMap.Mappings {
		if m.SourceIndex != 0 || m.OriginalLine > 1 {
			t.Fatalf("Mapping out of range: %+v", m)
		}
	}
}

func TestRenamedSymbols(t *testing.T) {
	contents := "let foo = 1; function f(x) { return x + foo } function g(y) { return y }"
	tree, symbols := parseForTest(t, contents)
	r := renamer.MinifyFile(&tree, symbols, 0, false /* minifyTopLevel */)
	js := Print(tree, symbols, r, Options{MinifyWhitespace: true}).JS
	test.AssertEqual(t, string(js), "let foo=1;function f(a){return a+foo}function g(a){return a}")
}
