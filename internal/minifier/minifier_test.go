package minifier

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/js_printer"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
	"github.com/jspipe/jspipe/internal/test"
)

func parseForTest(t *testing.T, contents string) (js_ast.AST, logger.Source) {
	t.Helper()
	source := test.SourceForTest(contents)
	log := logger.NewDeferLog()
	tree, ok := js_parser.Parse(log, source, config.Options{IsModule: true})
	test.AssertEqualWithDiff(t, test.MsgsToString(log.Done()), "")
	if !ok {
		t.Fatal("Parse error")
	}
	return tree, source
}

func runPasses(t *testing.T, tree js_ast.AST, source logger.Source) (js_ast.AST, []logger.Msg) {
	t.Helper()
	log := logger.NewDeferLog()
	ctx := js_pass.NewContext(log, &source, config.Options{IsModule: true, MangleSyntax: true})
	for _, pass := range Passes() {
		var err error
		if tree, err = pass.Run(ctx, tree); err != nil {
			t.Fatal(err)
		}
	}
	return tree, log.Done()
}

func symbolsFor(tree js_ast.AST) js_ast.SymbolMap {
	symbols := js_ast.NewSymbolMap(1)
	symbols.Outer[0] = tree.Symbols
	return symbols
}

func printMangled(tree js_ast.AST) string {
	symbols := symbolsFor(tree)
	return string(js_printer.Print(tree, symbols, renamer.NewNoOpRenamer(symbols), js_printer.Options{MinifySyntax: true}).JS)
}

func printMinified(tree js_ast.AST) string {
	symbols := symbolsFor(tree)
	r := renamer.MinifyFile(&tree, symbols, 0, false)
	return string(js_printer.Print(tree, symbols, r, js_printer.Options{MinifySyntax: true, MinifyWhitespace: true}).JS)
}

func expectMangled(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		tree, source := parseForTest(t, contents)
		result, _ := runPasses(t, tree, source)
		mangled := printMangled(result)
		test.AssertEqualWithDiff(t, mangled, expected)

		// Running the passes again changes nothing
		again, _ := runPasses(t, result, source)
		test.AssertEqualWithDiff(t, printMangled(again), mangled)
	})
}

func expectWarning(t *testing.T, contents string, id logger.MsgID, text string) {
	t.Helper()
	t.Run(contents+" [warning]", func(t *testing.T) {
		t.Helper()
		tree, source := parseForTest(t, contents)
		result, msgs := runPasses(t, tree, source)
		if len(msgs) != 1 {
			t.Fatalf("Expected one warning, got %d:\n%s", len(msgs), test.MsgsToString(msgs))
		}
		test.AssertEqual(t, msgs[0].Kind, logger.Warning)
		test.AssertEqual(t, msgs[0].ID, id)
		test.AssertEqualWithDiff(t, msgs[0].Text, text)

		if id == logger.MsgID_JS_UnreachableCode {
			// The code is gone after the first run
			_, msgs = runPasses(t, result, source)
			test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")
		}
	})
}

// Minified code must compute the same value as the original. Every program
// ends with a call so that its completion value survives.
func expectSameResult(t *testing.T, contents string) {
	t.Helper()
	t.Run(contents+" [run]", func(t *testing.T) {
		t.Helper()
		expected, err := goja.New().RunString(contents)
		if err != nil {
			t.Fatal(err)
		}
		tree, source := parseForTest(t, contents)
		result, _ := runPasses(t, tree, source)
		minified := printMinified(result)
		observed, err := goja.New().RunString(minified)
		if err != nil {
			t.Fatalf("%s\n%s", err, minified)
		}
		test.AssertEqualWithDiff(t, observed.Export(), expected.Export())
	})
}

func TestFoldConstants(t *testing.T) {
	expectMangled(t, "x = 1 + 2 * 3", "x = 7;\n")
	expectMangled(t, "x = 10 % 3", "x = 1;\n")
	expectMangled(t, "x = 2 ** 10", "x = 1024;\n")
	expectMangled(t, "x = 1 << 3 | 1", "x = 9;\n")
	expectMangled(t, "x = -1 >>> 28", "x = 15;\n")
	expectMangled(t, "x = ~5", "x = -6;\n")
	expectMangled(t, "x = 'a' + 'b' + 1", "x = \"ab1\";\n")
	expectMangled(t, "x = y + 'a' + 'b'", "x = y + \"ab\";\n")
	expectMangled(t, "x = y + 1 + 2", "x = y + 1 + 2;\n")
	expectMangled(t, "x = typeof 1", "x = \"number\";\n")
	expectMangled(t, "x = typeof null", "x = \"object\";\n")
	expectMangled(t, "x = !'a'", "x = !1;\n")
	expectMangled(t, "x = !0", "x = !0;\n")
	expectMangled(t, "x = 1 === 1", "x = !0;\n")
	expectMangled(t, "x = 'a' !== 'a'", "x = !1;\n")
	expectMangled(t, "x = null == void 0", "x = !0;\n")
	expectMangled(t, "x = void 0 != null", "x = !1;\n")
	expectMangled(t, "x = null === void 0", "x = !1;\n")
	expectMangled(t, "x = 1 < 2", "x = !0;\n")
	expectMangled(t, "x = 0 || y", "x = y;\n")
	expectMangled(t, "x = 1 && y", "x = y;\n")
	expectMangled(t, "x = null ?? y", "x = y;\n")
	expectMangled(t, "x = 1 ? y : z", "x = y;\n")

	// Folding never drops side effects
	expectMangled(t, "x = f() + 1", "x = f() + 1;\n")
	expectMangled(t, "x = f() || y", "x = f() || y;\n")
}

func TestEqualsNaN(t *testing.T) {
	expectWarning(t, "x = y === 0 / 0", logger.MsgID_JS_EqualsNaN,
		"Comparison with NaN using the \"===\" operator here is always false")
	expectWarning(t, "x = 0 / 0 != y", logger.MsgID_JS_EqualsNaN,
		"Comparison with NaN using the \"!=\" operator here is always true")
}

func TestDeadCode(t *testing.T) {
	expectMangled(t, "if (true) a(); else b();", "a();\n")
	expectMangled(t, "if (false) a(); else b();", "b();\n")
	expectMangled(t, "if (false) { var x = 1; function f() {} } b();", "var x;\nb();\n")
	expectMangled(t, "while (false) a();", "")
	expectMangled(t, "1 + 2; b();", "b();\n")
	expectMangled(t, "function f() { return 1; var b = 2; }", "function f() {\n  return 1;\n  var b;\n}\n")
	expectMangled(t, "function f() { return g(); function g() { return 1 } }", "function f() {\n  return g();\n  function g() {\n    return 1;\n  }\n}\n")

	expectWarning(t, "function f() { return 1; a(); }", logger.MsgID_JS_UnreachableCode, "This code will never be executed")
}

func TestMangleSyntax(t *testing.T) {
	expectMangled(t, "if (a) b();", "a && b();\n")
	expectMangled(t, "if (!a) b();", "a || b();\n")
	expectMangled(t, "if (a) b(); else c();", "a ? b() : c();\n")
	expectMangled(t, "if (a) {} else b();", "a || b();\n")
	expectMangled(t, "if (a) { b(); c(); }", "a && (b(), c());\n")
	expectMangled(t, "x = a ? true : false", "x = !!a;\n")
	expectMangled(t, "x = a ? false : true", "x = !a;\n")
	expectMangled(t, "x = !a ? b : c", "x = a ? c : b;\n")
	expectMangled(t, "x = a ? a : b", "x = a || b;\n")
	expectMangled(t, "x = a ? b : a", "x = a && b;\n")
	expectMangled(t, "x = !(a == b)", "x = a != b;\n")
	expectMangled(t, "x = undefined", "x = void 0;\n")
	expectMangled(t, "var a = 1; var b = 2;", "var a = 1, b = 2;\n")
	expectMangled(t, "let a = 1; var b = 2;", "let a = 1;\nvar b = 2;\n")
	expectMangled(t, "a(); b();", "a(), b();\n")
	expectMangled(t, "function f() { a(); return b }", "function f() {\n  return a(), b;\n}\n")
	expectMangled(t, "function f() { a(); throw b }", "function f() {\n  throw a(), b;\n}\n")
	expectMangled(t, "{ a(); } { b(); }", "a(), b();\n")
	expectMangled(t, "{ let a = 1; } b();", "{\n  let a = 1;\n}\nb();\n")

	// A local named "undefined" is not the global
	expectMangled(t, "function f(undefined) { return undefined }", "function f(undefined) {\n  return undefined;\n}\n")
}

func TestMinifyPreservesBehavior(t *testing.T) {
	expectSameResult(t, "function fib(n) { if (n < 2) return n; else return fib(n - 1) + fib(n - 2) } fib(10)")
	expectSameResult(t, "var out = []; for (var i = 0; i < 5; i++) { if (i % 2) out.push(i); else out.push(-i) } out.join()")
	expectSameResult(t, "var s = ''; var i = 0; while (i < 3) { s += i; i++ } s.concat('!')")
	expectSameResult(t, "function f(x) { if (x) { return 'yes' } return 'no'; g() } [f(1), f(0)].join()")
	expectSameResult(t, "var o = {a: 1}; var k = typeof o.a === 'number' ? 'num' : 'other'; k.concat(1 + 2 + 'x')")
	expectSameResult(t, "function g(a, b) { var c = a || b; var d = a && b; return [c, d, !a ? 'n' : 'y'] } g(0, 2).join()")
	expectSameResult(t, "var calls = []; function t(v) { calls.push(v); return v } if (t(0)) t(1); else t(2); t(3) && t(4); if (!t(0)) t(5); calls.join()")
	expectSameResult(t, "var x = 10; var y = (function() { if (false) { var x = 1 } return typeof x })(); y.concat(x)")
	expectSameResult(t, "function h(n) { var r = []; for (;;) { if (n-- <= 0) break; r.push(n) } return r } h(3).join()")
	expectSameResult(t, "var undefinedCount = 0; function u(v) { if (v === undefined) undefinedCount++ } u(); u(1); u(void 0); String(undefinedCount)")
	expectSameResult(t, "var longName = 1; function outer(parameterName) { var localValue = parameterName * 2; return localValue + longName } outer(20).toString()")
}

func TestShortensOnlyNestedNames(t *testing.T) {
	tree, source := parseForTest(t, "var longName = 1; function outer(parameterName) { return parameterName + longName }")
	result, _ := runPasses(t, tree, source)
	minified := printMinified(result)
	if !strings.Contains(minified, "longName") || !strings.Contains(minified, "outer") {
		t.Fatalf("Top-level names were renamed:\n%s", minified)
	}
	if strings.Contains(minified, "parameterName") {
		t.Fatalf("Nested names were not shortened:\n%s", minified)
	}
}

func TestInputIsNotModified(t *testing.T) {
	contents := "if (a) { b(); c() } var x = 1 + 2; var y = undefined; function f() { return 1; g() }"
	tree, source := parseForTest(t, contents)
	before := printMangled(tree)
	runPasses(t, tree, source)
	test.AssertEqualWithDiff(t, printMangled(tree), before)
}
