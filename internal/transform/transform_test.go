package transform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/helpers"
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

func printForTest(tree js_ast.AST, target config.LanguageTarget) string {
	symbols := js_ast.NewSymbolMap(1)
	symbols.Outer[0] = tree.Symbols
	return string(js_printer.Print(tree, symbols, renamer.NewNoOpRenamer(symbols), js_printer.Options{
		UnsupportedFeatures: compat.UnsupportedJSFeatures(target),
	}).JS)
}

func runForTest(t *testing.T, contents string, options config.Options, passes []js_pass.Pass) (string, []logger.Msg) {
	t.Helper()
	tree, source := parseForTest(t, contents)
	log := logger.NewDeferLog()
	result, err := RunPasses(context.Background(), js_pass.NewContext(log, &source, options), tree, passes)
	if err != nil {
		t.Fatal(err)
	}
	return printForTest(result, options.Target), log.Done()
}

func expectPass(t *testing.T, pass js_pass.Pass, contents string, expected string) {
	t.Helper()
	t.Run(pass.Name+": "+contents, func(t *testing.T) {
		t.Helper()
		options := config.Options{IsModule: true, Target: config.ES5}
		printed, msgs := runForTest(t, contents, options, []js_pass.Pass{pass})
		test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")
		test.AssertEqualWithDiff(t, printed, expected)

		// A second run finds nothing left to do
		again, _ := runForTest(t, printed, options, []js_pass.Pass{pass})
		test.AssertEqualWithDiff(t, again, printed)
	})
}

func expectPassWarning(t *testing.T, pass js_pass.Pass, contents string, warning string) {
	t.Helper()
	t.Run(pass.Name+" [warning]: "+contents, func(t *testing.T) {
		t.Helper()
		printed, msgs := runForTest(t, contents, config.Options{IsModule: true, Target: config.ES5}, []js_pass.Pass{pass})
		if len(msgs) != 1 {
			t.Fatalf("Expected one warning, got %d", len(msgs))
		}
		test.AssertEqual(t, msgs[0].ID, logger.MsgID_JS_NotLowered)
		test.AssertEqualWithDiff(t, msgs[0].Text, warning)

		// The node is left as it was
		tree, _ := parseForTest(t, contents)
		test.AssertEqualWithDiff(t, printed, printForTest(tree, config.ES5))
	})
}

// Lowers the code for ES5 and runs it. The last expression statement is the
// result.
func expectLoweredResult(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents+" [run]", func(t *testing.T) {
		t.Helper()
		tree, source := parseForTest(t, contents)
		log := logger.NewDeferLog()
		result, err := Run(context.Background(), log, source, tree, config.Options{IsModule: true, Target: config.ES5})
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqualWithDiff(t, test.MsgsToString(log.Done()), "")
		lowered := printForTest(result, config.ES5)
		value, err := goja.New().RunString(lowered)
		if err != nil {
			t.Fatalf("%s\n%s", err, lowered)
		}
		test.AssertEqualWithDiff(t, value.String(), expected)
	})
}

func passNamed(name string) js_pass.Pass {
	for _, entry := range plan {
		if entry.pass.Name == name {
			return entry.pass
		}
	}
	panic("Unknown pass " + name)
}

func TestLowerLogicalAssign(t *testing.T) {
	pass := passNamed("lower-logical-assign")
	expectPass(t, pass, "a ||= b", "a || (a = b);\n")
	expectPass(t, pass, "a &&= b", "a && (a = b);\n")
	expectPass(t, pass, "a ??= b", "a ?? (a = b);\n")
	expectPass(t, pass, "a.b ||= c", "a.b || (a.b = c);\n")
	expectPass(t, pass, "a()[b] ??= c", "var _a;\n(_a = a())[b] ?? (_a[b] = c);\n")

	expectLoweredResult(t, "var a = 0, b = 1, c = null; a ||= 2; b &&= 3; c ??= 4; [a, b, c].join()", "2,3,4")
	expectLoweredResult(t, "var n = 0, o = {x: 1}; function f() { n++; return o } f().x ||= 2; f().y ||= 3; [n, o.x, o.y].join()", "2,1,3")
}

func TestLowerExponent(t *testing.T) {
	pass := passNamed("lower-exponent")
	expectPass(t, pass, "a ** b", "Math.pow(a, b);\n")
	expectPass(t, pass, "a ** b ** c", "Math.pow(a, Math.pow(b, c));\n")
	expectPass(t, pass, "a.b **= 2", "a.b = Math.pow(a.b, 2);\n")

	expectLoweredResult(t, "var x = {y: 3}; x.y **= 2; x.y + 2 ** 10", "1033")
}

func TestLowerNullish(t *testing.T) {
	pass := passNamed("lower-nullish")
	expectPass(t, pass, "a ?? b", "a != null ? a : b;\n")
	expectPass(t, pass, "a() ?? b", "var _a;\n(_a = a()) != null ? _a : b;\n")
	expectPass(t, pass, "a?.b", "a == null ? void 0 : a.b;\n")
	expectPass(t, pass, "a?.b.c", "a == null ? void 0 : a.b.c;\n")
	expectPass(t, pass, "a?.[b]", "a == null ? void 0 : a[b];\n")
	expectPass(t, pass, "a?.()", "a == null ? void 0 : a();\n")
	expectPass(t, pass, "f()?.x", "var _a;\n(_a = f()) == null ? void 0 : _a.x;\n")
	expectPass(t, pass, "delete a?.b", "a == null ? true : delete a.b;\n")

	expectLoweredResult(t, "var a = null, b = 0; [a ?? 1, b ?? 1].join()", "1,0")
	expectLoweredResult(t, "var o = {x: {y: 1}}, n = null; [o?.x.y, n?.x.y, typeof n?.()].join()", "1,,undefined")
	expectLoweredResult(t, "var o = {v: 2, m: function() { return this.v }}; o.m?.()", "2")
}

func TestLowerParams(t *testing.T) {
	expectLoweredResult(t, "function f(a = 1, b = a + 1) { return [a, b] } f().concat(f(5), f(5, 0)).join()", "1,2,5,6,5,0")
	expectLoweredResult(t, "function f(a, ...rest) { return rest.length } [f(), f(1), f(1, 2, 3)].join()", "0,0,2")
	expectLoweredResult(t, "var f = function({x} = {x: 7}) { return x }; [f(), f({x: 1})].join()", "7,1")
	expectLoweredResult(t, "var f = (a, ...b) => a + b.length; f(10, 1, 2)", "12")
	expectLoweredResult(t, "function outer() { var f = (...b) => arguments.length + b.length; return f(1) } outer(1, 2, 3)", "4")

	tree, source := parseForTest(t, "function f(a = 1, ...b) { return b }")
	result, err := lowerParams(js_pass.NewContext(logger.NewDeferLog(), &source, config.Options{}), tree)
	if err != nil {
		t.Fatal(err)
	}
	printed := printForTest(result, config.ES5)
	if strings.Contains(printed, "...") || strings.Contains(printed, "(a = 1") {
		t.Fatalf("Parameters were not lowered:\n%s", printed)
	}
	if !strings.Contains(printed, "Array.prototype.slice.call(arguments, 1)") {
		t.Fatalf("Missing rest argument slice:\n%s", printed)
	}
}

func TestLowerDestructuring(t *testing.T) {
	pass := passNamed("lower-destructuring")
	expectPass(t, pass, "var [a] = x;", "var a = x[0];\n")
	expectPass(t, pass, "var {a, b: [c = 1]} = x;", "var _a = x, a = _a.a, _b = _a.b[0], c = _b === void 0 ? 1 : _b;\n")
	expectPass(t, pass, "var {'a-b': c} = x;", "var c = x[\"a-b\"];\n")
	expectPass(t, pass, "var [a, ...b] = x;", "var _a = x, a = _a[0], b = _a.slice(1);\n")
	expectPass(t, pass, "[a, b] = [b, a];", "var _a;\n_a = [b, a], a = _a[0], b = _a[1], _a;\n")

	expectPassWarning(t, pass, "var {a, ...b} = x;", "Cannot lower an object rest pattern in a declaration")
	expectPassWarning(t, pass, "({a, ...b} = x);", "Cannot lower an object rest pattern in an assignment")
	expectPassWarning(t, pass, "for (var [a] in x) ;", "Cannot lower a destructuring pattern in a for-in or for-of loop")

	expectLoweredResult(t, "var {a, b: [c, d = 4]} = {a: 1, b: [3]}; [a, c, d].join()", "1,3,4")
	expectLoweredResult(t, "var a = 1, b = 2; [a, b] = [b, a]; [a, b].join()", "2,1")
	expectLoweredResult(t, "var x, y; var r = ({x, y = 5} = {x: 1}); [x, y, r.x].join()", "1,5,1")
	expectLoweredResult(t, "function f([a, b], {c}) { return a + b + c } f([1, 2], {c: 3})", "6")
	expectLoweredResult(t, "var f = function([a, b] = [1, 2]) { return a * b }; f()", "2")
	expectLoweredResult(t, "var r; try { throw {code: 7} } catch ({code}) { r = code } r", "7")
}

func TestLowerTemplate(t *testing.T) {
	pass := passNamed("lower-template")
	expectPass(t, pass, "x = `abc`", "x = \"abc\";\n")
	expectPass(t, pass, "x = `a${b}c`", "x = \"a\" + b + \"c\";\n")
	expectPass(t, pass, "x = `${a}${b}`", "x = \"\" + a + b;\n")

	expectLoweredResult(t, "var a = 1, b = 2; `${a}${b}` + `<${a + b}>`", "12<3>")
	expectLoweredResult(t, "function tag(s, v) { return s.raw[0] + '|' + s[0] + '|' + v + '|' + Object.isFrozen(s) } tag`\\n${5}`", "\\n|\n|5|true")
}

func TestLowerObject(t *testing.T) {
	pass := passNamed("lower-object")
	expectPass(t, pass, "x = {a}", "x = { a: a };\n")
	expectPass(t, pass, "x = {a, [b]: 1, c: 2}", "var _a;\nx = (_a = { a: a }, _a[b] = 1, _a.c = 2, _a);\n")
	expectPass(t, pass, "x = {a: 1}", "x = { a: 1 };\n")

	expectPassWarning(t, pass, "x = {get [a]() { return 1 }}", "Cannot lower a getter or setter with a computed key")

	expectLoweredResult(t, "var k = 'b', a = 1; var o = {a, [k]: 2, m() { return this.a + this.b }}; o.m()", "3")
	expectLoweredResult(t, "var k = 'x'; var o = {[k]: 1, get y() { return this.x + 1 }}; [o.y, Object.keys(o).join('')].join()", "2,xy")
}

func TestLowerArrow(t *testing.T) {
	pass := passNamed("lower-arrow")
	tree, source := parseForTest(t, "function f() { return () => this.x }")
	result, err := pass.Run(js_pass.NewContext(logger.NewDeferLog(), &source, config.Options{}), tree)
	if err != nil {
		t.Fatal(err)
	}
	printed := printForTest(result, config.ES5)
	if strings.Contains(printed, "=>") || !strings.Contains(printed, "var _this = this") {
		t.Fatalf("Arrow was not lowered:\n%s", printed)
	}

	expectLoweredResult(t, "var o = {x: 4, f: function() { return [1, 2].map(v => v * this.x) }}; o.f().join()", "4,8")
	expectLoweredResult(t, "function f() { var g = () => arguments[1]; return g(9) } f(1, 2)", "2")
	expectLoweredResult(t, "var add = (a, b) => a + b; add(2, 3)", "5")
	expectLoweredResult(t, "var f = () => ({a: 1}); f().a", "1")
}

func TestCheckUnsupported(t *testing.T) {
	expectUnsupported := func(contents string, text string) {
		t.Helper()
		t.Run(contents, func(t *testing.T) {
			t.Helper()
			tree, source := parseForTest(t, contents)
			log := logger.NewDeferLog()
			_, err := Run(context.Background(), log, source, tree, config.Options{IsModule: true, Target: config.ES5})
			if !errors.Is(err, ErrUnsupportedSyntax) {
				t.Fatalf("Expected an unsupported syntax error, got %v", err)
			}
			msgs := log.Done()
			if len(msgs) == 0 {
				t.Fatal("Expected a message")
			}
			test.AssertEqual(t, msgs[0].ID, logger.MsgID_UnsupportedSyntax)
			test.AssertEqualWithDiff(t, msgs[0].Text, text)
		})
	}

	expectUnsupported("class A {}", "Transforming classes to the configured target environment is not supported yet")
	expectUnsupported("x = class {}", "Transforming classes to the configured target environment is not supported yet")
	expectUnsupported("function* g() {}", "Transforming generator functions to the configured target environment is not supported yet")
	expectUnsupported("async function f() {}", "Transforming async functions to the configured target environment is not supported yet")
	expectUnsupported("for (var a of b) ;", "Transforming for-of loops to the configured target environment is not supported yet")
	expectUnsupported("f(...a)", "Transforming spread arguments to the configured target environment is not supported yet")
	expectUnsupported("x = [...a]", "Transforming spread arguments to the configured target environment is not supported yet")
	expectUnsupported("x = {...a}", "Transforming object rest and spread properties to the configured target environment is not supported yet")
	expectUnsupported("x = 1n", "Transforming big integer literals to the configured target environment is not supported yet")

	// The same code is fine for a newer target
	tree, source := parseForTest(t, "class A {}")
	if _, err := Run(context.Background(), logger.NewDeferLog(), source, tree, config.Options{IsModule: true, Target: config.ES2015}); err != nil {
		t.Fatal(err)
	}
}

func TestLexicalDeclarationsAreKept(t *testing.T) {
	tree, source := parseForTest(t, "let a = 1; const b = 2;")
	log := logger.NewDeferLog()
	result, err := Run(context.Background(), log, source, tree, config.Options{IsModule: true, Target: config.ES5})
	if err != nil {
		t.Fatal(err)
	}
	msgs := log.Done()
	test.AssertEqual(t, len(msgs), 2)
	for _, msg := range msgs {
		test.AssertEqual(t, msg.Kind, logger.Warning)
		test.AssertEqual(t, msg.ID, logger.MsgID_JS_LexicalDeclarationLowered)
	}
	test.AssertEqualWithDiff(t, printForTest(result, config.ES5), "let a = 1;\nconst b = 2;\n")
}

func TestOptionalCatchBinding(t *testing.T) {
	printed, msgs := runForTest(t, "try { a() } catch { b() }", config.Options{IsModule: true, Target: config.ES5}, Plan(config.Options{Target: config.ES5}))
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")
	if !strings.Contains(printed, "catch (_a)") {
		t.Fatalf("Missing catch binding:\n%s", printed)
	}
}

func TestDefine(t *testing.T) {
	production := config.DefineData{DefineFunc: func(logger.Loc, config.FindSymbol) js_ast.E {
		return &js_ast.EString{Value: helpers.StringToUTF16("production")}
	}}
	defines := config.ProcessDefines(map[string]config.DefineData{
		"process.env.NODE_ENV": production,
		"DEBUG": {DefineFunc: func(logger.Loc, config.FindSymbol) js_ast.E {
			return &js_ast.EBoolean{Value: false}
		}},
	})
	options := config.Options{IsModule: true, Defines: &defines}

	expectDefine := func(contents string, expected string) {
		t.Helper()
		t.Run(contents, func(t *testing.T) {
			t.Helper()
			printed, msgs := runForTest(t, contents, options, Plan(options))
			test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")
			test.AssertEqualWithDiff(t, printed, expected)
		})
	}

	expectDefine("x = process.env.NODE_ENV", "x = \"production\";\n")
	expectDefine("x = process.env.OTHER", "x = process.env.OTHER;\n")
	expectDefine("x = DEBUG", "x = false;\n")
	expectDefine("x = undefined", "x = void 0;\n")
	expectDefine("process.env.NODE_ENV = 1", "process.env.NODE_ENV = 1;\n")
	expectDefine("DEBUG++", "DEBUG++;\n")
	expectDefine("function f(DEBUG) { return DEBUG }", "function f(DEBUG) {\n  return DEBUG;\n}\n")
}

func TestPlan(t *testing.T) {
	names := func(options config.Options) string {
		var result []string
		for _, pass := range Plan(options) {
			result = append(result, pass.Name)
		}
		return strings.Join(result, ",")
	}

	test.AssertEqualWithDiff(t, names(config.Options{}), "")
	test.AssertEqualWithDiff(t, names(config.Options{Target: config.ES2020}), "lower-logical-assign")
	test.AssertEqualWithDiff(t, names(config.Options{Target: config.ES2015}),
		"lower-logical-assign,lower-nullish,lower-exponent,check-unsupported")
	test.AssertEqualWithDiff(t, names(config.Options{Target: config.ES5}),
		"lower-logical-assign,lower-nullish,lower-exponent,lower-params,lower-destructuring,"+
			"lower-template,lower-object,lower-arrow,check-unsupported")
	test.AssertEqualWithDiff(t, names(config.Options{MangleSyntax: true}), "fold-constants,dead-code,mangle-syntax")
}

func TestInputIsNotModified(t *testing.T) {
	contents := "var {a, b} = f(...[1]) ?? {}; var g = (x = 1) => this ** x; h`t${a}`; o = {a, [b]: 2}; p ||= q?.r"
	tree, source := parseForTest(t, contents)
	before := printForTest(tree, config.ESNext)
	symbolCount := len(tree.Symbols)

	options := config.Options{IsModule: true, Target: config.ES2015}
	if _, err := Run(context.Background(), logger.NewDeferLog(), source, tree, options); err != nil {
		t.Fatal(err)
	}
	options.Target = config.ES5
	_, _ = RunPasses(context.Background(), js_pass.NewContext(logger.NewDeferLog(), &source, options), tree, Plan(options)[:8])

	test.AssertEqual(t, len(tree.Symbols), symbolCount)
	test.AssertEqualWithDiff(t, printForTest(tree, config.ESNext), before)
}

func TestIdempotentPipeline(t *testing.T) {
	contents := "var {a, b: [c = 1]} = x; function f(d = 2, ...e) { return `${d}` + (e[0] ?? c) ** 2 }\n" +
		"var g = () => ({a, [b]: c}); y ||= z?.w"
	options := config.Options{IsModule: true, Target: config.ES5}

	once, msgs := runForTest(t, contents, options, Plan(options))
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")
	twice, msgs := runForTest(t, once, options, Plan(options))
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")
	test.AssertEqualWithDiff(t, twice, once)
}

func TestCancellation(t *testing.T) {
	tree, source := parseForTest(t, "a ?? b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, logger.NewDeferLog(), source, tree, config.Options{IsModule: true, Target: config.ES5})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation, got %v", err)
	}
}
