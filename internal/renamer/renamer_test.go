package renamer_test

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/js_printer"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
	"github.com/jspipe/jspipe/internal/test"
)

func parseFiles(t *testing.T, isModule bool, contents ...string) ([]js_ast.AST, js_ast.SymbolMap) {
	t.Helper()
	trees := make([]js_ast.AST, len(contents))
	symbols := js_ast.NewSymbolMap(len(contents))
	for i, text := range contents {
		source := test.SourceForTest(text)
		source.Index = uint32(i)
		log := logger.NewDeferLog()
		tree, ok := js_parser.Parse(log, source, config.Options{IsModule: isModule})
		test.AssertEqualWithDiff(t, test.MsgsToString(log.Done()), "")
		if !ok {
			t.Fatal("Parse error")
		}
		trees[i] = tree
		symbols.Outer[i] = tree.Symbols
	}
	return trees, symbols
}

func topLevelRef(t *testing.T, tree js_ast.AST, symbols js_ast.SymbolMap, name string) js_ast.Ref {
	t.Helper()
	for _, ref := range tree.TopLevelSymbols {
		if symbols.Get(ref).OriginalName == name {
			return ref
		}
	}
	t.Fatalf("Missing top-level symbol %q", name)
	return js_ast.InvalidRef
}

func numberRenameFiles(trees []js_ast.AST, symbols js_ast.SymbolMap, maxAttempts int) (*renamer.NumberRenamer, error) {
	sourceIndices := make([]uint32, len(trees))
	for i := range trees {
		sourceIndices[i] = uint32(i)
	}
	r := renamer.NewNumberRenamer(symbols, renamer.ComputeReservedNames(symbols, sourceIndices), maxAttempts)
	var moduleScopes []*renamer.Scope
	for i := range trees {
		scope := renamer.CollectScopes(&trees[i], symbols)
		for _, ref := range scope.Members {
			if err := r.AddTopLevelSymbol(ref); err != nil {
				return nil, err
			}
		}
		moduleScopes = append(moduleScopes, scope)
	}
	return r, r.AssignNamesByScope(moduleScopes)
}

func printMinified(tree js_ast.AST, symbols js_ast.SymbolMap, r renamer.Renamer) string {
	return string(js_printer.Print(tree, symbols, r, js_printer.Options{MinifyWhitespace: true}).JS)
}

func TestNumberRenamerTopLevelCollisions(t *testing.T) {
	trees, symbols := parseFiles(t, true, "let foo = 1, bar = 2", "let foo = 3", "let foo = 4, foo2 = 5")
	r, err := numberRenameFiles(trees, symbols, 100)
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, r.NameForSymbol(topLevelRef(t, trees[0], symbols, "foo")), "foo")
	test.AssertEqual(t, r.NameForSymbol(topLevelRef(t, trees[0], symbols, "bar")), "bar")
	test.AssertEqual(t, r.NameForSymbol(topLevelRef(t, trees[1], symbols, "foo")), "foo2")
	test.AssertEqual(t, r.NameForSymbol(topLevelRef(t, trees[2], symbols, "foo")), "foo3")
	test.AssertEqual(t, r.NameForSymbol(topLevelRef(t, trees[2], symbols, "foo2")), "foo22")
}

func TestNumberRenamerNestedScopes(t *testing.T) {
	trees, symbols := parseFiles(t, true, "let x = 1", "function f() { let x = 2; return x }")
	r, err := numberRenameFiles(trees, symbols, 100)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, printMinified(trees[0], symbols, r), "let x=1;")
	test.AssertEqual(t, printMinified(trees[1], symbols, r), "function f(){let x2=2;return x2}")
}

func TestNumberRenamerReservedNames(t *testing.T) {
	trees, symbols := parseFiles(t, true, "let Math = 1; console.log(Math)", "console.log(Math)")
	r, err := numberRenameFiles(trees, symbols, 100)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, printMinified(trees[0], symbols, r), "let Math2=1;console.log(Math2);")
	test.AssertEqual(t, printMinified(trees[1], symbols, r), "console.log(Math);")
}

func TestNumberRenamerAttemptLimit(t *testing.T) {
	trees, symbols := parseFiles(t, true, "let a, a2", "let a")
	_, err := numberRenameFiles(trees, symbols, 1)
	if err == nil {
		t.Fatal("Expected an error")
	}
	test.AssertEqual(t, err.Error(), "Could not find an unused name for \"a\" after 1 attempts")
}

func TestMinifyFile(t *testing.T) {
	trees, symbols := parseFiles(t, true, "function f(x) { return a }")
	r := renamer.MinifyFile(&trees[0], symbols, 0, false)
	test.AssertEqual(t, printMinified(trees[0], symbols, r), "function f(b){return a}")

	trees, symbols = parseFiles(t, true, "let foo = 1; export let bar = foo")
	r = renamer.MinifyFile(&trees[0], symbols, 0, true)
	test.AssertEqual(t, printMinified(trees[0], symbols, r), "let a=1;export let bar=a;")

	trees, symbols = parseFiles(t, true, "function f(x) { return arguments[0] + x }")
	r = renamer.MinifyFile(&trees[0], symbols, 0, false)
	test.AssertEqual(t, printMinified(trees[0], symbols, r), "function f(a){return arguments[0]+a}")
}

func TestMinifyRenamerPinnedNames(t *testing.T) {
	trees, symbols := parseFiles(t, true, "let keep = 1; function g(x) { return x + keep }")
	r := renamer.NewMinifyRenamer(symbols, renamer.ComputeReservedNames(symbols, []uint32{0}))
	r.PinName(topLevelRef(t, trees[0], symbols, "keep"), "a")
	r.PinName(topLevelRef(t, trees[0], symbols, "g"), "g")
	r.AssignNestedScopeSlots([]*renamer.Scope{renamer.CollectScopes(&trees[0], symbols)})
	r.AssignNamesByFrequency()
	test.AssertEqual(t, printMinified(trees[0], symbols, r), "let a=1;function g(b){return b+a}")
}

func TestExportRenamer(t *testing.T) {
	r := renamer.ExportRenamer{}
	test.AssertEqual(t, r.NextRenamedName("foo"), "foo")
	test.AssertEqual(t, r.NextRenamedName("foo"), "foo2")
	test.AssertEqual(t, r.NextRenamedName("foo2"), "foo22")
	test.AssertEqual(t, r.NextRenamedName("foo"), "foo3")
	test.AssertEqual(t, r.NextMinifiedName(), "a")
	test.AssertEqual(t, r.NextMinifiedName(), "b")
}

// Renamed code must compute the same values as the original
func expectSameResult(t *testing.T, contents string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		expected, err := goja.New().RunString(contents)
		if err != nil {
			t.Fatal(err)
		}

		trees, symbols := parseFiles(t, false, contents)
		minified := printMinified(trees[0], symbols, renamer.MinifyFile(&trees[0], symbols, 0, true))
		observed, err := goja.New().RunString(minified)
		if err != nil {
			t.Fatalf("%s\n%s", err, minified)
		}
		test.AssertEqualWithDiff(t, observed.Export(), expected.Export())

		numbered, err := numberRenameFiles(trees, symbols, 100)
		if err != nil {
			t.Fatal(err)
		}
		observed, err = goja.New().RunString(printMinified(trees[0], symbols, numbered))
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqualWithDiff(t, observed.Export(), expected.Export())
	})
}

func TestRenamedBehavior(t *testing.T) {
	expectSameResult(t, "var total = 0; for (var i = 0; i < 5; i++) total += i; total")
	expectSameResult(t, "function outer(x) { return function inner(y) { return x - y } } outer(10)(3)")
	expectSameResult(t, "var a = 1; { let a = 2; var b = a } a + b")
	expectSameResult(t, "function f(a, b) { var c = a * b; return [a, b, c].join(',') } f(2, 3)")
	expectSameResult(t, "var r = ''; try { throw 'e' } catch (err) { r = err + '!' } r")
	expectSameResult(t, "var count = 0; function g() { count++; return arguments.length } g(1, 2, 3) + count")
	expectSameResult(t, "var o = { first: 1, second: 2 }; var keys = []; for (var k in o) keys.push(k); keys.join('')")
	expectSameResult(t, "var fns = []; for (let i = 0; i < 3; i++) fns.push(() => i); fns.map(f => f()).join('')")
	expectSameResult(t, "class Point { constructor(x, y) { this.x = x; this.y = y } sum() { return this.x + this.y } } new Point(2, 5).sum()")
}
