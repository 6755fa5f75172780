package js_parser

import (
	"strings"
	"testing"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_printer"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
	"github.com/jspipe/jspipe/internal/test"
)

// Messages without source excerpts, which keeps expectations short
func msgsWithoutSource(msgs []logger.Msg) string {
	var sb strings.Builder
	for _, msg := range msgs {
		sb.WriteString(msg.String(logger.StderrOptions{}, logger.TerminalInfo{}))
	}
	return sb.String()
}

func printTree(tree js_ast.AST) string {
	symbols := js_ast.NewSymbolMap(1)
	symbols.Outer[0] = tree.Symbols
	return string(js_printer.Print(tree, symbols, renamer.NewNoOpRenamer(symbols), js_printer.Options{}).JS)
}

func expectParseErrorCommon(t *testing.T, contents string, expected string, options config.Options) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		Parse(log, test.SourceForTest(contents), options)
		test.AssertEqualWithDiff(t, msgsWithoutSource(log.Done()), expected)
	})
}

func expectParseError(t *testing.T, contents string, expected string) {
	t.Helper()
	expectParseErrorCommon(t, contents, expected, config.Options{IsModule: true})
}

func expectParseErrorScript(t *testing.T, contents string, expected string) {
	t.Helper()
	expectParseErrorCommon(t, contents, expected, config.Options{})
}

func expectPrintedCommon(t *testing.T, contents string, expected string, options config.Options) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		tree, ok := Parse(log, test.SourceForTest(contents), options)
		test.AssertEqualWithDiff(t, msgsWithoutSource(log.Done()), "")
		if !ok {
			t.Fatal("Parse error")
		}
		test.AssertEqualWithDiff(t, printTree(tree), expected)
	})
}

func expectPrinted(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents, expected, config.Options{IsModule: true})
}

func expectPrintedScript(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents, expected, config.Options{})
}

func parseForTest(t *testing.T, contents string, options config.Options) js_ast.AST {
	t.Helper()
	log := logger.NewDeferLog()
	tree, ok := Parse(log, test.SourceForTest(contents), options)
	test.AssertEqualWithDiff(t, msgsWithoutSource(log.Done()), "")
	if !ok {
		t.Fatal("Parse error")
	}
	return tree
}

func TestSyntaxErrors(t *testing.T) {
	expectParseError(t, "let x = ", "<stdin>: error: Unexpected end of file\n")
	expectParseError(t, "a ?? b || c", "<stdin>: error: Cannot use \"||\" with \"??\" without parentheses\n")
	expectParseError(t, "a || b ?? c", "<stdin>: error: Cannot use \"??\" with \"||\" without parentheses\n")
	expectParseError(t, "a && b ?? c", "<stdin>: error: Cannot use \"??\" with \"&&\" without parentheses\n")
	expectParseError(t, "a ?? b && c", "<stdin>: error: Cannot use \"&&\" with \"??\" without parentheses\n")
	expectParseError(t, "a ?? b || c ?? d", "<stdin>: error: Cannot use \"||\" with \"??\" without parentheses\n")
	expectParseError(t, "-a ** b", "<stdin>: error: Unexpected \"**\"\n")
	expectParseError(t, "typeof a ** b", "<stdin>: error: Unexpected \"**\"\n")
	expectParseError(t, "!a ** b", "<stdin>: error: Unexpected \"**\"\n")
	expectParseError(t, "-(a) ** b", "<stdin>: error: Unexpected \"**\"\n")
	expectParseError(t, "const x", "<stdin>: error: This constant must be initialized\n")
	expectParseError(t, "for (let a, b of c) ;", "<stdin>: error: for-of loops must have a single declaration\n")
	expectParseError(t, "return 1", "<stdin>: error: A return statement cannot be used here\n")
	expectParseError(t, "with (a) b", "<stdin>: error: With statements cannot be used in strict mode\n")
	expectParseError(t, "throw\nx", "<stdin>: error: Unexpected newline after \"throw\"\n")
	expectParseError(t, "class A { constructor() {} constructor() {} }",
		"<stdin>: error: Classes cannot contain more than one constructor\n")
	expectParseError(t, "x = { get a(b) {} }", "<stdin>: error: Getter functions must have no arguments\n")
	expectParseError(t, "x = { set a() {} }", "<stdin>: error: Setter functions must have exactly one argument\n")
	expectParseError(t, "switch (x) { default: default: }", "<stdin>: error: Multiple default clauses are not allowed\n")
	expectParseError(t, "for await (x of y) ;", "<stdin>: error: Cannot use \"await\" outside an async function\n")
	expectParseError(t, "1 = 2", "<stdin>: error: Invalid assignment target\n")
	expectParseError(t, "class A { #p = 1 }", "<stdin>: error: Syntax error \"#\"\n")
	expectParseError(t, "class A { m() { return this.#p } }", "<stdin>: error: Syntax error \"#\"\n")

	expectParseErrorScript(t, "import 'x'", "<stdin>: error: Cannot use import statement outside a module\n")
	expectParseErrorScript(t, "import.meta", "<stdin>: error: Cannot use \"import.meta\" outside a module\n")
}

func TestExponentOperand(t *testing.T) {
	expectPrinted(t, "(-2) ** 2", "(-2) ** 2;\n")
	expectPrinted(t, "(-a) ** b", "(-a) ** b;\n")
	expectPrinted(t, "(typeof a) ** b", "(typeof a) ** b;\n")
	expectPrinted(t, "++a ** b", "++a ** b;\n")
	expectPrinted(t, "a ** -b", "a ** -b;\n")
	expectPrinted(t, "-(a ** b)", "-(a ** b);\n")
	expectPrinted(t, "a ?? (b || c)", "a ?? (b || c);\n")
	expectPrinted(t, "a ?? b ?? c", "a ?? b ?? c;\n")
	expectPrinted(t, "a ?? b | c", "a ?? b | c;\n")
}

func TestBindingErrors(t *testing.T) {
	expectParseError(t, "let a; let a", "<stdin>: error: \"a\" has already been declared\n")
	expectParseError(t, "let a; var a", "<stdin>: error: \"a\" has already been declared\n")
	expectParseError(t, "x: x: ;", "<stdin>: error: Duplicate label \"x\"\n")
	expectParseError(t, "break x", "<stdin>: error: There is no containing label named \"x\"\n")
	expectParseError(t, "export {a}", "<stdin>: error: \"a\" is not declared in this file\n")
	expectParseError(t, "let a, b; export {a, b as a}", "<stdin>: error: Multiple exports with the same name \"a\"\n")
	expectParseError(t, "import {a} from 'x'; a = 1", "<stdin>: error: Cannot assign to import \"a\"\n")

	expectPrinted(t, "var a; var a", "var a;\nvar a;\n")
	expectPrinted(t, "function f() {} var f", "function f() {\n}\nvar f;\n")
	expectPrinted(t, "try {} catch (e) { var e }", "try {\n} catch (e) {\n  var e;\n}\n")
	expectPrintedScript(t, "let a; { let a }", "let a;\n{\n  let a;\n}\n")
}

func TestHashbangAndDirectives(t *testing.T) {
	tree := parseForTest(t, "#!/usr/bin/env node\n'use strict'; 'other'; a()", config.Options{})
	test.AssertEqual(t, tree.Hashbang, "#!/usr/bin/env node")
	test.AssertEqual(t, len(tree.Directives), 2)
	test.AssertEqual(t, tree.Directives[0], "use strict")
	test.AssertEqual(t, tree.Directives[1], "other")
	test.AssertEqual(t, len(tree.Stmts), 1)

	// A string followed by an operator is an expression, not a directive
	tree = parseForTest(t, "'a' + b", config.Options{})
	test.AssertEqual(t, len(tree.Directives), 0)
	test.AssertEqual(t, len(tree.Stmts), 1)
}

func TestAutomaticSemicolonInsertion(t *testing.T) {
	expectPrinted(t, "a\nb", "a;\nb;\n")
	expectPrinted(t, "a\n++b", "a;\n++b;\n")
	expectPrinted(t, "let x = 1\nlet y = 2", "let x = 1;\nlet y = 2;\n")
	expectParseError(t, "a b", "<stdin>: error: Expected \";\" but found \"b\"\n")
}

func TestRegExpAndDivision(t *testing.T) {
	expectPrinted(t, "x = a / b / c", "x = a / b / c;\n")
	expectPrinted(t, "x = /a/ / /b/", "x = /a/ / /b/;\n")
	expectPrinted(t, "x = (a) / 2", "x = a / 2;\n")
	expectPrinted(t, "if (a) /b/.test(c)", "if (a)\n  /b/.test(c);\n")
}

func TestArrowFunctions(t *testing.T) {
	expectPrinted(t, "x = (a, b) => a + b", "x = (a, b) => a + b;\n")
	expectPrinted(t, "x = async a => a", "x = async (a) => a;\n")
	expectPrinted(t, "x = ({a, b}) => a", "x = ({ a, b }) => a;\n")
	expectPrinted(t, "x = ([a], ...b) => a", "x = ([a], ...b) => a;\n")
	expectPrinted(t, "x = async (a)", "x = async(a);\n")
	expectParseError(t, "x = (a)\n=> a", "<stdin>: error: Unexpected newline before \"=>\"\n")
}

func TestImportsAndExports(t *testing.T) {
	tree := parseForTest(t, "import a, {b as c} from './x'; import * as ns from './y'; export {c as d}; export * from './z'", config.Options{IsModule: true})
	test.AssertEqual(t, tree.HasES6Imports, true)
	test.AssertEqual(t, tree.HasES6Exports, true)
	test.AssertEqual(t, len(tree.ImportRecords), 3)
	test.AssertEqual(t, tree.ImportRecords[0].Path, "./x")
	test.AssertEqual(t, tree.ImportRecords[1].Path, "./y")
	test.AssertEqual(t, tree.ImportRecords[2].Path, "./z")
	test.AssertEqual(t, len(tree.ExportStarImportRecords), 1)
	test.AssertEqual(t, tree.ExportStarImportRecords[0], uint32(2))

	aliases := make(map[string]string)
	for ref, named := range tree.NamedImports {
		aliases[tree.Symbols[ref.InnerIndex].OriginalName] = named.Alias
	}
	test.AssertEqual(t, len(aliases), 3)
	test.AssertEqual(t, aliases["a"], "default")
	test.AssertEqual(t, aliases["c"], "b")
	test.AssertEqual(t, aliases["ns"], "*")

	export, ok := tree.NamedExports["d"]
	if !ok {
		t.Fatal("Missing export")
	}
	test.AssertEqual(t, tree.Symbols[export.Ref.InnerIndex].OriginalName, "c")
}

func TestDefaultExportNames(t *testing.T) {
	tree := parseForTest(t, "export default 123", config.Options{IsModule: true})
	export := tree.NamedExports["default"]
	test.AssertEqual(t, tree.Symbols[export.Ref.InnerIndex].OriginalName, "stdin_default")

	tree = parseForTest(t, "export default function foo() {}", config.Options{IsModule: true})
	export = tree.NamedExports["default"]
	test.AssertEqual(t, tree.Symbols[export.Ref.InnerIndex].OriginalName, "foo")
}

func TestCommonJSDetection(t *testing.T) {
	tree := parseForTest(t, "module.exports = 1", config.Options{})
	test.AssertEqual(t, tree.UsesModuleRef, true)
	test.AssertEqual(t, tree.UsesExportsRef, false)
	test.AssertEqual(t, tree.HasCommonJSFeatures(), true)

	tree = parseForTest(t, "exports.a = 1", config.Options{})
	test.AssertEqual(t, tree.UsesExportsRef, true)

	// A local named "exports" shadows the free variable
	tree = parseForTest(t, "let exports = {}; exports.a = 1", config.Options{})
	test.AssertEqual(t, tree.UsesExportsRef, false)

	tree = parseForTest(t, "let x = require('./y')", config.Options{})
	test.AssertEqual(t, len(tree.ImportRecords), 1)
	test.AssertEqual(t, tree.ImportRecords[0].Path, "./y")
}

func parseRecovered(t *testing.T, contents string) js_ast.AST {
	t.Helper()
	log := logger.NewDeferLog()
	tree, ok := Parse(log, test.SourceForTest(contents), config.Options{Recover: true})
	if !ok {
		t.Fatal("Recover mode must return a tree")
	}
	if !log.HasErrors() {
		t.Fatal("Expected an error to be logged")
	}
	return tree
}

func TestRecover(t *testing.T) {
	// A missing expression becomes an error node inside the statement
	tree := parseRecovered(t, "let a = ; b()")
	test.AssertEqual(t, len(tree.Stmts), 2)
	local, ok := tree.Stmts[0].Data.(*js_ast.SLocal)
	if !ok {
		t.Fatalf("Expected a variable declaration but got %T", tree.Stmts[0].Data)
	}
	test.AssertEqual(t, len(local.Decls), 1)
	if local.Decls[0].Value == nil {
		t.Fatal("Expected an initializer")
	}
	if _, ok := local.Decls[0].Value.Data.(*js_ast.EError); !ok {
		t.Fatalf("Expected an error expression but got %T", local.Decls[0].Value.Data)
	}
	if _, ok := tree.Stmts[1].Data.(*js_ast.SExpr); !ok {
		t.Fatalf("Expected an expression statement but got %T", tree.Stmts[1].Data)
	}

	// A statement that can't be parsed at all is skipped up to its end
	tree = parseRecovered(t, "let 1 = 2; b()")
	test.AssertEqual(t, len(tree.Stmts), 2)
	stmt, ok := tree.Stmts[0].Data.(*js_ast.SError)
	if !ok {
		t.Fatalf("Expected an error statement but got %T", tree.Stmts[0].Data)
	}
	test.AssertEqual(t, stmt.Text, "let 1 = 2; ")
	if _, ok := tree.Stmts[1].Data.(*js_ast.SExpr); !ok {
		t.Fatalf("Expected an expression statement but got %T", tree.Stmts[1].Data)
	}

	// The same input is fatal without recovery
	log := logger.NewDeferLog()
	if _, ok := Parse(log, test.SourceForTest("let a = ; b()"), config.Options{}); ok {
		t.Fatal("Expected a parse failure")
	}
}

func TestSymbolsForArguments(t *testing.T) {
	tree := parseForTest(t, "function f() { return arguments }", config.Options{})
	fn := tree.Stmts[0].Data.(*js_ast.SFunction).Fn
	symbol := tree.Symbols[fn.ArgumentsRef.InnerIndex]
	test.AssertEqual(t, symbol.OriginalName, "arguments")
	test.AssertEqual(t, symbol.MustNotBeRenamed, true)

	ret := fn.Body.Stmts[0].Data.(*js_ast.SReturn)
	id := ret.Value.Data.(*js_ast.EIdentifier)
	test.AssertEqual(t, id.Ref, fn.ArgumentsRef)
}

func TestDirectEval(t *testing.T) {
	tree := parseForTest(t, "function f(a) { let b; eval('a + b') }", config.Options{})
	fn := tree.Stmts[0].Data.(*js_ast.SFunction).Fn
	for _, name := range []string{"a", "b"} {
		found := false
		for _, symbol := range tree.Symbols {
			if symbol.OriginalName == name {
				found = true
				test.AssertEqual(t, symbol.MustNotBeRenamed, true)
			}
		}
		if !found {
			t.Fatalf("Missing symbol %q", name)
		}
	}
	call := fn.Body.Stmts[1].Data.(*js_ast.SExpr).Value.Data.(*js_ast.ECall)
	test.AssertEqual(t, call.IsDirectEval, true)
}
