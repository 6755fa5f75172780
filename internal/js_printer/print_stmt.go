package js_printer

import (
	"fmt"
	"strings"

	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
)

type printStmtFlags uint8

const (
	canOmitStatement printStmtFlags = 1 << iota
)

func (p *printer) printDecls(keyword string, decls []js_ast.Decl, flags printExprFlags) {
	p.printKeyword(keyword)
	p.printSpace()
	for i, decl := range decls {
		p.printCommaBefore(i)
		p.printBinding(decl.Binding)
		if decl.Value != nil {
			p.printSpace()
			p.print("=")
			p.printSpace()
			p.printExpr(*decl.Value, js_ast.LComma, flags)
		}
	}
}

func (p *printer) printForLoopInit(init js_ast.Stmt, flags printExprFlags) {
	switch s := init.Data.(type) {
	case *js_ast.SExpr:
		p.printExpr(s.Value, js_ast.LLowest, flags|exprResultIsUnused)
	case *js_ast.SLocal:
		p.printDecls(s.Kind.String(), s.Decls, flags)
	default:
		panic(fmt.Sprintf("Unexpected loop initializer of type %T", init.Data))
	}
}

// Writes "keyword (" so the caller can fill in the parenthesized part
func (p *printer) printHeaderStart(keyword string) {
	p.printKeyword(keyword)
	p.printSpace()
	p.print("(")
}

// Writes "keyword (expr)"
func (p *printer) printHeader(keyword string, value js_ast.Expr) {
	p.printHeaderStart(keyword)
	p.printExpr(value, js_ast.LLowest, 0)
	p.print(")")
}

// Loop and label bodies go on the same line when they are blocks and
// indented on the next line otherwise
func (p *printer) printBody(body js_ast.Stmt) {
	if block, ok := body.Data.(*js_ast.SBlock); ok {
		p.printSpace()
		p.printBlock(body.Loc, block.Stmts)
		p.printNewline()
		return
	}
	p.printNewline()
	p.printIndented(body, 0)
}

func (p *printer) printIndented(stmt js_ast.Stmt, flags printStmtFlags) {
	p.options.Indent++
	p.printStmt(stmt, flags)
	p.options.Indent--
}

func (p *printer) printBlock(loc logger.Loc, stmts []js_ast.Stmt) {
	p.addSourceMapping(loc)
	p.print("{")
	p.printNewline()
	p.printStmtList(stmts)
	p.needsSemicolon = false
	p.printIndent()
	p.print("}")
}

// One level deeper than the current indent
func (p *printer) printStmtList(stmts []js_ast.Stmt) {
	p.options.Indent++
	for _, stmt := range stmts {
		p.printSemicolonIfNeeded()
		p.printStmt(stmt, canOmitStatement)
	}
	p.options.Indent--
}

// Reports whether "s" ends in an "if" without an "else", which would take
// the "else" of an enclosing "if" if printed without braces
func wrapToAvoidAmbiguousElse(s js_ast.S) bool {
	for {
		switch current := s.(type) {
		case *js_ast.SIf:
			if current.No == nil {
				return true
			}
			s = current.No.Data
		case *js_ast.SFor:
			s = current.Body.Data
		case *js_ast.SForIn:
			s = current.Body.Data
		case *js_ast.SForOf:
			s = current.Body.Data
		case *js_ast.SWhile:
			s = current.Body.Data
		case *js_ast.SWith:
			s = current.Body.Data
		case *js_ast.SLabel:
			s = current.Stmt.Data
		default:
			return false
		}
	}
}

func (p *printer) printIf(s *js_ast.SIf) {
	p.printHeader("if", s.Test)
	hasElse := s.No != nil

	if yes, ok := s.Yes.Data.(*js_ast.SBlock); ok || wrapToAvoidAmbiguousElse(s.Yes.Data) {
		p.printSpace()
		if ok {
			p.printBlock(s.Yes.Loc, yes.Stmts)
		} else {
			p.printBlock(s.Yes.Loc, []js_ast.Stmt{s.Yes})
		}
		if hasElse {
			p.printSpace()
		} else {
			p.printNewline()
		}
	} else {
		p.printNewline()
		p.printIndented(s.Yes, 0)
		if hasElse {
			p.printIndent()
		}
	}

	if !hasElse {
		return
	}
	no := *s.No
	p.printSemicolonIfNeeded()
	p.printKeyword("else")

	switch n := no.Data.(type) {
	case *js_ast.SBlock:
		p.printSpace()
		p.printBlock(no.Loc, n.Stmts)
		p.printNewline()
	case *js_ast.SIf:
		p.printSpace()
		p.addSourceMapping(no.Loc)
		p.printIf(n)
	default:
		p.printNewline()
		p.printIndented(no, 0)
	}
}

// Prints the "{ a, b as c }" part of import and export clauses
func (p *printer) printClauseItems(items []js_ast.ClauseItem, printItem func(js_ast.ClauseItem)) {
	p.print("{")
	for i, item := range items {
		if i != 0 {
			p.print(",")
		}
		p.printSpace()
		printItem(item)
	}
	if len(items) > 0 {
		p.printSpace()
	}
	p.print("}")
}

// Writes " as " between two names. The spaces are needed even when minified.
func (p *printer) printAs() {
	p.printSpace()
	p.printKeyword("as")
	p.print(" ")
}

func (p *printer) printFrom(importRecordIndex uint32) {
	p.printSpace()
	p.printKeyword("from")
	p.printSpace()
	p.printPath(importRecordIndex)
}

func (p *printer) printImport(s *js_ast.SImport) {
	p.printKeyword("import")
	p.printSpace()

	itemCount := 0
	separate := func() {
		if itemCount > 0 {
			p.print(",")
			p.printSpace()
		}
		itemCount++
	}

	if s.DefaultName != nil {
		separate()
		p.printMappedSymbol(s.DefaultName.Loc, s.DefaultName.Ref)
	}

	if s.Items != nil {
		separate()
		p.printClauseItems(*s.Items, func(item js_ast.ClauseItem) {
			p.printClauseAlias(item.Alias)
			if p.renamer.NameForSymbol(item.Name.Ref) != item.Alias {
				p.printAs()
				p.printMappedSymbol(item.Name.Loc, item.Name.Ref)
			}
		})
	}

	if s.StarNameLoc != nil {
		separate()
		p.print("*")
		p.printAs()
		p.printMappedSymbol(*s.StarNameLoc, s.NamespaceRef)
	}

	if itemCount > 0 {
		p.printFrom(s.ImportRecordIndex)
	} else {
		p.printPath(s.ImportRecordIndex)
	}
}

func (p *printer) printSwitch(s *js_ast.SSwitch) {
	p.printHeader("switch", s.Test)
	p.printSpace()
	p.addSourceMapping(s.BodyLoc)
	p.print("{")
	p.printNewline()
	p.options.Indent++

	for _, c := range s.Cases {
		p.printSemicolonIfNeeded()
		p.printIndent()
		if c.Value != nil {
			p.printKeyword("case")
			p.printSpace()
			p.printExpr(*c.Value, js_ast.LLogicalAnd, 0)
		} else {
			p.printKeyword("default")
		}
		p.print(":")

		// "case 1: {" keeps the block on the same line
		if len(c.Body) == 1 {
			if block, ok := c.Body[0].Data.(*js_ast.SBlock); ok {
				p.printSpace()
				p.printBlock(c.Body[0].Loc, block.Stmts)
				p.printNewline()
				continue
			}
		}
		p.printNewline()
		p.printStmtList(c.Body)
	}

	p.options.Indent--
	p.printIndent()
	p.print("}")
	p.printNewline()
	p.needsSemicolon = false
}

func (p *printer) printTry(loc logger.Loc, s *js_ast.STry) {
	p.printKeyword("try")
	p.printSpace()
	p.printBlock(loc, s.Body)

	if s.Catch != nil {
		p.printSpace()
		p.printKeyword("catch")
		if s.Catch.Binding != nil {
			p.printSpace()
			p.print("(")
			p.printBinding(*s.Catch.Binding)
			p.print(")")
		}
		p.printSpace()
		p.printBlock(s.Catch.Loc, s.Catch.Body)
	}

	if s.Finally != nil {
		p.printSpace()
		p.printKeyword("finally")
		p.printSpace()
		p.printBlock(s.Finally.Loc, s.Finally.Stmts)
	}
	p.printNewline()
}

// "break" and "continue"
func (p *printer) printJump(keyword string, label *js_ast.LocRef) {
	p.printKeyword(keyword)
	if label != nil {
		p.print(" ")
		p.printMappedSymbol(label.Loc, label.Ref)
	}
	p.printSemicolonAfterStatement()
}

func exportPrefix(isExport bool) string {
	if isExport {
		return "export "
	}
	return ""
}

func (p *printer) printStmt(stmt js_ast.Stmt, flags printStmtFlags) {
	p.addSourceMapping(stmt.Loc)
	p.printIndent()

	switch s := stmt.Data.(type) {
	case *js_ast.SError:
		// The skipped text survives as a comment
		p.print("/* ")
		p.print(strings.ReplaceAll(s.Text, "*/", "* /"))
		p.print(" */\n")

	case *js_ast.SFunction:
		p.printFunction(s.Fn, exportPrefix(s.IsExport))
		p.printNewline()

	case *js_ast.SClass:
		p.printClass(s.Class, exportPrefix(s.IsExport))
		p.printNewline()

	case *js_ast.SEmpty:
		p.print(";")
		p.printNewline()

	case *js_ast.SExportDefault:
		p.printKeyword("export default")
		p.printSpace()
		switch {
		case s.Value.Expr != nil:
			p.exportDefaultStart = len(p.js)
			p.printExpr(*s.Value.Expr, js_ast.LComma, 0)
			p.printSemicolonAfterStatement()
			return
		case s.Value.Stmt != nil:
			switch decl := s.Value.Stmt.Data.(type) {
			case *js_ast.SFunction:
				p.printFunction(decl.Fn, "")
			case *js_ast.SClass:
				p.printClass(decl.Class, "")
			default:
				panic(fmt.Sprintf("Unexpected default export of type %T", decl))
			}
			p.printNewline()
		}

	case *js_ast.SExportStar:
		p.printKeyword("export")
		p.printSpace()
		p.print("*")
		if s.Alias != nil {
			p.printAs()
			p.printClauseAlias(s.Alias.Name)
		}
		p.printFrom(s.ImportRecordIndex)
		p.printSemicolonAfterStatement()

	case *js_ast.SExportClause:
		p.printKeyword("export")
		p.printSpace()
		p.printClauseItems(s.Items, func(item js_ast.ClauseItem) {
			p.printMappedSymbol(item.Name.Loc, item.Name.Ref)
			if p.renamer.NameForSymbol(item.Name.Ref) != item.Alias {
				p.printAs()
				p.printClauseAlias(item.Alias)
			}
		})
		p.printSemicolonAfterStatement()

	case *js_ast.SExportFrom:
		p.printKeyword("export")
		p.printSpace()
		p.printClauseItems(s.Items, func(item js_ast.ClauseItem) {
			p.printClauseAlias(item.OriginalName)
			if item.OriginalName != item.Alias {
				p.printAs()
				p.printClauseAlias(item.Alias)
			}
		})
		p.printFrom(s.ImportRecordIndex)
		p.printSemicolonAfterStatement()

	case *js_ast.SLocal:
		if s.IsExport {
			p.printKeyword("export ")
		}
		p.printDecls(s.Kind.String(), s.Decls, 0)
		p.printSemicolonAfterStatement()

	case *js_ast.SIf:
		p.printIf(s)

	case *js_ast.SDoWhile:
		p.printKeyword("do")
		if block, ok := s.Body.Data.(*js_ast.SBlock); ok {
			p.printSpace()
			p.printBlock(s.Body.Loc, block.Stmts)
			p.printSpace()
		} else {
			p.printNewline()
			p.options.Indent++
			p.printStmt(s.Body, 0)
			p.printSemicolonIfNeeded()
			p.options.Indent--
			p.printIndent()
		}
		p.printHeader("while", s.Test)
		p.printSemicolonAfterStatement()

	case *js_ast.SForIn:
		p.printHeaderStart("for")
		p.printForLoopInit(s.Init, forbidIn)
		p.printSpace()
		p.printKeyword("in")
		p.printSpace()
		p.printExpr(s.Value, js_ast.LLowest, 0)
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.SForOf:
		initFlags := forbidIn | isFollowedByOf
		if s.IsAwait {
			p.printHeaderStart("for await")
			initFlags |= isInsideForAwait
		} else {
			p.printHeaderStart("for")
		}
		p.forOfInitStart = len(p.js)
		p.printForLoopInit(s.Init, initFlags)
		p.printSpace()
		p.printKeyword("of")
		p.printSpace()
		p.printExpr(s.Value, js_ast.LComma, 0)
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.SWhile:
		p.printHeader("while", s.Test)
		p.printBody(s.Body)

	case *js_ast.SWith:
		p.printHeader("with", s.Value)
		p.printBody(s.Body)

	case *js_ast.SLabel:
		p.printMappedSymbol(s.Name.Loc, s.Name.Ref)
		p.print(":")
		p.printBody(s.Stmt)

	case *js_ast.STry:
		p.printTry(stmt.Loc, s)

	case *js_ast.SFor:
		p.printHeaderStart("for")
		if s.Init != nil {
			p.printForLoopInit(*s.Init, forbidIn)
		}
		p.print(";")
		p.printSpace()
		if s.Test != nil {
			p.printExpr(*s.Test, js_ast.LLowest, 0)
		}
		p.print(";")
		p.printSpace()
		if s.Update != nil {
			p.printExpr(*s.Update, js_ast.LLowest, exprResultIsUnused)
		}
		p.print(")")
		p.printBody(s.Body)

	case *js_ast.SSwitch:
		p.printSwitch(s)

	case *js_ast.SImport:
		p.printImport(s)
		p.printSemicolonAfterStatement()

	case *js_ast.SBlock:
		p.printBlock(stmt.Loc, s.Stmts)
		p.printNewline()

	case *js_ast.SDebugger:
		p.printKeyword("debugger")
		p.printSemicolonAfterStatement()

	case *js_ast.SDirective:
		p.printQuotedUTF16(s.Value, false /* allowBacktick */)
		p.printSemicolonAfterStatement()

	case *js_ast.SBreak:
		p.printJump("break", s.Label)

	case *js_ast.SContinue:
		p.printJump("continue", s.Label)

	case *js_ast.SReturn:
		p.printKeyword("return")
		if s.Value != nil {
			p.printSpace()
			p.printExpr(*s.Value, js_ast.LLowest, 0)
		}
		p.printSemicolonAfterStatement()

	case *js_ast.SThrow:
		p.printKeyword("throw")
		p.printSpace()
		p.printExpr(s.Value, js_ast.LLowest, 0)
		p.printSemicolonAfterStatement()

	case *js_ast.SExpr:
		p.stmtStart = len(p.js)
		p.printExpr(s.Value, js_ast.LLowest, exprResultIsUnused)
		p.printSemicolonAfterStatement()

	default:
		panic(fmt.Sprintf("Unexpected statement of type %T", stmt.Data))
	}
}
