// Package minifier holds the size-reducing passes. They run after every
// lowering pass and keep the observable behavior of the program: constant
// folding, dead code elimination and syntax mangling. Shortening identifier
// names happens later in the renamer.
package minifier

import (
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
)

func Passes() []js_pass.Pass {
	return []js_pass.Pass{
		{Name: "fold-constants", Run: foldConstants},
		{Name: "dead-code", Run: removeDeadCode},
		{Name: "mangle-syntax", Run: mangleSyntax},
	}
}

// Declarations that must survive when the code around them is removed
func hasHoistedDecls(stmt js_ast.Stmt) bool {
	switch s := stmt.Data.(type) {
	case *js_ast.SFunction:
		return true
	case *js_ast.SLocal:
		return s.Kind == js_ast.LocalVar
	case *js_ast.SBlock:
		return anyHoistedDecls(s.Stmts)
	case *js_ast.SIf:
		return hasHoistedDecls(s.Yes) || (s.No != nil && hasHoistedDecls(*s.No))
	case *js_ast.SFor:
		return (s.Init != nil && hasHoistedDecls(*s.Init)) || hasHoistedDecls(s.Body)
	case *js_ast.SForIn:
		return hasHoistedDecls(s.Init) || hasHoistedDecls(s.Body)
	case *js_ast.SForOf:
		return hasHoistedDecls(s.Init) || hasHoistedDecls(s.Body)
	case *js_ast.SWhile:
		return hasHoistedDecls(s.Body)
	case *js_ast.SDoWhile:
		return hasHoistedDecls(s.Body)
	case *js_ast.SWith:
		return hasHoistedDecls(s.Body)
	case *js_ast.SLabel:
		return hasHoistedDecls(s.Stmt)
	case *js_ast.STry:
		if anyHoistedDecls(s.Body) {
			return true
		}
		if s.Catch != nil && anyHoistedDecls(s.Catch.Body) {
			return true
		}
		return s.Finally != nil && anyHoistedDecls(s.Finally.Stmts)
	case *js_ast.SSwitch:
		for _, c := range s.Cases {
			if anyHoistedDecls(c.Body) {
				return true
			}
		}
	}
	return false
}

func anyHoistedDecls(stmts []js_ast.Stmt) bool {
	for _, stmt := range stmts {
		if hasHoistedDecls(stmt) {
			return true
		}
	}
	return false
}

// Statements that only make sense inside their own block
func isLexicalDecl(stmt js_ast.Stmt) bool {
	switch s := stmt.Data.(type) {
	case *js_ast.SLocal:
		return s.Kind != js_ast.LocalVar
	case *js_ast.SClass, *js_ast.SFunction:
		return true
	}
	return false
}

func anyLexicalDecls(stmts []js_ast.Stmt) bool {
	for _, stmt := range stmts {
		if isLexicalDecl(stmt) {
			return true
		}
	}
	return false
}
