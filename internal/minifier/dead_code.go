package minifier

import (
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

func isJump(stmt js_ast.Stmt) bool {
	switch stmt.Data.(type) {
	case *js_ast.SReturn, *js_ast.SThrow, *js_ast.SBreak, *js_ast.SContinue:
		return true
	}
	return false
}

// Collects what must be kept from statements that never run: function
// declarations at this level and the names of "var" declarations anywhere.
func appendHoistedDecls(out []js_ast.Stmt, stmt js_ast.Stmt, isDirect bool) []js_ast.Stmt {
	switch s := stmt.Data.(type) {
	case *js_ast.SFunction:
		if isDirect {
			return append(out, stmt)
		}

	case *js_ast.SLocal:
		if s.Kind != js_ast.LocalVar {
			break
		}
		var decls []js_ast.Decl
		for _, decl := range s.Decls {
			decls = appendBindingNames(decls, decl.Binding)
		}
		if len(decls) > 0 {
			return append(out, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls, IsExport: s.IsExport}})
		}

	case *js_ast.SBlock:
		for _, child := range s.Stmts {
			out = appendHoistedDecls(out, child, false)
		}
	case *js_ast.SIf:
		out = appendHoistedDecls(out, s.Yes, false)
		if s.No != nil {
			out = appendHoistedDecls(out, *s.No, false)
		}
	case *js_ast.SFor:
		if s.Init != nil {
			out = appendHoistedDecls(out, *s.Init, false)
		}
		out = appendHoistedDecls(out, s.Body, false)
	case *js_ast.SForIn:
		out = appendHoistedDecls(out, s.Init, false)
		out = appendHoistedDecls(out, s.Body, false)
	case *js_ast.SForOf:
		out = appendHoistedDecls(out, s.Init, false)
		out = appendHoistedDecls(out, s.Body, false)
	case *js_ast.SWhile:
		out = appendHoistedDecls(out, s.Body, false)
	case *js_ast.SDoWhile:
		out = appendHoistedDecls(out, s.Body, false)
	case *js_ast.SWith:
		out = appendHoistedDecls(out, s.Body, false)
	case *js_ast.SLabel:
		out = appendHoistedDecls(out, s.Stmt, false)
	case *js_ast.STry:
		for _, child := range s.Body {
			out = appendHoistedDecls(out, child, false)
		}
		if s.Catch != nil {
			for _, child := range s.Catch.Body {
				out = appendHoistedDecls(out, child, false)
			}
		}
		if s.Finally != nil {
			for _, child := range s.Finally.Stmts {
				out = appendHoistedDecls(out, child, false)
			}
		}
	case *js_ast.SSwitch:
		for _, c := range s.Cases {
			for _, child := range c.Body {
				out = appendHoistedDecls(out, child, false)
			}
		}
	}
	return out
}

func appendBindingNames(decls []js_ast.Decl, binding js_ast.Binding) []js_ast.Decl {
	switch b := binding.Data.(type) {
	case *js_ast.BIdentifier:
		decls = append(decls, js_ast.Decl{Binding: binding})
	case *js_ast.BArray:
		for _, item := range b.Items {
			decls = appendBindingNames(decls, item.Binding)
		}
	case *js_ast.BObject:
		for _, property := range b.Properties {
			decls = appendBindingNames(decls, property.Value)
		}
	}
	return decls
}

// True for statements that are kept as they are after a jump
func isOnlyDecl(stmt js_ast.Stmt) bool {
	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty, *js_ast.SFunction:
		return true
	case *js_ast.SLocal:
		if s.Kind != js_ast.LocalVar {
			return false
		}
		for _, decl := range s.Decls {
			if _, ok := decl.Binding.Data.(*js_ast.BIdentifier); !ok || decl.Value != nil {
				return false
			}
		}
		return true
	}
	return false
}

// Replaces a statement that never runs with the declarations it hoists
func deadStmt(stmt js_ast.Stmt) js_ast.Stmt {
	kept := appendHoistedDecls(nil, stmt, false)
	switch len(kept) {
	case 0:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SEmpty{}}
	case 1:
		return kept[0]
	}
	return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: kept}}
}

// "if (true) a(); else b();" => "a();"
// "return; a();" => "return;"
// "1 + 2;" => ""
func removeDeadCode(ctx *js_pass.Context, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Stmt: func(w *js_pass.Walker, stmt js_ast.Stmt) js_ast.Stmt {
			switch s := stmt.Data.(type) {
			case *js_ast.SExpr:
				value := js_ast.SimplifyUnusedExpr(s.Value, w.IsUnbound)
				if value.Data == nil {
					return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SEmpty{}}
				}
				if value.Data != s.Value.Data {
					return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExpr{Value: value}}
				}

			case *js_ast.SIf:
				boolean, sideEffects, ok := js_ast.ToBooleanWithSideEffects(s.Test.Data)
				if !ok {
					break
				}
				var stmts []js_ast.Stmt
				if sideEffects == js_ast.CouldHaveSideEffects {
					if test := js_ast.SimplifyUnusedExpr(s.Test, w.IsUnbound); test.Data != nil {
						stmts = append(stmts, js_ast.Stmt{Loc: s.Test.Loc, Data: &js_ast.SExpr{Value: test}})
					}
				}
				if boolean {
					stmts = append(stmts, s.Yes)
					if s.No != nil {
						stmts = append(stmts, deadStmt(*s.No))
					}
				} else {
					stmts = append(stmts, deadStmt(s.Yes))
					if s.No != nil {
						stmts = append(stmts, *s.No)
					}
				}
				if len(stmts) == 1 {
					return stmts[0]
				}
				return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: stmts}}

			case *js_ast.SWhile:
				// "while (false) a();" => ""
				if boolean, sideEffects, ok := js_ast.ToBooleanWithSideEffects(s.Test.Data); ok && !boolean && sideEffects == js_ast.NoSideEffects {
					return deadStmt(s.Body)
				}

			case *js_ast.SFor:
				// "for (a(); false;) b();" => "a();"
				if s.Test == nil {
					break
				}
				if boolean, sideEffects, ok := js_ast.ToBooleanWithSideEffects(s.Test.Data); ok && !boolean && sideEffects == js_ast.NoSideEffects {
					body := deadStmt(s.Body)
					if s.Init == nil {
						return body
					}
					if local, ok := s.Init.Data.(*js_ast.SLocal); ok && local.Kind != js_ast.LocalVar {
						break
					}
					return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: []js_ast.Stmt{*s.Init, body}}}
				}
			}
			return stmt
		},

		Stmts: func(w *js_pass.Walker, stmts []js_ast.Stmt) []js_ast.Stmt {
			for i, stmt := range stmts {
				if !isJump(stmt) || i+1 == len(stmts) {
					continue
				}
				result := append([]js_ast.Stmt(nil), stmts[:i+1]...)
				warned := false
				for _, dead := range stmts[i+1:] {
					if !warned && !isOnlyDecl(dead) {
						w.Ctx().AddWarning(logger.MsgID_JS_UnreachableCode, dead.Loc, "This code will never be executed")
						warned = true
					}
					if kept := appendHoistedDecls(nil, dead, true); len(kept) > 0 {
						result = append(result, kept...)
					}
				}
				return result
			}
			return stmts
		},
	}), nil
}
