package minifier

import (
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

// Rewrites statements and expressions into shorter equivalent forms
func mangleSyntax(ctx *js_pass.Context, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		EnterExpr: js_pass.SkipAssignTargets,

		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			switch e := expr.Data.(type) {
			case *js_ast.EIdentifier:
				// "undefined" => "void 0"
				if w.IsUnbound(e.Ref) && w.Symbol(e.Ref).OriginalName == "undefined" {
					return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EUndefined{}}
				}

			case *js_ast.EIf:
				return mangleIfExpr(w, expr.Loc, e)

			case *js_ast.EUnary:
				if e.Op == js_ast.UnOpNot {
					// "!(a == b)" => "a != b"
					if not, ok := js_ast.MaybeSimplifyNot(e.Value); ok {
						return not
					}
				}
			}
			return expr
		},

		Stmt: func(w *js_pass.Walker, stmt js_ast.Stmt) js_ast.Stmt {
			switch s := stmt.Data.(type) {
			case *js_ast.SIf:
				return mangleIf(w, stmt.Loc, s)

			case *js_ast.SWhile:
				// "while (a) b();" => "for (; a;) b();"
				return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SFor{
					Test: &s.Test,
					Body: unwrapBlock(s.Body),
				}}

			case *js_ast.SFor:
				if body := unwrapBlock(s.Body); body.Data != s.Body.Data {
					clone := *s
					clone.Body = body
					return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}
				}
			}
			return stmt
		},

		Stmts: mangleStmts,
	}), nil
}

// "{ a(); }" => "a();"
func unwrapBlock(stmt js_ast.Stmt) js_ast.Stmt {
	if block, ok := stmt.Data.(*js_ast.SBlock); ok {
		switch len(block.Stmts) {
		case 0:
			return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SEmpty{}}
		case 1:
			if !isLexicalDecl(block.Stmts[0]) {
				return block.Stmts[0]
			}
		}
	}
	return stmt
}

func mangleIf(w *js_pass.Walker, loc logger.Loc, s *js_ast.SIf) js_ast.Stmt {
	yes := unwrapBlock(s.Yes)
	var no *js_ast.Stmt
	if s.No != nil {
		if unwrapped := unwrapBlock(*s.No); !isEmpty(unwrapped) {
			no = &unwrapped
		}
	}

	if yesExpr, ok := yes.Data.(*js_ast.SExpr); ok {
		if no == nil {
			if not, ok := s.Test.Data.(*js_ast.EUnary); ok && not.Op == js_ast.UnOpNot {
				// "if (!a) b();" => "a || b();"
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{
					Value: js_ast.JoinWithLeftAssociativeOp(js_ast.BinOpLogicalOr, not.Value, yesExpr.Value)}}
			}
			// "if (a) b();" => "a && b();"
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{
				Value: js_ast.JoinWithLeftAssociativeOp(js_ast.BinOpLogicalAnd, s.Test, yesExpr.Value)}}
		}
		if noExpr, ok := no.Data.(*js_ast.SExpr); ok {
			// "if (a) b(); else c();" => "a ? b() : c();"
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: mangleIfExpr(w, loc, &js_ast.EIf{
				Test: s.Test,
				Yes:  yesExpr.Value,
				No:   noExpr.Value,
			})}}
		}
	} else if isEmpty(yes) {
		if no == nil {
			// "if (a) {}" => "a;"
			if js_ast.ExprCanBeRemovedIfUnused(s.Test, w.IsUnbound) {
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}}
			}
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: s.Test}}
		}
		if noExpr, ok := no.Data.(*js_ast.SExpr); ok {
			// "if (a) {} else b();" => "a || b();"
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{
				Value: js_ast.JoinWithLeftAssociativeOp(js_ast.BinOpLogicalOr, s.Test, noExpr.Value)}}
		}
		// "if (a) {} else throw b;" => "if (!a) throw b;"
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{Test: js_ast.Not(s.Test), Yes: *no}}
	} else if no == nil {
		// "if (a) if (b) return c;" => "if (a && b) return c;"
		if inner, ok := yes.Data.(*js_ast.SIf); ok && inner.No == nil {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{
				Test: js_ast.JoinWithLeftAssociativeOp(js_ast.BinOpLogicalAnd, s.Test, inner.Test),
				Yes:  inner.Yes,
			}}
		}
	}

	if yes.Data != s.Yes.Data || no != s.No {
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{Test: s.Test, Yes: yes, No: no}}
	}
	return js_ast.Stmt{Loc: loc, Data: s}
}

func isEmpty(stmt js_ast.Stmt) bool {
	_, ok := stmt.Data.(*js_ast.SEmpty)
	return ok
}

func mangleIfExpr(w *js_pass.Walker, loc logger.Loc, e *js_ast.EIf) js_ast.Expr {
	test, yes, no := e.Test, e.Yes, e.No

	// "!a ? b : c" => "a ? c : b"
	if not, ok := test.Data.(*js_ast.EUnary); ok && not.Op == js_ast.UnOpNot {
		test = not.Value
		yes, no = no, yes
	}

	if js_ast.ValuesLookTheSame(yes.Data, no.Data) {
		// "1 ? b : b" => "b"
		if js_ast.ExprCanBeRemovedIfUnused(test, w.IsUnbound) {
			return yes
		}
		// "a ? b : b" => "a, b"
		return js_ast.JoinWithComma(test, yes)
	}

	// "a ? true : false" => "!!a"
	// "a ? false : true" => "!a"
	if yesBool, ok := yes.Data.(*js_ast.EBoolean); ok {
		if noBool, ok := no.Data.(*js_ast.EBoolean); ok {
			if yesBool.Value && !noBool.Value {
				return js_ast.Not(js_ast.Not(test))
			}
			if !yesBool.Value && noBool.Value {
				return js_ast.Not(test)
			}
		}
	}

	if id, ok := test.Data.(*js_ast.EIdentifier); ok {
		// "a ? a : b" => "a || b"
		if id2, ok := yes.Data.(*js_ast.EIdentifier); ok && id.Ref == id2.Ref {
			return js_ast.JoinWithLeftAssociativeOp(js_ast.BinOpLogicalOr, test, no)
		}
		// "a ? b : a" => "a && b"
		if id2, ok := no.Data.(*js_ast.EIdentifier); ok && id.Ref == id2.Ref {
			return js_ast.JoinWithLeftAssociativeOp(js_ast.BinOpLogicalAnd, test, yes)
		}
	}

	if test.Data == e.Test.Data {
		return js_ast.Expr{Loc: loc, Data: e}
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIf{Test: test, Yes: yes, No: no}}
}

// Merges adjacent statements and drops empty ones:
//
//	"var a = 1; var b = 2;" => "var a = 1, b = 2;"
//	"a(); b();" => "a(), b();"
//	"a(); return b;" => "return a(), b;"
func mangleStmts(w *js_pass.Walker, stmts []js_ast.Stmt) []js_ast.Stmt {
	result := make([]js_ast.Stmt, 0, len(stmts))

	for _, stmt := range flattenBlocks(nil, stmts) {
		var prev js_ast.Stmt
		if len(result) > 0 {
			prev = result[len(result)-1]
		}

		switch s := stmt.Data.(type) {
		case *js_ast.SEmpty:
			continue

		case *js_ast.SLocal:
			if prevS, ok := prev.Data.(*js_ast.SLocal); ok && prevS.Kind == s.Kind && prevS.IsExport == s.IsExport {
				decls := make([]js_ast.Decl, 0, len(prevS.Decls)+len(s.Decls))
				decls = append(append(decls, prevS.Decls...), s.Decls...)
				result[len(result)-1] = js_ast.Stmt{Loc: prev.Loc, Data: &js_ast.SLocal{Kind: s.Kind, IsExport: s.IsExport, Decls: decls}}
				continue
			}

		case *js_ast.SExpr:
			if prevS, ok := prev.Data.(*js_ast.SExpr); ok {
				result[len(result)-1] = js_ast.Stmt{Loc: prev.Loc, Data: &js_ast.SExpr{Value: js_ast.JoinWithComma(prevS.Value, s.Value)}}
				continue
			}

		case *js_ast.SReturn:
			if prevS, ok := prev.Data.(*js_ast.SExpr); ok && s.Value != nil {
				value := js_ast.JoinWithComma(prevS.Value, *s.Value)
				result[len(result)-1] = js_ast.Stmt{Loc: prev.Loc, Data: &js_ast.SReturn{Value: &value}}
				continue
			}

		case *js_ast.SThrow:
			if prevS, ok := prev.Data.(*js_ast.SExpr); ok {
				result[len(result)-1] = js_ast.Stmt{Loc: prev.Loc, Data: &js_ast.SThrow{Value: js_ast.JoinWithComma(prevS.Value, s.Value)}}
				continue
			}

		case *js_ast.SIf:
			if prevS, ok := prev.Data.(*js_ast.SExpr); ok {
				clone := *s
				clone.Test = js_ast.JoinWithComma(prevS.Value, s.Test)
				result[len(result)-1] = js_ast.Stmt{Loc: prev.Loc, Data: &clone}
				continue
			}
		}

		result = append(result, stmt)
	}

	return result
}

// Blocks without their own declarations are spliced into the list
func flattenBlocks(out []js_ast.Stmt, stmts []js_ast.Stmt) []js_ast.Stmt {
	for _, stmt := range stmts {
		if block, ok := stmt.Data.(*js_ast.SBlock); ok && !anyLexicalDecls(block.Stmts) {
			out = flattenBlocks(out, block.Stmts)
			continue
		}
		out = append(out, stmt)
	}
	return out
}
