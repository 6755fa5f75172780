package transform

import (
	"slices"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

// Returns the dotted name of a chain such as "process.env.NODE_ENV" when it
// is rooted in a global
func dotChainParts(w *js_pass.Walker, expr js_ast.Expr) ([]string, bool) {
	switch e := expr.Data.(type) {
	case *js_ast.EIdentifier:
		if w.IsUnbound(e.Ref) {
			return []string{w.Symbol(e.Ref).OriginalName}, true
		}
	case *js_ast.EDot:
		if e.OptionalChain == js_ast.OptionalChainNone {
			if parts, ok := dotChainParts(w, e.Target); ok {
				return append(parts, e.Name), true
			}
		}
	}
	return nil, false
}

// Replaces global identifiers and property chains with the values given in
// the defines. Assignment targets keep their original form.
func substituteDefines(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	defines := ctx.Options.Defines

	replace := func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
		findSymbol := func(_ logger.Loc, name string) js_ast.Ref {
			return w.GlobalRef(name)
		}
		use := func(data config.DefineData) js_ast.Expr {
			if data.DefineFunc == nil {
				return expr
			}
			return js_ast.Expr{Loc: expr.Loc, Data: data.DefineFunc(expr.Loc, findSymbol)}
		}

		switch e := expr.Data.(type) {
		case *js_ast.EIdentifier:
			if w.IsUnbound(e.Ref) {
				if data, ok := defines.IdentifierDefines[w.Symbol(e.Ref).OriginalName]; ok {
					return use(data)
				}
			}

		case *js_ast.EDot:
			if candidates, ok := defines.DotDefines[e.Name]; ok {
				if parts, ok := dotChainParts(w, expr); ok {
					for _, define := range candidates {
						if slices.Equal(define.Parts, parts) {
							return use(define.Data)
						}
					}
				}
			}
		}
		return expr
	}

	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		EnterExpr: js_pass.SkipAssignTargets,
		Expr:      replace,
	}), nil
}
