package transform

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

// Features that no pass lowers. Using one of them with a target that lacks it
// is an error.
const unloweredFeatures = compat.Async | compat.BigInt | compat.Class | compat.ConstAndLet |
	compat.DynamicImport | compat.ForOf | compat.Generator | compat.ImportMeta | compat.NewTarget |
	compat.ObjectRestSpread | compat.OptionalCatchBinding | compat.SpreadArgument

func isBundledImport(w *js_pass.Walker, e *js_ast.EImport) bool {
	if !w.Ctx().Options.IsBundling || !e.ImportRecordIndex.IsValid() {
		return false
	}
	return !w.ImportRecord(e.ImportRecordIndex.GetIndex()).Flags.Has(ast.IsExternal)
}

type unsupportedChecker struct {
	w           *js_pass.Walker
	unsupported compat.JSFeature
	failed      bool
}

func (c *unsupportedChecker) check(feature compat.JSFeature, loc logger.Loc) {
	if c.unsupported.Has(feature) {
		c.w.Ctx().AddError(logger.MsgID_UnsupportedSyntax, loc,
			fmt.Sprintf("Transforming %s to the configured target environment is not supported yet", feature))
		c.failed = true
	}
}

func (c *unsupportedChecker) checkFn(fn js_ast.Fn, loc logger.Loc) {
	if fn.IsAsync {
		c.check(compat.Async, loc)
	}
	if fn.IsGenerator {
		c.check(compat.Generator, loc)
	}
	c.checkArgs(fn.Args)
}

func (c *unsupportedChecker) checkArgs(args []js_ast.Arg) {
	for _, arg := range args {
		if hasObjectRest(arg.Binding) {
			c.check(compat.ObjectRestSpread, arg.Binding.Loc)
		}
	}
}

func (c *unsupportedChecker) checkSpread(exprs []js_ast.Expr) {
	for _, expr := range exprs {
		if _, ok := expr.Data.(*js_ast.ESpread); ok {
			c.check(compat.SpreadArgument, expr.Loc)
			return
		}
	}
}

// Reports syntax that the target lacks and no earlier pass could lower.
// Lexical declarations are left alone with a warning. Catch clauses without
// a binding get a generated one.
func checkUnsupported(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	c := unsupportedChecker{unsupported: compat.UnsupportedJSFeatures(ctx.Options.Target)}

	result := js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			c.w = w
			switch e := expr.Data.(type) {
			case *js_ast.EClass:
				c.check(compat.Class, expr.Loc)
			case *js_ast.EFunction:
				c.checkFn(e.Fn, expr.Loc)
			case *js_ast.EArrow:
				if e.IsAsync {
					c.check(compat.Async, expr.Loc)
				}
				c.checkArgs(e.Args)
			case *js_ast.EAwait:
				c.check(compat.Async, expr.Loc)
			case *js_ast.EYield:
				c.check(compat.Generator, expr.Loc)
			case *js_ast.EBigInt:
				c.check(compat.BigInt, expr.Loc)
			case *js_ast.ENewTarget:
				c.check(compat.NewTarget, expr.Loc)
			case *js_ast.EImportMeta:
				c.check(compat.ImportMeta, expr.Loc)
			case *js_ast.EImport:
				if !isBundledImport(w, e) {
					c.check(compat.DynamicImport, expr.Loc)
				}
			case *js_ast.EArray:
				c.checkSpread(e.Items)
			case *js_ast.ECall:
				c.checkSpread(e.Args)
			case *js_ast.ENew:
				c.checkSpread(e.Args)
			case *js_ast.EObject:
				for _, property := range e.Properties {
					if property.Kind == js_ast.PropertySpread {
						c.check(compat.ObjectRestSpread, property.Key.Loc)
						break
					}
				}
			}
			return expr
		},

		Stmt: func(w *js_pass.Walker, stmt js_ast.Stmt) js_ast.Stmt {
			c.w = w
			switch s := stmt.Data.(type) {
			case *js_ast.SClass:
				c.check(compat.Class, stmt.Loc)

			case *js_ast.SFunction:
				c.checkFn(s.Fn, stmt.Loc)

			case *js_ast.SForOf:
				c.check(compat.ForOf, stmt.Loc)
				if s.IsAwait {
					c.check(compat.Async, stmt.Loc)
				}

			case *js_ast.SLocal:
				for _, decl := range s.Decls {
					if hasObjectRest(decl.Binding) {
						c.check(compat.ObjectRestSpread, decl.Binding.Loc)
					}
				}
				if s.Kind != js_ast.LocalVar && c.unsupported.Has(compat.ConstAndLet) {
					w.Ctx().AddWarning(logger.MsgID_JS_LexicalDeclarationLowered, stmt.Loc,
						"Lexical declarations are kept because the configured target environment may not support them")
				}

			case *js_ast.STry:
				if s.Catch != nil && s.Catch.Binding == nil && c.unsupported.Has(compat.OptionalCatchBinding) {
					ref := w.NewGeneratedRef(js_ast.SymbolCatchIdentifier)
					clone := *s.Catch
					clone.Binding = &js_ast.Binding{Loc: clone.Loc, Data: &js_ast.BIdentifier{Ref: ref}}
					return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.STry{Body: s.Body, Catch: &clone, Finally: s.Finally}}
				}
			}
			return stmt
		},
	})

	if c.failed {
		return js_ast.AST{}, ErrUnsupportedSyntax
	}
	return result, nil
}
