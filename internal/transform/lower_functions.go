package transform

import (
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

func hasParamsToLower(args []js_ast.Arg, hasRestArg bool) bool {
	if hasRestArg {
		return true
	}
	for _, arg := range args {
		if arg.Default != nil {
			return true
		}
	}
	return false
}

// "function f(a = 1, ...b) {}" => "function f(a) { if (a === void 0) a = 1; var b = Array.prototype.slice.call(arguments, 1); }"
func lowerParams(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			switch e := expr.Data.(type) {
			case *js_ast.EFunction:
				if hasParamsToLower(e.Fn.Args, e.Fn.HasRestArg) {
					return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EFunction{Fn: lowerFnParams(w, e.Fn)}}
				}

			case *js_ast.EArrow:
				if !hasParamsToLower(e.Args, e.HasRestArg) {
					break
				}

				// Rest arguments are read from "arguments", which arrows don't have
				if e.HasRestArg {
					fn, ok := convertArrow(w, e)
					if !ok {
						w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, expr.Loc,
							"Cannot lower rest arguments of an arrow function that uses \"super\" or \"new.target\"")
						break
					}
					return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EFunction{Fn: lowerFnParams(w, fn)}}
				}

				fn := lowerFnParams(w, js_ast.Fn{Args: e.Args, Body: e.Body, ArgumentsRef: js_ast.InvalidRef})
				return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EArrow{
					Args:    fn.Args,
					Body:    fn.Body,
					IsAsync: e.IsAsync,
				}}
			}
			return expr
		},

		Stmt: func(w *js_pass.Walker, stmt js_ast.Stmt) js_ast.Stmt {
			if s, ok := stmt.Data.(*js_ast.SFunction); ok && hasParamsToLower(s.Fn.Args, s.Fn.HasRestArg) {
				return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SFunction{Fn: lowerFnParams(w, s.Fn), IsExport: s.IsExport}}
			}
			return stmt
		},
	}), nil
}

func isVoidZero(loc logger.Loc, ref js_ast.Ref) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{
		Op:    js_ast.BinOpStrictEq,
		Left:  js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: ref}},
		Right: js_ast.Expr{Loc: loc, Data: &js_ast.EUndefined{}},
	}}
}

func lowerFnParams(w *js_pass.Walker, fn js_ast.Fn) js_ast.Fn {
	var prologue []js_ast.Stmt
	args := make([]js_ast.Arg, 0, len(fn.Args))

	for i, arg := range fn.Args {
		loc := arg.Binding.Loc

		if fn.HasRestArg && i+1 == len(fn.Args) {
			if !fn.ArgumentsRef.IsValid() {
				fn.ArgumentsRef = w.NewArgumentsRef()
			}
			slice := js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
				Target: js_ast.Expr{Loc: loc, Data: &js_ast.EDot{
					Target: js_ast.Expr{Loc: loc, Data: &js_ast.EDot{
						Target: js_ast.Expr{Loc: loc, Data: &js_ast.EDot{
							Target: w.Global(loc, "Array"),
							Name:   "prototype",
						}},
						Name: "slice",
					}},
					Name: "call",
				}},
				Args: []js_ast.Expr{
					{Loc: loc, Data: &js_ast.EIdentifier{Ref: fn.ArgumentsRef}},
					{Loc: loc, Data: &js_ast.ENumber{Value: float64(i)}},
				},
			}}
			prologue = append(prologue, js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{
				Kind:  js_ast.LocalVar,
				Decls: []js_ast.Decl{{Binding: arg.Binding, Value: &slice}},
			}})
			continue
		}

		if arg.Default == nil {
			args = append(args, arg)
			continue
		}

		if id, ok := arg.Binding.Data.(*js_ast.BIdentifier); ok {
			// "if (a === void 0) a = 1;"
			prologue = append(prologue, js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{
				Test: isVoidZero(loc, id.Ref),
				Yes:  js_ast.AssignStmt(js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: id.Ref}}, *arg.Default),
			}})
			args = append(args, js_ast.Arg{Binding: arg.Binding})
			continue
		}

		// "function f({a} = b) {}" => "function f(_a) { var {a} = _a === void 0 ? b : _a; }"
		temp := w.NewGeneratedRef(js_ast.SymbolHoisted)
		value := js_ast.Expr{Loc: loc, Data: &js_ast.EIf{
			Test: isVoidZero(loc, temp),
			Yes:  *arg.Default,
			No:   js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: temp}},
		}}
		prologue = append(prologue, js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{
			Kind:  js_ast.LocalVar,
			Decls: []js_ast.Decl{{Binding: arg.Binding, Value: &value}},
		}})
		args = append(args, js_ast.Arg{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: temp}}})
	}

	fn.Args = args
	fn.HasRestArg = false
	fn.Body = js_ast.FnBody{Loc: fn.Body.Loc, Stmts: js_pass.PrependStmts(fn.Body.Stmts, prologue...)}
	return fn
}

// "() => this.x" => "function() { return _this.x; }" with "var _this = this"
// added to the enclosing function
func lowerArrow(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			e, ok := expr.Data.(*js_ast.EArrow)
			if !ok {
				return expr
			}
			fn, ok := convertArrow(w, e)
			if !ok {
				w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, expr.Loc,
					"Cannot lower an arrow function that uses \"super\" or \"new.target\"")
				return expr
			}
			return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EFunction{Fn: fn}}
		},
	}), nil
}

type arrowUses struct {
	this       bool
	arguments  bool
	superOrNew bool
}

// Stops at every construct that has its own "this"
func stopAtFunctions(w *js_pass.Walker, stmt js_ast.Stmt) (js_ast.Stmt, bool) {
	switch stmt.Data.(type) {
	case *js_ast.SFunction, *js_ast.SClass:
		return stmt, true
	}
	return stmt, false
}

func scanArrow(w *js_pass.Walker, arrow js_ast.Expr) (uses arrowUses) {
	w.Nested(js_pass.Hooks{
		EnterExpr: func(w *js_pass.Walker, expr js_ast.Expr) (js_ast.Expr, bool) {
			switch e := expr.Data.(type) {
			case *js_ast.EFunction, *js_ast.EClass:
				return expr, true
			case *js_ast.EThis:
				uses.this = true
			case *js_ast.ESuper, *js_ast.ENewTarget:
				uses.superOrNew = true
			case *js_ast.EIdentifier:
				if w.Symbol(e.Ref).Kind == js_ast.SymbolArguments {
					uses.arguments = true
				}
			}
			return expr, false
		},
		EnterStmt: stopAtFunctions,
	}).ExprChildren(arrow)
	return
}

// Turns an arrow into a function expression. Uses of "this" and "arguments"
// are redirected to variables captured by the enclosing function. This fails
// for arrows that use "super" or "new.target".
func convertArrow(w *js_pass.Walker, e *js_ast.EArrow) (js_ast.Fn, bool) {
	arrow := js_ast.Expr{Data: e}
	uses := scanArrow(w, arrow)
	if uses.superOrNew {
		return js_ast.Fn{}, false
	}

	if uses.this || uses.arguments {
		arrow = w.Nested(js_pass.Hooks{
			EnterExpr: func(w *js_pass.Walker, expr js_ast.Expr) (js_ast.Expr, bool) {
				switch e := expr.Data.(type) {
				case *js_ast.EFunction, *js_ast.EClass:
					return expr, true

				case *js_ast.EThis:
					ref := w.CaptureInEnclosingFunction("this", expr.Loc, func() js_ast.Expr {
						return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EThis{}}
					})
					return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIdentifier{Ref: ref}}, true

				case *js_ast.EIdentifier:
					if w.Symbol(e.Ref).Kind == js_ast.SymbolArguments {
						ref := w.CaptureInEnclosingFunction("arguments", expr.Loc, func() js_ast.Expr {
							return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIdentifier{Ref: e.Ref}}
						})
						return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIdentifier{Ref: ref}}, true
					}
				}
				return expr, false
			},
			EnterStmt: stopAtFunctions,
		}).ExprChildren(arrow)
		e = arrow.Data.(*js_ast.EArrow)
	}

	return js_ast.Fn{
		Args:         e.Args,
		Body:         e.Body,
		ArgumentsRef: js_ast.InvalidRef,
		IsAsync:      e.IsAsync,
		HasRestArg:   e.HasRestArg,
	}, true
}
