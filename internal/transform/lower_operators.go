package transform

import (
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

// Splits an assignment target into a reference that evaluates the object and
// key once and a function returning the same reference again
func captureAssignTarget(w *js_pass.Walker, target js_ast.Expr) (js_ast.Expr, func() js_ast.Expr) {
	switch e := target.Data.(type) {
	case *js_ast.EDot:
		object, objectAgain := w.CaptureValue(e.Target)
		first := js_ast.Expr{Loc: target.Loc, Data: &js_ast.EDot{Target: object, Name: e.Name, NameLoc: e.NameLoc}}
		return first, func() js_ast.Expr {
			return js_ast.Expr{Loc: target.Loc, Data: &js_ast.EDot{Target: objectAgain(), Name: e.Name, NameLoc: e.NameLoc}}
		}

	case *js_ast.EIndex:
		object, objectAgain := w.CaptureValue(e.Target)
		index, indexAgain := w.CaptureValue(e.Index)
		first := js_ast.Expr{Loc: target.Loc, Data: &js_ast.EIndex{Target: object, Index: index}}
		return first, func() js_ast.Expr {
			return js_ast.Expr{Loc: target.Loc, Data: &js_ast.EIndex{Target: objectAgain(), Index: indexAgain()}}
		}
	}

	return target, func() js_ast.Expr {
		if id, ok := target.Data.(*js_ast.EIdentifier); ok {
			return js_ast.Expr{Loc: target.Loc, Data: &js_ast.EIdentifier{Ref: id.Ref}}
		}
		return target
	}
}

// "a ||= b" => "a || (a = b)"
// "a.b &&= c" => "a.b && (a.b = c)"
// "a()[b] ??= c" => "(_a = a())[b] ?? (_a[b] = c)"
func lowerLogicalAssign(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			e, ok := expr.Data.(*js_ast.EBinary)
			if !ok || !e.Op.IsShortCircuit() {
				return expr
			}
			op, ok := e.Op.AssignToBinary()
			if !ok {
				return expr
			}
			read, again := captureAssignTarget(w, e.Left)
			return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{
				Op:    op,
				Left:  read,
				Right: js_ast.Assign(again(), e.Right),
			}}
		},
	}), nil
}

// "a ** b" => "Math.pow(a, b)"
// "a.b **= c" => "a.b = Math.pow(a.b, c)"
func lowerExponent(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			e, ok := expr.Data.(*js_ast.EBinary)
			if !ok {
				return expr
			}
			switch e.Op {
			case js_ast.BinOpPow:
				return mathPow(w, expr, e.Left, e.Right)

			case js_ast.BinOpPowAssign:
				target, again := captureAssignTarget(w, e.Left)
				return js_ast.Assign(target, mathPow(w, expr, again(), e.Right))
			}
			return expr
		},
	}), nil
}

func mathPow(w *js_pass.Walker, expr js_ast.Expr, left js_ast.Expr, right js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ECall{
		Target: js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EDot{
			Target:  w.Global(expr.Loc, "Math"),
			Name:    "pow",
			NameLoc: expr.Loc,
		}},
		Args: []js_ast.Expr{left, right},
	}}
}

// "a ?? b" => "a != null ? a : b"
// "a?.b" => "a == null ? void 0 : a.b"
func lowerNullish(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		// Chains are lowered from their outermost node so that the whole chain
		// short-circuits together
		EnterExpr: func(w *js_pass.Walker, expr js_ast.Expr) (js_ast.Expr, bool) {
			if e, ok := expr.Data.(*js_ast.EUnary); ok && e.Op == js_ast.UnOpDelete && js_ast.IsOptionalChain(e.Value) {
				return lowerOptionalChain(w, expr.Loc, e.Value, true), true
			}
			if js_ast.IsOptionalChain(expr) {
				return lowerOptionalChain(w, expr.Loc, expr, false), true
			}
			return expr, false
		},

		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			e, ok := expr.Data.(*js_ast.EBinary)
			if !ok || e.Op != js_ast.BinOpNullishCoalescing {
				return expr
			}
			first, again := w.CaptureValue(e.Left)
			return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIf{
				Test: js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{
					Op:    js_ast.BinOpLooseNe,
					Left:  first,
					Right: js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ENull{}},
				}},
				Yes: again(),
				No:  e.Right,
			}}
		},
	}), nil
}

func optionalChainOf(expr js_ast.Expr) (js_ast.OptionalChain, js_ast.Expr) {
	switch e := expr.Data.(type) {
	case *js_ast.EDot:
		return e.OptionalChain, e.Target
	case *js_ast.EIndex:
		return e.OptionalChain, e.Target
	case *js_ast.ECall:
		return e.OptionalChain, e.Target
	}
	return js_ast.OptionalChainNone, js_ast.Expr{}
}

// Rebuilds one link of a chain on top of a new target with its optional
// marker removed
func relinkChain(w *js_pass.Walker, link js_ast.Expr, target js_ast.Expr) js_ast.Expr {
	switch e := link.Data.(type) {
	case *js_ast.EDot:
		return js_ast.Expr{Loc: link.Loc, Data: &js_ast.EDot{Target: target, Name: e.Name, NameLoc: e.NameLoc}}
	case *js_ast.EIndex:
		return js_ast.Expr{Loc: link.Loc, Data: &js_ast.EIndex{Target: target, Index: w.Expr(e.Index)}}
	case *js_ast.ECall:
		return js_ast.Expr{Loc: link.Loc, Data: &js_ast.ECall{Target: target, Args: w.Exprs(e.Args), IsDirectEval: e.IsDirectEval}}
	}
	panic("Internal error")
}

func lowerOptionalChain(w *js_pass.Walker, loc logger.Loc, expr js_ast.Expr, isDelete bool) js_ast.Expr {
	// Links from the outermost one down to the one with the "?."
	var links []js_ast.Expr
	for link := expr; ; {
		links = append(links, link)
		kind, target := optionalChainOf(link)
		if kind == js_ast.OptionalChainStart {
			break
		}
		link = target
	}
	start := links[len(links)-1]
	_, base := optionalChainOf(start)
	base = w.Expr(base)

	var test js_ast.Expr
	var result js_ast.Expr

	if call, ok := start.Data.(*js_ast.ECall); ok && isPropertyAccess(base) {
		// "a.b?.()" must still call "b" with "a" as "this":
		// "(_b = (_a = a).b) == null ? void 0 : _b.call(_a)"
		object, objectAgain, callee := splitPropertyAccess(w, base)
		fnRef := w.NewTempRef(base.Loc)
		test = js_ast.Assign(js_ast.Expr{Loc: base.Loc, Data: &js_ast.EIdentifier{Ref: fnRef}}, callee(object))
		thisArg := objectAgain()
		if _, ok := thisArg.Data.(*js_ast.ESuper); ok {
			thisArg = js_ast.Expr{Loc: thisArg.Loc, Data: &js_ast.EThis{}}
		}
		result = js_ast.Expr{Loc: start.Loc, Data: &js_ast.ECall{
			Target: js_ast.Expr{Loc: start.Loc, Data: &js_ast.EDot{
				Target:  js_ast.Expr{Loc: base.Loc, Data: &js_ast.EIdentifier{Ref: fnRef}},
				Name:    "call",
				NameLoc: start.Loc,
			}},
			Args: append([]js_ast.Expr{thisArg}, w.Exprs(call.Args)...),
		}}
	} else {
		first, again := w.CaptureValue(base)
		test = first
		result = relinkChain(w, start, again())
	}

	for i := len(links) - 2; i >= 0; i-- {
		result = relinkChain(w, links[i], result)
	}

	yes := js_ast.Expr{Loc: loc, Data: &js_ast.EUndefined{}}
	if isDelete {
		yes = js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: true}}
		result = js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: js_ast.UnOpDelete, Value: result}}
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIf{
		Test: js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{
			Op:    js_ast.BinOpLooseEq,
			Left:  test,
			Right: js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}},
		}},
		Yes: yes,
		No:  result,
	}}
}

func isPropertyAccess(expr js_ast.Expr) bool {
	switch expr.Data.(type) {
	case *js_ast.EDot, *js_ast.EIndex:
		return true
	}
	return false
}

// Returns the object of a property access evaluated once, a way to read it
// again, and a function that rebuilds the access on top of a new object
func splitPropertyAccess(w *js_pass.Walker, expr js_ast.Expr) (js_ast.Expr, func() js_ast.Expr, func(js_ast.Expr) js_ast.Expr) {
	switch e := expr.Data.(type) {
	case *js_ast.EDot:
		object, again := w.CaptureValue(e.Target)
		return object, again, func(target js_ast.Expr) js_ast.Expr {
			return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EDot{Target: target, Name: e.Name, NameLoc: e.NameLoc}}
		}
	case *js_ast.EIndex:
		object, again := w.CaptureValue(e.Target)
		return object, again, func(target js_ast.Expr) js_ast.Expr {
			return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIndex{Target: target, Index: e.Index}}
		}
	}
	panic("Internal error")
}
