package transform

import (
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

// "`a${b}c`" => "\"a\" + b + \"c\""
// "tag`a${b}`" => "tag(Object.freeze(Object.defineProperties([\"a\", \"\"], {raw: {value: Object.freeze([\"a\", \"\"])}})), b)"
func lowerTemplate(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			e, ok := expr.Data.(*js_ast.ETemplate)
			if !ok {
				return expr
			}
			if e.Tag != nil {
				return lowerTaggedTemplate(w, expr.Loc, e)
			}

			// The result always starts with a string so that "+" means concatenation
			result := js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EString{Value: e.Head}}
			for _, part := range e.Parts {
				result = js_ast.Expr{Loc: part.Value.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpAdd, Left: result, Right: part.Value}}
				if len(part.Tail) > 0 {
					result = js_ast.Expr{Loc: part.TailLoc, Data: &js_ast.EBinary{
						Op:    js_ast.BinOpAdd,
						Left:  result,
						Right: js_ast.Expr{Loc: part.TailLoc, Data: &js_ast.EString{Value: part.Tail}},
					}}
				}
			}
			return result
		},
	}), nil
}

func objectFreeze(w *js_pass.Walker, loc logger.Loc, value js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
		Target: js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: w.Global(loc, "Object"), Name: "freeze", NameLoc: loc}},
		Args:   []js_ast.Expr{value},
	}}
}

func lowerTaggedTemplate(w *js_pass.Walker, loc logger.Loc, e *js_ast.ETemplate) js_ast.Expr {
	cooked := []js_ast.Expr{{Loc: loc, Data: &js_ast.EString{Value: e.Head}}}
	raw := []js_ast.Expr{{Loc: loc, Data: &js_ast.EString{Value: helpers.StringToUTF16(e.HeadRaw)}}}
	args := []js_ast.Expr{{}}
	for _, part := range e.Parts {
		cooked = append(cooked, js_ast.Expr{Loc: part.TailLoc, Data: &js_ast.EString{Value: part.Tail}})
		raw = append(raw, js_ast.Expr{Loc: part.TailLoc, Data: &js_ast.EString{Value: helpers.StringToUTF16(part.TailRaw)}})
		args = append(args, part.Value)
	}

	rawProperty := js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: []js_ast.Property{{
		Key:   js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: helpers.StringToUTF16("value")}},
		Value: ptr(objectFreeze(w, loc, js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: raw}})),
	}}}}

	strings := js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
		Target: js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: w.Global(loc, "Object"), Name: "defineProperties", NameLoc: loc}},
		Args: []js_ast.Expr{
			{Loc: loc, Data: &js_ast.EArray{Items: cooked}},
			{Loc: loc, Data: &js_ast.EObject{Properties: []js_ast.Property{{
				Key:   js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: helpers.StringToUTF16("raw")}},
				Value: &rawProperty,
			}}}},
		},
	}}

	args[0] = objectFreeze(w, loc, strings)
	return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{Target: *e.Tag, Args: args}}
}

func ptr(expr js_ast.Expr) *js_ast.Expr {
	return &expr
}

func usesSuper(w *js_pass.Walker, expr js_ast.Expr) (found bool) {
	w.Nested(js_pass.Hooks{
		EnterExpr: func(w *js_pass.Walker, expr js_ast.Expr) (js_ast.Expr, bool) {
			switch expr.Data.(type) {
			case *js_ast.EFunction, *js_ast.EClass:
				return expr, true
			case *js_ast.ESuper:
				found = true
			}
			return expr, false
		},
		EnterStmt: stopAtFunctions,
	}).ExprChildren(expr)
	return
}

// "{a() {}}" => "{a: function() {}}"
// "{a, [b]: c, d}" => "(_a = {a: a}, _a[b] = c, _a.d = d, _a)"
func lowerObject(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			e, ok := expr.Data.(*js_ast.EObject)
			if !ok {
				return expr
			}

			firstComputed := -1
			needsChange := false
			for i, property := range e.Properties {
				switch {
				case property.Kind == js_ast.PropertySpread:
					// Spread is reported by the unsupported syntax check
					return expr

				case property.Initializer != nil:
					// Only assignment patterns have these
					return expr

				case property.IsComputed && property.Kind != js_ast.PropertyNormal:
					w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, property.Key.Loc,
						"Cannot lower a getter or setter with a computed key")
					return expr

				case property.IsMethod && usesSuper(w, *property.Value):
					w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, property.Key.Loc,
						"Cannot lower an object method that uses \"super\"")
					return expr
				}
				if property.IsComputed && firstComputed == -1 {
					firstComputed = i
				}
				if property.IsMethod || property.WasShorthand {
					needsChange = true
				}
			}
			if !needsChange && firstComputed == -1 {
				return expr
			}

			properties := make([]js_ast.Property, len(e.Properties))
			for i, property := range e.Properties {
				if property.Kind == js_ast.PropertyNormal {
					property.IsMethod = false
				}
				property.WasShorthand = false
				properties[i] = property
			}
			if firstComputed == -1 {
				return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: e.IsSingleLine}}
			}

			// Everything from the first computed key on becomes an assignment so
			// that keys and values are still evaluated in order
			ref := w.NewTempRef(expr.Loc)
			exprs := []js_ast.Expr{js_ast.Assign(identifier(expr.Loc, ref), js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EObject{
				Properties:   properties[:firstComputed],
				IsSingleLine: e.IsSingleLine,
			}})}
			for _, property := range properties[firstComputed:] {
				var target js_ast.Expr
				if property.IsComputed {
					target = js_ast.Expr{Loc: property.Key.Loc, Data: &js_ast.EIndex{Target: identifier(expr.Loc, ref), Index: property.Key}}
				} else {
					target = member(property.Key.Loc, identifier(expr.Loc, ref), property.Key)
				}
				switch property.Kind {
				case js_ast.PropertyGet, js_ast.PropertySet:
					exprs = append(exprs, defineAccessor(w, expr.Loc, ref, property))
				default:
					exprs = append(exprs, js_ast.Assign(target, *property.Value))
				}
			}
			exprs = append(exprs, identifier(expr.Loc, ref))
			return js_ast.JoinAllWithComma(exprs)
		},
	}), nil
}

// "Object.defineProperty(_a, "key", {get: function() {}, configurable: true, enumerable: true})"
func defineAccessor(w *js_pass.Walker, loc logger.Loc, ref js_ast.Ref, property js_ast.Property) js_ast.Expr {
	kind := "get"
	if property.Kind == js_ast.PropertySet {
		kind = "set"
	}
	key := func(name string) js_ast.Expr {
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: helpers.StringToUTF16(name)}}
	}
	yes := js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: true}}
	return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
		Target: js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: w.Global(loc, "Object"), Name: "defineProperty", NameLoc: loc}},
		Args: []js_ast.Expr{
			identifier(loc, ref),
			property.Key,
			{Loc: loc, Data: &js_ast.EObject{Properties: []js_ast.Property{
				{Key: key(kind), Value: property.Value},
				{Key: key("configurable"), Value: &yes},
				{Key: key("enumerable"), Value: &yes},
			}}},
		},
	}}
}
