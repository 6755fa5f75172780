package transform

import (
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
)

func isPattern(binding js_ast.Binding) bool {
	switch binding.Data.(type) {
	case *js_ast.BArray, *js_ast.BObject:
		return true
	}
	return false
}

func hasObjectRest(binding js_ast.Binding) bool {
	switch b := binding.Data.(type) {
	case *js_ast.BArray:
		for _, item := range b.Items {
			if hasObjectRest(item.Binding) {
				return true
			}
		}
	case *js_ast.BObject:
		for _, property := range b.Properties {
			if property.IsSpread || hasObjectRest(property.Value) {
				return true
			}
		}
	}
	return false
}

func identifier(loc logger.Loc, ref js_ast.Ref) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: ref}}
}

// "obj.key" when the key is a valid identifier, otherwise "obj[key]"
func member(loc logger.Loc, target js_ast.Expr, key js_ast.Expr) js_ast.Expr {
	if str, ok := key.Data.(*js_ast.EString); ok && js_lexer.IsIdentifierUTF16(str.Value) {
		return js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: target, Name: helpers.UTF16ToString(str.Value), NameLoc: key.Loc}}
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIndex{Target: target, Index: key}}
}

func sliceFrom(loc logger.Loc, target js_ast.Expr, index int) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
		Target: js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: target, Name: "slice", NameLoc: loc}},
		Args:   []js_ast.Expr{{Loc: loc, Data: &js_ast.ENumber{Value: float64(index)}}},
	}}
}

// Expands destructuring declarations into one declaration per name:
//
//	"var {a, b: [c = 1]} = x" => "var _a = x, a = _a.a, _b = _a.b[0], c = _b === void 0 ? 1 : _b"
type declExpander struct {
	w     *js_pass.Walker
	decls []js_ast.Decl
}

func (d *declExpander) temp(loc logger.Loc, value js_ast.Expr) js_ast.Expr {
	ref := d.w.NewGeneratedRef(js_ast.SymbolHoisted)
	d.decls = append(d.decls, js_ast.Decl{
		Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: ref}},
		Value:   &value,
	})
	return identifier(loc, ref)
}

// Returns an expression that evaluates to "value", or to "defaultValue" when
// "value" is undefined
func (d *declExpander) withDefault(loc logger.Loc, value js_ast.Expr, defaultValue *js_ast.Expr) js_ast.Expr {
	if defaultValue == nil {
		return value
	}
	ref := d.temp(loc, value).Data.(*js_ast.EIdentifier).Ref
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIf{
		Test: isVoidZero(loc, ref),
		Yes:  *defaultValue,
		No:   identifier(loc, ref),
	}}
}

func (d *declExpander) expand(binding js_ast.Binding, value js_ast.Expr) {
	loc := binding.Loc

	switch b := binding.Data.(type) {
	case *js_ast.BMissing:

	case *js_ast.BIdentifier:
		d.decls = append(d.decls, js_ast.Decl{Binding: binding, Value: &value})

	case *js_ast.BArray:
		// A single element reads the source once so it needs no temporary
		source := value
		if len(b.Items) != 1 {
			source = d.temp(loc, value)
		} else if _, ok := b.Items[0].Binding.Data.(*js_ast.BMissing); ok {
			d.temp(loc, value)
			return
		}
		for i, item := range b.Items {
			var element js_ast.Expr
			if b.HasSpread && i+1 == len(b.Items) {
				element = sliceFrom(item.Binding.Loc, source, i)
			} else {
				element = js_ast.Expr{Loc: item.Binding.Loc, Data: &js_ast.EIndex{
					Target: source,
					Index:  js_ast.Expr{Loc: item.Binding.Loc, Data: &js_ast.ENumber{Value: float64(i)}},
				}}
			}
			d.expand(item.Binding, d.withDefault(item.Binding.Loc, element, item.DefaultValue))
		}

	case *js_ast.BObject:
		source := value
		if len(b.Properties) != 1 {
			source = d.temp(loc, value)
		}
		if len(b.Properties) == 0 {
			return
		}
		for _, property := range b.Properties {
			element := member(property.Value.Loc, source, property.Key)
			d.expand(property.Value, d.withDefault(property.Value.Loc, element, property.DefaultValue))
		}

	default:
		panic("Internal error")
	}
}

func expandDecls(w *js_pass.Walker, decls []js_ast.Decl) []js_ast.Decl {
	d := declExpander{w: w}
	for _, decl := range decls {
		if isPattern(decl.Binding) && decl.Value != nil {
			d.expand(decl.Binding, *decl.Value)
		} else {
			d.decls = append(d.decls, decl)
		}
	}
	return d.decls
}

func localDeclaresPattern(local *js_ast.SLocal) (hasPattern bool, canLower bool) {
	canLower = true
	for _, decl := range local.Decls {
		if isPattern(decl.Binding) {
			hasPattern = true
			if decl.Value == nil || hasObjectRest(decl.Binding) {
				canLower = false
			}
		}
	}
	return
}

// Assignment patterns become comma expressions that evaluate to the source:
//
//	"[a, b] = [b, a]" => "(_a = [b, a], a = _a[0], b = _a[1], _a)"
type assignExpander struct {
	w     *js_pass.Walker
	exprs []js_ast.Expr
}

func (a *assignExpander) temp(value js_ast.Expr) js_ast.Expr {
	ref := a.w.NewTempRef(value.Loc)
	a.exprs = append(a.exprs, js_ast.Assign(identifier(value.Loc, ref), value))
	return identifier(value.Loc, ref)
}

func (a *assignExpander) withDefault(value js_ast.Expr, defaultValue *js_ast.Expr) js_ast.Expr {
	if defaultValue == nil {
		return value
	}
	ref := a.temp(value).Data.(*js_ast.EIdentifier).Ref
	return js_ast.Expr{Loc: value.Loc, Data: &js_ast.EIf{
		Test: isVoidZero(value.Loc, ref),
		Yes:  *defaultValue,
		No:   identifier(value.Loc, ref),
	}}
}

func (a *assignExpander) expand(target js_ast.Expr, value js_ast.Expr) {
	switch e := target.Data.(type) {
	case *js_ast.EMissing:

	case *js_ast.EArray:
		source := a.temp(value)
		for i, item := range e.Items {
			if spread, ok := item.Data.(*js_ast.ESpread); ok {
				a.expand(spread.Value, sliceFrom(item.Loc, source, i))
				continue
			}
			var defaultValue *js_ast.Expr
			if binary, ok := item.Data.(*js_ast.EBinary); ok && binary.Op == js_ast.BinOpAssign {
				item, defaultValue = binary.Left, &binary.Right
			}
			element := js_ast.Expr{Loc: item.Loc, Data: &js_ast.EIndex{
				Target: source,
				Index:  js_ast.Expr{Loc: item.Loc, Data: &js_ast.ENumber{Value: float64(i)}},
			}}
			a.expand(item, a.withDefault(element, defaultValue))
		}

	case *js_ast.EObject:
		source := a.temp(value)
		for _, property := range e.Properties {
			element := member(property.Key.Loc, source, property.Key)
			a.expand(*property.Value, a.withDefault(element, property.Initializer))
		}

	default:
		a.exprs = append(a.exprs, js_ast.Assign(target, value))
	}
}

func isAssignPattern(expr js_ast.Expr) bool {
	switch expr.Data.(type) {
	case *js_ast.EArray, *js_ast.EObject:
		return true
	}
	return false
}

func assignPatternHasRest(expr js_ast.Expr) bool {
	switch e := expr.Data.(type) {
	case *js_ast.EArray:
		for _, item := range e.Items {
			if binary, ok := item.Data.(*js_ast.EBinary); ok && binary.Op == js_ast.BinOpAssign {
				item = binary.Left
			} else if spread, ok := item.Data.(*js_ast.ESpread); ok {
				item = spread.Value
			}
			if assignPatternHasRest(item) {
				return true
			}
		}
	case *js_ast.EObject:
		for _, property := range e.Properties {
			if property.Kind == js_ast.PropertySpread || (property.Value != nil && assignPatternHasRest(*property.Value)) {
				return true
			}
		}
	}
	return false
}

// Moves destructured parameters and catch bindings into "var" declarations
// at the start of their body so that the declaration rule lowers them
func lowerPatternArgs(w *js_pass.Walker, args []js_ast.Arg, stmts []js_ast.Stmt) ([]js_ast.Arg, []js_ast.Stmt, bool) {
	var newArgs []js_ast.Arg
	var decls []js_ast.Decl
	for i, arg := range args {
		if !isPattern(arg.Binding) || hasObjectRest(arg.Binding) {
			continue
		}
		if newArgs == nil {
			newArgs = append([]js_ast.Arg(nil), args...)
		}
		ref := w.NewGeneratedRef(js_ast.SymbolHoisted)
		value := identifier(arg.Binding.Loc, ref)
		decls = append(decls, js_ast.Decl{Binding: arg.Binding, Value: &value})
		newArgs[i] = js_ast.Arg{Binding: js_ast.Binding{Loc: arg.Binding.Loc, Data: &js_ast.BIdentifier{Ref: ref}}, Default: arg.Default}
	}
	if newArgs == nil {
		return args, stmts, false
	}
	local := js_ast.Stmt{Loc: decls[0].Binding.Loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: expandDecls(w, decls)}}
	return newArgs, js_pass.PrependStmts(stmts, local), true
}

func lowerDestructuring(ctx passContext, tree js_ast.AST) (js_ast.AST, error) {
	return js_pass.Rewrite(ctx, tree, js_pass.Hooks{
		Expr: func(w *js_pass.Walker, expr js_ast.Expr) js_ast.Expr {
			switch e := expr.Data.(type) {
			case *js_ast.EBinary:
				if e.Op != js_ast.BinOpAssign || !isAssignPattern(e.Left) {
					break
				}
				if assignPatternHasRest(e.Left) {
					w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, expr.Loc,
						"Cannot lower an object rest pattern in an assignment")
					break
				}
				a := assignExpander{w: w}
				a.expand(e.Left, e.Right)
				// The first expression assigns the source to the temporary
				result := a.exprs[0].Data.(*js_ast.EBinary).Left
				return js_ast.JoinWithComma(js_ast.JoinAllWithComma(a.exprs), result)

			case *js_ast.EFunction:
				if args, stmts, ok := lowerPatternArgs(w, e.Fn.Args, e.Fn.Body.Stmts); ok {
					fn := e.Fn
					fn.Args = args
					fn.Body = js_ast.FnBody{Loc: fn.Body.Loc, Stmts: stmts}
					return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EFunction{Fn: fn}}
				}

			case *js_ast.EArrow:
				if args, stmts, ok := lowerPatternArgs(w, e.Args, e.Body.Stmts); ok {
					clone := *e
					clone.Args = args
					clone.Body = js_ast.FnBody{Loc: e.Body.Loc, Stmts: stmts}
					clone.PreferExpr = false
					return js_ast.Expr{Loc: expr.Loc, Data: &clone}
				}
			}
			return expr
		},

		Stmt: func(w *js_pass.Walker, stmt js_ast.Stmt) js_ast.Stmt {
			switch s := stmt.Data.(type) {
			case *js_ast.SLocal:
				hasPattern, canLower := localDeclaresPattern(s)
				if !hasPattern {
					break
				}
				if !canLower {
					for _, decl := range s.Decls {
						if decl.Value != nil && hasObjectRest(decl.Binding) {
							w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, decl.Binding.Loc,
								"Cannot lower an object rest pattern in a declaration")
						}
					}
					break
				}
				return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SLocal{
					Kind:     s.Kind,
					IsExport: s.IsExport,
					Decls:    expandDecls(w, s.Decls),
				}}

			case *js_ast.SForIn:
				warnLoopPattern(w, s.Init)
			case *js_ast.SForOf:
				warnLoopPattern(w, s.Init)

			case *js_ast.SFunction:
				if args, stmts, ok := lowerPatternArgs(w, s.Fn.Args, s.Fn.Body.Stmts); ok {
					fn := s.Fn
					fn.Args = args
					fn.Body = js_ast.FnBody{Loc: fn.Body.Loc, Stmts: stmts}
					return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SFunction{Fn: fn, IsExport: s.IsExport}}
				}

			case *js_ast.STry:
				if s.Catch == nil || s.Catch.Binding == nil || !isPattern(*s.Catch.Binding) || hasObjectRest(*s.Catch.Binding) {
					break
				}
				// "catch ({a}) {}" => "catch (_a) { var a = _a.a; }"
				binding := *s.Catch.Binding
				ref := w.NewGeneratedRef(js_ast.SymbolCatchIdentifier)
				value := identifier(binding.Loc, ref)
				local := js_ast.Stmt{Loc: binding.Loc, Data: &js_ast.SLocal{
					Kind:  js_ast.LocalVar,
					Decls: expandDecls(w, []js_ast.Decl{{Binding: binding, Value: &value}}),
				}}
				return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.STry{
					Body: s.Body,
					Catch: &js_ast.Catch{
						Loc:     s.Catch.Loc,
						Binding: &js_ast.Binding{Loc: binding.Loc, Data: &js_ast.BIdentifier{Ref: ref}},
						Body:    js_pass.PrependStmts(s.Catch.Body, local),
					},
					Finally: s.Finally,
				}}
			}
			return stmt
		},
	}), nil
}

func warnLoopPattern(w *js_pass.Walker, init js_ast.Stmt) {
	switch s := init.Data.(type) {
	case *js_ast.SLocal:
		if len(s.Decls) == 1 && isPattern(s.Decls[0].Binding) {
			w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, init.Loc,
				"Cannot lower a destructuring pattern in a for-in or for-of loop")
		}
	case *js_ast.SExpr:
		if isAssignPattern(s.Value) {
			w.Ctx().AddWarning(logger.MsgID_JS_NotLowered, init.Loc,
				"Cannot lower a destructuring pattern in a for-in or for-of loop")
		}
	}
}
