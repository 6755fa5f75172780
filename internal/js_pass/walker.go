package js_pass

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
)

// Hooks customize a walk. Every hook is optional.
type Hooks struct {
	// Runs before the children of an expression are visited. Returning true
	// replaces the expression with the result and skips the default traversal
	// and the "Expr" hook.
	EnterExpr func(w *Walker, expr js_ast.Expr) (js_ast.Expr, bool)

	// Runs after the children of an expression have been visited
	Expr func(w *Walker, expr js_ast.Expr) js_ast.Expr

	// Same as "EnterExpr" but for statements
	EnterStmt func(w *Walker, stmt js_ast.Stmt) (js_ast.Stmt, bool)

	// Runs after the children of a statement have been visited
	Stmt func(w *Walker, stmt js_ast.Stmt) js_ast.Stmt

	// Runs on every statement list (module body, function bodies, blocks,
	// switch cases) after each statement in it has been visited
	Stmts func(w *Walker, stmts []js_ast.Stmt) []js_ast.Stmt
}

// State shared by a walker and the nested walkers it creates
type walkState struct {
	ctx          *Context
	tree         *js_ast.AST
	ownsSymbols  bool
	ownsTopLevel bool
	globals      map[string]js_ast.Ref
}

type fnFrame struct {
	isArrow  bool
	decls    []js_ast.Decl
	captures map[string]js_ast.Ref
}

type Walker struct {
	*walkState
	hooks  Hooks
	frames []*fnFrame
}

// Rewrite walks the whole tree and returns the result. The returned tree
// shares every unchanged node with the input.
func Rewrite(ctx *Context, tree js_ast.AST, hooks Hooks) js_ast.AST {
	w := &Walker{
		walkState: &walkState{ctx: ctx, tree: &tree},
		hooks:     hooks,
	}
	frame := &fnFrame{}
	w.frames = []*fnFrame{frame}
	stmts := w.Stmts(tree.Stmts)
	if len(frame.decls) > 0 {
		stmts = prependDecls(stmts, frame.decls)
	}
	tree.Stmts = stmts
	return tree
}

// Nested returns a walker with different hooks that shares the symbol table
// and the enclosing functions of this one
func (w *Walker) Nested(hooks Hooks) *Walker {
	return &Walker{walkState: w.walkState, hooks: hooks, frames: w.frames}
}

func (w *Walker) Ctx() *Context {
	return w.ctx
}

func (w *Walker) Symbol(ref js_ast.Ref) *js_ast.Symbol {
	return &w.tree.Symbols[ref.InnerIndex]
}

func (w *Walker) ImportRecord(index uint32) *ast.ImportRecord {
	return &w.tree.ImportRecords[index]
}

func (w *Walker) IsUnbound(ref js_ast.Ref) bool {
	return w.Symbol(ref).Kind == js_ast.SymbolUnbound
}

func (w *Walker) newSymbol(kind js_ast.SymbolKind, name string) js_ast.Ref {
	if !w.ownsSymbols {
		w.tree.Symbols = append([]js_ast.Symbol(nil), w.tree.Symbols...)
		w.ownsSymbols = true
	}
	ref := js_ast.Ref{SourceIndex: w.ctx.Source.Index, InnerIndex: uint32(len(w.tree.Symbols))}
	w.tree.Symbols = append(w.tree.Symbols, js_ast.Symbol{
		OriginalName: name,
		Link:         js_ast.InvalidRef,
		Kind:         kind,
	})
	return ref
}

func (w *Walker) declareTopLevel(ref js_ast.Ref) {
	if !w.ownsTopLevel {
		w.tree.TopLevelSymbols = append([]js_ast.Ref(nil), w.tree.TopLevelSymbols...)
		w.ownsTopLevel = true
	}
	w.tree.TopLevelSymbols = append(w.tree.TopLevelSymbols, ref)
}

func (w *Walker) declareIn(frame *fnFrame, name string, value *js_ast.Expr, loc logger.Loc) js_ast.Ref {
	ref := w.newSymbol(js_ast.SymbolHoisted, name)
	frame.decls = append(frame.decls, js_ast.Decl{
		Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: ref}},
		Value:   value,
	})
	if frame == w.frames[0] {
		w.declareTopLevel(ref)
	}
	return ref
}

// Declares a new "var" in the closest enclosing function (arrow functions
// included) and returns its ref
func (w *Walker) NewTempRef(loc logger.Loc) js_ast.Ref {
	return w.declareIn(w.frames[len(w.frames)-1], w.ctx.nextTempName(), nil, loc)
}

// A new symbol with a generated name that the caller declares itself, such
// as a function argument
func (w *Walker) NewGeneratedRef(kind js_ast.SymbolKind) js_ast.Ref {
	return w.newSymbol(kind, w.ctx.nextTempName())
}

// Returns a "var" in the closest non-arrow function that is initialized with
// "init" when that function starts. The same key always returns the same ref
// within one function.
func (w *Walker) CaptureInEnclosingFunction(key string, loc logger.Loc, init func() js_ast.Expr) js_ast.Ref {
	frame := w.frames[0]
	for i := len(w.frames) - 1; i > 0; i-- {
		if !w.frames[i].isArrow {
			frame = w.frames[i]
			break
		}
	}
	if ref, ok := frame.captures[key]; ok {
		return ref
	}
	value := init()
	ref := w.declareIn(frame, "_"+key, &value, loc)
	if frame.captures == nil {
		frame.captures = make(map[string]js_ast.Ref)
	}
	frame.captures[key] = ref
	return ref
}

// Returns the unbound symbol for a global name, adding one if the tree never
// mentions that global
func (w *Walker) GlobalRef(name string) js_ast.Ref {
	if w.globals == nil {
		w.globals = make(map[string]js_ast.Ref)
		for i, symbol := range w.tree.Symbols {
			if symbol.Kind == js_ast.SymbolUnbound {
				if _, ok := w.globals[symbol.OriginalName]; !ok {
					w.globals[symbol.OriginalName] = js_ast.Ref{SourceIndex: w.ctx.Source.Index, InnerIndex: uint32(i)}
				}
			}
		}
	}
	if ref, ok := w.globals[name]; ok {
		return ref
	}
	ref := w.newSymbol(js_ast.SymbolUnbound, name)
	w.globals[name] = ref
	return ref
}

func (w *Walker) Global(loc logger.Loc, name string) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: w.GlobalRef(name)}}
}

// A new "arguments" symbol for a function that did not have one
func (w *Walker) NewArgumentsRef() js_ast.Ref {
	ref := w.newSymbol(js_ast.SymbolArguments, "arguments")
	w.Symbol(ref).MustNotBeRenamed = true
	return ref
}

// Evaluates "value" once. The first result must be evaluated before the
// second one, which can be used any number of times.
func (w *Walker) CaptureValue(value js_ast.Expr) (js_ast.Expr, func() js_ast.Expr) {
	switch e := value.Data.(type) {
	case *js_ast.EIdentifier:
		return value, func() js_ast.Expr {
			return js_ast.Expr{Loc: value.Loc, Data: &js_ast.EIdentifier{Ref: e.Ref}}
		}

	case *js_ast.EThis, *js_ast.ESuper, *js_ast.ENull, *js_ast.EUndefined, *js_ast.EBoolean,
		*js_ast.ENumber, *js_ast.EString, *js_ast.EBigInt:
		return value, func() js_ast.Expr { return value }
	}

	ref := w.NewTempRef(value.Loc)
	first := js_ast.Assign(js_ast.Expr{Loc: value.Loc, Data: &js_ast.EIdentifier{Ref: ref}}, value)
	return first, func() js_ast.Expr {
		return js_ast.Expr{Loc: value.Loc, Data: &js_ast.EIdentifier{Ref: ref}}
	}
}

func prependDecls(stmts []js_ast.Stmt, decls []js_ast.Decl) []js_ast.Stmt {
	local := js_ast.Stmt{Loc: decls[0].Binding.Loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}
	return PrependStmts(stmts, local)
}

// Inserts statements at the start of a body, after any directives
func PrependStmts(stmts []js_ast.Stmt, prefix ...js_ast.Stmt) []js_ast.Stmt {
	i := 0
	for i < len(stmts) {
		if _, ok := stmts[i].Data.(*js_ast.SDirective); !ok {
			break
		}
		i++
	}
	result := make([]js_ast.Stmt, 0, len(stmts)+len(prefix))
	result = append(result, stmts[:i]...)
	result = append(result, prefix...)
	return append(result, stmts[i:]...)
}

func changed(a js_ast.Expr, b js_ast.Expr) bool {
	return a.Data != b.Data
}

func (w *Walker) Expr(expr js_ast.Expr) js_ast.Expr {
	if w.hooks.EnterExpr != nil {
		if result, ok := w.hooks.EnterExpr(w, expr); ok {
			return result
		}
	}
	expr = w.ExprChildren(expr)
	if w.hooks.Expr != nil {
		expr = w.hooks.Expr(w, expr)
	}
	return expr
}

func (w *Walker) OptionalExpr(expr *js_ast.Expr) *js_ast.Expr {
	if expr == nil {
		return nil
	}
	if result := w.Expr(*expr); changed(result, *expr) {
		return &result
	}
	return expr
}

func (w *Walker) Exprs(exprs []js_ast.Expr) []js_ast.Expr {
	var result []js_ast.Expr
	for i, expr := range exprs {
		value := w.Expr(expr)
		if result == nil && changed(value, expr) {
			result = append([]js_ast.Expr(nil), exprs...)
		}
		if result != nil {
			result[i] = value
		}
	}
	if result == nil {
		return exprs
	}
	return result
}

func sameExprs(a []js_ast.Expr, b []js_ast.Expr) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

func sameStmts(a []js_ast.Stmt, b []js_ast.Stmt) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Data != b[i].Data {
			return false
		}
	}
	return true
}

// Visits the children of an expression without running any hook on the
// expression itself
func (w *Walker) ExprChildren(expr js_ast.Expr) js_ast.Expr {
	loc := expr.Loc

	switch e := expr.Data.(type) {
	case *js_ast.EMissing, *js_ast.EBoolean, *js_ast.ESuper, *js_ast.ENull, *js_ast.EUndefined,
		*js_ast.EThis, *js_ast.ENewTarget, *js_ast.EImportMeta, *js_ast.ENumber, *js_ast.EBigInt,
		*js_ast.EString, *js_ast.ERegExp, *js_ast.ERequire, *js_ast.EIdentifier,
		*js_ast.EImportIdentifier, *js_ast.EError:

	case *js_ast.EArray:
		if items := w.Exprs(e.Items); !sameExprs(items, e.Items) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items, IsSingleLine: e.IsSingleLine}}
		}

	case *js_ast.EUnary:
		if value := w.Expr(e.Value); changed(value, e.Value) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: e.Op, Value: value}}
		}

	case *js_ast.EBinary:
		left := w.Expr(e.Left)
		right := w.Expr(e.Right)
		if changed(left, e.Left) || changed(right, e.Right) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: e.Op, Left: left, Right: right}}
		}

	case *js_ast.ENew:
		target := w.Expr(e.Target)
		args := w.Exprs(e.Args)
		if changed(target, e.Target) || !sameExprs(args, e.Args) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: target, Args: args}}
		}

	case *js_ast.ECall:
		target := w.Expr(e.Target)
		args := w.Exprs(e.Args)
		if changed(target, e.Target) || !sameExprs(args, e.Args) {
			clone := *e
			clone.Target = target
			clone.Args = args
			return js_ast.Expr{Loc: loc, Data: &clone}
		}

	case *js_ast.EDot:
		if target := w.Expr(e.Target); changed(target, e.Target) {
			clone := *e
			clone.Target = target
			return js_ast.Expr{Loc: loc, Data: &clone}
		}

	case *js_ast.EIndex:
		target := w.Expr(e.Target)
		index := w.Expr(e.Index)
		if changed(target, e.Target) || changed(index, e.Index) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EIndex{Target: target, Index: index, OptionalChain: e.OptionalChain}}
		}

	case *js_ast.EArrow:
		args, body, hasDecls, ok := w.fn(e.Args, e.Body, true)
		if ok {
			clone := *e
			clone.Args = args
			clone.Body = body
			if hasDecls {
				clone.PreferExpr = false
			}
			return js_ast.Expr{Loc: loc, Data: &clone}
		}

	case *js_ast.EFunction:
		if fn, ok := w.Fn(e.Fn); ok {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}
		}

	case *js_ast.EClass:
		if class, ok := w.class(e.Class); ok {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: class}}
		}

	case *js_ast.EObject:
		if properties, ok := w.properties(e.Properties); ok {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: e.IsSingleLine}}
		}

	case *js_ast.ESpread:
		if value := w.Expr(e.Value); changed(value, e.Value) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.ESpread{Value: value}}
		}

	case *js_ast.ETemplate:
		tag := w.OptionalExpr(e.Tag)
		var parts []js_ast.TemplatePart
		for i, part := range e.Parts {
			value := w.Expr(part.Value)
			if parts == nil && changed(value, part.Value) {
				parts = append([]js_ast.TemplatePart(nil), e.Parts...)
			}
			if parts != nil {
				parts[i].Value = value
			}
		}
		if tag != e.Tag || parts != nil {
			clone := *e
			clone.Tag = tag
			if parts != nil {
				clone.Parts = parts
			}
			return js_ast.Expr{Loc: loc, Data: &clone}
		}

	case *js_ast.EAwait:
		if value := w.Expr(e.Value); changed(value, e.Value) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EAwait{Value: value}}
		}

	case *js_ast.EYield:
		if value := w.OptionalExpr(e.Value); value != e.Value {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EYield{Value: value, IsStar: e.IsStar}}
		}

	case *js_ast.EIf:
		test := w.Expr(e.Test)
		yes := w.Expr(e.Yes)
		no := w.Expr(e.No)
		if changed(test, e.Test) || changed(yes, e.Yes) || changed(no, e.No) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EIf{Test: test, Yes: yes, No: no}}
		}

	case *js_ast.EImport:
		if value := w.Expr(e.Expr); changed(value, e.Expr) {
			return js_ast.Expr{Loc: loc, Data: &js_ast.EImport{Expr: value, ImportRecordIndex: e.ImportRecordIndex}}
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected expression %T", expr.Data))
	}

	return expr
}

func (w *Walker) Binding(binding js_ast.Binding) js_ast.Binding {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing, *js_ast.BIdentifier:

	case *js_ast.BArray:
		var items []js_ast.ArrayBinding
		for i, item := range b.Items {
			value := w.Binding(item.Binding)
			defaultValue := w.OptionalExpr(item.DefaultValue)
			if items == nil && (value.Data != item.Binding.Data || defaultValue != item.DefaultValue) {
				items = append([]js_ast.ArrayBinding(nil), b.Items...)
			}
			if items != nil {
				items[i] = js_ast.ArrayBinding{Binding: value, DefaultValue: defaultValue}
			}
		}
		if items != nil {
			return js_ast.Binding{Loc: binding.Loc, Data: &js_ast.BArray{Items: items, HasSpread: b.HasSpread}}
		}

	case *js_ast.BObject:
		var properties []js_ast.PropertyBinding
		for i, property := range b.Properties {
			key := property.Key
			if property.IsComputed {
				key = w.Expr(key)
			}
			value := w.Binding(property.Value)
			defaultValue := w.OptionalExpr(property.DefaultValue)
			if properties == nil && (changed(key, property.Key) || value.Data != property.Value.Data || defaultValue != property.DefaultValue) {
				properties = append([]js_ast.PropertyBinding(nil), b.Properties...)
			}
			if properties != nil {
				clone := property
				clone.Key = key
				clone.Value = value
				clone.DefaultValue = defaultValue
				properties[i] = clone
			}
		}
		if properties != nil {
			return js_ast.Binding{Loc: binding.Loc, Data: &js_ast.BObject{Properties: properties}}
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected binding %T", binding.Data))
	}

	return binding
}

// Visits a function. The result is only a new value if something changed.
func (w *Walker) Fn(fn js_ast.Fn) (js_ast.Fn, bool) {
	args, body, _, ok := w.fn(fn.Args, fn.Body, false)
	if ok {
		fn.Args = args
		fn.Body = body
	}
	return fn, ok
}

func (w *Walker) fn(args []js_ast.Arg, body js_ast.FnBody, isArrow bool) ([]js_ast.Arg, js_ast.FnBody, bool, bool) {
	frame := &fnFrame{isArrow: isArrow}
	w.frames = append(w.frames, frame)

	var newArgs []js_ast.Arg
	for i, arg := range args {
		binding := w.Binding(arg.Binding)
		defaultValue := w.OptionalExpr(arg.Default)
		if newArgs == nil && (binding.Data != arg.Binding.Data || defaultValue != arg.Default) {
			newArgs = append([]js_ast.Arg(nil), args...)
		}
		if newArgs != nil {
			newArgs[i] = js_ast.Arg{Binding: binding, Default: defaultValue}
		}
	}
	stmts := w.Stmts(body.Stmts)

	w.frames = w.frames[:len(w.frames)-1]
	hasDecls := len(frame.decls) > 0
	if hasDecls {
		stmts = prependDecls(stmts, frame.decls)
	}

	isChanged := newArgs != nil || !sameStmts(stmts, body.Stmts)
	if newArgs == nil {
		newArgs = args
	}
	return newArgs, js_ast.FnBody{Loc: body.Loc, Stmts: stmts}, hasDecls, isChanged
}

func (w *Walker) class(class js_ast.Class) (js_ast.Class, bool) {
	extends := w.OptionalExpr(class.Extends)
	properties, ok := w.properties(class.Properties)
	if extends == class.Extends && !ok {
		return class, false
	}
	class.Extends = extends
	if ok {
		class.Properties = properties
	}
	return class, true
}

func (w *Walker) properties(properties []js_ast.Property) ([]js_ast.Property, bool) {
	var result []js_ast.Property
	for i, property := range properties {
		key := property.Key
		if property.IsComputed || property.Kind == js_ast.PropertySpread {
			key = w.Expr(key)
		}
		value := w.OptionalExpr(property.Value)
		initializer := w.OptionalExpr(property.Initializer)
		if result == nil && (changed(key, property.Key) || value != property.Value || initializer != property.Initializer) {
			result = append([]js_ast.Property(nil), properties...)
		}
		if result != nil {
			clone := property
			clone.Key = key
			clone.Value = value
			clone.Initializer = initializer
			result[i] = clone
		}
	}
	return result, result != nil
}

func (w *Walker) Stmts(stmts []js_ast.Stmt) []js_ast.Stmt {
	var result []js_ast.Stmt
	for i, stmt := range stmts {
		value := w.Stmt(stmt)
		if result == nil && value.Data != stmt.Data {
			result = append([]js_ast.Stmt(nil), stmts...)
		}
		if result != nil {
			result[i] = value
		}
	}
	if result == nil {
		result = stmts
	}
	if w.hooks.Stmts != nil {
		result = w.hooks.Stmts(w, result)
	}
	return result
}

func (w *Walker) Stmt(stmt js_ast.Stmt) js_ast.Stmt {
	if w.hooks.EnterStmt != nil {
		if result, ok := w.hooks.EnterStmt(w, stmt); ok {
			return result
		}
	}
	stmt = w.StmtChildren(stmt)
	if w.hooks.Stmt != nil {
		stmt = w.hooks.Stmt(w, stmt)
	}
	return stmt
}

func (w *Walker) optionalStmt(stmt *js_ast.Stmt) *js_ast.Stmt {
	if stmt == nil {
		return nil
	}
	if result := w.Stmt(*stmt); result.Data != stmt.Data {
		return &result
	}
	return stmt
}

func (w *Walker) Decls(decls []js_ast.Decl) []js_ast.Decl {
	var result []js_ast.Decl
	for i, decl := range decls {
		binding := w.Binding(decl.Binding)
		value := w.OptionalExpr(decl.Value)
		if result == nil && (binding.Data != decl.Binding.Data || value != decl.Value) {
			result = append([]js_ast.Decl(nil), decls...)
		}
		if result != nil {
			result[i] = js_ast.Decl{Binding: binding, Value: value}
		}
	}
	if result == nil {
		return decls
	}
	return result
}

// Visits the children of a statement without running any hook on the
// statement itself
func (w *Walker) StmtChildren(stmt js_ast.Stmt) js_ast.Stmt {
	loc := stmt.Loc

	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty, *js_ast.SDebugger, *js_ast.SDirective, *js_ast.SError,
		*js_ast.SBreak, *js_ast.SContinue, *js_ast.SExportClause, *js_ast.SExportFrom,
		*js_ast.SExportStar, *js_ast.SImport:

	case *js_ast.SBlock:
		if stmts := w.Stmts(s.Stmts); !sameStmts(stmts, s.Stmts) {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SBlock{Stmts: stmts}}
		}

	case *js_ast.SExpr:
		if value := w.Expr(s.Value); changed(value, s.Value) {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: value}}
		}

	case *js_ast.SLocal:
		if decls := w.Decls(s.Decls); len(decls) > 0 && &decls[0] != &s.Decls[0] {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Decls: decls, Kind: s.Kind, IsExport: s.IsExport}}
		}

	case *js_ast.SFunction:
		if fn, ok := w.Fn(s.Fn); ok {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn, IsExport: s.IsExport}}
		}

	case *js_ast.SClass:
		if class, ok := w.class(s.Class); ok {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SClass{Class: class, IsExport: s.IsExport}}
		}

	case *js_ast.SIf:
		test := w.Expr(s.Test)
		yes := w.Stmt(s.Yes)
		no := w.optionalStmt(s.No)
		if changed(test, s.Test) || yes.Data != s.Yes.Data || no != s.No {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SIf{Test: test, Yes: yes, No: no}}
		}

	case *js_ast.SFor:
		init := w.optionalStmt(s.Init)
		test := w.OptionalExpr(s.Test)
		update := w.OptionalExpr(s.Update)
		body := w.Stmt(s.Body)
		if init != s.Init || test != s.Test || update != s.Update || body.Data != s.Body.Data {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SFor{Init: init, Test: test, Update: update, Body: body}}
		}

	case *js_ast.SForIn:
		init := w.Stmt(s.Init)
		value := w.Expr(s.Value)
		body := w.Stmt(s.Body)
		if init.Data != s.Init.Data || changed(value, s.Value) || body.Data != s.Body.Data {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SForIn{Init: init, Value: value, Body: body}}
		}

	case *js_ast.SForOf:
		init := w.Stmt(s.Init)
		value := w.Expr(s.Value)
		body := w.Stmt(s.Body)
		if init.Data != s.Init.Data || changed(value, s.Value) || body.Data != s.Body.Data {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SForOf{IsAwait: s.IsAwait, Init: init, Value: value, Body: body}}
		}

	case *js_ast.SDoWhile:
		body := w.Stmt(s.Body)
		test := w.Expr(s.Test)
		if body.Data != s.Body.Data || changed(test, s.Test) {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SDoWhile{Body: body, Test: test}}
		}

	case *js_ast.SWhile:
		test := w.Expr(s.Test)
		body := w.Stmt(s.Body)
		if changed(test, s.Test) || body.Data != s.Body.Data {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: test, Body: body}}
		}

	case *js_ast.SWith:
		value := w.Expr(s.Value)
		body := w.Stmt(s.Body)
		if changed(value, s.Value) || body.Data != s.Body.Data {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SWith{Value: value, BodyLoc: s.BodyLoc, Body: body}}
		}

	case *js_ast.STry:
		body := w.Stmts(s.Body)
		catch := s.Catch
		if catch != nil {
			var binding *js_ast.Binding
			if catch.Binding != nil {
				if value := w.Binding(*catch.Binding); value.Data != catch.Binding.Data {
					binding = &value
				} else {
					binding = catch.Binding
				}
			}
			if stmts := w.Stmts(catch.Body); binding != catch.Binding || !sameStmts(stmts, catch.Body) {
				catch = &js_ast.Catch{Loc: catch.Loc, Binding: binding, Body: stmts}
			}
		}
		finally := s.Finally
		if finally != nil {
			if stmts := w.Stmts(finally.Stmts); !sameStmts(stmts, finally.Stmts) {
				finally = &js_ast.Finally{Loc: finally.Loc, Stmts: stmts}
			}
		}
		if !sameStmts(body, s.Body) || catch != s.Catch || finally != s.Finally {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.STry{Body: body, Catch: catch, Finally: finally}}
		}

	case *js_ast.SSwitch:
		test := w.Expr(s.Test)
		var cases []js_ast.Case
		for i, c := range s.Cases {
			value := w.OptionalExpr(c.Value)
			body := w.Stmts(c.Body)
			if cases == nil && (value != c.Value || !sameStmts(body, c.Body)) {
				cases = append([]js_ast.Case(nil), s.Cases...)
			}
			if cases != nil {
				cases[i] = js_ast.Case{Value: value, Body: body}
			}
		}
		if changed(test, s.Test) || cases != nil {
			if cases == nil {
				cases = s.Cases
			}
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SSwitch{Test: test, BodyLoc: s.BodyLoc, Cases: cases}}
		}

	case *js_ast.SReturn:
		if value := w.OptionalExpr(s.Value); value != s.Value {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SReturn{Value: value}}
		}

	case *js_ast.SThrow:
		if value := w.Expr(s.Value); changed(value, s.Value) {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: value}}
		}

	case *js_ast.SLabel:
		if body := w.Stmt(s.Stmt); body.Data != s.Stmt.Data {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SLabel{Name: s.Name, Stmt: body}}
		}

	case *js_ast.SExportDefault:
		if s.Value.Stmt != nil {
			if value := w.Stmt(*s.Value.Stmt); value.Data != s.Value.Stmt.Data {
				return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{DefaultName: s.DefaultName, Value: js_ast.ExprOrStmt{Stmt: &value}}}
			}
		} else if value := w.Expr(*s.Value.Expr); changed(value, *s.Value.Expr) {
			return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportDefault{DefaultName: s.DefaultName, Value: js_ast.ExprOrStmt{Expr: &value}}}
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected statement %T", stmt.Data))
	}

	return stmt
}

// An "EnterExpr" hook that visits the inside of an assignment target without
// running any hook on the target itself. Passes that replace identifiers or
// property chains use this to leave assigned names alone.
func SkipAssignTargets(w *Walker, expr js_ast.Expr) (js_ast.Expr, bool) {
	switch e := expr.Data.(type) {
	case *js_ast.EBinary:
		if e.Op.BinaryAssignTarget() == js_ast.AssignTargetNone {
			return expr, false
		}
		left := w.ExprChildren(e.Left)
		right := w.Expr(e.Right)
		if changed(left, e.Left) || changed(right, e.Right) {
			expr = js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{Op: e.Op, Left: left, Right: right}}
		}

	case *js_ast.EUnary:
		if e.Op.UnaryAssignTarget() == js_ast.AssignTargetNone {
			return expr, false
		}
		if value := w.ExprChildren(e.Value); changed(value, e.Value) {
			expr = js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EUnary{Op: e.Op, Value: value}}
		}

	default:
		return expr, false
	}

	// The "Expr" hook still sees the assignment itself
	if w.hooks.Expr != nil {
		expr = w.hooks.Expr(w, expr)
	}
	return expr, true
}
