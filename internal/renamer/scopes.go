package renamer

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/js_ast"
)

// Scope is the part of the binder's scope tree that renaming needs: which
// symbols each scope declares and how the scopes nest. Trees only store refs,
// so the renamer rebuilds it from the final tree after all passes have run.
type Scope struct {
	Parent   *Scope
	Children []*Scope

	// Declared symbols in declaration order
	Members []js_ast.Ref

	// "var" declarations are hoisted to the closest scope with this set
	stopsHoisting bool
}

type scopeCollector struct {
	symbols js_ast.SymbolMap
	current *Scope
	seen    map[js_ast.Ref]bool
}

// CollectScopes walks a bound tree and returns its module scope. Top-level
// symbols are always members of the module scope, including generated ones
// that never appear in the tree.
func CollectScopes(tree *js_ast.AST, symbols js_ast.SymbolMap) *Scope {
	root := &Scope{stopsHoisting: true}
	c := &scopeCollector{
		symbols: symbols,
		current: root,
		seen:    make(map[js_ast.Ref]bool),
	}
	for _, ref := range tree.TopLevelSymbols {
		c.seen[ref] = true
		root.Members = append(root.Members, ref)
	}
	c.visitStmts(tree.Stmts)
	return root
}

func (c *scopeCollector) pushScope(stopsHoisting bool) {
	s := &Scope{Parent: c.current, stopsHoisting: stopsHoisting}
	c.current.Children = append(c.current.Children, s)
	c.current = s
}

func (c *scopeCollector) popScope() {
	c.current = c.current.Parent
}

func (c *scopeCollector) declare(ref js_ast.Ref) {
	if !ref.IsValid() || ref.IsPlaceholder() || c.seen[ref] {
		return
	}
	c.seen[ref] = true

	target := c.current
	if c.symbols.Get(ref).Kind == js_ast.SymbolHoisted {
		for !target.stopsHoisting {
			target = target.Parent
		}
	}
	target.Members = append(target.Members, ref)
}

func (c *scopeCollector) declareName(name *js_ast.LocRef) {
	if name != nil {
		c.declare(name.Ref)
	}
}

func (c *scopeCollector) visitStmts(stmts []js_ast.Stmt) {
	for _, stmt := range stmts {
		c.visitStmt(stmt)
	}
}

func (c *scopeCollector) visitBinding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing:

	case *js_ast.BIdentifier:
		c.declare(b.Ref)

	case *js_ast.BArray:
		for _, item := range b.Items {
			c.visitBinding(item.Binding)
			if item.DefaultValue != nil {
				c.visitExpr(*item.DefaultValue)
			}
		}

	case *js_ast.BObject:
		for _, property := range b.Properties {
			if property.IsComputed {
				c.visitExpr(property.Key)
			}
			c.visitBinding(property.Value)
			if property.DefaultValue != nil {
				c.visitExpr(*property.DefaultValue)
			}
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected binding %T", binding.Data))
	}
}

func (c *scopeCollector) visitFn(args []js_ast.Arg, body js_ast.FnBody, argumentsRef js_ast.Ref) {
	c.pushScope(true)
	c.declare(argumentsRef)
	for _, arg := range args {
		c.visitBinding(arg.Binding)
		if arg.Default != nil {
			c.visitExpr(*arg.Default)
		}
	}
	c.visitStmts(body.Stmts)
	c.popScope()
}

func (c *scopeCollector) visitClass(class *js_ast.Class) {
	if class.Extends != nil {
		c.visitExpr(*class.Extends)
	}
	c.visitProperties(class.Properties)
}

func (c *scopeCollector) visitProperties(properties []js_ast.Property) {
	for _, property := range properties {
		if property.IsComputed || property.Kind == js_ast.PropertySpread {
			c.visitExpr(property.Key)
		}
		if property.Value != nil {
			c.visitExpr(*property.Value)
		}
		if property.Initializer != nil {
			c.visitExpr(*property.Initializer)
		}
	}
}

func (c *scopeCollector) visitStmt(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty, *js_ast.SDebugger, *js_ast.SDirective, *js_ast.SError,
		*js_ast.SBreak, *js_ast.SContinue, *js_ast.SExportClause, *js_ast.SExportFrom,
		*js_ast.SExportStar:

	case *js_ast.SBlock:
		c.pushScope(false)
		c.visitStmts(s.Stmts)
		c.popScope()

	case *js_ast.SExpr:
		c.visitExpr(s.Value)

	case *js_ast.SLocal:
		for _, decl := range s.Decls {
			c.visitBinding(decl.Binding)
			if decl.Value != nil {
				c.visitExpr(*decl.Value)
			}
		}

	case *js_ast.SFunction:
		c.declareName(s.Fn.Name)
		c.visitFn(s.Fn.Args, s.Fn.Body, s.Fn.ArgumentsRef)

	case *js_ast.SClass:
		c.declareName(s.Class.Name)
		c.visitClass(&s.Class)

	case *js_ast.SIf:
		c.visitExpr(s.Test)
		c.visitStmt(s.Yes)
		if s.No != nil {
			c.visitStmt(*s.No)
		}

	case *js_ast.SFor:
		c.pushScope(false)
		if s.Init != nil {
			c.visitStmt(*s.Init)
		}
		if s.Test != nil {
			c.visitExpr(*s.Test)
		}
		if s.Update != nil {
			c.visitExpr(*s.Update)
		}
		c.visitStmt(s.Body)
		c.popScope()

	case *js_ast.SForIn:
		c.pushScope(false)
		c.visitStmt(s.Init)
		c.visitExpr(s.Value)
		c.visitStmt(s.Body)
		c.popScope()

	case *js_ast.SForOf:
		c.pushScope(false)
		c.visitStmt(s.Init)
		c.visitExpr(s.Value)
		c.visitStmt(s.Body)
		c.popScope()

	case *js_ast.SDoWhile:
		c.visitStmt(s.Body)
		c.visitExpr(s.Test)

	case *js_ast.SWhile:
		c.visitExpr(s.Test)
		c.visitStmt(s.Body)

	case *js_ast.SWith:
		c.visitExpr(s.Value)
		c.pushScope(false)
		c.visitStmt(s.Body)
		c.popScope()

	case *js_ast.STry:
		c.pushScope(false)
		c.visitStmts(s.Body)
		c.popScope()
		if s.Catch != nil {
			c.pushScope(false)
			if s.Catch.Binding != nil {
				c.visitBinding(*s.Catch.Binding)
			}
			c.visitStmts(s.Catch.Body)
			c.popScope()
		}
		if s.Finally != nil {
			c.pushScope(false)
			c.visitStmts(s.Finally.Stmts)
			c.popScope()
		}

	case *js_ast.SSwitch:
		c.visitExpr(s.Test)
		c.pushScope(false)
		for _, item := range s.Cases {
			if item.Value != nil {
				c.visitExpr(*item.Value)
			}
			c.visitStmts(item.Body)
		}
		c.popScope()

	case *js_ast.SReturn:
		if s.Value != nil {
			c.visitExpr(*s.Value)
		}

	case *js_ast.SThrow:
		c.visitExpr(s.Value)

	case *js_ast.SLabel:
		c.visitStmt(s.Stmt)

	case *js_ast.SImport:
		if s.StarNameLoc != nil {
			c.declare(s.NamespaceRef)
		}
		c.declareName(s.DefaultName)
		if s.Items != nil {
			for _, item := range *s.Items {
				c.declare(item.Name.Ref)
			}
		}

	case *js_ast.SExportDefault:
		if s.Value.Stmt != nil {
			c.visitStmt(*s.Value.Stmt)
		} else {
			c.visitExpr(*s.Value.Expr)
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected statement %T", stmt.Data))
	}
}

func (c *scopeCollector) visitExprs(exprs []js_ast.Expr) {
	for _, expr := range exprs {
		c.visitExpr(expr)
	}
}

func (c *scopeCollector) visitExpr(expr js_ast.Expr) {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing, *js_ast.EBoolean, *js_ast.ESuper, *js_ast.ENull, *js_ast.EUndefined,
		*js_ast.EThis, *js_ast.ENewTarget, *js_ast.EImportMeta, *js_ast.ENumber, *js_ast.EBigInt,
		*js_ast.EString, *js_ast.ERegExp, *js_ast.ERequire, *js_ast.EIdentifier,
		*js_ast.EImportIdentifier, *js_ast.EError:

	case *js_ast.EArray:
		c.visitExprs(e.Items)

	case *js_ast.EUnary:
		c.visitExpr(e.Value)

	case *js_ast.EBinary:
		c.visitExpr(e.Left)
		c.visitExpr(e.Right)

	case *js_ast.ENew:
		c.visitExpr(e.Target)
		c.visitExprs(e.Args)

	case *js_ast.ECall:
		c.visitExpr(e.Target)
		c.visitExprs(e.Args)

	case *js_ast.EDot:
		c.visitExpr(e.Target)

	case *js_ast.EIndex:
		c.visitExpr(e.Target)
		c.visitExpr(e.Index)

	case *js_ast.EArrow:
		c.visitFn(e.Args, e.Body, js_ast.InvalidRef)

	case *js_ast.EFunction:
		if e.Fn.Name != nil {
			c.pushScope(false)
			c.declare(e.Fn.Name.Ref)
			c.visitFn(e.Fn.Args, e.Fn.Body, e.Fn.ArgumentsRef)
			c.popScope()
		} else {
			c.visitFn(e.Fn.Args, e.Fn.Body, e.Fn.ArgumentsRef)
		}

	case *js_ast.EClass:
		if e.Class.Name != nil {
			c.pushScope(false)
			c.declare(e.Class.Name.Ref)
			c.visitClass(&e.Class)
			c.popScope()
		} else {
			c.visitClass(&e.Class)
		}

	case *js_ast.EObject:
		c.visitProperties(e.Properties)

	case *js_ast.ESpread:
		c.visitExpr(e.Value)

	case *js_ast.ETemplate:
		if e.Tag != nil {
			c.visitExpr(*e.Tag)
		}
		for _, part := range e.Parts {
			c.visitExpr(part.Value)
		}

	case *js_ast.EAwait:
		c.visitExpr(e.Value)

	case *js_ast.EYield:
		if e.Value != nil {
			c.visitExpr(*e.Value)
		}

	case *js_ast.EIf:
		c.visitExpr(e.Test)
		c.visitExpr(e.Yes)
		c.visitExpr(e.No)

	case *js_ast.EImport:
		c.visitExpr(e.Expr)

	default:
		panic(fmt.Sprintf("Internal error: unexpected expression %T", expr.Data))
	}
}
