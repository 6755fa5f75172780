package js_parser

// The binder turns the placeholder refs produced by the parser (or by the
// serialized AST decoder) into symbols. It makes two passes over the tree
// using the same walker. The first pass creates every scope and declares every
// binding, hoisting "var" and function declarations. The second pass visits
// the scopes again in the same order and resolves identifier uses, which is
// how a use can see a declaration that appears later in the source.

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
	"github.com/jspipe/jspipe/internal/logger"
)

type scopeKind uint8

const (
	scopeBlock scopeKind = iota
	scopeWith
	scopeLabel
	scopeCatchBinding
	scopeClassName
	scopeFunctionName

	// "var" declarations stop at these
	scopeFunction
	scopeEntry
)

func (kind scopeKind) stopsHoisting() bool {
	return kind >= scopeFunction
}

type scope struct {
	kind    scopeKind
	parent  *scope
	members map[string]js_ast.Ref

	// Only for functions that aren't arrows. User declarations named
	// "arguments" shadow it.
	argumentsRef js_ast.Ref

	label    string
	labelRef js_ast.Ref
}

type binder struct {
	log     logger.Log
	source  logger.Source
	options config.Options
	tree    *js_ast.AST
	symbols []js_ast.Symbol

	isResolvePass bool
	scopesInOrder []*scope
	nextScope     int
	currentScope  *scope
	moduleScope   *scope

	fnDepth   int
	withDepth int
	hasErrors bool

	namedImports            map[js_ast.Ref]js_ast.NamedImport
	namedExports            map[string]js_ast.NamedExport
	exportStarImportRecords []uint32
	topLevelSymbols         []js_ast.Ref
}

func (b *binder) addError(loc logger.Loc, text string) {
	b.hasErrors = true
	b.log.AddRangeError(&b.source, b.rangeOfIdentifier(loc), text)
}

// Decoded trees carry locations that may not exist in the source text
func (b *binder) rangeOfIdentifier(loc logger.Loc) logger.Range {
	if loc.Start < 0 || int(loc.Start) >= len(b.source.Contents) {
		return logger.Range{Loc: logger.Loc{Start: 0}}
	}
	return js_lexer.RangeOfIdentifier(b.source, loc)
}

func (b *binder) rangeOfString(loc logger.Loc) logger.Range {
	if loc.Start < 0 || int(loc.Start) >= len(b.source.Contents) {
		return logger.Range{Loc: logger.Loc{Start: 0}}
	}
	return b.source.RangeOfString(loc)
}

func (b *binder) nameOf(ref js_ast.Ref) string {
	return b.tree.Names[ref.InnerIndex]
}

func (b *binder) newSymbol(kind js_ast.SymbolKind, name string) js_ast.Ref {
	ref := js_ast.Ref{SourceIndex: b.source.Index, InnerIndex: uint32(len(b.symbols))}
	b.symbols = append(b.symbols, js_ast.Symbol{
		Kind:         kind,
		OriginalName: name,
		Link:         js_ast.InvalidRef,
	})
	return ref
}

// Generated module-level symbols are not reachable by name but still need a
// name in the output
func (b *binder) newTopLevelSymbol(kind js_ast.SymbolKind, name string) js_ast.Ref {
	ref := b.newSymbol(kind, name)
	b.topLevelSymbols = append(b.topLevelSymbols, ref)
	return ref
}

func (b *binder) symbol(ref js_ast.Ref) *js_ast.Symbol {
	return &b.symbols[ref.InnerIndex]
}

func (b *binder) pushScope(kind scopeKind) *scope {
	if b.isResolvePass {
		s := b.scopesInOrder[b.nextScope]
		b.nextScope++
		if s.kind != kind || s.parent != b.currentScope {
			panic("Internal error: scope mismatch between binder passes")
		}
		b.currentScope = s
		return s
	}

	s := &scope{
		kind:         kind,
		parent:       b.currentScope,
		members:      make(map[string]js_ast.Ref),
		argumentsRef: js_ast.InvalidRef,
		labelRef:     js_ast.InvalidRef,
	}
	b.scopesInOrder = append(b.scopesInOrder, s)
	b.currentScope = s
	return s
}

func (b *binder) popScope() {
	b.currentScope = b.currentScope.parent
}

func canMergeWith(existing js_ast.SymbolKind, new js_ast.SymbolKind) bool {
	if !new.IsHoistedOrFunction() {
		return false
	}
	return existing.IsHoistedOrFunction()
}

func (b *binder) declareSymbol(kind js_ast.SymbolKind, loc logger.Loc, name string) js_ast.Ref {
	target := b.currentScope

	// Hoist "var" declarations to the closest function or module scope
	if kind == js_ast.SymbolHoisted {
		for s := b.currentScope; ; s = s.parent {
			if existing, ok := s.members[name]; ok {
				existingKind := b.symbol(existing).Kind

				// "try {} catch (e) { var e }" reuses the catch binding
				if existingKind == js_ast.SymbolCatchIdentifier {
					return existing
				}
				if !existingKind.IsHoistedOrFunction() || (!s.kind.stopsHoisting() && existingKind != js_ast.SymbolHoisted) {
					b.addError(loc, fmt.Sprintf("%q has already been declared", name))
					return existing
				}
				if s.kind.stopsHoisting() {
					return existing
				}
			}
			if s.kind.stopsHoisting() {
				target = s
				break
			}
		}
	} else if existing, ok := target.members[name]; ok {
		existingKind := b.symbol(existing).Kind
		if !canMergeWith(existingKind, kind) {
			b.addError(loc, fmt.Sprintf("%q has already been declared", name))
		}
		return existing
	}

	ref := b.newSymbol(kind, name)
	target.members[name] = ref
	if target == b.moduleScope {
		b.topLevelSymbols = append(b.topLevelSymbols, ref)
	}

	// Variables declared in a "with" body can be shadowed by the object
	if b.withDepth > 0 {
		b.symbol(ref).MustNotBeRenamed = true
	}
	return ref
}

func (b *binder) findSymbol(name string) js_ast.Ref {
	for s := b.currentScope; s != nil; s = s.parent {
		if ref, ok := s.members[name]; ok {
			return ref
		}
		if name == "arguments" && s.argumentsRef != js_ast.InvalidRef {
			return s.argumentsRef
		}
	}

	// Unbound names all live in the module scope
	ref := b.newSymbol(js_ast.SymbolUnbound, name)
	b.moduleScope.members[name] = ref
	return ref
}

func (b *binder) isUnbound(ref js_ast.Ref) bool {
	return b.symbol(ref).Kind == js_ast.SymbolUnbound
}

func (b *binder) recordUse(ref js_ast.Ref) {
	symbol := b.symbol(ref)
	symbol.UseCountEstimate++
	if b.withDepth > 0 {
		symbol.MustNotBeRenamed = true
	}
}

func (b *binder) findLabelSymbol(loc logger.Loc, name string) js_ast.Ref {
	for s := b.currentScope; s != nil && !s.kind.stopsHoisting(); s = s.parent {
		if s.kind == scopeLabel && s.label == name {
			b.symbol(s.labelRef).UseCountEstimate++
			return s.labelRef
		}
	}

	b.addError(loc, fmt.Sprintf("There is no containing label named %q", name))

	// Allocate an "unbound" label so the tree stays well-formed
	return b.newSymbol(js_ast.SymbolLabel, name)
}

func (b *binder) recordExport(loc logger.Loc, alias string, ref js_ast.Ref) {
	if _, ok := b.namedExports[alias]; ok {
		b.addError(loc, fmt.Sprintf("Multiple exports with the same name %q", alias))
		return
	}
	b.namedExports[alias] = js_ast.NamedExport{Ref: ref, AliasLoc: loc}
}

func (b *binder) recordExportedBinding(binding js_ast.Binding) {
	switch d := binding.Data.(type) {
	case *js_ast.BMissing:

	case *js_ast.BIdentifier:
		b.recordExport(binding.Loc, b.symbol(d.Ref).OriginalName, d.Ref)

	case *js_ast.BArray:
		for _, item := range d.Items {
			b.recordExportedBinding(item.Binding)
		}

	case *js_ast.BObject:
		for _, item := range d.Properties {
			b.recordExportedBinding(item.Value)
		}

	default:
		panic("Internal error")
	}
}

// The namespace symbol for an import statement that has no "* as ns" clause
func (b *binder) generateNamespaceRef(importRecordIndex uint32) js_ast.Ref {
	path := b.tree.ImportRecords[importRecordIndex].Path
	return b.newTopLevelSymbol(js_ast.SymbolOther, "import_"+ast.GenerateNonUniqueNameFromPath(path))
}

func (b *binder) addImportRecord(kind ast.ImportKind, loc logger.Loc, path string) uint32 {
	index := uint32(len(b.tree.ImportRecords))
	b.tree.ImportRecords = append(b.tree.ImportRecords, ast.ImportRecord{
		Kind:  kind,
		Range: b.rangeOfString(loc),
		Path:  path,
	})
	return index
}

func (b *binder) visitStmts(stmts []js_ast.Stmt) {
	for i := range stmts {
		b.visitStmt(&stmts[i])
	}
}

func (b *binder) visitBinding(binding *js_ast.Binding, kind js_ast.SymbolKind) {
	switch d := binding.Data.(type) {
	case *js_ast.BMissing:

	case *js_ast.BIdentifier:
		if !b.isResolvePass && d.Ref.IsPlaceholder() {
			d.Ref = b.declareSymbol(kind, binding.Loc, b.nameOf(d.Ref))
		}

	case *js_ast.BArray:
		for i := range d.Items {
			item := &d.Items[i]
			b.visitBinding(&item.Binding, kind)
			if item.DefaultValue != nil {
				b.visitExpr(item.DefaultValue)
			}
		}

	case *js_ast.BObject:
		for i := range d.Properties {
			property := &d.Properties[i]
			if property.IsComputed {
				b.visitExpr(&property.Key)
			}
			b.visitBinding(&property.Value, kind)
			if property.DefaultValue != nil {
				b.visitExpr(property.DefaultValue)
			}
		}

	default:
		panic("Internal error")
	}
}

func (b *binder) visitFn(fn *js_ast.Fn, isArrow bool) {
	s := b.pushScope(scopeFunction)
	b.fnDepth++

	if !isArrow {
		if !b.isResolvePass {
			ref := b.newSymbol(js_ast.SymbolArguments, "arguments")
			b.symbol(ref).MustNotBeRenamed = true
			s.argumentsRef = ref
		}
		fn.ArgumentsRef = s.argumentsRef
	}

	for i := range fn.Args {
		arg := &fn.Args[i]
		b.visitBinding(&arg.Binding, js_ast.SymbolHoisted)
		if arg.Default != nil {
			b.visitExpr(arg.Default)
		}
	}
	b.visitStmts(fn.Body.Stmts)

	b.fnDepth--
	b.popScope()
}

func (b *binder) visitClass(class *js_ast.Class) {
	if class.Extends != nil {
		b.visitExpr(class.Extends)
	}
	for i := range class.Properties {
		b.visitProperty(&class.Properties[i])
	}
}

func (b *binder) visitProperty(property *js_ast.Property) {
	if property.IsComputed || property.Kind == js_ast.PropertySpread {
		b.visitExpr(&property.Key)
	}
	if property.Value != nil {
		b.visitExpr(property.Value)
	}
	if property.Initializer != nil {
		b.visitExpr(property.Initializer)
	}
}

func fnSymbolKind(fn *js_ast.Fn) js_ast.SymbolKind {
	if fn.IsAsync || fn.IsGenerator {
		return js_ast.SymbolGeneratorOrAsyncFunction
	}
	return js_ast.SymbolHoistedFunction
}

func (b *binder) declareName(name *js_ast.LocRef, kind js_ast.SymbolKind) {
	if name != nil && !b.isResolvePass && name.Ref.IsPlaceholder() {
		name.Ref = b.declareSymbol(kind, name.Loc, b.nameOf(name.Ref))
	}
}

func (b *binder) visitStmt(stmt *js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty, *js_ast.SDebugger, *js_ast.SDirective, *js_ast.SError:

	case *js_ast.SBlock:
		b.pushScope(scopeBlock)
		b.visitStmts(s.Stmts)
		b.popScope()

	case *js_ast.SExpr:
		b.visitExpr(&s.Value)

	case *js_ast.SLocal:
		kind := js_ast.SymbolHoisted
		switch s.Kind {
		case js_ast.LocalLet:
			kind = js_ast.SymbolOther
		case js_ast.LocalConst:
			kind = js_ast.SymbolConst
		}
		for i := range s.Decls {
			decl := &s.Decls[i]
			b.visitBinding(&decl.Binding, kind)
			if decl.Value != nil {
				b.visitExpr(decl.Value)
			}
		}
		if s.IsExport && !b.isResolvePass {
			b.tree.HasES6Exports = true
			for _, decl := range s.Decls {
				b.recordExportedBinding(decl.Binding)
			}
		}

	case *js_ast.SFunction:
		b.declareName(s.Fn.Name, fnSymbolKind(&s.Fn))
		b.visitFn(&s.Fn, false /* isArrow */)
		if s.IsExport && !b.isResolvePass {
			b.tree.HasES6Exports = true
			b.recordExport(s.Fn.Name.Loc, b.symbol(s.Fn.Name.Ref).OriginalName, s.Fn.Name.Ref)
		}

	case *js_ast.SClass:
		b.declareName(s.Class.Name, js_ast.SymbolClass)
		b.visitClass(&s.Class)
		if s.IsExport && !b.isResolvePass {
			b.tree.HasES6Exports = true
			b.recordExport(s.Class.Name.Loc, b.symbol(s.Class.Name.Ref).OriginalName, s.Class.Name.Ref)
		}

	case *js_ast.SIf:
		b.visitExpr(&s.Test)
		b.visitStmt(&s.Yes)
		if s.No != nil {
			b.visitStmt(s.No)
		}

	case *js_ast.SFor:
		b.pushScope(scopeBlock)
		if s.Init != nil {
			b.visitStmt(s.Init)
		}
		if s.Test != nil {
			b.visitExpr(s.Test)
		}
		if s.Update != nil {
			b.visitExpr(s.Update)
		}
		b.visitStmt(&s.Body)
		b.popScope()

	case *js_ast.SForIn:
		b.pushScope(scopeBlock)
		b.visitStmt(&s.Init)
		b.visitExpr(&s.Value)
		b.visitStmt(&s.Body)
		b.popScope()

	case *js_ast.SForOf:
		b.pushScope(scopeBlock)
		b.visitStmt(&s.Init)
		b.visitExpr(&s.Value)
		b.visitStmt(&s.Body)
		b.popScope()

	case *js_ast.SDoWhile:
		b.visitStmt(&s.Body)
		b.visitExpr(&s.Test)

	case *js_ast.SWhile:
		b.visitExpr(&s.Test)
		b.visitStmt(&s.Body)

	case *js_ast.SWith:
		b.visitExpr(&s.Value)
		b.pushScope(scopeWith)
		b.withDepth++
		b.visitStmt(&s.Body)
		b.withDepth--
		b.popScope()

	case *js_ast.STry:
		b.pushScope(scopeBlock)
		b.visitStmts(s.Body)
		b.popScope()

		if s.Catch != nil {
			b.pushScope(scopeCatchBinding)
			if s.Catch.Binding != nil {
				kind := js_ast.SymbolOther
				if _, ok := s.Catch.Binding.Data.(*js_ast.BIdentifier); ok {
					kind = js_ast.SymbolCatchIdentifier
				}
				b.visitBinding(s.Catch.Binding, kind)
			}
			b.visitStmts(s.Catch.Body)
			b.popScope()
		}

		if s.Finally != nil {
			b.pushScope(scopeBlock)
			b.visitStmts(s.Finally.Stmts)
			b.popScope()
		}

	case *js_ast.SSwitch:
		b.visitExpr(&s.Test)
		b.pushScope(scopeBlock)
		for i := range s.Cases {
			c := &s.Cases[i]
			if c.Value != nil {
				b.visitExpr(c.Value)
			}
			b.visitStmts(c.Body)
		}
		b.popScope()

	case *js_ast.SReturn:
		if b.fnDepth == 0 && !b.isResolvePass {
			b.tree.HasTopLevelReturn = true
		}
		if s.Value != nil {
			b.visitExpr(s.Value)
		}

	case *js_ast.SThrow:
		b.visitExpr(&s.Value)

	case *js_ast.SLabel:
		labelScope := b.pushScope(scopeLabel)
		if !b.isResolvePass {
			name := b.nameOf(s.Name.Ref)
			for outer := labelScope.parent; outer != nil && !outer.kind.stopsHoisting(); outer = outer.parent {
				if outer.kind == scopeLabel && outer.label == name {
					b.addError(stmt.Loc, fmt.Sprintf("Duplicate label %q", name))
					break
				}
			}
			labelScope.label = name
			labelScope.labelRef = b.newSymbol(js_ast.SymbolLabel, name)
			s.Name.Ref = labelScope.labelRef
		}
		b.visitStmt(&s.Stmt)
		b.popScope()

	case *js_ast.SBreak:
		if s.Label != nil && !b.isResolvePass && s.Label.Ref.IsPlaceholder() {
			s.Label.Ref = b.findLabelSymbol(s.Label.Loc, b.nameOf(s.Label.Ref))
		}

	case *js_ast.SContinue:
		if s.Label != nil && !b.isResolvePass && s.Label.Ref.IsPlaceholder() {
			s.Label.Ref = b.findLabelSymbol(s.Label.Loc, b.nameOf(s.Label.Ref))
		}

	case *js_ast.SImport:
		if b.isResolvePass {
			break
		}
		b.tree.HasES6Imports = true

		if s.StarNameLoc != nil {
			s.NamespaceRef = b.declareSymbol(js_ast.SymbolImport, *s.StarNameLoc, b.nameOf(s.NamespaceRef))
			b.namedImports[s.NamespaceRef] = js_ast.NamedImport{
				Alias:             "*",
				AliasLoc:          *s.StarNameLoc,
				NamespaceRef:      js_ast.InvalidRef,
				ImportRecordIndex: s.ImportRecordIndex,
			}
		} else {
			s.NamespaceRef = b.generateNamespaceRef(s.ImportRecordIndex)
		}

		if s.DefaultName != nil {
			b.declareName(s.DefaultName, js_ast.SymbolImport)
			b.namedImports[s.DefaultName.Ref] = js_ast.NamedImport{
				Alias:             "default",
				AliasLoc:          s.DefaultName.Loc,
				NamespaceRef:      s.NamespaceRef,
				ImportRecordIndex: s.ImportRecordIndex,
			}
		}

		if s.Items != nil {
			for i := range *s.Items {
				item := &(*s.Items)[i]
				b.declareName(&item.Name, js_ast.SymbolImport)
				b.namedImports[item.Name.Ref] = js_ast.NamedImport{
					Alias:             item.Alias,
					AliasLoc:          item.AliasLoc,
					NamespaceRef:      s.NamespaceRef,
					ImportRecordIndex: s.ImportRecordIndex,
				}
			}
		}

	case *js_ast.SExportFrom:
		if b.isResolvePass {
			break
		}
		b.tree.HasES6Exports = true
		s.NamespaceRef = b.generateNamespaceRef(s.ImportRecordIndex)

		// The items are not visible as local names
		for i := range s.Items {
			item := &s.Items[i]
			if item.Name.Ref.IsPlaceholder() {
				item.Name.Ref = b.newTopLevelSymbol(js_ast.SymbolImport, item.OriginalName)
			}
			b.namedImports[item.Name.Ref] = js_ast.NamedImport{
				Alias:             item.OriginalName,
				AliasLoc:          item.Name.Loc,
				NamespaceRef:      s.NamespaceRef,
				ImportRecordIndex: s.ImportRecordIndex,
				IsExported:        true,
			}
			b.recordExport(item.AliasLoc, item.Alias, item.Name.Ref)
		}

	case *js_ast.SExportStar:
		if b.isResolvePass {
			break
		}
		b.tree.HasES6Exports = true

		if s.Alias != nil {
			// "export * as ns from 'path'"
			s.NamespaceRef = b.newTopLevelSymbol(js_ast.SymbolImport, s.Alias.Name)
			b.namedImports[s.NamespaceRef] = js_ast.NamedImport{
				Alias:             "*",
				AliasLoc:          s.Alias.Loc,
				NamespaceRef:      js_ast.InvalidRef,
				ImportRecordIndex: s.ImportRecordIndex,
				IsExported:        true,
			}
			b.recordExport(s.Alias.Loc, s.Alias.Name, s.NamespaceRef)
		} else {
			// "export * from 'path'"
			s.NamespaceRef = b.generateNamespaceRef(s.ImportRecordIndex)
			b.exportStarImportRecords = append(b.exportStarImportRecords, s.ImportRecordIndex)
		}

	case *js_ast.SExportClause:
		if !b.isResolvePass {
			b.tree.HasES6Exports = true
			break
		}

		// Exported names may be declared after the export clause
		for i := range s.Items {
			item := &s.Items[i]
			if !item.Name.Ref.IsPlaceholder() {
				continue
			}
			name := b.nameOf(item.Name.Ref)
			ref := b.findSymbol(name)
			if b.isUnbound(ref) {
				b.addError(item.Name.Loc, fmt.Sprintf("%q is not declared in this file", name))
			}
			b.recordUse(ref)
			item.Name.Ref = ref
			b.recordExport(item.AliasLoc, item.Alias, ref)
		}

	case *js_ast.SExportDefault:
		if !b.isResolvePass {
			b.tree.HasES6Exports = true
		}

		if s.Value.Stmt != nil {
			switch s2 := s.Value.Stmt.Data.(type) {
			case *js_ast.SFunction:
				b.declareName(s2.Fn.Name, fnSymbolKind(&s2.Fn))
				b.visitFn(&s2.Fn, false /* isArrow */)
				if !b.isResolvePass && s2.Fn.Name != nil {
					s.DefaultName.Ref = s2.Fn.Name.Ref
				}

			case *js_ast.SClass:
				b.declareName(s2.Class.Name, js_ast.SymbolClass)
				b.visitClass(&s2.Class)
				if !b.isResolvePass && s2.Class.Name != nil {
					s.DefaultName.Ref = s2.Class.Name.Ref
				}

			default:
				panic("Internal error")
			}
		} else {
			b.visitExpr(s.Value.Expr)
		}

		if !b.isResolvePass {
			if !s.DefaultName.Ref.IsValid() || s.DefaultName.Ref.IsPlaceholder() {
				s.DefaultName.Ref = b.newTopLevelSymbol(js_ast.SymbolOther, b.defaultExportName())
			}
			b.recordExport(s.DefaultName.Loc, "default", s.DefaultName.Ref)
		}

	default:
		panic(fmt.Sprintf("Internal error: unexpected statement %T", stmt.Data))
	}
}

func (b *binder) defaultExportName() string {
	name := b.source.IdentifierName
	if name == "" {
		name = ast.GenerateNonUniqueNameFromPath(b.source.PrettyPath)
	}
	return name + "_default"
}

func (b *binder) visitExprs(exprs []js_ast.Expr) {
	for i := range exprs {
		b.visitExpr(&exprs[i])
	}
}

// Returns the name of an identifier that hasn't been bound yet
func (b *binder) placeholderName(expr js_ast.Expr) (string, bool) {
	if id, ok := expr.Data.(*js_ast.EIdentifier); ok && id.Ref.IsPlaceholder() {
		return b.nameOf(id.Ref), true
	}
	return "", false
}

func (b *binder) visitExpr(expr *js_ast.Expr) {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing, *js_ast.EBoolean, *js_ast.ESuper, *js_ast.ENull, *js_ast.EUndefined,
		*js_ast.EThis, *js_ast.ENewTarget, *js_ast.EImportMeta, *js_ast.ENumber, *js_ast.EBigInt,
		*js_ast.EString, *js_ast.ERegExp, *js_ast.ERequire, *js_ast.EImportIdentifier, *js_ast.EError:

	case *js_ast.EIdentifier:
		if !b.isResolvePass || !e.Ref.IsPlaceholder() {
			break
		}
		ref := b.findSymbol(b.nameOf(e.Ref))
		b.recordUse(ref)
		if b.symbol(ref).Kind == js_ast.SymbolImport {
			expr.Data = &js_ast.EImportIdentifier{Ref: ref}
		} else {
			e.Ref = ref
		}

	case *js_ast.EArray:
		b.visitExprs(e.Items)

	case *js_ast.EUnary:
		b.visitExpr(&e.Value)

	case *js_ast.EBinary:
		if b.isResolvePass && e.Op.BinaryAssignTarget() != js_ast.AssignTargetNone {
			if name, ok := b.placeholderName(e.Left); ok {
				if ref := b.findSymbol(name); b.symbol(ref).Kind == js_ast.SymbolImport {
					b.addError(e.Left.Loc, fmt.Sprintf("Cannot assign to import %q", name))
				}
			}
		}
		b.visitExpr(&e.Left)
		b.visitExpr(&e.Right)

	case *js_ast.ENew:
		b.visitExpr(&e.Target)
		b.visitExprs(e.Args)

	case *js_ast.ECall:
		if b.isResolvePass {
			if name, ok := b.placeholderName(e.Target); ok {
				ref := b.findSymbol(name)

				// "require('path')" becomes an import record
				if name == "require" && b.isUnbound(ref) && len(e.Args) == 1 && e.OptionalChain == js_ast.OptionalChainNone {
					if str, ok := e.Args[0].Data.(*js_ast.EString); ok {
						index := b.addImportRecord(ast.ImportRequire, e.Args[0].Loc, helpers.UTF16ToString(str.Value))
						expr.Data = &js_ast.ERequire{ImportRecordIndex: index}
						return
					}
				}

				// A direct "eval" can see every name in scope
				if name == "eval" && b.isUnbound(ref) {
					e.IsDirectEval = true
					for s := b.currentScope; s != nil; s = s.parent {
						for _, member := range s.members {
							b.symbol(member).MustNotBeRenamed = true
						}
						if s.argumentsRef != js_ast.InvalidRef {
							b.symbol(s.argumentsRef).MustNotBeRenamed = true
						}
					}
				}
			}
		}
		b.visitExpr(&e.Target)
		b.visitExprs(e.Args)

	case *js_ast.EDot:
		b.visitExpr(&e.Target)

	case *js_ast.EIndex:
		b.visitExpr(&e.Target)
		b.visitExpr(&e.Index)

	case *js_ast.EArrow:
		fn := js_ast.Fn{Args: e.Args, Body: e.Body, ArgumentsRef: js_ast.InvalidRef}
		b.visitFn(&fn, true /* isArrow */)

	case *js_ast.EFunction:
		if e.Fn.Name != nil {
			b.pushScope(scopeFunctionName)
			b.declareName(e.Fn.Name, js_ast.SymbolHoistedFunction)
			b.visitFn(&e.Fn, false /* isArrow */)
			b.popScope()
		} else {
			b.visitFn(&e.Fn, false /* isArrow */)
		}

	case *js_ast.EClass:
		if e.Class.Name != nil {
			b.pushScope(scopeClassName)
			b.declareName(e.Class.Name, js_ast.SymbolClass)
			b.visitClass(&e.Class)
			b.popScope()
		} else {
			b.visitClass(&e.Class)
		}

	case *js_ast.EObject:
		for i := range e.Properties {
			b.visitProperty(&e.Properties[i])
		}

	case *js_ast.ESpread:
		b.visitExpr(&e.Value)

	case *js_ast.ETemplate:
		if e.Tag != nil {
			b.visitExpr(e.Tag)
		}
		for i := range e.Parts {
			b.visitExpr(&e.Parts[i].Value)
		}

	case *js_ast.EAwait:
		b.visitExpr(&e.Value)

	case *js_ast.EYield:
		if e.Value != nil {
			b.visitExpr(e.Value)
		}

	case *js_ast.EIf:
		b.visitExpr(&e.Test)
		b.visitExpr(&e.Yes)
		b.visitExpr(&e.No)

	case *js_ast.EImport:
		if b.isResolvePass && !e.ImportRecordIndex.IsValid() {
			if str, ok := e.Expr.Data.(*js_ast.EString); ok {
				index := b.addImportRecord(ast.ImportDynamic, e.Expr.Loc, helpers.UTF16ToString(str.Value))
				e.ImportRecordIndex = ast.MakeIndex32(index)
			}
		}
		b.visitExpr(&e.Expr)

	default:
		panic(fmt.Sprintf("Internal error: unexpected expression %T", expr.Data))
	}
}

// Bind resolves the placeholder refs in a freshly parsed or decoded tree into
// symbols and fills in the module's import and export tables. It returns false
// if any binding errors were logged.
func Bind(log logger.Log, source logger.Source, tree *js_ast.AST, options config.Options) bool {
	b := &binder{
		log:          log,
		source:       source,
		options:      options,
		tree:         tree,
		namedImports: make(map[js_ast.Ref]js_ast.NamedImport),
		namedExports: make(map[string]js_ast.NamedExport),
	}

	// Each pass starts over at the module scope
	b.moduleScope = b.pushScope(scopeEntry)
	b.visitStmts(tree.Stmts)
	b.popScope()

	b.isResolvePass = true
	b.pushScope(scopeEntry)
	b.visitStmts(tree.Stmts)
	b.popScope()

	// CommonJS features are detected by free uses of "exports" and "module"
	tree.ExportsRef, tree.UsesExportsRef = b.commonJSRef("exports")
	tree.ModuleRef, tree.UsesModuleRef = b.commonJSRef("module")

	tree.Symbols = b.symbols
	tree.Names = nil
	tree.NamedImports = b.namedImports
	tree.NamedExports = b.namedExports
	tree.ExportStarImportRecords = b.exportStarImportRecords
	tree.TopLevelSymbols = b.topLevelSymbols
	return !b.hasErrors
}

func (b *binder) commonJSRef(name string) (js_ast.Ref, bool) {
	if ref, ok := b.moduleScope.members[name]; ok && b.isUnbound(ref) {
		return ref, b.symbol(ref).UseCountEstimate > 0
	}
	return b.newSymbol(js_ast.SymbolUnbound, name), false
}
