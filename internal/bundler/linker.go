package bundler

// The linker connects the imports of every module to the exports they refer
// to and rewrites each module into plain top-level statements. ES modules are
// linked statically: an import item becomes a link to the symbol it resolves
// to, and the renamer gives both the same name. CommonJS modules are wrapped
// in a closure and imported through a property read of their exports object.

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/graph"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_pass"
	"github.com/jspipe/jspipe/internal/logger"
	"golang.org/x/exp/slices"
)

type linkerContext struct {
	log     logger.Log
	options config.Options
	graph   graph.LinkerGraph

	// Refs the linked code of each module refers to that may belong to another
	// module. A ref owned by a module in another chunk becomes a cross-chunk
	// import and a ref owned by the runtime pulls in that helper.
	uses [][]js_ast.Ref

	// Import items that read a property of a CommonJS or external module
	cjsImports []map[js_ast.Ref]cjsImport

	// "var foo_exports = Object.freeze({...})" for each module that needs one
	namespaceStmts []*js_ast.Stmt

	// Globals the generated code refers to
	objectRef  js_ast.Ref
	moduleRef  js_ast.Ref
	exportsRef js_ast.Ref
	requireRef js_ast.Ref
}

type cjsImport struct {
	namespaceRef js_ast.Ref
	alias        string
}

type importKind uint8

const (
	// Linked statically. The statement goes away.
	importInternal importKind = iota

	// A CommonJS module, or an external module when the output can't contain
	// import statements. The statement becomes a require() call.
	importRequire

	// An external module in ES module output. The statement stays.
	importKeep
)

func newLinkerContext(log logger.Log, options config.Options, scanned *graph.Graph, runtimeModule *graph.Module) *linkerContext {
	c := &linkerContext{
		log:     log,
		options: options,
		graph:   graph.MakeLinkerGraph(scanned, runtimeModule),
	}
	c.uses = make([][]js_ast.Ref, len(c.graph.Files))
	c.cjsImports = make([]map[js_ast.Ref]cjsImport, len(c.graph.Files))
	c.namespaceStmts = make([]*js_ast.Stmt, len(c.graph.Files))

	// These are used to implement bundling, and need to be free for use. Being
	// unbound symbols of the runtime makes them reserved names in every chunk.
	runtimeIndex := c.graph.RuntimeSourceIndex
	c.objectRef = c.graph.GenerateSymbol(runtimeIndex, js_ast.SymbolUnbound, "Object")
	c.moduleRef = c.graph.GenerateSymbol(runtimeIndex, js_ast.SymbolUnbound, "module")
	c.requireRef = c.graph.GenerateSymbol(runtimeIndex, js_ast.SymbolUnbound, "require")
	c.exportsRef = c.graph.GenerateSymbol(runtimeIndex, js_ast.SymbolUnbound, "exports")
	return c
}

func (c *linkerContext) link() bool {
	c.classifyModules()
	c.resolveExports()
	c.matchImports()
	if c.log.HasErrors() {
		return false
	}

	// "module.exports" needs an object for the exports of the entry point
	if c.options.OutputFormat == config.FormatCommonJS {
		for _, sourceIndex := range c.graph.EntryPoints {
			file := &c.graph.Files[sourceIndex]
			if !file.IsWrapped() && len(file.Meta.ResolvedExports) > 0 {
				c.uses[sourceIndex] = append(c.uses[sourceIndex], c.namespaceRef(sourceIndex))
			}
		}
	}

	// Entry exports in ES module output may come from a module in another chunk
	if c.options.OutputFormat == config.FormatESModule {
		for _, sourceIndex := range c.graph.EntryPoints {
			meta := &c.graph.Files[sourceIndex].Meta
			for _, alias := range meta.SortedExportAliases {
				c.uses[sourceIndex] = append(c.uses[sourceIndex], meta.ResolvedExports[alias].Ref)
			}
		}
	}

	for _, sourceIndex := range c.graph.ReachableFiles {
		c.convertModule(sourceIndex)
	}

	// Namespace objects are generated last because converting a module can
	// require the namespace of any other module
	for _, sourceIndex := range c.graph.ReachableFiles {
		if c.graph.Files[sourceIndex].Meta.NeedsNamespace {
			stmt := c.namespaceStmt(sourceIndex)
			c.namespaceStmts[sourceIndex] = &stmt
		}
	}

	// Chunks are renamed and printed in parallel and only read the symbol
	// table from then on. Shorten every link chain now so that following a
	// link never writes.
	for sourceIndex, symbols := range c.graph.Symbols.Outer {
		for inner := range symbols {
			js_ast.FollowSymbols(c.graph.Symbols, js_ast.Ref{SourceIndex: uint32(sourceIndex), InnerIndex: uint32(inner)})
		}
	}

	return !c.log.HasErrors()
}

func (c *linkerContext) classifyModules() {
	for _, sourceIndex := range c.graph.ReachableFiles {
		file := &c.graph.Files[sourceIndex]
		if file.Module.Loader != graph.LoaderJS || !file.AST.HasCommonJSFeatures() || file.AST.HasES6Syntax() {
			continue
		}

		file.Meta.Wrap = graph.WrapCJS
		name := file.Module.Source.IdentifierName
		file.Meta.WrapperRef = c.graph.GenerateTopLevelSymbol(sourceIndex, js_ast.SymbolOther, "require_"+name)

		// The wrapper closure declares both as arguments even if only one is used
		if file.AST.ExportsRef == js_ast.InvalidRef {
			file.AST.ExportsRef = c.graph.GenerateSymbol(sourceIndex, js_ast.SymbolUnbound, "exports")
		}
		if file.AST.ModuleRef == js_ast.InvalidRef {
			file.AST.ModuleRef = c.graph.GenerateSymbol(sourceIndex, js_ast.SymbolUnbound, "module")
		}
	}
}

// The namespace object is only created for modules that need it as a value
func (c *linkerContext) namespaceRef(sourceIndex uint32) js_ast.Ref {
	file := &c.graph.Files[sourceIndex]
	if file.Meta.NamespaceRef == js_ast.InvalidRef {
		file.Meta.NamespaceRef = c.graph.GenerateTopLevelSymbol(sourceIndex, js_ast.SymbolOther,
			file.Module.Source.IdentifierName+"_exports")
	}
	file.Meta.NeedsNamespace = true
	return file.Meta.NamespaceRef
}

func (c *linkerContext) runtimeRef(sourceIndex uint32, name string) js_ast.Ref {
	ref := c.runtimeHelper(name)
	c.uses[sourceIndex] = append(c.uses[sourceIndex], ref)
	return ref
}

func (c *linkerContext) runtimeHelper(name string) js_ast.Ref {
	export, ok := c.graph.Files[c.graph.RuntimeSourceIndex].AST.NamedExports[name]
	if !ok {
		panic(fmt.Sprintf("Internal error: missing runtime helper %q", name))
	}
	return export.Ref
}

func (c *linkerContext) importKindOf(sourceIndex uint32, importRecordIndex uint32) importKind {
	record := &c.graph.Files[sourceIndex].AST.ImportRecords[importRecordIndex]
	if !record.SourceIndex.IsValid() {
		if c.options.OutputFormat == config.FormatESModule {
			return importKeep
		}
		return importRequire
	}
	if c.graph.Files[record.SourceIndex.GetIndex()].IsWrapped() {
		return importRequire
	}
	return importInternal
}

////////////////////////////////////////////////////////////////////////////////
// Exports

type exportStar struct {
	data      graph.ExportData
	ambiguous bool
}

func (c *linkerContext) resolveExports() {
	for _, sourceIndex := range c.graph.ReachableFiles {
		file := &c.graph.Files[sourceIndex]
		if file.IsWrapped() {
			continue
		}

		resolved := make(map[string]graph.ExportData, len(file.AST.NamedExports))
		for alias, export := range file.AST.NamedExports {
			resolved[alias] = graph.ExportData{Ref: export.Ref, SourceIndex: sourceIndex}
		}

		// A name the module exports itself shadows the same name from "export *"
		for alias, star := range c.exportStars(sourceIndex, []uint32{sourceIndex}) {
			if _, ok := resolved[alias]; !ok && !star.ambiguous {
				resolved[alias] = star.data
			}
		}

		file.Meta.ResolvedExports = resolved
		c.graph.SortExportAliases(sourceIndex)
	}
}

// Collects what the "export * from" statements of a module bring in. Two
// statements that bring in different symbols for the same name make that
// name ambiguous.
func (c *linkerContext) exportStars(sourceIndex uint32, stack []uint32) map[string]exportStar {
	file := &c.graph.Files[sourceIndex]
	result := make(map[string]exportStar)

	for _, importRecordIndex := range file.AST.ExportStarImportRecords {
		otherIndex, ok := file.Module.ResolvedIndex(importRecordIndex)

		// Avoid infinite loops due to cycles in the export star graph
		if !ok || slices.Contains(stack, otherIndex) {
			continue
		}

		// The exports of a CommonJS module are only known at run time
		if c.graph.Files[otherIndex].IsWrapped() {
			if len(stack) > 1 {
				continue
			}
			record := &file.AST.ImportRecords[importRecordIndex]
			c.log.AddWarningWithID(logger.MsgID_None, &file.Module.Source, record.Range,
				fmt.Sprintf("The CommonJS module %q is not re-exported by \"export *\"",
					c.graph.Files[otherIndex].Module.Source.PrettyPath))
			continue
		}

		for alias, star := range c.reExportsOf(otherIndex, append(stack, otherIndex)) {
			if existing, ok := result[alias]; ok && (existing.ambiguous || existing.data != star.data) {
				star.ambiguous = true
			}
			result[alias] = star
		}
	}

	return result
}

// Everything "export * from" a module re-exports
func (c *linkerContext) reExportsOf(sourceIndex uint32, stack []uint32) map[string]exportStar {
	result := c.exportStars(sourceIndex, stack)
	for alias, export := range c.graph.Files[sourceIndex].AST.NamedExports {
		result[alias] = exportStar{data: graph.ExportData{Ref: export.Ref, SourceIndex: sourceIndex}}
	}
	delete(result, "default")
	return result
}

////////////////////////////////////////////////////////////////////////////////
// Imports

func (c *linkerContext) matchImports() {
	for _, sourceIndex := range c.graph.ReachableFiles {
		file := &c.graph.Files[sourceIndex]
		if file.IsWrapped() {
			continue
		}
		exported := exportedRefs(&file.AST)

		// Sort for determinism
		refs := make([]js_ast.Ref, 0, len(file.AST.NamedImports))
		for ref := range file.AST.NamedImports {
			refs = append(refs, ref)
		}
		slices.SortFunc(refs, compareRefs)

		for _, ref := range refs {
			namedImport := file.AST.NamedImports[ref]

			switch c.importKindOf(sourceIndex, namedImport.ImportRecordIndex) {
			case importKeep:
				continue

			case importRequire:
				// The namespace symbol itself holds the result of require()
				if namedImport.Alias != "*" {
					imports := c.cjsImports[sourceIndex]
					if imports == nil {
						imports = make(map[js_ast.Ref]cjsImport)
						c.cjsImports[sourceIndex] = imports
					}
					imports[ref] = cjsImport{namespaceRef: namedImport.NamespaceRef, alias: namedImport.Alias}
				}
				continue
			}

			otherIndex, _ := file.Module.ResolvedIndex(namedImport.ImportRecordIndex)
			other := &c.graph.Files[otherIndex]

			if namedImport.Alias == "*" {
				// Other modules may import this one's namespace import, so it must
				// be a real object
				if namedImport.IsExported || exported[ref] {
					c.bindNamespaceImport(sourceIndex, ref, otherIndex)
				}
				continue
			}

			export, ok := other.Meta.ResolvedExports[namedImport.Alias]
			if !ok {
				c.log.AddErrorWithID(logger.MsgID_BundleError, &file.Module.Source,
					logger.Range{Loc: namedImport.AliasLoc, Len: int32(len(namedImport.Alias))},
					fmt.Sprintf("No matching export in %q for import %q in %q",
						other.Module.Source.PrettyPath, namedImport.Alias, file.Module.Source.PrettyPath))
				continue
			}

			if c.reExportCycle(ref, export) {
				c.log.AddErrorWithID(logger.MsgID_BundleError, &file.Module.Source,
					logger.Range{Loc: namedImport.AliasLoc, Len: int32(len(namedImport.Alias))},
					fmt.Sprintf("Detected cycle while resolving import %q", namedImport.Alias))
				continue
			}

			js_ast.MergeSymbols(c.graph.Symbols, ref, export.Ref)
			c.uses[sourceIndex] = append(c.uses[sourceIndex], ref)
		}
	}
}

// Follows a chain of re-exports ("export {a} from") and reports whether it
// leads back to the import it started from
func (c *linkerContext) reExportCycle(start js_ast.Ref, export graph.ExportData) bool {
	seen := map[js_ast.Ref]bool{start: true}
	for {
		if seen[export.Ref] {
			return true
		}
		seen[export.Ref] = true

		file := &c.graph.Files[export.SourceIndex]
		namedImport, ok := file.AST.NamedImports[export.Ref]
		if !ok || namedImport.Alias == "*" ||
			c.importKindOf(export.SourceIndex, namedImport.ImportRecordIndex) != importInternal {
			return false
		}

		otherIndex, _ := file.Module.ResolvedIndex(namedImport.ImportRecordIndex)
		next, ok := c.graph.Files[otherIndex].Meta.ResolvedExports[namedImport.Alias]
		if !ok {
			// Reported when that module's own imports are matched
			return false
		}
		export = next
	}
}

// Returns the module behind "import * as ns" when its exports are known
// statically
func (c *linkerContext) namespaceImportTarget(sourceIndex uint32, ref js_ast.Ref) (uint32, bool) {
	file := &c.graph.Files[sourceIndex]
	namedImport, ok := file.AST.NamedImports[ref]
	if !ok || namedImport.Alias != "*" ||
		c.importKindOf(sourceIndex, namedImport.ImportRecordIndex) != importInternal {
		return 0, false
	}
	return file.Module.ResolvedIndex(namedImport.ImportRecordIndex)
}

func (c *linkerContext) bindNamespaceImport(sourceIndex uint32, ref js_ast.Ref, otherIndex uint32) {
	js_ast.MergeSymbols(c.graph.Symbols, ref, c.namespaceRef(otherIndex))
	c.uses[sourceIndex] = append(c.uses[sourceIndex], ref)
}

func exportedRefs(tree *js_ast.AST) map[js_ast.Ref]bool {
	exported := make(map[js_ast.Ref]bool, len(tree.NamedExports))
	for _, export := range tree.NamedExports {
		exported[export.Ref] = true
	}
	return exported
}

func compareRefs(a js_ast.Ref, b js_ast.Ref) int {
	if a.SourceIndex != b.SourceIndex {
		if a.SourceIndex < b.SourceIndex {
			return -1
		}
		return 1
	}
	if a.InnerIndex != b.InnerIndex {
		if a.InnerIndex < b.InnerIndex {
			return -1
		}
		return 1
	}
	return 0
}

////////////////////////////////////////////////////////////////////////////////
// Conversion

func (c *linkerContext) convertModule(sourceIndex uint32) {
	file := &c.graph.Files[sourceIndex]

	// The walker reads symbols from the tree. Links go through the shared map.
	tree := file.AST
	tree.Symbols = c.graph.Symbols.Outer[sourceIndex]
	pctx := js_pass.NewContext(c.log, &file.Module.Source, c.options)
	tree = js_pass.Rewrite(pctx, tree, js_pass.Hooks{
		EnterExpr: func(w *js_pass.Walker, expr js_ast.Expr) (js_ast.Expr, bool) {
			return c.linkExpr(sourceIndex, w, expr)
		},
	})

	if file.IsWrapped() {
		file.AST.Stmts = []js_ast.Stmt{c.wrapperStmt(sourceIndex, tree.Stmts)}
	} else {
		file.AST.Stmts = c.convertStmts(sourceIndex, tree.Stmts)
	}

	// Modules are strict already and wrapped modules carry their directives
	// inside the closure
	file.AST.Directives = nil
	file.AST.Hashbang = ""
}

func (c *linkerContext) linkExpr(sourceIndex uint32, w *js_pass.Walker, expr js_ast.Expr) (js_ast.Expr, bool) {
	switch e := expr.Data.(type) {
	case *js_ast.EImportIdentifier:
		if imported, ok := c.cjsImports[sourceIndex][e.Ref]; ok {
			return c.cjsImportExpr(expr.Loc, imported), true
		}
		if otherIndex, ok := c.namespaceImportTarget(sourceIndex, e.Ref); ok {
			// "ns" used as a value needs the namespace object
			c.bindNamespaceImport(sourceIndex, e.Ref, otherIndex)
		}

	case *js_ast.EDot:
		// "ns.foo" reads the export directly
		id, ok := e.Target.Data.(*js_ast.EImportIdentifier)
		if !ok {
			break
		}
		otherIndex, ok := c.namespaceImportTarget(sourceIndex, id.Ref)
		if !ok {
			break
		}
		other := &c.graph.Files[otherIndex]
		if export, ok := other.Meta.ResolvedExports[e.Name]; ok {
			c.uses[sourceIndex] = append(c.uses[sourceIndex], export.Ref)
			return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EImportIdentifier{Ref: export.Ref}}, true
		}
		w.Ctx().AddWarning(logger.MsgID_Bundler_ImportIsUndefined, e.NameLoc,
			fmt.Sprintf("Import %q will always be undefined because there is no matching export in %q",
				e.Name, other.Module.Source.PrettyPath))
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EUndefined{}}, true

	case *js_ast.ECall:
		// "foo()" => "(0, import_foo.foo)()" so "this" stays undefined
		id, ok := e.Target.Data.(*js_ast.EImportIdentifier)
		if !ok {
			break
		}
		imported, ok := c.cjsImports[sourceIndex][id.Ref]
		if !ok || imported.alias == "default" {
			break
		}
		clone := *e
		clone.Target = js_ast.JoinWithComma(
			js_ast.Expr{Loc: e.Target.Loc, Data: &js_ast.ENumber{Value: 0}},
			c.cjsImportExpr(e.Target.Loc, imported))
		clone.Args = w.Exprs(e.Args)
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}, true

	case *js_ast.ERequire:
		record := w.ImportRecord(e.ImportRecordIndex)
		if record.SourceIndex.IsValid() {
			return c.requireExpr(sourceIndex, expr.Loc, record.SourceIndex.GetIndex()), true
		}

	case *js_ast.EImport:
		if !e.ImportRecordIndex.IsValid() {
			break
		}
		record := w.ImportRecord(e.ImportRecordIndex.GetIndex())
		if !record.SourceIndex.IsValid() {
			break
		}

		// "import('./foo')" => "__import(function () { return foo_exports; })"
		value := c.requireExpr(sourceIndex, expr.Loc, record.SourceIndex.GetIndex())
		load := js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EFunction{Fn: js_ast.Fn{
			ArgumentsRef: js_ast.InvalidRef,
			Body: js_ast.FnBody{Loc: expr.Loc, Stmts: []js_ast.Stmt{
				{Loc: expr.Loc, Data: &js_ast.SReturn{Value: &value}},
			}},
		}}}
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ECall{
			Target: js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIdentifier{Ref: c.runtimeRef(sourceIndex, "__import")}},
			Args:   []js_ast.Expr{load},
		}}, true
	}

	return expr, false
}

// The default import of a CommonJS module is its "module.exports" object
func (c *linkerContext) cjsImportExpr(loc logger.Loc, imported cjsImport) js_ast.Expr {
	namespace := js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: imported.namespaceRef}}
	if imported.alias == "default" {
		return namespace
	}
	return js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: namespace, Name: imported.alias, NameLoc: loc}}
}

// The value "require()" returns for a bundled module
func (c *linkerContext) requireExpr(sourceIndex uint32, loc logger.Loc, otherIndex uint32) js_ast.Expr {
	other := &c.graph.Files[otherIndex]
	if other.IsWrapped() {
		c.uses[sourceIndex] = append(c.uses[sourceIndex], other.Meta.WrapperRef)
		return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
			Target: js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: other.Meta.WrapperRef}},
		}}
	}
	ref := c.namespaceRef(otherIndex)
	c.uses[sourceIndex] = append(c.uses[sourceIndex], ref)
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: ref}}
}

// "var import_foo = require_foo();"
func (c *linkerContext) requireStmt(sourceIndex uint32, loc logger.Loc, namespaceRef js_ast.Ref, importRecordIndex uint32) js_ast.Stmt {
	var value js_ast.Expr
	if otherIndex, ok := c.graph.Files[sourceIndex].Module.ResolvedIndex(importRecordIndex); ok {
		value = c.requireExpr(sourceIndex, loc, otherIndex)
	} else {
		value = js_ast.Expr{Loc: loc, Data: &js_ast.ERequire{ImportRecordIndex: importRecordIndex}}
	}
	return varStmt(loc, namespaceRef, value)
}

func varStmt(loc logger.Loc, ref js_ast.Ref, value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
		Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: ref}},
		Value:   &value,
	}}}}
}

// Other modules link to exported import items directly, so an exported item
// that reads a property of a CommonJS module needs a declaration of its own
func (c *linkerContext) materializeImports(sourceIndex uint32, stmts []js_ast.Stmt, loc logger.Loc, refs []js_ast.Ref, exported map[js_ast.Ref]bool) []js_ast.Stmt {
	for _, ref := range refs {
		if imported, ok := c.cjsImports[sourceIndex][ref]; ok && exported[ref] {
			stmts = append(stmts, varStmt(loc, ref, c.cjsImportExpr(loc, imported)))
		}
	}
	return stmts
}

func (c *linkerContext) convertStmts(sourceIndex uint32, stmts []js_ast.Stmt) []js_ast.Stmt {
	file := &c.graph.Files[sourceIndex]
	exported := exportedRefs(&file.AST)

	// Imports are evaluated before the body of the module that imports them
	var prefix []js_ast.Stmt
	result := make([]js_ast.Stmt, 0, len(stmts))

	for _, stmt := range stmts {
		switch s := stmt.Data.(type) {
		case *js_ast.SImport:
			switch c.importKindOf(sourceIndex, s.ImportRecordIndex) {
			case importKeep:
				result = append(result, stmt)

			case importRequire:
				prefix = append(prefix, c.requireStmt(sourceIndex, stmt.Loc, s.NamespaceRef, s.ImportRecordIndex))
				var refs []js_ast.Ref
				if s.DefaultName != nil {
					refs = append(refs, s.DefaultName.Ref)
				}
				if s.Items != nil {
					for _, item := range *s.Items {
						refs = append(refs, item.Name.Ref)
					}
				}
				prefix = c.materializeImports(sourceIndex, prefix, stmt.Loc, refs, exported)
			}
			continue

		case *js_ast.SExportFrom:
			switch c.importKindOf(sourceIndex, s.ImportRecordIndex) {
			case importKeep:
				// "export {a as b} from 'x'" => "import {a as b} from 'x'"
				items := make([]js_ast.ClauseItem, len(s.Items))
				for i, item := range s.Items {
					items[i] = js_ast.ClauseItem{Alias: item.OriginalName, AliasLoc: item.AliasLoc, Name: item.Name}
				}
				result = append(result, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SImport{
					NamespaceRef:      s.NamespaceRef,
					Items:             &items,
					ImportRecordIndex: s.ImportRecordIndex,
				}})

			case importRequire:
				prefix = append(prefix, c.requireStmt(sourceIndex, stmt.Loc, s.NamespaceRef, s.ImportRecordIndex))
				refs := make([]js_ast.Ref, len(s.Items))
				for i, item := range s.Items {
					refs[i] = item.Name.Ref
				}
				prefix = c.materializeImports(sourceIndex, prefix, stmt.Loc, refs, exported)
			}
			continue

		case *js_ast.SExportStar:
			switch c.importKindOf(sourceIndex, s.ImportRecordIndex) {
			case importKeep:
				if s.Alias != nil {
					// "export * as ns from 'x'" => "import * as ns from 'x'"
					loc := s.Alias.Loc
					result = append(result, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SImport{
						NamespaceRef:      s.NamespaceRef,
						StarNameLoc:       &loc,
						ImportRecordIndex: s.ImportRecordIndex,
					}})
				} else if file.Module.IsEntryPoint {
					result = append(result, stmt)
				} else {
					c.warnDroppedExportStar(sourceIndex, s.ImportRecordIndex)
				}

			case importRequire:
				if s.Alias != nil {
					prefix = append(prefix, c.requireStmt(sourceIndex, stmt.Loc, s.NamespaceRef, s.ImportRecordIndex))
				} else if _, ok := file.Module.ResolvedIndex(s.ImportRecordIndex); !ok {
					c.warnDroppedExportStar(sourceIndex, s.ImportRecordIndex)
				}
			}
			continue

		case *js_ast.SExportClause:
			continue

		case *js_ast.SLocal:
			// Strip the "export" keyword while bundling
			if s.IsExport {
				clone := *s
				clone.IsExport = false
				stmt.Data = &clone
			}

		case *js_ast.SFunction:
			if s.IsExport {
				clone := *s
				clone.IsExport = false
				stmt.Data = &clone
			}

		case *js_ast.SClass:
			if s.IsExport {
				clone := *s
				clone.IsExport = false
				stmt.Data = &clone
			}

		case *js_ast.SExportDefault:
			if s.Value.Expr != nil {
				// "export default foo;" => "var entry_default = foo;"
				stmt = varStmt(stmt.Loc, s.DefaultName.Ref, *s.Value.Expr)
				stmt.Data.(*js_ast.SLocal).Decls[0].Binding.Loc = s.DefaultName.Loc
				break
			}

			switch s2 := s.Value.Stmt.Data.(type) {
			case *js_ast.SFunction:
				// "export default function() {}" => "function entry_default() {}"
				clone := *s2
				clone.IsExport = false
				if clone.Fn.Name == nil {
					name := s.DefaultName
					clone.Fn.Name = &name
				}
				stmt = js_ast.Stmt{Loc: s.Value.Stmt.Loc, Data: &clone}

			case *js_ast.SClass:
				// "export default class {}" => "class entry_default {}"
				clone := *s2
				clone.IsExport = false
				if clone.Class.Name == nil {
					name := s.DefaultName
					clone.Class.Name = &name
				}
				stmt = js_ast.Stmt{Loc: s.Value.Stmt.Loc, Data: &clone}

			default:
				panic("Internal error")
			}
		}

		result = append(result, stmt)
	}

	if len(prefix) == 0 {
		return result
	}
	return append(prefix, result...)
}

func (c *linkerContext) warnDroppedExportStar(sourceIndex uint32, importRecordIndex uint32) {
	file := &c.graph.Files[sourceIndex]
	record := &file.AST.ImportRecords[importRecordIndex]
	c.log.AddWarningWithID(logger.MsgID_None, &file.Module.Source, record.Range,
		fmt.Sprintf("The names re-exported from %q are only kept for an entry point in the \"esm\" format", record.Path))
}

// "var require_foo = __commonJS(function (exports, module) { ... });"
func (c *linkerContext) wrapperStmt(sourceIndex uint32, stmts []js_ast.Stmt) js_ast.Stmt {
	file := &c.graph.Files[sourceIndex]

	body := make([]js_ast.Stmt, 0, len(file.AST.Directives)+len(stmts))
	for _, directive := range file.AST.Directives {
		body = append(body, js_ast.Stmt{Data: &js_ast.SDirective{Value: helpers.StringToUTF16(directive)}})
	}
	body = append(body, stmts...)

	callback := js_ast.Expr{Data: &js_ast.EFunction{Fn: js_ast.Fn{
		Args: []js_ast.Arg{
			{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: file.AST.ExportsRef}}},
			{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: file.AST.ModuleRef}}},
		},
		ArgumentsRef: js_ast.InvalidRef,
		Body:         js_ast.FnBody{Stmts: body},
	}}}

	return varStmt(logger.Loc{}, file.Meta.WrapperRef, js_ast.Expr{Data: &js_ast.ECall{
		Target: js_ast.Expr{Data: &js_ast.EIdentifier{Ref: c.runtimeRef(sourceIndex, "__commonJS")}},
		Args:   []js_ast.Expr{callback},
	}})
}

// "var foo_exports = Object.freeze({ __proto__: null, get bar() { return bar; } });"
func (c *linkerContext) namespaceStmt(sourceIndex uint32) js_ast.Stmt {
	meta := &c.graph.Files[sourceIndex].Meta

	properties := make([]js_ast.Property, 0, len(meta.SortedExportAliases)+1)
	null := js_ast.Expr{Data: &js_ast.ENull{}}
	properties = append(properties, js_ast.Property{
		Key:   js_ast.Expr{Data: &js_ast.EString{Value: helpers.StringToUTF16("__proto__")}},
		Value: &null,
	})

	for _, alias := range meta.SortedExportAliases {
		export := meta.ResolvedExports[alias]
		c.uses[sourceIndex] = append(c.uses[sourceIndex], export.Ref)
		value := js_ast.Expr{Data: &js_ast.EIdentifier{Ref: export.Ref}}
		getter := js_ast.Expr{Data: &js_ast.EFunction{Fn: js_ast.Fn{
			ArgumentsRef: js_ast.InvalidRef,
			Body:         js_ast.FnBody{Stmts: []js_ast.Stmt{{Data: &js_ast.SReturn{Value: &value}}}},
		}}}
		properties = append(properties, js_ast.Property{
			Key:      js_ast.Expr{Data: &js_ast.EString{Value: helpers.StringToUTF16(alias)}},
			Value:    &getter,
			Kind:     js_ast.PropertyGet,
			IsMethod: true,
		})
	}

	freeze := js_ast.Expr{Data: &js_ast.EDot{
		Target: js_ast.Expr{Data: &js_ast.EIdentifier{Ref: c.objectRef}},
		Name:   "freeze",
	}}
	return varStmt(logger.Loc{}, meta.NamespaceRef, js_ast.Expr{Data: &js_ast.ECall{
		Target: freeze,
		Args:   []js_ast.Expr{{Data: &js_ast.EObject{Properties: properties}}},
	}})
}

// Runtime helpers in the order the runtime declares them
func (c *linkerContext) runtimeStmts(used map[js_ast.Ref]bool) ([]js_ast.Stmt, []js_ast.Ref) {
	var stmts []js_ast.Stmt
	var refs []js_ast.Ref
	for _, stmt := range c.graph.Files[c.graph.RuntimeSourceIndex].AST.Stmts {
		s, ok := stmt.Data.(*js_ast.SFunction)
		if !ok || s.Fn.Name == nil || !used[s.Fn.Name.Ref] {
			continue
		}
		clone := *s
		clone.IsExport = false
		stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &clone})
		refs = append(refs, s.Fn.Name.Ref)
	}
	return stmts, refs
}
