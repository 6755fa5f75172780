package bundler

import (
	"fmt"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_printer"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
	"github.com/jspipe/jspipe/internal/sourcemap"
	"golang.org/x/exp/slices"
)

// One bit per entry point
type bitSet struct {
	entries []byte
}

func newBitSet(bitCount uint) bitSet {
	return bitSet{make([]byte, (bitCount+7)/8)}
}

func (bs bitSet) hasBit(bit uint) bool {
	return (bs.entries[bit/8] & (1 << (bit & 7))) != 0
}

func (bs bitSet) setBit(bit uint) {
	bs.entries[bit/8] |= 1 << (bit & 7)
}

type chunk struct {
	name string

	isEntryPoint bool
	entryPoint   uint32

	// Evaluation order
	files   []uint32
	fileSet map[uint32]bool

	// Chunks this one imports, in the order the files of this chunk first
	// refer to them
	dependencies []*chunk
	imports      map[*chunk][]js_ast.Ref

	// Symbols other chunks import from this one, by the name they use
	exports     map[js_ast.Ref]string
	exportOrder []js_ast.Ref

	// Runtime helpers the files of this chunk call
	runtimeRefs map[js_ast.Ref]bool

	// Foreign refs that need a local name in this chunk
	importOrder []js_ast.Ref

	// For "cjs" output, the variable that holds the exports object of each
	// dependency this chunk reads symbols from
	requireRefs map[*chunk]js_ast.Ref
}

func (ch *chunk) path() string {
	return ch.name + ".js"
}

func newChunk(name string) *chunk {
	return &chunk{
		name:        name,
		fileSet:     make(map[uint32]bool),
		imports:     make(map[*chunk][]js_ast.Ref),
		exports:     make(map[js_ast.Ref]string),
		runtimeRefs: make(map[js_ast.Ref]bool),
		requireRefs: make(map[*chunk]js_ast.Ref),
	}
}

func (ch *chunk) addFile(sourceIndex uint32) {
	if !ch.fileSet[sourceIndex] {
		ch.fileSet[sourceIndex] = true
		ch.files = append(ch.files, sourceIndex)
	}
}

func (ch *chunk) addDependency(other *chunk) {
	if other != ch && !slices.Contains(ch.dependencies, other) {
		ch.dependencies = append(ch.dependencies, other)
	}
}

// Every reachable module goes into exactly one chunk. The error for a module
// graph the output format can't split is in the log.
func (c *linkerContext) computeChunks() ([]*chunk, bool) {
	names := renamer.ExportRenamer{}
	names.NextRenamedName("common")

	var chunks []*chunk
	for _, sourceIndex := range c.graph.EntryPoints {
		_, base, _ := ast.PlatformIndependentPathDirBaseExt(c.graph.Files[sourceIndex].Module.Source.PrettyPath)
		ch := newChunk(names.NextRenamedName(base))
		ch.isEntryPoint = true
		ch.entryPoint = sourceIndex
		chunks = append(chunks, ch)
	}

	// Each entry point marks the files it reaches without passing through
	// another entry point
	entryBits := make([]bitSet, len(c.graph.Files))
	for i := range entryBits {
		entryBits[i] = newBitSet(uint(len(chunks)))
	}
	isEntryPoint := make(map[uint32]bool, len(chunks))
	for _, sourceIndex := range c.graph.EntryPoints {
		isEntryPoint[sourceIndex] = true
	}
	for i, sourceIndex := range c.graph.EntryPoints {
		c.markReachable(sourceIndex, uint(i), entryBits, isEntryPoint, true)
	}

	fileToChunk := make(map[uint32]*chunk, len(c.graph.ReachableFiles))
	var common *chunk
	for i, ch := range chunks {
		fileToChunk[ch.entryPoint] = chunks[i]
	}
	for _, sourceIndex := range c.graph.ReachableFiles {
		if isEntryPoint[sourceIndex] {
			fileToChunk[sourceIndex].addFile(sourceIndex)
			continue
		}

		owner := -1
		for i := range chunks {
			if entryBits[sourceIndex].hasBit(uint(i)) {
				if owner != -1 {
					owner = len(chunks)
					break
				}
				owner = i
			}
		}

		var ch *chunk
		if owner == len(chunks) {
			if common == nil {
				common = newChunk("common")
			}
			ch = common
		} else {
			ch = chunks[owner]
		}
		ch.addFile(sourceIndex)
		fileToChunk[sourceIndex] = ch
	}
	if common != nil {
		chunks = append(chunks, common)
	}

	for _, ch := range chunks {
		c.collectChunkRefs(ch, fileToChunk)
	}

	if c.options.OutputFormat == config.FormatIIFE && !c.checkSelfContainedChunks(chunks) {
		return nil, false
	}

	// Names of cross-chunk exports are picked in chunk order so they don't
	// depend on scheduling
	exportNames := make(map[*chunk]*renamer.ExportRenamer, len(chunks))
	for _, ch := range chunks {
		r := &renamer.ExportRenamer{}
		exportNames[ch] = r
		if ch.isEntryPoint && !c.graph.Files[ch.entryPoint].IsWrapped() {
			meta := &c.graph.Files[ch.entryPoint].Meta
			for _, alias := range meta.SortedExportAliases {
				r.NextRenamedName(alias)
				ref := js_ast.FollowSymbols(c.graph.Symbols, meta.ResolvedExports[alias].Ref)
				if _, ok := ch.exports[ref]; !ok {
					ch.exports[ref] = alias
				}
			}
		}
	}
	for _, ch := range chunks {
		for _, dep := range ch.dependencies {
			for _, ref := range ch.imports[dep] {
				if _, ok := dep.exports[ref]; ok {
					continue
				}
				dep.exports[ref] = c.crossChunkExportName(exportNames[dep], ref)
				dep.exportOrder = append(dep.exportOrder, ref)
			}
		}
	}

	if c.options.OutputFormat == config.FormatCommonJS && !c.linkCommonJSChunks(chunks) {
		return nil, false
	}
	return chunks, true
}

// A chunk wrapped in an IIFE can't load another chunk
func (c *linkerContext) checkSelfContainedChunks(chunks []*chunk) bool {
	for _, ch := range chunks {
		if !ch.isEntryPoint {
			shared := c.graph.Files[ch.files[0]].Module.Source.PrettyPath
			c.log.AddErrorWithID(logger.MsgID_BundleError, nil, logger.Range{}, fmt.Sprintf(
				"%q is imported by more than one entry point, which the \"iife\" format does not support", shared))
			return false
		}
	}
	for _, ch := range chunks {
		for _, dep := range ch.dependencies {
			c.log.AddErrorWithID(logger.MsgID_BundleError, nil, logger.Range{}, fmt.Sprintf(
				"Entry point %q imports entry point %q, which the \"iife\" format does not support",
				c.graph.Files[ch.entryPoint].Module.Source.PrettyPath,
				c.graph.Files[dep.entryPoint].Module.Source.PrettyPath))
			return false
		}
	}
	return true
}

// CommonJS chunks link to each other with require(). A chunk publishes the
// symbols other chunks use as getters on its exports object before any of
// its code runs, and readers go through the object so the bindings stay live.
func (c *linkerContext) linkCommonJSChunks(chunks []*chunk) bool {
	for _, ch := range chunks {
		if len(ch.exportOrder) > 0 {
			if ch.isEntryPoint && c.graph.Files[ch.entryPoint].IsWrapped() {
				c.log.AddErrorWithID(logger.MsgID_BundleError, nil, logger.Range{}, fmt.Sprintf(
					"The CommonJS entry point %q is imported by another chunk, which the \"cjs\" format does not support",
					c.graph.Files[ch.entryPoint].Module.Source.PrettyPath))
				return false
			}
			ch.runtimeRefs[c.runtimeHelper("__export")] = true
		}

		for _, dep := range ch.dependencies {
			if len(ch.imports[dep]) == 0 {
				continue
			}
			name := dep.name
			if dep.isEntryPoint {
				name = c.graph.Files[dep.entryPoint].Module.Source.IdentifierName
			}
			ch.requireRefs[dep] = c.graph.GenerateSymbol(c.graph.RuntimeSourceIndex, js_ast.SymbolOther, name)
		}
	}
	return true
}

func (c *linkerContext) crossChunkExportName(r *renamer.ExportRenamer, ref js_ast.Ref) string {
	if c.options.MinifyIdentifiers {
		for {
			name := r.NextMinifiedName()
			if r.NextRenamedName(name) == name {
				return name
			}
		}
	}
	return r.NextRenamedName(c.graph.Symbols.Get(ref).OriginalName)
}

func (c *linkerContext) markReachable(sourceIndex uint32, bit uint, entryBits []bitSet, isEntryPoint map[uint32]bool, isRoot bool) {
	if entryBits[sourceIndex].hasBit(bit) || (!isRoot && isEntryPoint[sourceIndex]) {
		return
	}
	entryBits[sourceIndex].setBit(bit)

	file := &c.graph.Files[sourceIndex]
	for i := range file.AST.ImportRecords {
		if otherIndex, ok := file.Module.ResolvedIndex(uint32(i)); ok {
			c.markReachable(otherIndex, bit, entryBits, isEntryPoint, false)
		}
	}
}

// Sorts every ref the files of a chunk use into runtime helpers, local
// symbols and imports from other chunks
func (c *linkerContext) collectChunkRefs(ch *chunk, fileToChunk map[uint32]*chunk) {
	seen := make(map[js_ast.Ref]bool)

	for _, sourceIndex := range ch.files {
		// Importing a module in another chunk evaluates that chunk first even
		// when no symbol is used
		file := &c.graph.Files[sourceIndex]
		for i, record := range file.AST.ImportRecords {
			if record.Kind == ast.ImportDynamic {
				continue
			}
			if otherIndex, ok := file.Module.ResolvedIndex(uint32(i)); ok {
				ch.addDependency(fileToChunk[otherIndex])
			}
		}

		for _, ref := range c.uses[sourceIndex] {
			ref = js_ast.FollowSymbols(c.graph.Symbols, ref)
			if seen[ref] {
				continue
			}
			seen[ref] = true

			if ref.SourceIndex == c.graph.RuntimeSourceIndex {
				if c.graph.Symbols.Get(ref).Kind != js_ast.SymbolUnbound {
					ch.runtimeRefs[ref] = true
				}
				continue
			}
			if ch.fileSet[ref.SourceIndex] {
				continue
			}

			// Unbound and external symbols aren't declared by any chunk
			owner, ok := fileToChunk[ref.SourceIndex]
			if !ok || c.graph.Symbols.Get(ref).Kind == js_ast.SymbolUnbound {
				continue
			}
			ch.addDependency(owner)
			ch.imports[owner] = append(ch.imports[owner], ref)
			ch.importOrder = append(ch.importOrder, ref)
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// Printing

type chunkResult struct {
	js        []byte
	sourceMap []byte
}

func (c *linkerContext) generateChunk(ch *chunk) (chunkResult, error) {
	runtimeTree := c.runtimeTree(ch)
	crossChunkTree := c.crossChunkImportTree(ch)
	exportTree := c.crossChunkExportTree(ch)

	r, err := c.renameSymbolsInChunk(ch, &runtimeTree, &crossChunkTree)
	if err != nil {
		return chunkResult{}, err
	}

	minify := c.options.RemoveWhitespace
	printOptions := js_printer.Options{
		UnsupportedFeatures: compat.UnsupportedJSFeatures(c.options.Target),
		MinifyWhitespace:    minify,
		MinifySyntax:        c.options.MangleSyntax,
	}

	j := helpers.Joiner{}
	gap := sourcemap.LineColumnOffset{}
	var pieces []sourcemap.Piece
	var sources []sourcemap.SourceFile

	addText := func(text []byte) {
		j.AddBytes(text)
		gap.AdvanceBytes(text)
	}
	printTree := func(tree js_ast.AST) {
		if len(tree.Stmts) > 0 {
			addText(js_printer.Print(tree, c.graph.Symbols, r, printOptions).JS)
		}
	}

	if c.options.OutputFormat == config.FormatIIFE {
		if minify {
			addText([]byte("(function(){"))
		} else {
			addText([]byte("(function () {\n"))
		}
		printOptions.Indent = 1
	}

	printTree(exportTree)
	printTree(crossChunkTree)
	printTree(runtimeTree)

	// Namespace objects come before any code that could read them
	var namespaceStmts []js_ast.Stmt
	for _, sourceIndex := range ch.files {
		if stmt := c.namespaceStmts[sourceIndex]; stmt != nil {
			namespaceStmts = append(namespaceStmts, *stmt)
		}
	}
	printTree(js_ast.AST{Stmts: namespaceStmts})

	for _, sourceIndex := range ch.files {
		file := &c.graph.Files[sourceIndex]
		if len(file.AST.Stmts) == 0 {
			continue
		}
		source := &file.Module.Source

		if !minify {
			if j.Length() > 0 {
				addText([]byte("\n"))
			}
			if printOptions.Indent > 0 {
				addText([]byte("  "))
			}
			addText([]byte(fmt.Sprintf("// %s\n", source.PrettyPath)))
		}

		fileOptions := printOptions
		if c.options.SourceMap != config.SourceMapNone {
			fileOptions.AddSourceMappings = true
			fileOptions.SourceContents = source.Contents
			fileOptions.LineOffsetTables = sourcemap.GenerateLineOffsetTables(source.Contents, file.AST.ApproximateLineCount)
		}

		result := js_printer.Print(file.AST, c.graph.Symbols, r, fileOptions)
		j.AddBytes(result.JS)
		if c.options.SourceMap != config.SourceMapNone {
			pieces = append(pieces, sourcemap.Piece{
				Gap:         gap,
				SourceIndex: len(sources),
				Chunk:       result.SourceMapChunk,
			})
			sources = append(sources, sourcemap.SourceFile{Path: source.PrettyPath, Contents: source.Contents})
			gap = sourcemap.LineColumnOffset{}
		}
	}

	printTree(c.chunkTail(ch))

	if c.options.OutputFormat == config.FormatIIFE {
		addText([]byte("})();\n"))
	}

	result := chunkResult{js: j.Done()}
	if c.options.SourceMap != config.SourceMapNone {
		result.sourceMap = sourcemap.Join(sources, pieces)
	}
	return result, nil
}

func (c *linkerContext) runtimeTree(ch *chunk) js_ast.AST {
	stmts, refs := c.runtimeStmts(ch.runtimeRefs)
	tree := c.graph.Files[c.graph.RuntimeSourceIndex].AST
	tree.Stmts = stmts
	tree.TopLevelSymbols = refs
	tree.Directives = nil
	return tree
}

// "import {a, b as c} from './common.js';"
func (c *linkerContext) crossChunkImportTree(ch *chunk) js_ast.AST {
	var stmts []js_ast.Stmt
	var records []ast.ImportRecord

	if c.options.OutputFormat == config.FormatCommonJS {
		// "var common = require('./common.js');"
		for _, dep := range ch.dependencies {
			call := js_ast.Expr{Data: &js_ast.ECall{
				Target: js_ast.Expr{Data: &js_ast.EIdentifier{Ref: c.requireRef}},
				Args:   []js_ast.Expr{{Data: &js_ast.EString{Value: helpers.StringToUTF16("./" + dep.path())}}},
			}}
			if ref, ok := ch.requireRefs[dep]; ok {
				stmts = append(stmts, varStmt(logger.Loc{}, ref, call))
			} else {
				stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExpr{Value: call}})
			}
		}
		return js_ast.AST{Stmts: stmts}
	}

	for _, dep := range ch.dependencies {
		recordIndex := uint32(len(records))
		records = append(records, ast.ImportRecord{Path: "./" + dep.path(), Kind: ast.ImportStmt})

		refs := ch.imports[dep]
		if len(refs) == 0 {
			// "import './common.js';"
			stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SImport{
				NamespaceRef:      js_ast.InvalidRef,
				ImportRecordIndex: recordIndex,
			}})
			continue
		}

		items := make([]js_ast.ClauseItem, len(refs))
		for i, ref := range refs {
			items[i] = js_ast.ClauseItem{Alias: dep.exports[ref], Name: js_ast.LocRef{Ref: ref}}
		}
		stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SImport{
			NamespaceRef:      js_ast.InvalidRef,
			Items:             &items,
			ImportRecordIndex: recordIndex,
		}})
	}

	return js_ast.AST{Stmts: stmts, ImportRecords: records}
}

// "__export(exports, { a: function () { return a; } });"
func (c *linkerContext) crossChunkExportTree(ch *chunk) js_ast.AST {
	if c.options.OutputFormat != config.FormatCommonJS || len(ch.exportOrder) == 0 {
		return js_ast.AST{}
	}

	var properties []js_ast.Property
	addGetter := func(alias string, ref js_ast.Ref) {
		value := js_ast.Expr{Data: &js_ast.EIdentifier{Ref: ref}}
		getter := js_ast.Expr{Data: &js_ast.EFunction{Fn: js_ast.Fn{
			ArgumentsRef: js_ast.InvalidRef,
			Body:         js_ast.FnBody{Stmts: []js_ast.Stmt{{Data: &js_ast.SReturn{Value: &value}}}},
		}}}
		properties = append(properties, js_ast.Property{
			Key:   js_ast.Expr{Data: &js_ast.EString{Value: helpers.StringToUTF16(alias)}},
			Value: &getter,
		})
	}

	// The exports of the entry point go on the same object
	if ch.isEntryPoint {
		meta := &c.graph.Files[ch.entryPoint].Meta
		for _, alias := range meta.SortedExportAliases {
			addGetter(alias, meta.ResolvedExports[alias].Ref)
		}
	}
	for _, ref := range ch.exportOrder {
		addGetter(ch.exports[ref], ref)
	}

	call := js_ast.Expr{Data: &js_ast.ECall{
		Target: js_ast.Expr{Data: &js_ast.EIdentifier{Ref: c.runtimeHelper("__export")}},
		Args: []js_ast.Expr{
			{Data: &js_ast.EIdentifier{Ref: c.exportsRef}},
			{Data: &js_ast.EObject{Properties: properties}},
		},
	}}
	return js_ast.AST{Stmts: []js_ast.Stmt{{Data: &js_ast.SExpr{Value: call}}}}
}

// What the chunk hands to whoever loads it
func (c *linkerContext) chunkTail(ch *chunk) js_ast.AST {
	var stmts []js_ast.Stmt
	var wrapperRef js_ast.Ref = js_ast.InvalidRef
	if ch.isEntryPoint {
		if file := &c.graph.Files[ch.entryPoint]; file.IsWrapped() {
			wrapperRef = file.Meta.WrapperRef
		}
	}
	callWrapper := func() js_ast.Expr {
		return js_ast.Expr{Data: &js_ast.ECall{Target: js_ast.Expr{Data: &js_ast.EIdentifier{Ref: wrapperRef}}}}
	}

	switch c.options.OutputFormat {
	case config.FormatESModule:
		if wrapperRef != js_ast.InvalidRef {
			// "export default require_entry();"
			stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExportDefault{
				DefaultName: js_ast.LocRef{Ref: js_ast.InvalidRef},
				Value:       js_ast.ExprOrStmt{Expr: ptrTo(callWrapper())},
			}})
		}

		var items []js_ast.ClauseItem
		if ch.isEntryPoint && wrapperRef == js_ast.InvalidRef {
			meta := &c.graph.Files[ch.entryPoint].Meta
			for _, alias := range meta.SortedExportAliases {
				items = append(items, js_ast.ClauseItem{Alias: alias, Name: js_ast.LocRef{Ref: meta.ResolvedExports[alias].Ref}})
			}
		}
		for _, ref := range ch.exportOrder {
			items = append(items, js_ast.ClauseItem{Alias: ch.exports[ref], Name: js_ast.LocRef{Ref: ref}})
		}
		if len(items) > 0 {
			stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExportClause{Items: items}})
		}

	case config.FormatCommonJS:
		var value js_ast.Expr
		if len(ch.exportOrder) > 0 || !ch.isEntryPoint {
			// Either nothing to hand over or crossChunkExportTree did it
			break
		} else if wrapperRef != js_ast.InvalidRef {
			value = callWrapper()
		} else if ref := c.graph.Files[ch.entryPoint].Meta.NamespaceRef; c.graph.Files[ch.entryPoint].Meta.NeedsNamespace {
			value = js_ast.Expr{Data: &js_ast.EIdentifier{Ref: ref}}
		} else {
			break
		}

		// "module.exports = entry_exports;"
		moduleExports := js_ast.Expr{Data: &js_ast.EDot{
			Target: js_ast.Expr{Data: &js_ast.EIdentifier{Ref: c.moduleRef}},
			Name:   "exports",
		}}
		stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExpr{Value: js_ast.Assign(moduleExports, value)}})

	case config.FormatIIFE:
		if wrapperRef != js_ast.InvalidRef {
			stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExpr{Value: callWrapper()}})
		}
	}

	return js_ast.AST{Stmts: stmts}
}

func ptrTo[T any](value T) *T {
	return &value
}
