package graph

import (
	"github.com/jspipe/jspipe/internal/js_ast"
	"golang.org/x/exp/slices"
)

type WrapKind uint8

const (
	WrapNone WrapKind = iota

	// The module will be bundled CommonJS-style like this:
	//
	//   // foo.js
	//   var require_foo = __commonJS(function (exports, module) {
	//     exports.foo = 123;
	//   });
	//
	//   // bar.js
	//   var foo = flag ? require_foo() : null;
	//
	WrapCJS
)

type ExportData struct {
	Ref js_ast.Ref

	// The module whose symbol table contains "Ref". For a re-export this is
	// the re-exporting module and not the one that declares the value.
	SourceIndex uint32
}

// This contains linker-specific metadata for one module. It's separate from
// the module because it only applies to a single linking operation.
type Meta struct {
	Wrap WrapKind

	// "require_foo" for a wrapped module
	WrapperRef js_ast.Ref

	// "foo_exports", the frozen namespace object. It is only declared in the
	// output if something needs it as a value.
	NamespaceRef   js_ast.Ref
	NeedsNamespace bool

	// This includes both named exports and re-exports from "export *"
	// statements. Ambiguous names from two different "export *" statements
	// are left out.
	ResolvedExports     map[string]ExportData
	SortedExportAliases []string

	// Symbols the linker generated at the top level of this module
	GeneratedTopLevel []js_ast.Ref
}

type LinkerFile struct {
	Module *Module

	// A shallow copy of the module's tree. The linker replaces its statements
	// and never mutates anything reachable from the original.
	AST  js_ast.AST
	Meta Meta
}

func (f *LinkerFile) IsWrapped() bool {
	return f.Meta.Wrap != WrapNone
}

// The linker's view of the graph. Symbols are cloned because linking imports
// to exports mutates them and generates new ones.
type LinkerGraph struct {
	Files   []LinkerFile
	Symbols js_ast.SymbolMap

	EntryPoints []uint32

	// Every module reachable from an entry point in evaluation order. This
	// does not include the runtime.
	ReachableFiles []uint32

	RuntimeSourceIndex uint32
}

// The runtime module is appended after the graph's modules and must already
// have that source index.
func MakeLinkerGraph(g *Graph, runtime *Module) LinkerGraph {
	files := make([]*Module, 0, len(g.Modules)+1)
	for i := range g.Modules {
		files = append(files, &g.Modules[i])
	}
	runtimeSourceIndex := uint32(len(files))
	if runtime.Source.Index != runtimeSourceIndex {
		panic("Internal error")
	}
	files = append(files, runtime)

	lg := LinkerGraph{
		Files:              make([]LinkerFile, len(files)),
		Symbols:            js_ast.NewSymbolMap(len(files)),
		EntryPoints:        append([]uint32(nil), g.EntryPoints...),
		ReachableFiles:     g.PostOrder(g.EntryPoints),
		RuntimeSourceIndex: runtimeSourceIndex,
	}

	for sourceIndex, module := range files {
		symbols := append([]js_ast.Symbol(nil), module.AST.Symbols...)
		lg.Symbols.Outer[sourceIndex] = symbols

		file := &lg.Files[sourceIndex]
		file.Module = module
		file.AST = module.AST
		file.AST.Symbols = nil
		file.Meta.WrapperRef = js_ast.InvalidRef
		file.Meta.NamespaceRef = js_ast.InvalidRef
	}

	return lg
}

func (g *LinkerGraph) GenerateSymbol(sourceIndex uint32, kind js_ast.SymbolKind, name string) js_ast.Ref {
	inner := g.Symbols.Outer[sourceIndex]
	ref := js_ast.Ref{SourceIndex: sourceIndex, InnerIndex: uint32(len(inner))}
	g.Symbols.Outer[sourceIndex] = append(inner, js_ast.Symbol{
		OriginalName: name,
		Link:         js_ast.InvalidRef,
		Kind:         kind,
	})
	return ref
}

func (g *LinkerGraph) GenerateTopLevelSymbol(sourceIndex uint32, kind js_ast.SymbolKind, name string) js_ast.Ref {
	ref := g.GenerateSymbol(sourceIndex, kind, name)
	meta := &g.Files[sourceIndex].Meta
	meta.GeneratedTopLevel = append(meta.GeneratedTopLevel, ref)
	return ref
}

// The symbols a module declares at its top level, including the ones the
// linker generated for it
func (g *LinkerGraph) TopLevelSymbols(sourceIndex uint32) []js_ast.Ref {
	file := &g.Files[sourceIndex]
	refs := make([]js_ast.Ref, 0, len(file.AST.TopLevelSymbols)+len(file.Meta.GeneratedTopLevel))
	refs = append(refs, file.AST.TopLevelSymbols...)
	return append(refs, file.Meta.GeneratedTopLevel...)
}

func (g *LinkerGraph) SortExportAliases(sourceIndex uint32) {
	meta := &g.Files[sourceIndex].Meta
	aliases := make([]string, 0, len(meta.ResolvedExports))
	for alias := range meta.ResolvedExports {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)
	meta.SortedExportAliases = aliases
}
