package bundler

import (
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
)

// Every file of a chunk shares one top-level scope, so top-level names are
// made unique across the whole chunk. The first file to declare a name keeps
// it. Nested scopes are then renamed to avoid shadowing anything they use.
func (c *linkerContext) renameSymbolsInChunk(ch *chunk, runtimeTree *js_ast.AST, crossChunkTree *js_ast.AST) (renamer.Renamer, error) {
	symbols := c.graph.Symbols
	sourceIndices := append(append([]uint32(nil), ch.files...), c.graph.RuntimeSourceIndex)
	reserved := renamer.ComputeReservedNames(symbols, sourceIndices)

	var topLevel []js_ast.Ref
	moduleScopes := make([]*renamer.Scope, 0, len(ch.files)+1)
	for _, sourceIndex := range ch.files {
		tree := c.graph.Files[sourceIndex].AST
		tree.TopLevelSymbols = c.graph.TopLevelSymbols(sourceIndex)
		moduleScope := renamer.CollectScopes(&tree, symbols)
		moduleScopes = append(moduleScopes, moduleScope)
		topLevel = append(topLevel, moduleScope.Members...)
	}
	if c.options.OutputFormat == config.FormatCommonJS {
		for _, dep := range ch.dependencies {
			if ref, ok := ch.requireRefs[dep]; ok {
				topLevel = append(topLevel, ref)
			}
		}
	} else {
		topLevel = append(topLevel, ch.importOrder...)
	}
	runtimeScope := renamer.CollectScopes(runtimeTree, symbols)
	moduleScopes = append(moduleScopes, runtimeScope)
	topLevel = append(topLevel, runtimeScope.Members...)

	number := renamer.NewNumberRenamer(symbols, reserved, c.options.RenameAttemptLimit())
	for _, ref := range topLevel {
		if err := number.AddTopLevelSymbol(ref); err != nil {
			return nil, c.renameError(err)
		}
	}

	if !c.options.MinifyIdentifiers {
		if err := number.AssignNamesByScope(moduleScopes); err != nil {
			return nil, c.renameError(err)
		}
		return c.withCrossChunkReads(ch, number), nil
	}

	// Nothing outside an IIFE can see its top-level names
	minify := renamer.NewMinifyRenamer(symbols, reserved)
	minifyTopLevel := c.options.MinifyTopLevel || c.options.OutputFormat == config.FormatIIFE
	for _, ref := range topLevel {
		if minifyTopLevel {
			minify.AddTopLevelSymbol(ref)
		} else {
			minify.PinName(ref, number.NameForSymbol(ref))
		}
	}
	minify.AssignNestedScopeSlots(moduleScopes)
	minify.AssignNamesByFrequency()
	return c.withCrossChunkReads(ch, minify), nil
}

// Prints a symbol that a "cjs" chunk imports as a property read of the
// exports object it came from, as in "common.x"
type crossChunkRenamer struct {
	renamer.Renamer
	symbols js_ast.SymbolMap
	names   map[js_ast.Ref]string
}

func (r *crossChunkRenamer) NameForSymbol(ref js_ast.Ref) string {
	if name, ok := r.names[js_ast.FollowSymbols(r.symbols, ref)]; ok {
		return name
	}
	return r.Renamer.NameForSymbol(ref)
}

func (c *linkerContext) withCrossChunkReads(ch *chunk, r renamer.Renamer) renamer.Renamer {
	if len(ch.requireRefs) == 0 {
		return r
	}
	names := make(map[js_ast.Ref]string)
	for dep, requireRef := range ch.requireRefs {
		object := r.NameForSymbol(requireRef)
		for _, ref := range ch.imports[dep] {
			names[ref] = object + "." + dep.exports[ref]
		}
	}
	return &crossChunkRenamer{Renamer: r, symbols: c.graph.Symbols, names: names}
}

func (c *linkerContext) renameError(err error) error {
	c.log.AddErrorWithID(logger.MsgID_BundleError, nil, logger.Range{}, err.Error())
	return ErrBundleFailed
}
