package graph

import (
	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
)

type Loader uint8

const (
	LoaderJS Loader = iota

	// The module's only export is "default", the parsed JSON value
	LoaderJSON
)

func loaderFromExtension(ext string) Loader {
	if ext == ".json" {
		return LoaderJSON
	}
	return LoaderJS
}

// One record per resolved file per bundle. The source index of a module is
// its position in Graph.Modules and the "SourceIndex" of every ref it owns.
type Module struct {
	Source logger.Source
	AST    js_ast.AST
	Loader Loader

	// Files reached through different paths (symlinks, "./a" vs "../x/a")
	// share a key and therefore a module
	Key fs.FileKey

	IsEntryPoint bool
}

func (m *Module) ImportRecords() []ast.ImportRecord {
	return m.AST.ImportRecords
}

// Returns the source index an import record resolved to, or false for an
// external import
func (m *Module) ResolvedIndex(importRecordIndex uint32) (uint32, bool) {
	record := &m.AST.ImportRecords[importRecordIndex]
	if !record.SourceIndex.IsValid() {
		return 0, false
	}
	return record.SourceIndex.GetIndex(), true
}
