package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/resolver"
	"github.com/jspipe/jspipe/internal/test"
)

func build(t *testing.T, ctx context.Context, files map[string]string, entryPaths []string, options config.Options) (*Graph, []logger.Msg, error) {
	t.Helper()
	mockFS := fs.MockFS(files)
	log := logger.NewDeferLog()
	g, err := Build(ctx, log, BuildArgs{
		FS:         mockFS,
		Resolver:   resolver.NewResolver(mockFS, log, options),
		EntryPaths: entryPaths,
		Options:    options,
	})
	return g, log.Done(), err
}

func prettyPaths(g *Graph, order []uint32) []string {
	var paths []string
	for _, sourceIndex := range order {
		paths = append(paths, g.Modules[sourceIndex].Source.PrettyPath)
	}
	return paths
}

func assertPaths(t *testing.T, observed []string, expected ...string) {
	t.Helper()
	if len(observed) != len(expected) {
		t.Fatalf("%q != %q", observed, expected)
	}
	for i := range observed {
		test.AssertEqual(t, observed[i], expected[i])
	}
}

func TestDedup(t *testing.T) {
	g, msgs, err := build(t, context.Background(), map[string]string{
		"/src/entry.js": `
			import {a} from './a'
			import {b} from './lib/b.js'
			import './a.js'
		`,
		"/src/a.js":     `export let a = 1`,
		"/src/lib/b.js": `export {a as b} from '../a'`,
	}, []string{"/src/entry.js"}, config.Options{})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")

	// Three different specifiers for "a.js" share one module
	test.AssertEqual(t, len(g.Modules), 3)
	entry := &g.Modules[g.EntryPoints[0]]
	test.AssertEqual(t, entry.IsEntryPoint, true)
	first, ok := entry.ResolvedIndex(0)
	test.AssertEqual(t, ok, true)
	third, ok := entry.ResolvedIndex(2)
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, first, third)
	test.AssertEqual(t, g.Modules[first].Source.PrettyPath, "src/a.js")
	test.AssertEqual(t, g.Modules[first].Source.Index, first)
	test.AssertEqual(t, g.Modules[first].IsEntryPoint, false)

	assertPaths(t, prettyPaths(g, g.PostOrder(g.EntryPoints)), "src/a.js", "src/lib/b.js", "src/entry.js")
}

func TestExternal(t *testing.T) {
	g, msgs, err := build(t, context.Background(), map[string]string{
		"/entry.js": `
			import React from 'react'
			const fs = require('fs')
		`,
	}, []string{"/entry.js"}, config.Options{ExternalModules: map[string]bool{"react": true, "fs": true}})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")
	test.AssertEqual(t, len(g.Modules), 1)

	records := g.Modules[0].ImportRecords()
	test.AssertEqual(t, len(records), 2)
	for i, record := range records {
		test.AssertEqual(t, record.Flags.Has(ast.IsExternal), true)
		_, ok := g.Modules[0].ResolvedIndex(uint32(i))
		test.AssertEqual(t, ok, false)
	}
	test.AssertEqual(t, records[1].Kind, ast.ImportRequire)
}

func TestCycle(t *testing.T) {
	g, msgs, err := build(t, context.Background(), map[string]string{
		"/entry.js": `import './a'`,
		"/a.js":     `import './b'; export let a = 1`,
		"/b.js":     `import {a} from './a'; export let b = a`,
	}, []string{"/entry.js"}, config.Options{})
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, len(msgs), 1)
	test.AssertEqual(t, msgs[0].ID, logger.MsgID_Bundler_CircularImport)
	test.AssertEqual(t, msgs[0].Kind, logger.Warning)
	test.AssertEqual(t, msgs[0].Location.File, "b.js")
	test.AssertEqualWithDiff(t, msgs[0].Text, "Circular import of \"a.js\"")

	test.AssertEqual(t, len(g.CyclicEdges), 1)
	edge := g.CyclicEdges[0]
	test.AssertEqual(t, g.Modules[edge.From].Source.PrettyPath, "b.js")
	test.AssertEqual(t, g.Modules[edge.To].Source.PrettyPath, "a.js")

	// The module on the stack is skipped, so "b.js" is evaluated first
	assertPaths(t, prettyPaths(g, g.PostOrder(g.EntryPoints)), "b.js", "a.js", "entry.js")
}

func TestResolutionError(t *testing.T) {
	_, msgs, err := build(t, context.Background(), map[string]string{
		"/src/entry.js": `import './ok'`,
		"/src/ok.js":    `import 'missing-pkg'; import './missing'`,
	}, []string{"/src/entry.js"}, config.Options{})
	if !errors.Is(err, ErrScanFailed) {
		t.Fatalf("Expected a scan failure, got %v", err)
	}

	test.AssertEqual(t, len(msgs), 2)
	for _, msg := range msgs {
		test.AssertEqual(t, msg.ID, logger.MsgID_ResolutionError)
		test.AssertEqual(t, msg.Location.File, "src/ok.js")
	}
	test.AssertEqualWithDiff(t, msgs[0].Text,
		"Could not resolve \"missing-pkg\" from \"src/ok.js\" (mark it as external to exclude it from the bundle)")
	test.AssertEqualWithDiff(t, msgs[1].Text, "Could not resolve \"./missing\" from \"src/ok.js\"")
}

func TestMissingEntryPoint(t *testing.T) {
	_, msgs, err := build(t, context.Background(), map[string]string{
		"/entry.js": ``,
	}, []string{"/entry.js", "/other.js", "./entry"}, config.Options{})
	if !errors.Is(err, ErrScanFailed) {
		t.Fatalf("Expected a scan failure, got %v", err)
	}

	test.AssertEqual(t, len(msgs), 2)
	test.AssertEqual(t, msgs[0].ID, logger.MsgID_ResolutionError)
	test.AssertEqualWithDiff(t, msgs[0].Text, "Could not resolve entry point \"/other.js\"")
	test.AssertEqual(t, msgs[1].ID, logger.MsgID_BundleError)
	test.AssertEqualWithDiff(t, msgs[1].Text, "Duplicate entry point \"entry.js\"")
}

func TestSyntaxErrorStopsBuild(t *testing.T) {
	_, msgs, err := build(t, context.Background(), map[string]string{
		"/entry.js": `import './bad'`,
		"/bad.js":   `let = ;`,
	}, []string{"/entry.js"}, config.Options{})
	if !errors.Is(err, ErrScanFailed) {
		t.Fatalf("Expected a scan failure, got %v", err)
	}
	if len(msgs) == 0 {
		t.Fatal("Expected a syntax error")
	}
	test.AssertEqual(t, msgs[0].ID, logger.MsgID_SyntaxError)
	test.AssertEqual(t, msgs[0].Location.File, "bad.js")
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, _, err := build(t, ctx, map[string]string{
		"/entry.js": `import './a'`,
		"/a.js":     ``,
	}, []string{"/entry.js"}, config.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation, got %v", err)
	}
	if g != nil {
		t.Fatal("Expected no graph")
	}
}

func TestJSONModule(t *testing.T) {
	g, msgs, err := build(t, context.Background(), map[string]string{
		"/entry.js":  `import data from './data.json'`,
		"/data.json": `{"a": [1, 2]}`,
	}, []string{"/entry.js"}, config.Options{})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")

	sourceIndex, ok := g.Modules[0].ResolvedIndex(0)
	test.AssertEqual(t, ok, true)
	module := &g.Modules[sourceIndex]
	test.AssertEqual(t, module.Loader, LoaderJSON)

	export, ok := module.AST.NamedExports["default"]
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, module.AST.Symbols[export.Ref.InnerIndex].OriginalName, "data_default")

	s, ok := module.AST.Stmts[0].Data.(*js_ast.SExportDefault)
	test.AssertEqual(t, ok, true)
	object, ok := s.Value.Expr.Data.(*js_ast.EObject)
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, len(object.Properties), 1)

	// The value keeps its location in the JSON file
	test.AssertEqual(t, s.Value.Expr.Loc.Start, int32(0))
}

func TestDynamicImportOrder(t *testing.T) {
	g, msgs, err := build(t, context.Background(), map[string]string{
		"/entry.js": `
			import('./lazy')
			import './eager'
		`,
		"/lazy.js":      `import './eager'; import './only-lazy'`,
		"/eager.js":     ``,
		"/only-lazy.js": ``,
	}, []string{"/entry.js"}, config.Options{})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqualWithDiff(t, test.MsgsToString(msgs), "")

	// Dynamic imports never close a cycle and are evaluated after the static
	// graph
	test.AssertEqual(t, len(g.CyclicEdges), 0)
	assertPaths(t, prettyPaths(g, g.PostOrder(g.EntryPoints)), "eager.js", "entry.js", "only-lazy.js", "lazy.js")
}

func TestMakeLinkerGraph(t *testing.T) {
	g, _, err := build(t, context.Background(), map[string]string{
		"/entry.js": `import {a} from './a'; a`,
		"/a.js":     `export let a = 1`,
	}, []string{"/entry.js"}, config.Options{})
	if err != nil {
		t.Fatal(err)
	}

	runtime := Module{Source: logger.Source{Index: uint32(len(g.Modules))}}
	lg := MakeLinkerGraph(g, &runtime)
	test.AssertEqual(t, len(lg.Files), 3)
	test.AssertEqual(t, lg.RuntimeSourceIndex, uint32(2))
	test.AssertEqual(t, len(lg.ReachableFiles), 2)

	// Generated symbols don't touch the graph's symbol table
	before := len(g.Modules[1].AST.Symbols)
	ref := lg.GenerateTopLevelSymbol(1, js_ast.SymbolOther, "a_exports")
	test.AssertEqual(t, len(g.Modules[1].AST.Symbols), before)
	test.AssertEqual(t, lg.Symbols.Get(ref).OriginalName, "a_exports")
	refs := lg.TopLevelSymbols(1)
	test.AssertEqual(t, refs[len(refs)-1], ref)

	// Neither do links
	lg.Symbols.Get(js_ast.Ref{SourceIndex: 0, InnerIndex: 0}).Link = ref
	test.AssertEqual(t, g.Modules[0].AST.Symbols[0].Link, js_ast.InvalidRef)
}
