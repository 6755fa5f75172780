package graph

// The graph builder discovers every module reachable from the entry points.
// Files are parsed and their imports resolved on worker goroutines. The
// goroutine that calls Build owns the visited set: it receives each parsed
// module on a channel, assigns source indices to newly discovered files and
// dispatches them. A semaphore bounds how many files are parsed at once.

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/resolver"
	"golang.org/x/sync/semaphore"
)

// The details are in the log
var ErrScanFailed = errors.New("could not load every module")

type Edge struct {
	From              uint32
	To                uint32
	ImportRecordIndex uint32
}

type Graph struct {
	// Indexed by source index
	Modules []Module

	// In the order they were given
	EntryPoints []uint32

	// Each import that closes a cycle, in depth-first order from the entry
	// points. Cycles are allowed and only recorded.
	CyclicEdges []Edge
}

type BuildArgs struct {
	FS         fs.FS
	Resolver   *resolver.Resolver
	EntryPaths []string
	Options    config.Options
	Timer      *helpers.Timer

	// Defaults to GOMAXPROCS
	MaxParallelism int
}

type parseArgs struct {
	ctx             context.Context
	fs              fs.FS
	log             logger.Log
	res             *resolver.Resolver
	sem             *semaphore.Weighted
	keyPath         logger.Path
	prettyPath      string
	sourceIndex     uint32
	importSource    *logger.Source
	importPathRange logger.Range
	options         config.Options
	results         chan parseResult
	timer           *helpers.Timer
}

type resolvedImport struct {
	result resolver.Result
	key    fs.FileKey
}

type parseResult struct {
	module Module
	ok     bool

	// Set if the build was cancelled before this file was parsed
	err error

	// Parallel to the module's import records. Nil entries failed to resolve.
	resolveResults []*resolvedImport
	timer          *helpers.Timer
}

func parseFile(args parseArgs) {
	// A panic is reported for the file so the traversal still receives a
	// result for every dispatched worker
	defer func() {
		if r := recover(); r != nil {
			args.log.AddErrorWithID(logger.MsgID_InternalError, nil, logger.Range{},
				fmt.Sprintf("panic: %v (while parsing %q)\n%s", r, args.prettyPath, helpers.PrettyPrintedStack()))
			args.results <- parseResult{
				module: Module{Source: logger.Source{Index: args.sourceIndex, PrettyPath: args.prettyPath}},
				timer:  args.timer,
			}
		}
	}()
	args.results <- parseAndResolve(args)
}

func parseAndResolve(args parseArgs) parseResult {
	if err := args.sem.Acquire(args.ctx, 1); err != nil {
		return parseResult{err: err}
	}
	defer args.sem.Release(1)
	if err := args.ctx.Err(); err != nil {
		return parseResult{err: err}
	}

	args.timer.Begin("parse " + args.prettyPath)
	defer args.timer.End("parse " + args.prettyPath)
	result := parseResult{timer: args.timer}

	contents, err := args.fs.ReadFile(args.keyPath.Text)
	if err != nil {
		args.log.AddErrorWithID(logger.MsgID_ResolutionError, args.importSource, args.importPathRange,
			fmt.Sprintf("Could not read from file %q: %s", args.prettyPath, err.Error()))
		return result
	}

	source := logger.Source{
		Index:          args.sourceIndex,
		KeyPath:        args.keyPath,
		PrettyPath:     args.prettyPath,
		IdentifierName: ast.GenerateNonUniqueNameFromPath(args.keyPath.Text),
		Contents:       contents,
	}
	loader := loaderFromExtension(args.fs.Ext(args.keyPath.Text))
	options := args.options
	options.IsModule = true

	var tree js_ast.AST
	switch loader {
	case LoaderJSON:
		tree, result.ok = parseJSONModule(args.log, source, options)
	default:
		tree, result.ok = js_parser.Parse(args.log, source, options)
	}
	result.module = Module{Source: source, AST: tree, Loader: loader}

	// Stop now if parsing failed
	if !result.ok {
		return result
	}

	// Run the resolver on the parse goroutine so the traversal goroutine never
	// blocks on the file system
	records := tree.ImportRecords
	result.resolveResults = make([]*resolvedImport, len(records))
	cache := make(map[string]*resolvedImport)
	sourceDir := args.fs.Dir(args.keyPath.Text)

	for importRecordIndex := range records {
		record := &records[importRecordIndex]

		// Cache the path in case it's imported multiple times in this file
		if resolved, ok := cache[record.Path]; ok {
			result.resolveResults[importRecordIndex] = resolved
			continue
		}

		resolveResult, ok := args.res.Resolve(sourceDir, record.Path)
		if !ok {
			hint := ""
			if resolver.IsPackagePath(record.Path) {
				hint = " (mark it as external to exclude it from the bundle)"
			}
			args.log.AddErrorWithID(logger.MsgID_ResolutionError, &source, record.Range,
				fmt.Sprintf("Could not resolve %q from %q%s", record.Path, source.PrettyPath, hint))
			result.ok = false
			continue
		}

		resolved := &resolvedImport{result: resolveResult}
		if !resolveResult.IsExternal {
			if resolved.key, err = args.fs.Key(resolveResult.Path.Text); err != nil {
				args.log.AddErrorWithID(logger.MsgID_ResolutionError, &source, record.Range,
					fmt.Sprintf("Could not read from file %q: %s", args.res.PrettyPath(resolveResult.Path.Text), err.Error()))
				result.ok = false
				continue
			}
		}
		cache[record.Path] = resolved
		result.resolveResults[importRecordIndex] = resolved
	}

	return result
}

// A JSON file becomes a module with a single default export. Only the
// statement is parsed from generated text. The value keeps the locations of
// the original file.
func parseJSONModule(log logger.Log, source logger.Source, options config.Options) (js_ast.AST, bool) {
	value, ok := js_parser.ParseJSON(log, source, js_parser.ParseJSONOptions{})
	if !ok {
		return js_ast.AST{}, false
	}

	stub := source
	stub.Contents = "export default 0"
	tree, ok := js_parser.Parse(logger.NewDeferLog(), stub, options)
	if !ok || len(tree.Stmts) != 1 {
		panic("Internal error")
	}
	s, ok := tree.Stmts[0].Data.(*js_ast.SExportDefault)
	if !ok {
		panic("Internal error")
	}
	s.Value.Expr = &value
	return tree, true
}

func prettyPath(res *resolver.Resolver, path string) string {
	return strings.ReplaceAll(res.PrettyPath(path), "\\", "/")
}

func Build(ctx context.Context, log logger.Log, args BuildArgs) (*Graph, error) {
	maxParallelism := args.MaxParallelism
	if maxParallelism <= 0 {
		maxParallelism = runtime.GOMAXPROCS(0)
	}

	g := &Graph{}
	sem := semaphore.NewWeighted(int64(maxParallelism))
	visited := make(map[fs.FileKey]uint32)
	results := make(chan parseResult)
	remaining := 0
	failed := false
	var cancelErr error

	maybeParseFile := func(path logger.Path, key fs.FileKey, importSource *logger.Source, importPathRange logger.Range) uint32 {
		if sourceIndex, ok := visited[key]; ok {
			return sourceIndex
		}
		sourceIndex := uint32(len(g.Modules))
		visited[key] = sourceIndex
		g.Modules = append(g.Modules, Module{})
		remaining++
		go parseFile(parseArgs{
			ctx:             ctx,
			fs:              args.FS,
			log:             log,
			res:             args.Resolver,
			sem:             sem,
			keyPath:         path,
			prettyPath:      prettyPath(args.Resolver, path.Text),
			sourceIndex:     sourceIndex,
			importSource:    importSource,
			importPathRange: importPathRange,
			options:         args.Options,
			results:         results,
			timer:           args.Timer.Fork(),
		})
		return sourceIndex
	}

	duplicateEntryPoints := make(map[fs.FileKey]bool)
	for _, entryPath := range args.EntryPaths {
		resolveResult, ok := args.Resolver.ResolveEntryPoint(entryPath)
		if !ok {
			log.AddErrorWithID(logger.MsgID_ResolutionError, nil, logger.Range{},
				fmt.Sprintf("Could not resolve entry point %q", entryPath))
			failed = true
			continue
		}
		key, err := args.FS.Key(resolveResult.Path.Text)
		if err != nil {
			log.AddErrorWithID(logger.MsgID_ResolutionError, nil, logger.Range{},
				fmt.Sprintf("Could not read from file %q: %s", entryPath, err.Error()))
			failed = true
			continue
		}
		if duplicateEntryPoints[key] {
			log.AddErrorWithID(logger.MsgID_BundleError, nil, logger.Range{},
				fmt.Sprintf("Duplicate entry point %q", prettyPath(args.Resolver, resolveResult.Path.Text)))
			failed = true
			continue
		}
		duplicateEntryPoints[key] = true
		g.EntryPoints = append(g.EntryPoints, maybeParseFile(resolveResult.Path, key, nil, logger.Range{}))
	}

	// Continue scanning until all dependencies have been discovered. Every
	// dispatched file must be received even after a failure so that no worker
	// is left blocked on the channel.
	for remaining > 0 {
		result := <-results
		remaining--
		args.Timer.Join(result.timer)

		if result.err != nil {
			cancelErr = result.err
			continue
		}
		module := result.module
		if !result.ok {
			failed = true
		}
		if result.resolveResults == nil || failed || cancelErr != nil {
			g.Modules[module.Source.Index] = module
			continue
		}

		importSource := module.Source
		records := module.AST.ImportRecords
		for importRecordIndex := range records {
			record := &records[importRecordIndex]
			resolved := result.resolveResults[importRecordIndex]
			if resolved.result.IsExternal {
				record.Flags |= ast.IsExternal
				continue
			}
			sourceIndex := maybeParseFile(resolved.result.Path, resolved.key, &importSource, record.Range)
			record.SourceIndex = ast.MakeIndex32(sourceIndex)
		}
		g.Modules[module.Source.Index] = module
	}

	if cancelErr != nil {
		return nil, cancelErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed {
		return nil, ErrScanFailed
	}

	for _, sourceIndex := range g.EntryPoints {
		g.Modules[sourceIndex].IsEntryPoint = true
	}
	g.findCycles(log)
	return g, nil
}

func (g *Graph) findCycles(log logger.Log) {
	const (
		unvisited uint8 = iota
		inProgress
		done
	)
	state := make([]uint8, len(g.Modules))

	var visit func(sourceIndex uint32)
	visit = func(sourceIndex uint32) {
		state[sourceIndex] = inProgress
		module := &g.Modules[sourceIndex]
		for i, record := range module.AST.ImportRecords {
			// A dynamic import runs after the importer has been evaluated
			if record.Kind == ast.ImportDynamic {
				continue
			}
			to, ok := module.ResolvedIndex(uint32(i))
			if !ok {
				continue
			}
			switch state[to] {
			case unvisited:
				visit(to)
			case inProgress:
				g.CyclicEdges = append(g.CyclicEdges, Edge{From: sourceIndex, To: to, ImportRecordIndex: uint32(i)})
				log.AddWarningWithID(logger.MsgID_Bundler_CircularImport, &module.Source, record.Range,
					fmt.Sprintf("Circular import of %q", g.Modules[to].Source.PrettyPath))
			}
		}
		state[sourceIndex] = done
	}

	for _, sourceIndex := range g.EntryPoints {
		if state[sourceIndex] == unvisited {
			visit(sourceIndex)
		}
	}
}

// Every module in the order of a depth-first search from the entry points,
// visiting imports in source order. Dependencies come before the module that
// imports them. This is the order in which ES modules are evaluated.
func (g *Graph) PostOrder(entryPoints []uint32) []uint32 {
	visited := make([]bool, len(g.Modules))
	order := make([]uint32, 0, len(g.Modules))

	var visit func(sourceIndex uint32)
	visit = func(sourceIndex uint32) {
		if visited[sourceIndex] {
			return
		}
		visited[sourceIndex] = true
		module := &g.Modules[sourceIndex]
		for i, record := range module.AST.ImportRecords {
			if record.Kind == ast.ImportDynamic {
				continue
			}
			if to, ok := module.ResolvedIndex(uint32(i)); ok {
				visit(to)
			}
		}
		order = append(order, sourceIndex)
	}

	for _, sourceIndex := range entryPoints {
		visit(sourceIndex)
	}

	// Dynamically imported modules come after everything that is evaluated
	// eagerly
	for i := 0; i < len(order); i++ {
		module := &g.Modules[order[i]]
		for j, record := range module.AST.ImportRecords {
			if record.Kind != ast.ImportDynamic {
				continue
			}
			if to, ok := module.ResolvedIndex(uint32(j)); ok {
				visit(to)
			}
		}
	}
	return order
}
