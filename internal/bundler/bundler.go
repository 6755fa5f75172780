package bundler

// Bundling happens in two steps. ScanBundle loads every module reachable from
// the entry points and transforms each one for the target on its own. Compile
// then links the transformed modules into chunks and prints them. Symbols are
// only merged across modules by the linker, so the per-module transforms can
// run in parallel without sharing anything.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/graph"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/resolver"
	"github.com/jspipe/jspipe/internal/runtime"
	"github.com/jspipe/jspipe/internal/transform"
	"golang.org/x/sync/errgroup"
)

// The details are in the log
var ErrBundleFailed = errors.New("could not link the bundle")

// A worker goroutine panicked. The stack trace is in the log.
var ErrInternal = errors.New("internal error")

func recoverInternalError(log logger.Log, err *error, task string) {
	if r := recover(); r != nil {
		log.AddErrorWithID(logger.MsgID_InternalError, nil, logger.Range{},
			fmt.Sprintf("panic: %v (while %s)\n%s", r, task, helpers.PrettyPrintedStack()))
		*err = ErrInternal
	}
}

type Bundle struct {
	graph   *graph.Graph
	options config.Options
}

func ScanBundle(
	ctx context.Context,
	log logger.Log,
	fs fs.FS,
	entryPaths []string,
	options config.Options,
	timer *helpers.Timer,
) (*Bundle, error) {
	// Bundled files are always ES modules
	options.IsModule = true
	options.IsBundling = true
	if options.OutputFormat == config.FormatPreserve {
		options.OutputFormat = config.FormatESModule
	}

	timer.Begin("Scan phase")
	g, err := graph.Build(ctx, log, graph.BuildArgs{
		FS:         fs,
		Resolver:   resolver.NewResolver(fs, log, options),
		EntryPaths: entryPaths,
		Options:    options,
		Timer:      timer,
	})
	timer.End("Scan phase")
	if err != nil {
		return nil, err
	}

	timer.Begin("Transform phase")
	defer timer.End("Transform phase")

	group, groupCtx := errgroup.WithContext(ctx)
	for i := range g.Modules {
		module := &g.Modules[i]
		group.Go(func() (err error) {
			defer recoverInternalError(log, &err, "transforming "+module.Source.PrettyPath)
			tree, err := transform.Run(groupCtx, log, module.Source, module.AST, options)
			if err != nil {
				return fmt.Errorf("%s: %w", module.Source.PrettyPath, err)
			}
			module.AST = tree
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return &Bundle{graph: g, options: options}, nil
}

type OutputFile struct {
	// "entry" for the chunk of "src/entry.js" and "common" for the chunk of
	// the modules that several entry points share
	Name string

	// The file name other chunks import this one by
	Path string

	Contents []byte

	// Only set when the source map goes into its own file
	SourceMap []byte
}

func (b *Bundle) Compile(ctx context.Context, log logger.Log, timer *helpers.Timer) ([]OutputFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer.Begin("Compile phase")
	defer timer.End("Compile phase")

	runtimeModule := graph.Module{
		Source: runtime.Source(uint32(len(b.graph.Modules))),
		Loader: graph.LoaderJS,
	}
	tree, ok := js_parser.Parse(log, runtimeModule.Source, config.Options{IsModule: true})
	if !ok {
		return nil, errors.New("Internal error: the runtime could not be parsed")
	}
	runtimeModule.AST = tree

	c := newLinkerContext(log, b.options, b.graph, &runtimeModule)

	timer.Begin("Link")
	ok = c.link()
	timer.End("Link")
	if !ok {
		return nil, ErrBundleFailed
	}

	chunks, ok := c.computeChunks()
	if !ok {
		return nil, ErrBundleFailed
	}

	timer.Begin("Generate chunks")
	defer timer.End("Generate chunks")

	results := make([]OutputFile, len(chunks))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, ch := range chunks {
		i, ch := i, ch
		group.Go(func() (err error) {
			defer recoverInternalError(log, &err, "printing chunk "+ch.name)
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := c.generateChunk(ch)
			if err != nil {
				return err
			}
			results[i] = b.finishOutputFile(ch, result)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Bundle) finishOutputFile(ch *chunk, result chunkResult) OutputFile {
	file := OutputFile{
		Name:     ch.name,
		Path:     ch.path(),
		Contents: result.js,
	}

	switch b.options.SourceMap {
	case config.SourceMapInline:
		file.Contents = append(file.Contents, "//# sourceMappingURL=data:application/json;base64,"...)
		file.Contents = append(file.Contents, base64.StdEncoding.EncodeToString(result.sourceMap)...)
		file.Contents = append(file.Contents, '\n')

	case config.SourceMapLinkedWithComment:
		file.Contents = append(file.Contents, "//# sourceMappingURL="+file.Path+".map\n"...)
		file.SourceMap = result.sourceMap

	case config.SourceMapExternalWithoutComment:
		file.SourceMap = result.sourceMap
	}

	return file
}
