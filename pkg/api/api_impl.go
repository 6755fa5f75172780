package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jspipe/jspipe/internal/ast"
	"github.com/jspipe/jspipe/internal/bundler"
	"github.com/jspipe/jspipe/internal/compat"
	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/graph"
	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/js_printer"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/renamer"
	"github.com/jspipe/jspipe/internal/sourcemap"
	"github.com/jspipe/jspipe/internal/transform"
	"github.com/otiai10/copy"
)

func convertMessage(msg logger.Msg) Message {
	var location *Location
	if msg.Location != nil {
		location = &Location{
			File:     msg.Location.File,
			Line:     msg.Location.Line,
			Column:   msg.Location.Column,
			Length:   msg.Location.Length,
			LineText: msg.Location.LineText,
		}
	}
	severity := SeverityError
	if msg.Kind == logger.Warning {
		severity = SeverityWarning
	}
	return Message{
		ID:       logger.MsgIDToString(msg.ID),
		Severity: severity,
		Text:     msg.Text,
		Location: location,
	}
}

func messagesOfKind(kind logger.MsgKind, msgs []logger.Msg) []Message {
	var filtered []Message
	for _, msg := range msgs {
		if msg.Kind == kind {
			filtered = append(filtered, convertMessage(msg))
		}
	}
	return filtered
}

func kindForMsgID(id logger.MsgID) error {
	switch id {
	case logger.MsgID_SyntaxError:
		return ErrSyntax
	case logger.MsgID_UnsupportedSyntax:
		return ErrUnsupportedSyntax
	case logger.MsgID_ResolutionError:
		return ErrResolution
	case logger.MsgID_BundleError:
		return ErrBundle
	case logger.MsgID_InternalError:
		return ErrInternal
	default:
		return ErrInvalidOptions
	}
}

// Turns the messages of a failed operation into an error. The first error
// message decides the kind. Cancellation wins over everything else because
// the messages of a cancelled operation are incomplete.
func failure(msgs []logger.Msg, err error) error {
	notes := make([]Message, len(msgs))
	for i, msg := range msgs {
		notes[i] = convertMessage(msg)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrCancelled, Message: "The operation was cancelled", Notes: notes, cause: err}
	}

	for i, msg := range msgs {
		if msg.Kind == logger.Error {
			return &Error{
				Kind:     kindForMsgID(msg.ID),
				Message:  msg.Text,
				Location: notes[i].Location,
				Notes:    notes,
				cause:    err,
			}
		}
	}

	kind := ErrInternal
	switch {
	case errors.Is(err, transform.ErrUnsupportedSyntax):
		kind = ErrUnsupportedSyntax
	case errors.Is(err, graph.ErrScanFailed):
		kind = ErrResolution
	case errors.Is(err, bundler.ErrBundleFailed):
		kind = ErrBundle
	}
	message := "Unknown error"
	if err != nil {
		message = err.Error()
	}
	return &Error{Kind: kind, Message: message, Notes: notes, cause: err}
}

func catchPanics(err *error) {
	if r := recover(); r != nil {
		*err = &Error{
			Kind:    ErrInternal,
			Message: fmt.Sprintf("panic: %v\n%s", r, helpers.PrettyPrintedStack()),
		}
	}
}

func sourceFor(name string, contents string) logger.Source {
	if name == "" {
		name = "<stdin>"
	}
	return logger.Source{
		KeyPath:        logger.Path{Text: name},
		PrettyPath:     name,
		IdentifierName: ast.GenerateNonUniqueNameFromPath(name),
		Contents:       contents,
	}
}

func readSource(path string) (logger.Source, error) {
	realFS := fs.RealFS()
	log := logger.NewDeferLog()
	absPath := validatePath(log, realFS, path)
	if log.HasErrors() {
		return logger.Source{}, failure(log.Done(), nil)
	}
	prettyPath := fs.PrettyPath(realFS, absPath)
	contents, err := realFS.ReadFile(absPath)
	if err != nil {
		log.AddErrorWithID(logger.MsgID_ResolutionError, nil, logger.Range{},
			fmt.Sprintf("Could not read from file %q: %s", prettyPath, err.Error()))
		return logger.Source{}, failure(log.Done(), nil)
	}
	source := sourceFor(prettyPath, contents)
	source.KeyPath = logger.Path{Text: absPath}
	return source, nil
}

////////////////////////////////////////////////////////////////////////////////
// Parse API

func parseImpl(ctx context.Context, input string, options ParseOptions) (result string, err error) {
	defer catchPanics(&err)
	return parseSource(ctx, sourceFor(options.Sourcefile, input), options)
}

func parseFileImpl(ctx context.Context, path string, options ParseOptions) (result string, err error) {
	defer catchPanics(&err)
	source, err := readSource(path)
	if err != nil {
		return "", err
	}
	return parseSource(ctx, source, options)
}

func parseSource(ctx context.Context, source logger.Source, options ParseOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", failure(nil, err)
	}

	timer := newTimer()
	defer emitTrace(timer, "parse")

	log := logger.NewDeferLog()
	timer.Begin("Parse")
	tree, ok := js_parser.Parse(log, source, config.Options{
		IsModule: options.IsModule,
		Recover:  options.Recover,
	})
	timer.End("Parse")
	if !ok {
		return "", failure(log.Done(), nil)
	}

	timer.Begin("Serialize")
	json := js_ast.SerializeAST(&tree)
	timer.End("Serialize")

	// A recovered tree comes back together with what was wrong with it
	if log.HasErrors() {
		return json, failure(log.Done(), nil)
	}
	return json, nil
}

////////////////////////////////////////////////////////////////////////////////
// Transform API

func transformImpl(ctx context.Context, input string, isModule bool, options TransformOptions) (result Output, err error) {
	defer catchPanics(&err)
	return transformSource(ctx, sourceFor(options.Sourcefile, input), isModule, options)
}

func transformFileImpl(ctx context.Context, path string, isModule bool, options TransformOptions) (result Output, err error) {
	defer catchPanics(&err)
	source, err := readSource(path)
	if err != nil {
		return Output{}, err
	}
	if options.Sourcefile == "" {
		options.Sourcefile = source.PrettyPath
	}
	return transformSource(ctx, source, isModule, options)
}

func transformSource(ctx context.Context, source logger.Source, isModule bool, options TransformOptions) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, failure(nil, err)
	}

	timer := newTimer()
	defer emitTrace(timer, "transform")

	// Convert and validate the options
	log := logger.NewDeferLog()
	jsOptions := config.Options{
		IsModule:          isModule,
		Target:            validateTarget(options.Target),
		MangleSyntax:      options.MinifySyntax,
		RemoveWhitespace:  options.MinifyWhitespace,
		MinifyIdentifiers: options.MinifyIdentifiers,
		MinifyTopLevel:    options.MinifyTopLevel,
		Defines:           validateDefines(log, options.Defines),
		SourceMap:         validateSourceMap(options.Sourcemap),
		SourceFile:        options.Sourcefile,
	}
	validateSingleFileSourceMap(log, jsOptions.SourceMap, options.Sourcefile)
	if options.InputIsAST && jsOptions.SourceMap != config.SourceMapNone {
		addOptionError(log, "Cannot generate a source map for a serialized tree")
	}
	inputSourceMap := parseInputSourceMap(log, source, options.InputSourceMap)

	// Stop now if there were errors
	if log.HasErrors() {
		return Output{}, failure(log.Done(), nil)
	}

	var tree js_ast.AST
	var ok bool
	timer.Begin("Parse")
	if options.InputIsAST {
		// The serialized tree is the input. The original text is unknown.
		jsonSource := source
		source = sourceFor(options.Sourcefile, "")
		tree, ok = js_parser.ParseSerializedAST(log, jsonSource, source, jsOptions)
		jsOptions.IsModule = tree.IsModule
	} else {
		tree, ok = js_parser.Parse(log, source, jsOptions)
	}
	timer.End("Parse")
	if !ok {
		return Output{}, failure(log.Done(), nil)
	}

	return transformAndPrint(ctx, log, timer, source, tree, jsOptions, inputSourceMap)
}

// A broken input source map is only a warning
func parseInputSourceMap(log logger.Log, source logger.Source, contents string) *sourcemap.SourceMap {
	if contents == "" {
		return nil
	}
	mapLog := logger.NewDeferLog()
	result := js_parser.ParseSourceMap(mapLog, sourceFor(source.PrettyPath+".map", contents))
	for _, msg := range mapLog.Done() {
		msg.Kind = logger.Warning
		log.AddMsg(msg)
	}
	return result
}

func transformAndPrint(
	ctx context.Context,
	log logger.Log,
	timer *helpers.Timer,
	source logger.Source,
	tree js_ast.AST,
	options config.Options,
	inputSourceMap *sourcemap.SourceMap,
) (Output, error) {
	timer.Begin("Transform")
	tree, err := transform.Run(ctx, log, source, tree, options)
	timer.End("Transform")
	if err != nil || log.HasErrors() {
		return Output{}, failure(log.Done(), err)
	}

	return printTree(log, timer, source, tree, options, inputSourceMap), nil
}

func printTree(
	log logger.Log,
	timer *helpers.Timer,
	source logger.Source,
	tree js_ast.AST,
	options config.Options,
	inputSourceMap *sourcemap.SourceMap,
) Output {
	timer.Begin("Print")
	defer timer.End("Print")

	symbols := js_ast.NewSymbolMap(1)
	symbols.Outer[0] = tree.Symbols

	var r renamer.Renamer
	if options.MinifyIdentifiers {
		r = renamer.MinifyFile(&tree, symbols, 0, options.MinifyTopLevel)
	} else {
		r = renamer.NewNoOpRenamer(symbols)
	}

	printOptions := js_printer.Options{
		UnsupportedFeatures: compat.UnsupportedJSFeatures(options.Target),
		MinifyWhitespace:    options.RemoveWhitespace,
		MinifySyntax:        options.MangleSyntax,
	}
	if options.SourceMap != config.SourceMapNone {
		printOptions.AddSourceMappings = true
		printOptions.InputSourceMap = inputSourceMap
		printOptions.SourceContents = source.Contents
		printOptions.LineOffsetTables = sourcemap.GenerateLineOffsetTables(source.Contents, tree.ApproximateLineCount)
	}
	result := js_printer.Print(tree, symbols, r, printOptions)

	output := Output{Code: string(result.JS)}
	if options.SourceMap != config.SourceMapNone {
		sources := []sourcemap.SourceFile{{Path: source.PrettyPath, Contents: source.Contents}}

		// Mappings point through the input source map to its sources
		if inputSourceMap != nil {
			sources = make([]sourcemap.SourceFile, len(inputSourceMap.Sources))
			for i, path := range inputSourceMap.Sources {
				sources[i].Path = path
				if i < len(inputSourceMap.SourcesContent) {
					sources[i].Contents = inputSourceMap.SourcesContent[i]
				}
			}
		}

		sourceMap := sourcemap.Join(sources, []sourcemap.Piece{{Chunk: result.SourceMapChunk}})
		switch options.SourceMap {
		case config.SourceMapInline:
			output.Code += "//# sourceMappingURL=data:application/json;base64," +
				base64.StdEncoding.EncodeToString(sourceMap) + "\n"
		case config.SourceMapExternalWithoutComment:
			output.Map = string(sourceMap)
		}
	}

	output.Warnings = messagesOfKind(logger.Warning, log.Done())
	return output
}

////////////////////////////////////////////////////////////////////////////////
// Print API

func printImpl(ctx context.Context, programJSON string, options PrintOptions) (result Output, err error) {
	defer catchPanics(&err)
	if err := ctx.Err(); err != nil {
		return Output{}, failure(nil, err)
	}

	timer := newTimer()
	defer emitTrace(timer, "print")

	log := logger.NewDeferLog()
	jsOptions := config.Options{
		Target:           validateTarget(options.Target),
		RemoveWhitespace: options.MinifyWhitespace,
		SourceMap:        validateSourceMap(options.Sourcemap),
		SourceFile:       options.Sourcefile,
	}
	validateSingleFileSourceMap(log, jsOptions.SourceMap, options.Sourcefile)
	if jsOptions.SourceMap != config.SourceMapNone && options.SourceText == "" {
		addOptionError(log, "Must use \"sourcetext\" with \"sourcemap\" to map the tree back to its source")
	}
	if log.HasErrors() {
		return Output{}, failure(log.Done(), nil)
	}

	timer.Begin("Decode")
	source := sourceFor(options.Sourcefile, options.SourceText)
	tree, ok := js_parser.ParseSerializedAST(log, sourceFor(options.Sourcefile, programJSON), source, jsOptions)
	timer.End("Decode")
	if !ok {
		return Output{}, failure(log.Done(), nil)
	}

	return printTree(log, timer, source, tree, jsOptions, nil), nil
}

////////////////////////////////////////////////////////////////////////////////
// Minify API

func minifyImpl(ctx context.Context, input string, options MinifyOptions) (result Output, err error) {
	defer catchPanics(&err)
	if err := ctx.Err(); err != nil {
		return Output{}, failure(nil, err)
	}

	timer := newTimer()
	defer emitTrace(timer, "minify")

	log := logger.NewDeferLog()
	jsOptions := config.Options{
		IsModule:          options.IsModule,
		Target:            validateTarget(options.Target),
		MangleSyntax:      true,
		MinifyIdentifiers: true,
		RemoveWhitespace:  !options.KeepWhitespace,
		MinifyTopLevel:    options.TopLevel,
		SourceMap:         validateSourceMap(options.Sourcemap),
		SourceFile:        options.Sourcefile,
	}
	validateSingleFileSourceMap(log, jsOptions.SourceMap, options.Sourcefile)
	if log.HasErrors() {
		return Output{}, failure(log.Done(), nil)
	}

	source := sourceFor(options.Sourcefile, input)
	timer.Begin("Parse")
	tree, ok := js_parser.Parse(log, source, jsOptions)
	timer.End("Parse")
	if !ok {
		return Output{}, failure(log.Done(), nil)
	}

	return transformAndPrint(ctx, log, timer, source, tree, jsOptions, nil)
}

////////////////////////////////////////////////////////////////////////////////
// Bundle API

func bundleImpl(ctx context.Context, entries []EntryConfig, options BundleOptions) (result map[string]Output, err error) {
	defer catchPanics(&err)
	if err := ctx.Err(); err != nil {
		return nil, failure(nil, err)
	}

	timer := newTimer()
	defer emitTrace(timer, "bundle")

	// Convert and validate the options
	realFS := fs.RealFS()
	log := logger.NewDeferLog()
	jsOptions := config.Options{
		IsModule:          true,
		IsBundling:        true,
		Target:            validateTarget(options.Target),
		OutputFormat:      validateFormat(options.Format),
		MangleSyntax:      options.MinifySyntax,
		RemoveWhitespace:  options.MinifyWhitespace,
		MinifyIdentifiers: options.MinifyIdentifiers,
		MinifyTopLevel:    options.MinifyTopLevel,
		Defines:           validateDefines(log, options.Defines),
		ExternalModules:   validateExternals(log, options.Externals),
		ExtensionOrder:    validateResolveExtensions(log, options.ResolveExtensions),
		SourceMap:         validateSourceMap(options.Sourcemap),
		MaxRenameAttempts: validateMaxRenameAttempts(log, options.MaxRenameAttempts),
	}
	if len(entries) == 0 {
		addOptionError(log, "Must provide at least one entry point")
	}
	entryPaths := make([]string, len(entries))
	for i, entry := range entries {
		entryPaths[i] = validatePath(log, realFS, entry.Path)
	}
	outdir := validatePath(log, realFS, options.Outdir)
	publicDir := validatePath(log, realFS, options.PublicDir)
	if publicDir != "" && outdir == "" {
		addOptionError(log, "Cannot use \"publicdir\" without \"outdir\"")
	}

	// Stop now if there were errors
	if log.HasErrors() {
		return nil, failure(log.Done(), nil)
	}

	bundle, err := bundler.ScanBundle(ctx, log, realFS, entryPaths, jsOptions, timer)
	if err != nil {
		return nil, failure(log.Done(), err)
	}
	files, err := bundle.Compile(ctx, log, timer)
	if err != nil {
		return nil, failure(log.Done(), err)
	}

	if outdir != "" {
		timer.Begin("Write output files")
		err := writeOutputFiles(outdir, publicDir, files)
		timer.End("Write output files")
		if err != nil {
			log.AddErrorWithID(logger.MsgID_BundleError, nil, logger.Range{}, err.Error())
			return nil, failure(log.Done(), nil)
		}
	}

	warnings := messagesOfKind(logger.Warning, log.Done())
	result = make(map[string]Output, len(files))
	for _, file := range files {
		result[file.Name] = Output{
			Code:     string(file.Contents),
			Map:      string(file.SourceMap),
			Warnings: warnings,
		}
	}
	return result, nil
}

// Static assets go in first so a chunk with the same name replaces the asset
func writeOutputFiles(outdir string, publicDir string, files []bundler.OutputFile) error {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return fmt.Errorf("Failed to create output directory: %w", err)
	}
	if publicDir != "" {
		if err := copy.Copy(publicDir, outdir); err != nil {
			return fmt.Errorf("Failed to copy %q to the output directory: %w", publicDir, err)
		}
	}
	for _, file := range files {
		path := filepath.Join(outdir, file.Path)
		if err := os.WriteFile(path, file.Contents, 0644); err != nil {
			return fmt.Errorf("Failed to write to output file: %w", err)
		}
		if file.SourceMap != nil {
			if err := os.WriteFile(path+".map", file.SourceMap, 0644); err != nil {
				return fmt.Errorf("Failed to write to output file: %w", err)
			}
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Environment

var tripleArch = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armv7",
	"riscv64": "riscv64gc",
	"ppc64le": "powerpc64le",
	"s390x":   "s390x",
	"wasm":    "wasm32",
}

var tripleOS = map[string]string{
	"linux":   "unknown-linux-gnu",
	"darwin":  "apple-darwin",
	"windows": "pc-windows-msvc",
	"freebsd": "unknown-freebsd",
	"android": "linux-android",
	"js":      "unknown-unknown",
	"wasip1":  "wasip1",
}

func targetTripleImpl() string {
	arch, ok := tripleArch[runtime.GOARCH]
	if !ok {
		arch = runtime.GOARCH
	}
	system, ok := tripleOS[runtime.GOOS]
	if !ok {
		system = "unknown-" + runtime.GOOS
	}
	return arch + "-" + system
}
