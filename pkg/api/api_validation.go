package api

import (
	"fmt"
	"strings"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/fs"
	"github.com/jspipe/jspipe/internal/js_ast"
	"github.com/jspipe/jspipe/internal/js_lexer"
	"github.com/jspipe/jspipe/internal/js_parser"
	"github.com/jspipe/jspipe/internal/logger"
)

// Validation errors have no ID of their own. They fail with
// "ErrInvalidOptions".
func addOptionError(log logger.Log, text string) {
	log.AddErrorWithID(logger.MsgID_None, nil, logger.Range{}, text)
}

func validateTarget(value Target) config.LanguageTarget {
	switch value {
	case ESNext:
		return config.ESNext
	case ES5:
		return config.ES5
	case ES2015:
		return config.ES2015
	case ES2016:
		return config.ES2016
	case ES2017:
		return config.ES2017
	case ES2018:
		return config.ES2018
	case ES2019:
		return config.ES2019
	case ES2020:
		return config.ES2020
	case ES2021:
		return config.ES2021
	default:
		panic("Invalid target")
	}
}

func validateFormat(value Format) config.Format {
	switch value {
	case FormatDefault:
		return config.FormatPreserve
	case FormatIIFE:
		return config.FormatIIFE
	case FormatCommonJS:
		return config.FormatCommonJS
	case FormatESModule:
		return config.FormatESModule
	default:
		panic("Invalid format")
	}
}

// ParseTarget maps a target name such as "es2017" or "esnext" to a Target
func ParseTarget(text string) (Target, error) {
	target, err := config.ParseTarget(text)
	if err != nil {
		return ESNext, err
	}
	for value := ESNext; value <= ES2021; value++ {
		if validateTarget(value) == target {
			return value, nil
		}
	}
	return ESNext, nil
}

// ParseFormat maps "iife", "cjs" or "esm" to a Format
func ParseFormat(text string) (Format, error) {
	format, err := config.ParseFormat(text)
	if err != nil {
		return FormatDefault, err
	}
	for value := FormatIIFE; value <= FormatESModule; value++ {
		if validateFormat(value) == format {
			return value, nil
		}
	}
	return FormatDefault, nil
}

func validateSourceMap(value SourceMap) config.SourceMap {
	switch value {
	case SourceMapNone:
		return config.SourceMapNone
	case SourceMapLinked:
		return config.SourceMapLinkedWithComment
	case SourceMapInline:
		return config.SourceMapInline
	case SourceMapExternal:
		return config.SourceMapExternalWithoutComment
	default:
		panic("Invalid source map")
	}
}

// A single file has no output path for a linked source map to point at
func validateSingleFileSourceMap(log logger.Log, sourceMap config.SourceMap, sourcefile string) {
	if sourceMap == config.SourceMapLinkedWithComment {
		addOptionError(log, "Cannot use linked source maps without an output file")
	}
	if sourceMap != config.SourceMapNone && sourcefile == "" {
		addOptionError(log, "Must use \"sourcefile\" with \"sourcemap\" to set the original file name")
	}
}

func validateExternals(log logger.Log, paths []string) map[string]bool {
	result := make(map[string]bool)
	for _, path := range paths {
		if path == "" || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
			addOptionError(log, fmt.Sprintf("Invalid module name: %q", path))
			continue
		}
		result[path] = true
	}
	return result
}

func validateResolveExtensions(log logger.Log, order []string) []string {
	if order == nil {
		return nil
	}
	for _, ext := range order {
		if len(ext) < 2 || ext[0] != '.' {
			addOptionError(log, fmt.Sprintf("Invalid file extension: %q", ext))
		}
	}
	return order
}

func validateDefines(log logger.Log, defines map[string]string) *config.ProcessedDefines {
	if len(defines) == 0 {
		return nil
	}

	rawDefines := make(map[string]config.DefineData)

	for key, value := range defines {
		// The key must be a dot-separated identifier list
		isValidKey := true
		for _, part := range strings.Split(key, ".") {
			if !js_lexer.IsIdentifier(part) {
				isValidKey = false
				break
			}
		}
		if !isValidKey {
			addOptionError(log, fmt.Sprintf("Invalid define key: %q", key))
			continue
		}

		// Allow substituting for an identifier
		if js_lexer.IsIdentifier(value) {
			if _, ok := js_lexer.Keywords[value]; !ok {
				name := value // The closure must close over a variable inside the loop
				rawDefines[key] = config.DefineData{
					DefineFunc: func(loc logger.Loc, findSymbol config.FindSymbol) js_ast.E {
						return &js_ast.EIdentifier{Ref: findSymbol(loc, name)}
					},
				}
				continue
			}
		}

		// Parse the value as JSON
		valueLog := logger.NewDeferLog()
		source := logger.Source{Contents: value}
		expr, ok := js_parser.ParseJSON(valueLog, source, js_parser.ParseJSONOptions{})
		valueLog.Done()
		if !ok {
			addOptionError(log, fmt.Sprintf("Invalid define value: %q", value))
			continue
		}

		// Only allow atoms for now
		var fn config.DefineFunc
		switch e := expr.Data.(type) {
		case *js_ast.ENull:
			fn = func(logger.Loc, config.FindSymbol) js_ast.E { return &js_ast.ENull{} }
		case *js_ast.EBoolean:
			fn = func(logger.Loc, config.FindSymbol) js_ast.E { return &js_ast.EBoolean{Value: e.Value} }
		case *js_ast.EString:
			fn = func(logger.Loc, config.FindSymbol) js_ast.E { return &js_ast.EString{Value: e.Value} }
		case *js_ast.ENumber:
			fn = func(logger.Loc, config.FindSymbol) js_ast.E { return &js_ast.ENumber{Value: e.Value} }
		default:
			addOptionError(log, fmt.Sprintf("Invalid define value: %q", value))
			continue
		}

		rawDefines[key] = config.DefineData{DefineFunc: fn}
	}

	// Processing defines is expensive. Process them once here so the same object
	// can be shared between all the files of a bundle.
	processed := config.ProcessDefines(rawDefines)
	return &processed
}

func validatePath(log logger.Log, fs fs.FS, relPath string) string {
	if relPath == "" {
		return ""
	}
	absPath, ok := fs.Abs(relPath)
	if !ok {
		addOptionError(log, fmt.Sprintf("Invalid path: %s", relPath))
	}
	return absPath
}

func validateMaxRenameAttempts(log logger.Log, value int) int {
	if value < 0 {
		addOptionError(log, fmt.Sprintf("Invalid maximum number of rename attempts: %d", value))
	}
	return value
}
