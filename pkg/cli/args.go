package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jspipe/jspipe/internal/exitcode"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/pkg/api"
)

type command uint8

const (
	commandParse command = iota
	commandTransform
	commandPrint
	commandMinify
	commandBundle
	commandRepl
)

var commandNames = map[string]command{
	"parse":     commandParse,
	"transform": commandTransform,
	"print":     commandPrint,
	"minify":    commandMinify,
	"bundle":    commandBundle,
	"repl":      commandRepl,
}

// Exactly one of the option pointers is set, matching "command"
type parsedArgs struct {
	command command

	// Positional arguments. Single-file commands read stdin when this is empty.
	inputs  []string
	outfile string

	isModule bool
	stderr   logger.StderrOptions

	parse     *api.ParseOptions
	transform *api.TransformOptions
	print     *api.PrintOptions
	minify    *api.MinifyOptions
	bundle    *api.BundleOptions
}

func usageError(format string, args ...interface{}) error {
	return exitcode.Set(fmt.Errorf(format, args...), exitcode.Usage)
}

func parseArgs(osArgs []string) (*parsedArgs, error) {
	if len(osArgs) == 0 {
		return nil, usageError("Missing command (valid: parse, transform, print, minify, bundle, repl, version)")
	}
	cmd, ok := commandNames[osArgs[0]]
	if !ok {
		return nil, usageError("Invalid command: %q (valid: parse, transform, print, minify, bundle, repl, version)", osArgs[0])
	}

	args := &parsedArgs{
		command: cmd,
		stderr: logger.StderrOptions{
			IncludeSource: true,
			ErrorLimit:    10,
		},
	}
	switch cmd {
	case commandParse:
		args.parse = &api.ParseOptions{}
	case commandTransform, commandRepl:
		args.transform = &api.TransformOptions{Defines: make(map[string]string)}
	case commandPrint:
		args.print = &api.PrintOptions{}
	case commandMinify:
		args.minify = &api.MinifyOptions{}
	case commandBundle:
		args.bundle = &api.BundleOptions{Defines: make(map[string]string)}
	}

	if err := parseOptionsImpl(osArgs[1:], args); err != nil {
		return nil, err
	}

	switch {
	case cmd == commandBundle && len(args.inputs) == 0:
		return nil, usageError("Must provide at least one entry point")
	case cmd != commandBundle && len(args.inputs) > 1:
		return nil, usageError("Expected at most one input file but got %d", len(args.inputs))
	case cmd == commandRepl && len(args.inputs) > 0:
		return nil, usageError("The repl does not take input files")
	}
	return args, nil
}

func parseOptionsImpl(osArgs []string, args *parsedArgs) error {
	parseOpts := args.parse
	transformOpts := args.transform
	printOpts := args.print
	minifyOpts := args.minify
	bundleOpts := args.bundle
	hasBareSourceMapFlag := false

	for _, arg := range osArgs {
		switch {
		case arg == "--module" && (parseOpts != nil || transformOpts != nil || minifyOpts != nil):
			args.isModule = true

		case arg == "--recover" && parseOpts != nil:
			parseOpts.Recover = true

		case arg == "--ast" && transformOpts != nil && args.command == commandTransform:
			transformOpts.InputIsAST = true

		case arg == "--minify" && (transformOpts != nil || bundleOpts != nil):
			if bundleOpts != nil {
				bundleOpts.MinifySyntax = true
				bundleOpts.MinifyWhitespace = true
				bundleOpts.MinifyIdentifiers = true
			} else {
				transformOpts.MinifySyntax = true
				transformOpts.MinifyWhitespace = true
				transformOpts.MinifyIdentifiers = true
			}

		case arg == "--minify-syntax" && (transformOpts != nil || bundleOpts != nil):
			if bundleOpts != nil {
				bundleOpts.MinifySyntax = true
			} else {
				transformOpts.MinifySyntax = true
			}

		case arg == "--minify-whitespace" && (transformOpts != nil || printOpts != nil || bundleOpts != nil):
			switch {
			case bundleOpts != nil:
				bundleOpts.MinifyWhitespace = true
			case printOpts != nil:
				printOpts.MinifyWhitespace = true
			default:
				transformOpts.MinifyWhitespace = true
			}

		case arg == "--minify-identifiers" && (transformOpts != nil || bundleOpts != nil):
			if bundleOpts != nil {
				bundleOpts.MinifyIdentifiers = true
			} else {
				transformOpts.MinifyIdentifiers = true
			}

		case arg == "--minify-top-level" && (transformOpts != nil || bundleOpts != nil):
			if bundleOpts != nil {
				bundleOpts.MinifyTopLevel = true
			} else {
				transformOpts.MinifyTopLevel = true
			}

		case arg == "--top-level" && minifyOpts != nil:
			minifyOpts.TopLevel = true

		case arg == "--keep-whitespace" && minifyOpts != nil:
			minifyOpts.KeepWhitespace = true

		case arg == "--sourcemap" && parseOpts == nil:
			// Single-file output goes to one place, so the map is inlined there
			if bundleOpts != nil {
				bundleOpts.Sourcemap = api.SourceMapLinked
			} else {
				setSourceMap(args, api.SourceMapInline)
			}
			hasBareSourceMapFlag = true

		case arg == "--sourcemap=external" && parseOpts == nil:
			setSourceMap(args, api.SourceMapExternal)
			hasBareSourceMapFlag = false

		case arg == "--sourcemap=inline" && parseOpts == nil:
			setSourceMap(args, api.SourceMapInline)
			hasBareSourceMapFlag = false

		case strings.HasPrefix(arg, "--sourcefile=") && bundleOpts == nil:
			value := arg[len("--sourcefile="):]
			switch {
			case parseOpts != nil:
				parseOpts.Sourcefile = value
			case transformOpts != nil:
				transformOpts.Sourcefile = value
			case printOpts != nil:
				printOpts.Sourcefile = value
			default:
				minifyOpts.Sourcefile = value
			}

		case strings.HasPrefix(arg, "--input-sourcemap=") && transformOpts != nil && args.command == commandTransform:
			path := arg[len("--input-sourcemap="):]
			contents, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("Could not read input source map %q: %w", path, err)
			}
			transformOpts.InputSourceMap = string(contents)

		case strings.HasPrefix(arg, "--source-text=") && printOpts != nil:
			path := arg[len("--source-text="):]
			contents, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("Could not read source text %q: %w", path, err)
			}
			printOpts.SourceText = string(contents)

		case strings.HasPrefix(arg, "--outfile=") && args.command != commandBundle && args.command != commandRepl:
			args.outfile = arg[len("--outfile="):]

		case strings.HasPrefix(arg, "--outdir=") && bundleOpts != nil:
			bundleOpts.Outdir = arg[len("--outdir="):]

		case strings.HasPrefix(arg, "--public-dir=") && bundleOpts != nil:
			bundleOpts.PublicDir = arg[len("--public-dir="):]

		case strings.HasPrefix(arg, "--resolve-extensions=") && bundleOpts != nil:
			bundleOpts.ResolveExtensions = strings.Split(arg[len("--resolve-extensions="):], ",")

		case strings.HasPrefix(arg, "--external:") && bundleOpts != nil:
			bundleOpts.Externals = append(bundleOpts.Externals, arg[len("--external:"):])

		case strings.HasPrefix(arg, "--max-rename-attempts=") && bundleOpts != nil:
			value := arg[len("--max-rename-attempts="):]
			attempts, err := strconv.Atoi(value)
			if err != nil || attempts < 0 {
				return usageError("Invalid rename attempt limit: %q", value)
			}
			bundleOpts.MaxRenameAttempts = attempts

		case strings.HasPrefix(arg, "--define:") && (transformOpts != nil || bundleOpts != nil):
			value := arg[len("--define:"):]
			equals := strings.IndexByte(value, '=')
			if equals == -1 {
				return usageError("Missing \"=\": %q", value)
			}
			if bundleOpts != nil {
				bundleOpts.Defines[value[:equals]] = value[equals+1:]
			} else {
				transformOpts.Defines[value[:equals]] = value[equals+1:]
			}

		case strings.HasPrefix(arg, "--target=") && parseOpts == nil:
			value := arg[len("--target="):]
			target, err := api.ParseTarget(value)
			if err != nil {
				return exitcode.Set(err, exitcode.Usage)
			}
			switch {
			case transformOpts != nil:
				transformOpts.Target = target
			case printOpts != nil:
				printOpts.Target = target
			case minifyOpts != nil:
				minifyOpts.Target = target
			default:
				bundleOpts.Target = target
			}

		case strings.HasPrefix(arg, "--format=") && bundleOpts != nil:
			format, err := api.ParseFormat(arg[len("--format="):])
			if err != nil {
				return exitcode.Set(err, exitcode.Usage)
			}
			bundleOpts.Format = format

		// Make sure this stays in sync with "PrintErrorToStderr"
		case strings.HasPrefix(arg, "--color="):
			value := arg[len("--color="):]
			switch value {
			case "false":
				args.stderr.Color = logger.ColorNever
			case "true":
				args.stderr.Color = logger.ColorAlways
			default:
				return usageError("Invalid color: %q (valid: false, true)", value)
			}

		case strings.HasPrefix(arg, "--log-level="):
			value := arg[len("--log-level="):]
			switch value {
			case "info":
				args.stderr.LogLevel = logger.LevelInfo
			case "warning":
				args.stderr.LogLevel = logger.LevelWarning
			case "error":
				args.stderr.LogLevel = logger.LevelError
			case "silent":
				args.stderr.LogLevel = logger.LevelSilent
			default:
				return usageError("Invalid log level: %q (valid: info, warning, error, silent)", value)
			}

		case strings.HasPrefix(arg, "--error-limit="):
			value := arg[len("--error-limit="):]
			limit, err := strconv.Atoi(value)
			if err != nil || limit < 0 {
				return usageError("Invalid error limit: %q", value)
			}
			args.stderr.ErrorLimit = limit

		case !strings.HasPrefix(arg, "-") || arg == "-":
			args.inputs = append(args.inputs, arg)

		default:
			return usageError("Invalid %s flag: %q", commandString(args.command), arg)
		}
	}

	// A bundle written to stdout can only carry an inline map
	if bundleOpts != nil && hasBareSourceMapFlag && bundleOpts.Outdir == "" {
		bundleOpts.Sourcemap = api.SourceMapInline
	}

	if transformOpts != nil && args.command == commandRepl && transformOpts.Sourcemap != api.SourceMapNone {
		return usageError("The repl does not emit source maps")
	}

	return nil
}

func setSourceMap(args *parsedArgs, mode api.SourceMap) {
	switch {
	case args.transform != nil:
		args.transform.Sourcemap = mode
	case args.print != nil:
		args.print.Sourcemap = mode
	case args.minify != nil:
		args.minify.Sourcemap = mode
	case args.bundle != nil:
		args.bundle.Sourcemap = mode
	}
}

func commandString(cmd command) string {
	for name, value := range commandNames {
		if value == cmd {
			return name
		}
	}
	return "unknown"
}
