// Package cli implements the "jspipe" command line on top of the api package.
// Commands are "parse", "transform", "print", "minify", "bundle" and "repl".
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jspipe/jspipe/internal/exitcode"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/pkg/api"
	zlog "github.com/rs/zerolog/log"
)

// Run executes a command and returns the process exit code. Diagnostics go to
// stderr, results go to stdout unless an output path was given.
func Run(ctx context.Context, osArgs []string) int {
	return run(ctx, osArgs, os.Stdin, os.Stdout)
}

func run(ctx context.Context, osArgs []string, stdin io.Reader, stdout io.Writer) int {
	args, err := parseArgs(osArgs)
	if err != nil {
		logger.PrintErrorToStderr(osArgs, err.Error())
		return exitcode.Get(err)
	}

	start := time.Now()
	zlog.Debug().Str("command", commandString(args.command)).Strs("inputs", args.inputs).Msg("Starting")

	var warnings []api.Message
	switch args.command {
	case commandBundle:
		warnings, err = runBundle(ctx, args, stdout)
	case commandRepl:
		err = runRepl(ctx, args, stdout)
	default:
		warnings, err = runSingleFile(ctx, args, stdin, stdout)
	}
	reportToStderr(args.stderr, warnings, err)

	zlog.Debug().
		Str("command", commandString(args.command)).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Finished")
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, api.ErrInvalidOptions):
		return exitcode.Usage
	case errors.Is(err, api.ErrCancelled):
		return exitcode.Interrupted
	default:
		return exitcode.Get(err)
	}
}

// An empty path or "-" means stdin
func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" {
		bytes, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("Could not read from stdin: %w", err)
		}
		return string(bytes), nil
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("Could not read from file %q: %w", path, err)
	}
	return string(bytes), nil
}

func runSingleFile(ctx context.Context, args *parsedArgs, stdin io.Reader, stdout io.Writer) ([]api.Message, error) {
	if args.outfile == "" && sourceMapIsExternal(args) {
		return nil, usageError("Cannot use \"--sourcemap=external\" without \"--outfile\"")
	}

	path := ""
	if len(args.inputs) == 1 && args.inputs[0] != "-" {
		path = args.inputs[0]
	}

	var output api.Output
	var err error
	switch args.command {
	case commandParse:
		options := *args.parse
		options.IsModule = args.isModule
		if path != "" {
			output.Code, err = api.ParseFile(ctx, path, options)
		} else if contents, readErr := readInput(path, stdin); readErr != nil {
			return nil, readErr
		} else {
			output.Code, err = api.Parse(ctx, contents, options)
		}
		if output.Code != "" {
			output.Code += "\n"
		}

	case commandTransform:
		options := *args.transform
		if path != "" && !options.InputIsAST {
			output, err = api.TransformFile(ctx, path, args.isModule, options)
			break
		}
		contents, readErr := readInput(path, stdin)
		if readErr != nil {
			return nil, readErr
		}
		if options.Sourcefile == "" {
			options.Sourcefile = path
		}
		output, err = api.Transform(ctx, contents, args.isModule, options)

	case commandPrint:
		contents, readErr := readInput(path, stdin)
		if readErr != nil {
			return nil, readErr
		}
		output, err = api.Print(ctx, contents, *args.print)

	case commandMinify:
		contents, readErr := readInput(path, stdin)
		if readErr != nil {
			return nil, readErr
		}
		options := *args.minify
		options.IsModule = args.isModule
		if options.Sourcefile == "" {
			options.Sourcefile = path
		}
		output, err = api.Minify(ctx, contents, options)
	}

	// A recovered parse still prints the partial tree
	if err != nil && output.Code == "" {
		return nil, err
	}
	if writeErr := writeOutput(args.outfile, stdout, output); writeErr != nil {
		return nil, writeErr
	}
	return output.Warnings, err
}

func sourceMapIsExternal(args *parsedArgs) bool {
	switch {
	case args.transform != nil:
		return args.transform.Sourcemap == api.SourceMapExternal
	case args.print != nil:
		return args.print.Sourcemap == api.SourceMapExternal
	case args.minify != nil:
		return args.minify.Sourcemap == api.SourceMapExternal
	}
	return false
}

func writeOutput(outfile string, stdout io.Writer, output api.Output) error {
	if outfile == "" {
		if _, err := io.WriteString(stdout, output.Code); err != nil {
			return fmt.Errorf("Failed to write to stdout: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(outfile, []byte(output.Code), 0644); err != nil {
		return fmt.Errorf("Failed to write to output file: %w", err)
	}
	if output.Map != "" {
		if err := os.WriteFile(outfile+".map", []byte(output.Map), 0644); err != nil {
			return fmt.Errorf("Failed to write to output file: %w", err)
		}
	}
	return nil
}

func runBundle(ctx context.Context, args *parsedArgs, stdout io.Writer) ([]api.Message, error) {
	entries := make([]api.EntryConfig, len(args.inputs))
	for i, input := range args.inputs {
		entries[i] = api.EntryConfig{Path: input}
	}

	outputs, err := api.Bundle(ctx, entries, *args.bundle)
	if err != nil {
		return nil, err
	}

	// Every output carries the same warnings
	var warnings []api.Message
	for _, output := range outputs {
		warnings = output.Warnings
		break
	}

	if args.bundle.Outdir != "" {
		for name := range outputs {
			zlog.Debug().Str("chunk", name).Str("outdir", args.bundle.Outdir).Msg("Wrote chunk")
		}
		return warnings, nil
	}

	if len(outputs) != 1 {
		return warnings, usageError("Must use \"--outdir\" when there are %d output chunks", len(outputs))
	}
	for _, output := range outputs {
		if err := writeOutput("", stdout, output); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}
