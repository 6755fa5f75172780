package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jspipe/jspipe/internal/exitcode"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/pkg/api"
	"github.com/jspipe/jspipe/pkg/cli"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const helpText = `
Usage:
  jspipe <command> [options] [input]

Commands:
  parse       Print the syntax tree of a file as JSON
  transform   Lower and optionally minify a file
  print       Print a tree produced by "parse" back to source text
  minify      Minify a file
  bundle      Bundle entry points and their imports into chunks
  repl        Transform entries typed at a prompt
  version     Print the version and the platform and exit

Options:
  --module              Parse as an ES module instead of a script
  --target=...          Environment target (es5, es2015 ... es2021, esnext)
  --sourcemap           Emit a source map
  --outfile=...         The output file (default stdout)
  --minify              Sets all --minify-* flags
  --minify-whitespace   Remove whitespace
  --minify-identifiers  Shorten identifiers
  --minify-syntax       Use equivalent but shorter syntax
  --define:K=V          Substitute K with V

Bundle options:
  --outdir=...          Write every chunk to this directory
  --format=...          Output format (iife, cjs, esm)
  --external:M          Exclude module M from the bundle
  --public-dir=...      Copy this directory into the output directory

Advanced options:
  --version                  Print the current version and exit (` + jspipeVersion + `)
  --recover                  Keep parsing after recoverable syntax errors
  --ast                      Transform a tree produced by "parse"
  --minify-top-level         Also shorten top-level names
  --sourcemap=inline         Emit the source map with an inline data URL
  --sourcemap=external       Write the source map next to --outfile
  --sourcefile=...           Set the source file for the source map (for stdin)
  --input-sourcemap=...      A source map for the input file
  --source-text=...          The original text of a tree, for "print --sourcemap"
  --resolve-extensions=...   A comma-separated list of implicit extensions
  --max-rename-attempts=...  Numbered variants to try for a colliding name
  --color=...                Force use of color terminal escapes (true or false)
  --error-limit=...          Maximum error count or 0 to disable (default 10)
  --log-level=...            Disable logging (info, warning, error, silent)
  --trace=...                Write a JSON line per operation phase to this file
  --cpuprofile=...           Write a CPU profile to this file
  --verbose                  Log what the command line is doing

Examples:
  # Produces dist/app.js and dist/app.js.map
  jspipe bundle src/app.js --outdir=dist --minify --sourcemap

  # Lower a file for older browsers
  jspipe transform --target=es5 input.js --outfile=output.js

  # Provide input via stdin, get output via stdout
  jspipe minify --module < input.js > output.js
`

func main() {
	osArgs := os.Args[1:]
	traceFile := ""
	hasTrace := false
	cpuprofileFile := ""
	verbose := false

	// Do an initial scan over the argument list
	argsEnd := 0
	for _, arg := range osArgs {
		switch {
		// Show help if a common help flag is provided
		case arg == "-h", arg == "-help", arg == "--help", arg == "/?":
			fmt.Fprintf(os.Stderr, "%s\n", helpText)
			os.Exit(exitcode.Success)

		// Special-case the version flag here
		case arg == "--version":
			fmt.Fprintf(os.Stdout, "%s\n", jspipeVersion)
			os.Exit(exitcode.Success)

		case arg == "--trace":
			hasTrace = true

		case strings.HasPrefix(arg, "--trace="):
			traceFile = arg[len("--trace="):]
			hasTrace = true

		case strings.HasPrefix(arg, "--cpuprofile="):
			cpuprofileFile = arg[len("--cpuprofile="):]

		case arg == "--verbose":
			verbose = true

		default:
			// Strip any arguments that were handled above
			osArgs[argsEnd] = arg
			argsEnd++
		}
	}
	osArgs = osArgs[:argsEnd]

	// Print help text when there are no arguments
	if len(osArgs) == 0 && logger.GetTerminalInfo(os.Stdin).IsTTY {
		fmt.Fprintf(os.Stderr, "%s\n", helpText)
		os.Exit(exitcode.Success)
	}

	if len(osArgs) > 0 && osArgs[0] == "version" {
		fmt.Fprintf(os.Stdout, "jspipe %s (%s)\n", jspipeVersion, api.TargetTriple())
		os.Exit(exitcode.Success)
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	// Capture the defer statements below so the exit code is returned last
	exitCode := exitcode.Failure
	func() {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		if hasTrace {
			stop, err := api.InitTraceSubscriber(traceFile)
			if err != nil {
				logger.PrintErrorToStderr(osArgs, err.Error())
				return
			}
			defer stop()
		}

		if cpuprofileFile != "" {
			stop := createCpuprofileFile(osArgs, cpuprofileFile)
			if stop == nil {
				return
			}
			defer stop()
		}

		exitCode = cli.Run(ctx, osArgs)
	}()

	os.Exit(exitCode)
}
