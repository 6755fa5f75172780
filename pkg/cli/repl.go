package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jspipe/jspipe/pkg/api"
	"github.com/peterh/liner"
	zlog "github.com/rs/zerolog/log"
)

const (
	replHistoryFile = ".jspipe_history"
	replPrompt      = "> "
	replContinue    = ". "
)

const replHelp = `Each entry is transformed with the flags given to "jspipe repl".
Entries that end early continue on the next line.

Commands:
  :help    Show this text
  :module  Toggle between module and script mode
  :quit    Exit
`

type replSession struct {
	options  api.TransformOptions
	isModule bool
}

// An entry is incomplete when it only fails because the input ran out
func (s *replSession) isIncomplete(ctx context.Context, code string) bool {
	_, err := api.Parse(ctx, code, api.ParseOptions{IsModule: s.isModule})
	var apiErr *api.Error
	return errors.As(err, &apiErr) && errors.Is(err, api.ErrSyntax) &&
		strings.Contains(apiErr.Message, "end of file")
}

// Returns the output for an entry. Commands start with ":".
func (s *replSession) eval(ctx context.Context, entry string) (string, bool, error) {
	trimmed := strings.TrimSpace(entry)
	if strings.HasPrefix(trimmed, ":") {
		switch strings.ToLower(trimmed) {
		case ":quit", ":exit":
			return "", true, nil
		case ":help":
			return replHelp, false, nil
		case ":module":
			s.isModule = !s.isModule
			if s.isModule {
				return "module mode\n", false, nil
			}
			return "script mode\n", false, nil
		default:
			return "", false, fmt.Errorf("Unknown command %q (type :help for a list)", trimmed)
		}
	}
	if trimmed == "" {
		return "", false, nil
	}

	output, err := api.Transform(ctx, entry, s.isModule, s.options)
	if err != nil {
		return "", false, err
	}
	return output.Code, false, nil
}

func (s *replSession) readEntry(ctx context.Context, ln *liner.State) (string, error) {
	var b strings.Builder
	for {
		prompt := replPrompt
		if b.Len() > 0 {
			prompt = replContinue
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C drops the current entry
			b.Reset()
			continue
		}
		if err != nil {
			return "", err
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		code := b.String()
		if strings.HasPrefix(strings.TrimSpace(code), ":") || !s.isIncomplete(ctx, code) {
			return code, nil
		}
	}
}

func runRepl(ctx context.Context, args *parsedArgs, stdout io.Writer) error {
	session := &replSession{options: *args.transform, isModule: args.isModule}
	if session.options.Sourcefile == "" {
		session.options.Sourcefile = "<repl>"
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, replHistoryFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	// The prompt blocks, so cancellation closes the terminal under it
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		entry, err := session.readEntry(ctx, ln)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, io.EOF) {
				zlog.Debug().Err(err).Msg("Prompt failed")
			}
			fmt.Fprintln(stdout)
			return nil
		}

		output, quit, err := session.eval(ctx, entry)
		if quit {
			return nil
		}
		if err != nil {
			reportToStderr(args.stderr, nil, err)
		} else {
			io.WriteString(stdout, output)
		}
		if strings.TrimSpace(entry) != "" {
			ln.AppendHistory(strings.ReplaceAll(entry, "\n", " "))
		}
	}
}
