package js_lexer

import (
	"testing"

	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
)

func FuzzLexJS(f *testing.F) {
	f.Add([]byte(`var x = 1;`))
	f.Add([]byte(`/regex/gimsuy`))
	f.Add([]byte("const x = `hello ${world}`"))
	f.Add([]byte(`'A\u{42}\x43\n\t'`))
	f.Add([]byte(`0x1F + 0o17 + 0b1010`))
	f.Add([]byte(`123_456_789n`))
	f.Add([]byte(`a ??= b?.c ** 2`))
	f.Add([]byte(`#!/usr/bin/env node`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Errors must surface as LexerPanic and nothing else
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(LexerPanic); !ok {
					t.Fatalf("unexpected panic: %v", r)
				}
			}
		}()

		log := logger.NewDeferLog()
		lexer := NewLexer(log, test.SourceForTest(string(data)))
		for lexer.Token != TEndOfFile && lexer.Token != TSyntaxError {
			lexer.Next()
		}
	})
}
