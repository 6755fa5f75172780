package test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jspipe/jspipe/internal/logger"
)

func AssertEqual(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		t.Fatalf("%s != %s", observed, expected)
	}
}

func AssertEqualWithDiff(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		stringA := fmt.Sprintf("%v", observed)
		stringB := fmt.Sprintf("%v", expected)
		if strings.Contains(stringA, "\n") || strings.Contains(stringB, "\n") {
			t.Fatal("\n" + Diff(stringB, stringA, useColor()))
		} else {
			t.Fatalf("%q != %q", stringA, stringB)
		}
	}
}

func SourceForTest(contents string) logger.Source {
	return logger.Source{
		Index:          0,
		KeyPath:        logger.Path{Text: "<stdin>"},
		PrettyPath:     "<stdin>",
		Contents:       contents,
		IdentifierName: "stdin",
	}
}

// Renders messages the way the CLI prints them without colors
func MsgsToString(msgs []logger.Msg) string {
	text := ""
	for _, msg := range msgs {
		text += msg.String(logger.StderrOptions{IncludeSource: true}, logger.TerminalInfo{})
	}
	return text
}
