package logger_test

import (
	"testing"

	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
)

func TestMsgIDs(t *testing.T) {
	for id := logger.MsgID_None + 1; id < logger.MsgID_END; id++ {
		str := logger.MsgIDToString(id)
		if str == "" {
			t.Fatalf("Missing string for message id %d", id)
		}

		back, ok := logger.StringToMsgID(str)
		if !ok {
			t.Fatalf("Failed to find message id for the string %q", str)
		}
		test.AssertEqual(t, back, id)
	}
}

func TestMsgString(t *testing.T) {
	source := logger.Source{PrettyPath: "entry.js", Contents: "let a = 1;\nlet b = @;\n"}
	log := logger.NewDeferLog()
	log.AddRangeError(&source, logger.Range{Loc: logger.Loc{Start: 19}, Len: 1}, "Unexpected \"@\"")
	msgs := log.Done()

	test.AssertEqual(t, len(msgs), 1)
	test.AssertEqual(t, msgs[0].ID, logger.MsgID_SyntaxError)
	test.AssertEqual(t, msgs[0].String(logger.StderrOptions{IncludeSource: true}, logger.TerminalInfo{}),
		`entry.js:2:8: error: Unexpected "@"
let b = @;
        ^
`)
}

func TestMsgStringWideCharacters(t *testing.T) {
	source := logger.Source{PrettyPath: "wide.js", Contents: "x = \"日本\" + @"}
	log := logger.NewDeferLog()
	log.AddRangeError(&source, logger.Range{Loc: logger.Loc{Start: 15}, Len: 1}, "Unexpected \"@\"")
	msgs := log.Done()

	// Each of the two wide characters takes two columns
	test.AssertEqual(t, msgs[0].String(logger.StderrOptions{IncludeSource: true}, logger.TerminalInfo{}),
		`wide.js:1:15: error: Unexpected "@"
x = "日本" + @
             ^
`)
}

func TestDeferLogSortsByLocation(t *testing.T) {
	source := logger.Source{PrettyPath: "a.js", Contents: "a\nb\nc"}
	log := logger.NewDeferLog()
	log.AddWarning(&source, logger.Loc{Start: 4}, "third")
	log.AddWarning(&source, logger.Loc{Start: 0}, "first")
	log.AddError(nil, logger.Loc{}, "no location")
	test.AssertEqual(t, log.HasErrors(), true)

	msgs := log.Done()
	test.AssertEqual(t, msgs[0].Text, "no location")
	test.AssertEqual(t, msgs[1].Text, "first")
	test.AssertEqual(t, msgs[2].Text, "third")
}
