package helpers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTimerEmitsNestedPhases(t *testing.T) {
	timer := &Timer{}
	timer.Begin("bundle")
	timer.Begin("scan")
	timer.End("scan")
	fork := timer.Fork()
	fork.Begin("print")
	fork.End("print")
	timer.Join(fork)
	timer.End("bundle")

	buffer := bytes.Buffer{}
	timer.Emit(zerolog.New(&buffer).Level(zerolog.DebugLevel), "bundle")

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 events, got %d:\n%s", len(lines), buffer.String())
	}
	if !strings.Contains(lines[0], `"phase":"bundle/scan"`) {
		t.Fatalf("Unexpected first event: %s", lines[0])
	}
	if !strings.Contains(lines[2], `"phase":"bundle"`) {
		t.Fatalf("Unexpected last event: %s", lines[2])
	}
}

func TestNilTimer(t *testing.T) {
	var timer *Timer
	timer.Begin("a")
	timer.End("a")
	timer.Join(timer.Fork())
	timer.Emit(zerolog.Nop(), "noop")
}
