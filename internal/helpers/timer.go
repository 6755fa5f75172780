package helpers

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Records nested phases of an operation. A nil timer records nothing, so
// callers don't need to check whether tracing is enabled.
type Timer struct {
	data  []timerData
	mutex sync.Mutex
}

type timerData struct {
	time  time.Time
	name  string
	isEnd bool
}

func (t *Timer) Begin(name string) {
	if t != nil {
		t.data = append(t.data, timerData{
			name: name,
			time: time.Now(),
		})
	}
}

func (t *Timer) End(name string) {
	if t != nil {
		t.data = append(t.data, timerData{
			name:  name,
			time:  time.Now(),
			isEnd: true,
		})
	}
}

// Each goroutine gets its own fork. Forks are merged back with "Join".
func (t *Timer) Fork() *Timer {
	if t != nil {
		return &Timer{}
	}
	return nil
}

func (t *Timer) Join(other *Timer) {
	if t != nil && other != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, other.data...)
	}
}

// Emits one trace event per completed phase. Phases are emitted in the order
// they finished. The "phase" field is the slash-separated path of enclosing
// phases.
func (t *Timer) Emit(z zerolog.Logger, operation string) {
	if t == nil {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	var stack []timerData
	for _, item := range t.data {
		if !item.isEnd {
			stack = append(stack, item)
			continue
		}

		last := len(stack) - 1
		if last < 0 || stack[last].name != item.name {
			panic("Internal error")
		}
		names := make([]string, len(stack))
		for i, it := range stack {
			names[i] = it.name
		}
		top := stack[last]
		stack = stack[:last]

		z.Debug().
			Str("operation", operation).
			Str("phase", strings.Join(names, "/")).
			Time("start", top.time).
			Dur("duration", item.time.Sub(top.time)).
			Msg("phase")
	}
}
