package api

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jspipe/jspipe/internal/helpers"
	"github.com/rs/zerolog"
)

var tracer struct {
	mutex  sync.Mutex
	logger *zerolog.Logger
}

// Returns nil when tracing is off. A nil timer records nothing.
func newTimer() *helpers.Timer {
	tracer.mutex.Lock()
	defer tracer.mutex.Unlock()
	if tracer.logger == nil {
		return nil
	}
	return &helpers.Timer{}
}

func emitTrace(timer *helpers.Timer, operation string) {
	if timer == nil {
		return
	}
	tracer.mutex.Lock()
	defer tracer.mutex.Unlock()
	if tracer.logger != nil {
		timer.Emit(*tracer.logger, operation)
	}
}

func initTraceSubscriberImpl(path string) (func(), error) {
	if path == "" {
		path = fmt.Sprintf("trace-%d.json", time.Now().UnixMilli())
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to create trace file: %w", err)
	}

	z := zerolog.New(file).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	tracer.mutex.Lock()
	tracer.logger = &z
	tracer.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			tracer.mutex.Lock()
			if tracer.logger == &z {
				tracer.logger = nil
			}
			tracer.mutex.Unlock()
			file.Close()
		})
	}, nil
}
