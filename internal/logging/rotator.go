package logging

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the engine's own four-step log level, kept distinct from
// zapcore.Level because spec.md names exactly these four steps with a
// monotone cyclical rotation; zapcore.Level is the output encoding these
// steps are projected onto.
type Level int

const (
	Test Level = iota
	Debug
	Warning
	Critical
	levelCount
)

func (l Level) String() string {
	switch l {
	case Test:
		return "Test"
	case Debug:
		return "Debug"
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// zapLevel projects the engine's own level onto the nearest zapcore.Level.
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Test:
		return zapcore.DebugLevel
	case Debug:
		return zapcore.InfoLevel
	case Warning:
		return zapcore.WarnLevel
	case Critical:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LevelRotator wraps a zap.AtomicLevel with the process-wide, signal-driven
// rotation spec.md §6 describes ("a runtime signal rotates the effective
// minimum through the levels cyclically"), grounded in
// original_source/sensord/logging.cpp's SIGUSR1 handler and re-expressed as
// a single atomic instead of a bare static field, per spec.md §9's note on
// global singletons.
type LevelRotator struct {
	atomic  zap.AtomicLevel
	current int32 // atomic index into the Level cycle
	log     *zap.SugaredLogger
	stop    chan struct{}
}

// NewLevelRotator builds a rotator starting at the given level and wired to
// the given zap.AtomicLevel.
func NewLevelRotator(atomicLevel zap.AtomicLevel, start Level, log *zap.SugaredLogger) *LevelRotator {
	r := &LevelRotator{
		atomic: atomicLevel,
		log:    log,
		stop:   make(chan struct{}),
	}
	atomic.StoreInt32(&r.current, int32(start))
	r.atomic.SetLevel(start.zapLevel())
	return r
}

// Current returns the rotator's current engine-level value.
func (r *LevelRotator) Current() Level {
	return Level(atomic.LoadInt32(&r.current))
}

// Advance moves the rotator one step through the cycle and applies the
// result to the wrapped zap.AtomicLevel.
func (r *LevelRotator) Advance() Level {
	next := Level((int32(r.Current()) + 1) % int32(levelCount))
	atomic.StoreInt32(&r.current, int32(next))
	r.atomic.SetLevel(next.zapLevel())
	return next
}

// Run installs a SIGUSR1 handler that advances the rotator, until ctx-like
// cancellation via Stop. It returns immediately; the handler runs in its
// own goroutine.
func (r *LevelRotator) Run() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)

	go func() {
		for {
			select {
			case <-ch:
				next := r.Advance()
				r.log.Infow("log level rotated", "level", next.String())
			case <-r.stop:
				signal.Stop(ch)
				return
			}
		}
	}()
}

// Stop terminates the signal-handling goroutine started by Run.
func (r *LevelRotator) Stop() {
	close(r.stop)
}
