package kernel

import (
	"io"
	"os"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the diagnostic collaborator §6 names: leveled, non-blocking,
// purely observational emission in the shape (level, fmt, args…). Modeled
// as one method per level, mirroring the teacher's own Logger interface in
// eventloop/logging.go, but backed by a real structured-logging library
// instead of a hand-rolled level-filtered writer.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. It is the zero-value default so a Kernel
// built without WithLogger never touches a backend.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// logifaceLogger adapts a *logiface.Logger[*stumpy.Event] to Logger.
type logifaceLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewLogifaceLogger builds a Logger backed by logiface, using stumpy as the
// concrete event factory/writer, matching the usage shown by stumpy's own
// documentation (stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w)))).
// A nil w defaults to os.Stderr, matching stumpy's own WithStumpy default.
func NewLogifaceLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	l := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
		),
	)
	return logifaceLogger{l: l}
}

func (x logifaceLogger) Debugf(format string, args ...any) {
	if b := x.l.Debug(); b != nil {
		b.Logf(format, args...)
	}
}

func (x logifaceLogger) Infof(format string, args ...any) {
	if b := x.l.Info(); b != nil {
		b.Logf(format, args...)
	}
}

func (x logifaceLogger) Warnf(format string, args ...any) {
	if b := x.l.Warning(); b != nil {
		b.Logf(format, args...)
	}
}

func (x logifaceLogger) Errorf(format string, args ...any) {
	if b := x.l.Err(); b != nil {
		b.Logf(format, args...)
	}
}

// RateLimitedLogger wraps a Logger with a per-category sliding-window rate
// limit, so a repeated protocol warning (§7 kind 3: resuming a task that
// isn't suspended, giving a semaphore already at max, and the like) cannot
// flood the sink. Only Warnf and Errorf are limited; Debugf/Infof pass
// through, since those are opt-in verbosity rather than kernel-triggered
// repetition.
type RateLimitedLogger struct {
	next    Logger
	limiter *catrate.Limiter
}

// NewRateLimitedLogger wraps next, allowing at most maxPerWindow occurrences
// of any single (category) message per window. A sensible default is a
// handful of occurrences per second.
func NewRateLimitedLogger(next Logger, window time.Duration, maxPerWindow int) *RateLimitedLogger {
	return &RateLimitedLogger{
		next:    next,
		limiter: catrate.NewLimiter(map[time.Duration]int{window: maxPerWindow}),
	}
}

func (x *RateLimitedLogger) Debugf(format string, args ...any) { x.next.Debugf(format, args...) }
func (x *RateLimitedLogger) Infof(format string, args ...any)  { x.next.Infof(format, args...) }

func (x *RateLimitedLogger) Warnf(format string, args ...any) {
	if _, ok := x.limiter.Allow(format); ok {
		x.next.Warnf(format, args...)
	}
}

func (x *RateLimitedLogger) Errorf(format string, args ...any) {
	if _, ok := x.limiter.Allow(format); ok {
		x.next.Errorf(format, args...)
	}
}
