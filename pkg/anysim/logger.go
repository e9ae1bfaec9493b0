package anysim

import (
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger is the capability surface the engine logs through. A user can
// supply their own implementation (e.g. to route into an application's
// existing structured logger); DefaultLogger below is what System and
// ModelChecker use when none is supplied.
type Logger interface {
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	// ToggleDebug controls whether Debug/Debugf calls are emitted.
	ToggleDebug(enabled bool) bool
}

// DefaultLogger wraps a logrus.Logger, the structured logger already
// present (indirectly) in the teacher repository's dependency graph.
type DefaultLogger struct {
	entry *logrus.Logger
	debug bool
}

// NewDefaultLogger builds the engine's default logger, writing to
// stderr with a text formatter, matching the teacher's choice of
// os.Stderr as the sink for diagnostic output.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return &DefaultLogger{entry: l}
}

func (l *DefaultLogger) Info(args ...interface{}) { l.entry.Info(args...) }
func (l *DefaultLogger) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }
func (l *DefaultLogger) Warn(args ...interface{}) { l.entry.Warn(args...) }
func (l *DefaultLogger) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }
func (l *DefaultLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *DefaultLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *DefaultLogger) Debug(args ...interface{}) {
	if l.debug {
		l.entry.Debug(args...)
	}
}

func (l *DefaultLogger) Debugf(format string, args ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, args...)
	}
}

func (l *DefaultLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
func (l *DefaultLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

func (l *DefaultLogger) ToggleDebug(enabled bool) bool {
	l.debug = enabled
	if enabled {
		l.entry.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}

// renderTraceFailure prints the accumulated trace to stderr in red, per
// spec §7.1: a user-process callback error must terminate the run only
// after the path that led to it is visible.
func renderTraceFailure(runID uuid.UUID, entries []TraceEntry, cause error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(os.Stderr, "--- simulation trace (failed, run %s) ---\n", runID)
	for _, e := range entries {
		red.Fprintf(os.Stderr, "  [%s] %s/%s %s %s\n", e.Time, e.Node, e.Proc, e.Kind, e.Detail)
	}
	red.Fprintf(os.Stderr, "--- error: %v ---\n", cause)
}
