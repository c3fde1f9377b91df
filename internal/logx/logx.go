// Package logx is SourceMinder's ambient logging, wrapping the standard
// library log.Logger with --quiet/--verbose/--debug level gating.
//
// It is a four-level (quiet/normal/verbose/debug) logger shared by every
// index-<language> and qi binary, built on fmt.Fprintf(os.Stderr, ...)
// and the stdlib log package rather than a structured-logging dependency.
package logx

import (
	"io"
	"log"
	"os"
)

// Level is the minimum severity a Logger will emit.
type Level int

const (
	LevelQuiet Level = iota
	LevelNormal
	LevelVerbose
	LevelDebug
)

// Logger is the ambient logger every SourceMinder binary constructs once
// from its parsed flags and threads through explicitly — no package-level
// logger, no global mutable state.
type Logger struct {
	level Level
	out   *log.Logger
	err   *log.Logger
}

// New builds a Logger writing to os.Stderr at level.
func New(level Level) *Logger {
	return &Logger{
		level: level,
		out:   log.New(os.Stderr, "", 0),
		err:   log.New(os.Stderr, "", 0),
	}
}

// NewTo builds a Logger writing to w, for tests that want to capture output.
func NewTo(level Level, w io.Writer) *Logger {
	return &Logger{
		level: level,
		out:   log.New(w, "", 0),
		err:   log.New(w, "", 0),
	}
}

// Infof logs at LevelNormal: suppressed only by --quiet.
func (l *Logger) Infof(format string, args ...any) {
	if l.level < LevelNormal {
		return
	}
	l.out.Printf(format, args...)
}

// Verbosef logs at LevelVerbose: requires --verbose or --debug.
func (l *Logger) Verbosef(format string, args ...any) {
	if l.level < LevelVerbose {
		return
	}
	l.out.Printf(format, args...)
}

// Debugf logs at LevelDebug: requires --debug. Used for handler-trace
// output (walker.Context.Trace callbacks).
func (l *Logger) Debugf(format string, args ...any) {
	if l.level < LevelDebug {
		return
	}
	l.out.Printf(format, args...)
}

// Warnf always prints, even under --quiet. Buffer-overflow warnings and
// schema-mismatch errors both need to reach the operator regardless of
// verbosity.
func (l *Logger) Warnf(format string, args ...any) {
	l.err.Printf("warning: "+format, args...)
}

// Errorf always prints, like Warnf, for fatal-path reporting before exit.
func (l *Logger) Errorf(format string, args ...any) {
	l.err.Printf("error: "+format, args...)
}
