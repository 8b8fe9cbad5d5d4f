// Package logging provides the logging interface and default implementation
// used across the table builder and reader.
//
// Design: a small leveled interface (Error, Warn, Info, Debug) so callers
// can plug in their own logger without this package depending on any
// particular structured-logging library.
//
// Log format: YYYY/MM/DD HH:MM:SS LEVEL [component] message
//
// Example: 2026/07/31 18:45:13 DEBUG [builder] flushed data block offset=4096 size=3811
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
)

// Level represents the logging level.
type Level int

const (
	// LevelError logs only errors.
	LevelError Level = iota
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs info, warnings, and errors.
	LevelInfo
	// LevelDebug logs everything including debug messages.
	LevelDebug
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface the builder and reader log through. nil is a
// valid Logger only via OrDefault; callers should never invoke methods on
// a raw nil.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// DefaultLogger writes to an io.Writer via the standard library's log
// package. It is stateless (beyond the immutable level) and safe for
// concurrent use, since log.Logger serializes its own writes.
type DefaultLogger struct {
	logger *log.Logger
	level  Level
}

// NewDefaultLogger returns a logger at level, writing to stderr.
func NewDefaultLogger(level Level) *DefaultLogger {
	return NewLogger(os.Stderr, level)
}

// NewLogger returns a logger at level, writing to w.
func NewLogger(w io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  level,
	}
}

// Level reports the logger's configured level.
func (l *DefaultLogger) Level() Level { return l.level }

func (l *DefaultLogger) Errorf(format string, args ...any) {
	if l.level >= LevelError {
		_ = l.logger.Output(2, "ERROR "+fmt.Sprintf(format, args...))
	}
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	if l.level >= LevelWarn {
		_ = l.logger.Output(2, "WARN "+fmt.Sprintf(format, args...))
	}
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	if l.level >= LevelInfo {
		_ = l.logger.Output(2, "INFO "+fmt.Sprintf(format, args...))
	}
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.level >= LevelDebug {
		_ = l.logger.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
	}
}

// Namespace prefixes for log messages, used with fmt.Sprintf to add
// component context.
const (
	// NSBuild is the namespace for TableBuilder operations.
	NSBuild = "[builder] "
	// NSRead is the namespace for Table/TableReader operations.
	NSRead = "[reader] "
	// NSCache is the namespace for block-cache operations.
	NSCache = "[cache] "
)

// discard is a Logger that drops every message; it backs OrDefault's
// zero-overhead default.
type discard struct{}

func (discard) Errorf(string, ...any) {}
func (discard) Warnf(string, ...any)  {}
func (discard) Infof(string, ...any)  {}
func (discard) Debugf(string, ...any) {}

// Discard is a Logger that drops every message.
var Discard Logger = discard{}

// IsNil reports whether l is nil or a typed-nil interface value. A typed
// nil occurs when a nil pointer of a concrete Logger type is assigned to
// the interface; calling methods on it would panic, so OrDefault checks
// for both cases.
func IsNil(l Logger) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// OrDefault returns l if it is usable, otherwise Discard. Options.Logger
// is always passed through this before use, so a zero-value Options never
// panics on first log call.
func OrDefault(l Logger) Logger {
	if IsNil(l) {
		return Discard
	}
	return l
}
