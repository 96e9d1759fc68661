package logging

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level of a diagnostic message.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Sink receives operator-facing diagnostics such as reset notifications and
// resource exhaustion warnings. Emit never fails the caller.
type Sink interface {
	Emit(level Level, msg string)
}

// Emitf formats and emits a message. A nil sink drops it.
func Emitf(s Sink, level Level, format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.Emit(level, fmt.Sprintf(format, args...))
}

// LogSink writes diagnostics to a zerolog logger.
type LogSink struct {
	Logger zerolog.Logger
}

// NewLogSink returns a sink on the global logger tagged with the given component.
func NewLogSink(component string) *LogSink {
	return &LogSink{Logger: log.With().Str("component", component).Logger()}
}

func (s *LogSink) Emit(level Level, msg string) {
	s.Logger.WithLevel(level.zerolog()).Str("msg_level", level.String()).Msg(msg)
}

// MultiSink fans a message out to every sink.
type MultiSink []Sink

func (m MultiSink) Emit(level Level, msg string) {
	for _, s := range m {
		if s != nil {
			s.Emit(level, msg)
		}
	}
}

// Discard drops every message.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Level, string) {}
