package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level and output format of the package logger.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json, console
	Output io.Writer // defaults to os.Stderr
}

var (
	mu   sync.RWMutex
	zlog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
)

// Setup replaces the package logger.
func Setup(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var l zerolog.Logger
	if strings.EqualFold(cfg.Format, "json") {
		l = zerolog.New(out)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	l = l.Level(parseLevel(cfg.Level)).With().Timestamp().Logger()

	mu.Lock()
	zlog = l
	mu.Unlock()
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := zlog
	return &l
}

// Entry is a logger carrying structured fields.
type Entry struct {
	zl zerolog.Logger
}

// With returns an Entry that adds key=value to every message.
func With(key string, value any) *Entry {
	return &Entry{zl: current().With().Interface(key, value).Logger()}
}

// With adds another field to the entry.
func (e *Entry) With(key string, value any) *Entry {
	return &Entry{zl: e.zl.With().Interface(key, value).Logger()}
}

func (e *Entry) Debug(format string, args ...any) { e.zl.Debug().Msg(fmt.Sprintf(format, args...)) }
func (e *Entry) Info(format string, args ...any)  { e.zl.Info().Msg(fmt.Sprintf(format, args...)) }
func (e *Entry) Warn(format string, args ...any)  { e.zl.Warn().Msg(fmt.Sprintf(format, args...)) }
func (e *Entry) Error(format string, args ...any) { e.zl.Error().Msg(fmt.Sprintf(format, args...)) }

// Fatal logs at fatal level and exits the process.
// Arguments are handled in the manner of [fmt.Printf].
func Fatal(format string, args ...any) {
	current().Fatal().Msg(fmt.Sprintf(format, args...))
}

// Error logs at error level.
// Arguments are handled in the manner of [fmt.Printf].
func Error(format string, args ...any) {
	current().Error().Msg(fmt.Sprintf(format, args...))
}

// Warn logs at warn level.
// Arguments are handled in the manner of [fmt.Printf].
func Warn(format string, args ...any) {
	current().Warn().Msg(fmt.Sprintf(format, args...))
}

// Info logs at info level.
// Arguments are handled in the manner of [fmt.Printf].
func Info(format string, args ...any) {
	current().Info().Msg(fmt.Sprintf(format, args...))
}

// Debug logs at debug level.
// Arguments are handled in the manner of [fmt.Printf].
func Debug(format string, args ...any) {
	current().Debug().Msg(fmt.Sprintf(format, args...))
}
