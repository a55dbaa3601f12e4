// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = NewConsoleLogger(os.Stderr)

// Logf is the package-level printf-style logger. It defaults to an
// info-level event on the structured logger but may be replaced by
// SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogf

func defaultLogf(format string, v ...interface{}) {
	logger.Info().Msgf(format, v...)
}

// NewConsoleLogger returns a human-readable zerolog logger writing to w.
func NewConsoleLogger(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// Logger returns the structured logger used for per-step events.
func Logger() *zerolog.Logger {
	return &logger
}

// SetOutput replaces the structured logger with a JSON logger writing to w.
// Logf is reset to the default so both share the new output.
func SetOutput(w io.Writer) {
	logger = zerolog.New(w).With().Timestamp().Logger()
	Logf = defaultLogf
}

// SetLevel sets the minimum level of the structured logger. Valid values
// are zerolog level names such as "debug", "info" and "warn".
func SetLevel(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger = logger.Level(l)
	return nil
}

// SetLogger replaces the printf-style logger. Passing nil will set a no-op
// logger and silence the structured logger too.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		logger = zerolog.Nop()
		return
	}
	Logf = f
}
