package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	Configure(os.Getenv("ENVIRONMENT"), os.Stdout)
}

// Configure replaces the process logger. Development gets console output and
// debug level, everything else JSON at info level.
func Configure(environment string, out io.Writer) {
	level := zerolog.InfoLevel
	w := out
	if environment == "development" {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	base = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Logger exposes the underlying structured logger for components that want fields.
func Logger() *zerolog.Logger {
	return &base
}

func Info(format string, v ...interface{}) {
	base.Info().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	base.Error().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	base.Debug().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	base.Warn().CallerSkipFrame(1).Caller().Msgf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	base.Fatal().Msgf(format, v...)
}

// WithContext prefixes a message with the caller location and an optional context value.
func WithContext(ctx interface{}, format string, v ...interface{}) string {
	_, file, line, _ := runtime.Caller(1)
	contextStr := fmt.Sprintf("%v:%d", file, line)
	if ctx != nil {
		contextStr = fmt.Sprintf("%v - %v", contextStr, ctx)
	}
	return fmt.Sprintf("[%s] %s", contextStr, fmt.Sprintf(format, v...))
}
