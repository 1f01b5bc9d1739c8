package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// Log is the global logger instance
var Log = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Setup initializes the global logger from the configured level and format
func Setup(level, format string) {
	SetupWithWriter(os.Stdout, level, format)
}

// SetupWithWriter is Setup with an explicit destination
func SetupWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// CaptureError logs err at error level and forwards it to Sentry when a client is configured.
// Extra args are slog key/value pairs and are attached to the Sentry event as extras.
func CaptureError(msg string, err error, args ...any) {
	Log.Error(msg, append(args, slog.Any("error", err))...)

	hub := sentry.CurrentHub()
	if hub == nil || hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		for i := 0; i+1 < len(args); i += 2 {
			if key, ok := args[i].(string); ok {
				scope.SetExtra(key, args[i+1])
			}
		}
		hub.CaptureException(err)
	})
}

// Flush waits for buffered Sentry events
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
