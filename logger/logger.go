package logger

import (
	"log/slog"
	"os"
)

var globalLogger *slog.Logger

// Init sets up the structured logger. Format is "json" (default) or "text",
// level one of debug/info/warn/error; both read from LOG_FORMAT / LOG_LEVEL.
func Init() {
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

func get() *slog.Logger {
	if globalLogger == nil {
		Init()
	}
	return globalLogger
}

func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// WithFields returns a logger carrying additional fields.
func WithFields(fields ...any) *slog.Logger {
	return get().With(fields...)
}
