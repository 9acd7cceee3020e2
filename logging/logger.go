package logging

import (
	"io"
	"log/slog"
)

// Logger is set by Init and also installed as slog's default.
var Logger *slog.Logger

// Init points slog at w. Unknown levels log at info; any format other than
// "json" writes text.
func Init(w io.Writer, level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// WithUser returns a logger with user_id field. Before Init it falls back to
// slog's default logger.
func WithUser(userID string) *slog.Logger {
	if Logger == nil {
		return slog.Default().With("user_id", userID)
	}
	return Logger.With("user_id", userID)
}
