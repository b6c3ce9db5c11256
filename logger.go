package match

import (
	"io"
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLogger allows setting a custom logger. A nil logger silences the engine.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = l
}

// logRejected records a command the engine refused.
func logRejected(op string, err error, args ...any) {
	logger.Warn("command rejected", append([]any{"op", op, "error", err.Error()}, args...)...)
}
