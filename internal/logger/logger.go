package logger

import (
	"io"
	"log/slog"
)

const serviceName = "letterdesk"

// NewWithWriter creates a JSON logger tagged with the service name.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", serviceName))
}
