package notify

import (
	"context"
	"log/slog"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// LogNotifier records decisions in the service log when no sink is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event and never fails.
func (n *LogNotifier) Notify(_ context.Context, event model.LetterEvent) error {
	n.logger.Info("letter decision",
		slog.String("letter_id", event.LetterID),
		slog.String("owner_id", event.OwnerID),
		slog.String("status", string(event.Status)),
		slog.String("reason", event.Reason),
	)
	return nil
}
