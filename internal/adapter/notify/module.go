package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
	"github.com/jamilahmedansari/letterdesk/internal/usecase"
)

// Module exposes the configured notifier to the fx graph.
var Module = fx.Provide(newNotifier)

type notifierParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newNotifier(p notifierParams) (usecase.Notifier, error) {
	if p.Config.NotifySinkURL == "" {
		return NewLogNotifier(p.Logger), nil
	}
	p.Logger.Info("publishing decisions as cloudevents", slog.String("sink", p.Config.NotifySinkURL))
	return NewCloudEventsNotifier(p.Config.NotifySinkURL)
}
