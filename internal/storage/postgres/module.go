package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
)

// Params are the dependencies needed to open PostgreSQL storage.
type Params struct {
	fx.In

	Ctx       context.Context
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

// Open connects to the configured database and closes the pool when the app stops.
func Open(p Params) (*Storage, error) {
	storage, err := New(p.Ctx, p.Config.DatabaseURI, p.Logger)
	if err != nil {
		return nil, err
	}
	registerLifecycle(p.Lifecycle, storage)
	return storage, nil
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
