package drafting

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
	"github.com/jamilahmedansari/letterdesk/internal/usecase"
)

// Module exposes the configured draft generator to the fx graph.
var Module = fx.Provide(newGenerator)

type generatorParams struct {
	fx.In

	Ctx       context.Context
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

var newVertex = func(ctx context.Context, cfg *config.Config) (*VertexGenerator, error) {
	return NewVertexGenerator(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.VertexModel)
}

// newGenerator prefers Vertex AI, then the HTTP drafting service, then the local template.
func newGenerator(p generatorParams) (usecase.DraftGenerator, error) {
	switch {
	case p.Config.VertexProject != "":
		g, err := newVertex(p.Ctx, p.Config)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error { return g.Close() },
		})
		p.Logger.Info("drafting with vertex ai", slog.String("model", p.Config.VertexModel))
		return g, nil
	case p.Config.DraftGeneratorURL != "":
		p.Logger.Info("drafting with remote service", slog.String("url", p.Config.DraftGeneratorURL))
		return NewHTTPGenerator(p.Config.DraftGeneratorURL, p.Logger)
	default:
		p.Logger.Warn("no draft generator configured, using local templates")
		return NewTemplateGenerator(), nil
	}
}
