package di

import (
	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/adapter/drafting"
	"github.com/jamilahmedansari/letterdesk/internal/adapter/notify"
	"github.com/jamilahmedansari/letterdesk/internal/app"
	"github.com/jamilahmedansari/letterdesk/internal/config"
	"github.com/jamilahmedansari/letterdesk/internal/logger"
	"github.com/jamilahmedansari/letterdesk/internal/pkg/auth"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/router"
	"github.com/jamilahmedansari/letterdesk/internal/storage"
	"github.com/jamilahmedansari/letterdesk/internal/usecase"
	"github.com/jamilahmedansari/letterdesk/internal/worker"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		drafting.Module,
		notify.Module,
		worker.Module,
		usecase.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
