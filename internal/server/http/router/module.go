package router

import (
	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/app"
	"github.com/jamilahmedansari/letterdesk/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Provide(
	Setup,
	func(desk *app.Desk) handlers.DeskFacade { return desk },
)
