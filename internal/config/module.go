package config

import "go.uber.org/fx"

// Module exposes configuration and the plan catalogue for fx graphs.
var Module = fx.Provide(Load, LoadPlans)
