package auth

import (
	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newKeyVerifier),
	fx.Provide(newTokenStrategy),
)

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newKeyVerifier(p strategyParams) KeyVerifier {
	return NewBcryptKeyVerifier(p.Config.SystemKeyHash)
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.TokenSecret, Options{})
}
