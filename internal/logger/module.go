package logger

import (
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
)

// Module wires slog logger for dependency injection.
var Module = fx.Provide(fromConfig)

func fromConfig(cfg *config.Config) (*slog.Logger, error) {
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
	}
	return NewWithWriter(os.Stdout, level), nil
}
