// Package storage selects the repository backend named by DATABASE_URI.
package storage

import (
	"log/slog"
	"strings"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
	"github.com/jamilahmedansari/letterdesk/internal/storage/memory"
	"github.com/jamilahmedansari/letterdesk/internal/storage/postgres"
)

// Module provides the repository factory and the individual repositories.
var Module = fx.Provide(
	newFactory,
	func(f repository.Factory) repository.LetterRepository { return f.Letters() },
	func(f repository.Factory) repository.AllowanceRepository { return f.Allowances() },
	func(f repository.Factory) repository.AuditRepository { return f.Audit() },
)

var openPostgres = func(p postgres.Params) (repository.Factory, error) {
	return postgres.Open(p)
}

func newFactory(p postgres.Params) (repository.Factory, error) {
	if strings.HasPrefix(p.Config.DatabaseURI, memory.Scheme) {
		p.Logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}
	factory, err := openPostgres(p)
	if err != nil {
		p.Logger.Error("failed to open storage", slog.String("error", err.Error()))
		return nil, err
	}
	return factory, nil
}
