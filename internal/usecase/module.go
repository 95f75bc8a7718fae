package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
)

// Module provides the letter lifecycle engine to the fx container.
var Module = fx.Provide(
	NewAuditRecorder,
	NewStateMachine,
	NewAllowanceLedger,
	newScheduler,
	newAdmissionOptions,
	newAdmissionCoordinator,
)

func newScheduler(letters repository.LetterRepository, machine *StateMachine, plans *model.PlanCatalog, cfg *config.Config) *Scheduler {
	return NewScheduler(letters, machine, plans, cfg.RetryAttempts)
}

func newAdmissionOptions(cfg *config.Config) AdmissionOptions {
	return AdmissionOptions{
		GenerationTimeout: cfg.GenerationTimeout,
		RetryAttempts:     cfg.RetryAttempts,
		SweepBatchSize:    cfg.SweepBatchSize,
		SweepConcurrency:  cfg.WorkerPoolSize,
	}
}

type coordinatorParams struct {
	fx.In

	Letters   repository.LetterRepository
	Machine   *StateMachine
	Ledger    *AllowanceLedger
	Scheduler *Scheduler
	Recorder  *AuditRecorder
	Generator DraftGenerator
	Notifier  Notifier
	Queue     GenerationQueue
	Logger    *slog.Logger
	Options   AdmissionOptions
}

func newAdmissionCoordinator(p coordinatorParams) *AdmissionCoordinator {
	return NewAdmissionCoordinator(CoordinatorDeps{
		Letters:   p.Letters,
		Machine:   p.Machine,
		Ledger:    p.Ledger,
		Scheduler: p.Scheduler,
		Recorder:  p.Recorder,
		Generator: p.Generator,
		Notifier:  p.Notifier,
		Queue:     p.Queue,
		Logger:    p.Logger,
	}, p.Options)
}
