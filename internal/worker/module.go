package worker

import (
	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
	"github.com/jamilahmedansari/letterdesk/internal/usecase"
)

// Module provides the generation queue shared by submissions and the worker pool.
var Module = fx.Provide(
	newQueue,
	func(q *Queue) usecase.GenerationQueue { return q },
)

func newQueue(cfg *config.Config) *Queue {
	return NewQueue(cfg.WorkerPoolSize * cfg.SweepBatchSize)
}
