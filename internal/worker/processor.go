package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// GenerationFacade exposes the subset of application functionality required by the worker.
type GenerationFacade interface {
	Generate(ctx context.Context, letterID string) error
	SweepStaleGenerating(ctx context.Context, maxDuration time.Duration) (int, error)
	RequeueGenerating(ctx context.Context, maxDuration time.Duration) (int, error)
}

// Processor drains the generation queue with a fixed pool of workers. A sweeper
// requeues letters left in generating at start and on every tick, and fails the
// ones stuck longer than the maximum generating duration.
type Processor struct {
	facade        GenerationFacade
	queue         *Queue
	workers       int
	sweepInterval time.Duration
	maxGenerating time.Duration
	logger        *slog.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	mu       sync.Mutex
	quit     chan struct{}
	quitOnce sync.Once
	stopping atomic.Bool
}

// NewProcessor constructs the generation worker pool.
func NewProcessor(facade GenerationFacade, queue *Queue, workers int, sweepInterval, maxGenerating time.Duration, logger *slog.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Processor{
		facade:        facade,
		queue:         queue,
		workers:       workers,
		sweepInterval: sweepInterval,
		maxGenerating: maxGenerating,
		logger:        logger,
		quit:          make(chan struct{}),
	}
}

// Start launches background processing. The pool outlives ctx only until Stop.
func (p *Processor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.sweep(runCtx)
}

// Stop closes the queue and lets drafts in flight finish until ctx is done, then
// cancels them. Letters still buffered stay in generating and are requeued on the
// next start.
func (p *Processor) Stop(ctx context.Context) {
	p.stopping.Store(true)
	p.quitOnce.Do(func() { close(p.quit) })
	p.queue.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("cancelling drafts in flight")
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	<-done
}

func (p *Processor) sweep(ctx context.Context) {
	defer p.wg.Done()
	p.requeue(ctx)

	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-ticker.C:
			if _, err := p.facade.SweepStaleGenerating(ctx, p.maxGenerating); err != nil && ctx.Err() == nil {
				p.logger.Error("stale generation sweep failed", slog.String("error", err.Error()))
			}
			p.requeue(ctx)
		}
	}
}

func (p *Processor) requeue(ctx context.Context) {
	if p.stopping.Load() {
		return
	}
	if _, err := p.facade.RequeueGenerating(ctx, p.maxGenerating); err != nil && ctx.Err() == nil {
		p.logger.Error("requeue of generating letters failed", slog.String("error", err.Error()))
	}
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case letterID, ok := <-p.queue.receive():
			if !ok || p.stopping.Load() {
				return
			}
			p.handle(ctx, letterID)
		}
	}
}

func (p *Processor) handle(ctx context.Context, letterID string) {
	defer p.queue.done(letterID)
	if err := p.facade.Generate(ctx, letterID); err != nil {
		p.logger.Error("draft generation failed",
			slog.String("letter_id", letterID),
			slog.String("error", err.Error()),
		)
	}
}
