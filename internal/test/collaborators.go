package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// GeneratorStub produces drafts through an optional override.
type GeneratorStub struct {
	GenerateFn func(context.Context, model.Intake) (string, error)
	calls      atomic.Int32
}

// GenerateDraft returns "draft: <subject>" unless overridden.
func (g *GeneratorStub) GenerateDraft(ctx context.Context, intake model.Intake) (string, error) {
	g.calls.Add(1)
	if g.GenerateFn != nil {
		return g.GenerateFn(ctx, intake)
	}
	return "draft: " + intake.Subject, nil
}

// Calls reports how many drafts were requested.
func (g *GeneratorStub) Calls() int {
	return int(g.calls.Load())
}

// NotifierStub records delivered events.
type NotifierStub struct {
	Err    error
	mu     sync.Mutex
	events []model.LetterEvent
}

// Notify stores the event and returns Err.
func (n *NotifierStub) Notify(_ context.Context, event model.LetterEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.Err
}

// Events returns a copy of recorded events.
func (n *NotifierStub) Events() []model.LetterEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.LetterEvent, len(n.events))
	copy(out, n.events)
	return out
}

// QueueStub records enqueued letter ids.
type QueueStub struct {
	Err error
	mu  sync.Mutex
	ids []string
}

// Enqueue stores letterID and returns Err.
func (q *QueueStub) Enqueue(_ context.Context, letterID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.ids = append(q.ids, letterID)
	return nil
}

// IDs returns a copy of enqueued ids.
func (q *QueueStub) IDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.ids))
	copy(out, q.ids)
	return out
}

// GenerationFacadeStub records generation and sweep calls made by the worker pool.
type GenerationFacadeStub struct {
	GenerateFn func(context.Context, string) error
	SweepFn    func(context.Context, time.Duration) (int, error)
	RequeueFn  func(context.Context, time.Duration) (int, error)

	mu        sync.Mutex
	generated []string
	sweeps    int
	requeues  int
}

// Generate records letterID and delegates to GenerateFn when set.
func (f *GenerationFacadeStub) Generate(ctx context.Context, letterID string) error {
	f.mu.Lock()
	f.generated = append(f.generated, letterID)
	f.mu.Unlock()
	if f.GenerateFn != nil {
		return f.GenerateFn(ctx, letterID)
	}
	return nil
}

// SweepStaleGenerating counts sweeps and delegates to SweepFn when set.
func (f *GenerationFacadeStub) SweepStaleGenerating(ctx context.Context, maxDuration time.Duration) (int, error) {
	f.mu.Lock()
	f.sweeps++
	f.mu.Unlock()
	if f.SweepFn != nil {
		return f.SweepFn(ctx, maxDuration)
	}
	return 0, nil
}

// RequeueGenerating counts requeues and delegates to RequeueFn when set.
func (f *GenerationFacadeStub) RequeueGenerating(ctx context.Context, maxDuration time.Duration) (int, error) {
	f.mu.Lock()
	f.requeues++
	f.mu.Unlock()
	if f.RequeueFn != nil {
		return f.RequeueFn(ctx, maxDuration)
	}
	return 0, nil
}

// Generated returns letters handed to Generate in call order.
func (f *GenerationFacadeStub) Generated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.generated))
	copy(out, f.generated)
	return out
}

// Requeues reports how many requeues ran.
func (f *GenerationFacadeStub) Requeues() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requeues
}

// Sweeps reports how many sweeps ran.
func (f *GenerationFacadeStub) Sweeps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}
