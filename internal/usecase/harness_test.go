package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
	"github.com/jamilahmedansari/letterdesk/internal/storage/memory"
	"github.com/jamilahmedansari/letterdesk/internal/test"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testPlans() *model.PlanCatalog {
	return &model.PlanCatalog{
		FirstDocumentBonus: 24,
		Plans: []model.Plan{
			{Tier: "free", Rank: 0, Weight: 1},
			{Tier: "basic", Rank: 1, Weight: 1.5, MonthlyLetters: 4},
			{Tier: "pro", Rank: 2, Weight: 2, MonthlyLetters: 8},
			{Tier: "enterprise", Rank: 3, Weight: 3, Unlimited: true},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var reviewer = model.Principal{ID: "reviewer-1", Capability: model.CapabilityReviewer}
var systemPrincipal = model.Principal{ID: SystemActor, Capability: model.CapabilitySystem}

func subscriberPrincipal(id string) model.Principal {
	return model.Principal{ID: id, Capability: model.CapabilitySubscriber}
}

type harness struct {
	store     *memory.Store
	letters   repository.LetterRepository
	accounts  repository.AllowanceRepository
	audit     repository.AuditRepository
	plans     *model.PlanCatalog
	clock     *fakeClock
	machine   *StateMachine
	ledger    *AllowanceLedger
	scheduler *Scheduler
	recorder  *AuditRecorder
	coord     *AdmissionCoordinator
	generator *test.GeneratorStub
	notifier  *test.NotifierStub
	queue     *test.QueueStub
}

type harnessOption func(*harness)

func withLetters(wrap func(repository.LetterRepository) repository.LetterRepository) harnessOption {
	return func(h *harness) { h.letters = wrap(h.letters) }
}

func withAccounts(wrap func(repository.AllowanceRepository) repository.AllowanceRepository) harnessOption {
	return func(h *harness) { h.accounts = wrap(h.accounts) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	store := memory.New()
	h := &harness{
		store:     store,
		letters:   store.Letters(),
		accounts:  store.Allowances(),
		audit:     store.Audit(),
		plans:     testPlans(),
		clock:     &fakeClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)},
		generator: &test.GeneratorStub{},
		notifier:  &test.NotifierStub{},
		queue:     &test.QueueStub{},
	}
	for _, opt := range opts {
		opt(h)
	}

	logger := discardLogger()
	h.machine = NewStateMachine(h.letters)
	h.machine.now = h.clock.Now
	h.ledger = NewAllowanceLedger(h.accounts, h.letters, h.plans, logger)
	h.ledger.now = h.clock.Now
	h.scheduler = NewScheduler(h.letters, h.machine, h.plans, 3)
	h.scheduler.now = h.clock.Now
	h.scheduler.retry.delay = time.Millisecond
	h.recorder = NewAuditRecorder(h.audit, h.letters)
	h.recorder.now = h.clock.Now
	h.coord = NewAdmissionCoordinator(CoordinatorDeps{
		Letters:   h.letters,
		Machine:   h.machine,
		Ledger:    h.ledger,
		Scheduler: h.scheduler,
		Recorder:  h.recorder,
		Generator: h.generator,
		Notifier:  h.notifier,
		Queue:     h.queue,
		Logger:    logger,
	}, AdmissionOptions{
		GenerationTimeout: 50 * time.Millisecond,
		RetryAttempts:     3,
		SweepBatchSize:    10,
		SweepConcurrency:  2,
	})
	h.coord.now = h.clock.Now
	h.coord.retry.delay = time.Millisecond
	return h
}

func (h *harness) createDraft(t *testing.T, owner string) *model.Letter {
	t.Helper()
	letter, err := h.coord.CreateLetter(context.Background(), subscriberPrincipal(owner), test.RandomIntake())
	if err != nil {
		t.Fatalf("create letter: %v", err)
	}
	return letter
}

// pending creates a letter for owner and drives it to pending_review.
func (h *harness) pending(t *testing.T, owner string) *model.Letter {
	t.Helper()
	ctx := context.Background()
	letter := h.createDraft(t, owner)
	if _, err := h.coord.Submit(ctx, subscriberPrincipal(owner), letter.ID); err != nil {
		t.Fatalf("submit %s: %v", letter.ID, err)
	}
	if err := h.coord.Generate(ctx, letter.ID); err != nil {
		t.Fatalf("generate %s: %v", letter.ID, err)
	}
	return h.get(t, letter.ID)
}

func (h *harness) get(t *testing.T, id string) *model.Letter {
	t.Helper()
	letter, err := h.letters.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return letter
}

func (h *harness) account(t *testing.T, subscriberID string) *model.AllowanceAccount {
	t.Helper()
	account, err := h.accounts.GetAccount(context.Background(), subscriberID)
	if err != nil {
		t.Fatalf("get account %s: %v", subscriberID, err)
	}
	return account
}

func (h *harness) actions(t *testing.T, letterID, action string) int {
	t.Helper()
	entries, err := h.audit.ListByLetter(context.Background(), letterID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	var n int
	for _, e := range entries {
		if e.Action == action {
			n++
		}
	}
	return n
}
