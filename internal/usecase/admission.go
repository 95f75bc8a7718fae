package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
)

// SystemActor is recorded for transitions driven by the engine itself.
const SystemActor = "system"

const (
	defaultGenerationTimeout = 2 * time.Minute
	defaultSweepBatchSize    = 50
	defaultSweepConcurrency  = 4
	cleanupTimeout           = 10 * time.Second
	notifyTimeout            = 10 * time.Second
)

// DraftGenerator produces the draft text for an intake.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, intake model.Intake) (string, error)
}

// Notifier is told about reviewer decisions. Delivery failures never roll back a transition.
type Notifier interface {
	Notify(ctx context.Context, event model.LetterEvent) error
}

// GenerationQueue schedules asynchronous draft generation.
type GenerationQueue interface {
	Enqueue(ctx context.Context, letterID string) error
}

// AdmissionOptions tunes the coordinator.
type AdmissionOptions struct {
	GenerationTimeout time.Duration
	RetryAttempts     int
	SweepBatchSize    int
	SweepConcurrency  int
}

// AdmissionCoordinator is the capability-checked entry point to the engine.
type AdmissionCoordinator struct {
	letters   repository.LetterRepository
	machine   *StateMachine
	ledger    *AllowanceLedger
	scheduler *Scheduler
	recorder  *AuditRecorder
	generator DraftGenerator
	notifier  Notifier
	queue     GenerationQueue
	logger    *slog.Logger
	opts      AdmissionOptions
	retry     retrier
	now       func() time.Time
	pending   sync.WaitGroup
}

// CoordinatorDeps groups the collaborators of AdmissionCoordinator.
type CoordinatorDeps struct {
	Letters   repository.LetterRepository
	Machine   *StateMachine
	Ledger    *AllowanceLedger
	Scheduler *Scheduler
	Recorder  *AuditRecorder
	Generator DraftGenerator
	Notifier  Notifier
	Queue     GenerationQueue
	Logger    *slog.Logger
}

// NewAdmissionCoordinator constructs AdmissionCoordinator.
func NewAdmissionCoordinator(deps CoordinatorDeps, opts AdmissionOptions) *AdmissionCoordinator {
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaultGenerationTimeout
	}
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = defaultSweepBatchSize
	}
	if opts.SweepConcurrency <= 0 {
		opts.SweepConcurrency = defaultSweepConcurrency
	}
	return &AdmissionCoordinator{
		letters:   deps.Letters,
		machine:   deps.Machine,
		ledger:    deps.Ledger,
		scheduler: deps.Scheduler,
		recorder:  deps.Recorder,
		generator: deps.Generator,
		notifier:  deps.Notifier,
		queue:     deps.Queue,
		logger:    deps.Logger,
		opts:      opts,
		retry:     newRetrier(opts.RetryAttempts),
		now:       time.Now,
	}
}

func require(p model.Principal, caps ...model.Capability) error {
	if p.ID == "" || !p.Has(caps...) {
		return domainErrors.ErrForbidden
	}
	return nil
}

func (c *AdmissionCoordinator) ownedLetter(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error) {
	letter, err := c.letters.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if letter.OwnerID != p.ID {
		return nil, domainErrors.ErrForbidden
	}
	return letter, nil
}

// CreateLetter stores a validated intake as a new draft owned by p.
func (c *AdmissionCoordinator) CreateLetter(ctx context.Context, p model.Principal, intake model.Intake) (*model.Letter, error) {
	if err := require(p, model.CapabilitySubscriber); err != nil {
		return nil, err
	}
	clean, err := ValidateIntake(intake)
	if err != nil {
		return nil, err
	}
	return c.letters.Create(ctx, &model.Letter{
		ID:        uuid.NewString(),
		OwnerID:   p.ID,
		Intake:    clean,
		CreatedAt: c.now().UTC(),
	}, p.ID)
}

// Letters lists the caller's own letters, newest first.
func (c *AdmissionCoordinator) Letters(ctx context.Context, p model.Principal) ([]model.Letter, error) {
	if err := require(p, model.CapabilitySubscriber); err != nil {
		return nil, err
	}
	return c.letters.ListByOwner(ctx, p.ID)
}

// Letter returns a letter to its owner or to a reviewer.
func (c *AdmissionCoordinator) Letter(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error) {
	if p.Has(model.CapabilityReviewer, model.CapabilitySystem) {
		return c.letters.Get(ctx, letterID)
	}
	if err := require(p, model.CapabilitySubscriber); err != nil {
		return nil, err
	}
	return c.ownedLetter(ctx, p, letterID)
}

// Submit reserves allowance for a draft and moves it into generation.
// Without allowance the letter stays in draft.
func (c *AdmissionCoordinator) Submit(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error) {
	if err := require(p, model.CapabilitySubscriber); err != nil {
		return nil, err
	}
	letter, err := c.ownedLetter(ctx, p, letterID)
	if err != nil {
		return nil, err
	}
	if letter.Status != model.StatusDraft {
		return nil, &domainErrors.InvalidTransitionError{From: letter.Status, To: model.StatusGenerating}
	}

	reservation, err := c.ledger.Reserve(ctx, letter.OwnerID, letter.ID, p.ID)
	if err != nil {
		return nil, err
	}

	var moved *model.Letter
	err = c.retry.do(ctx, func(ctx context.Context) error {
		current, err := c.letters.Get(ctx, letter.ID)
		if err != nil {
			return err
		}
		if current.Status != model.StatusDraft {
			return &domainErrors.InvalidTransitionError{From: current.Status, To: model.StatusGenerating}
		}
		moved, err = c.machine.Transition(ctx, model.StatusChange{
			LetterID: letter.ID,
			Expected: model.StatusDraft,
			Target:   model.StatusGenerating,
			Actor:    p.ID,
			Notes:    fmt.Sprintf("reservation %s (%s)", reservation.ID, reservation.Kind),
		})
		return err
	})
	if err != nil {
		c.releaseIfStillDraft(ctx, reservation.ID, letter.ID)
		return nil, err
	}

	c.enqueue(ctx, moved.ID)
	return moved, nil
}

// Resubmit sends a rejected letter back to generation with a fresh intake.
// The original reservation still covers the letter.
func (c *AdmissionCoordinator) Resubmit(ctx context.Context, p model.Principal, letterID string, intake model.Intake) (*model.Letter, error) {
	if err := require(p, model.CapabilitySubscriber); err != nil {
		return nil, err
	}
	clean, err := ValidateIntake(intake)
	if err != nil {
		return nil, err
	}

	var moved *model.Letter
	err = c.retry.do(ctx, func(ctx context.Context) error {
		letter, err := c.ownedLetter(ctx, p, letterID)
		if err != nil {
			return err
		}
		if letter.Status != model.StatusRejected {
			return &domainErrors.InvalidTransitionError{From: letter.Status, To: model.StatusGenerating}
		}
		moved, err = c.machine.Transition(ctx, model.StatusChange{
			LetterID: letter.ID,
			Expected: model.StatusRejected,
			Target:   model.StatusGenerating,
			Actor:    p.ID,
			Notes:    "resubmitted",
			Intake:   &clean,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.enqueue(ctx, moved.ID)
	return moved, nil
}

func (c *AdmissionCoordinator) enqueue(ctx context.Context, letterID string) {
	if c.queue == nil {
		return
	}
	if err := c.queue.Enqueue(ctx, letterID); err != nil {
		c.logger.Warn("generation not queued, letter will be requeued",
			slog.String("letter_id", letterID),
			slog.String("error", err.Error()),
		)
	}
}

// releaseIfStillDraft returns the reservation of a submission that never left draft.
// A letter moved on by a concurrent submit keeps the shared reservation.
func (c *AdmissionCoordinator) releaseIfStillDraft(ctx context.Context, reservationID, letterID string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	letter, err := c.letters.Get(cleanupCtx, letterID)
	if err == nil && letter.Status != model.StatusDraft {
		return
	}
	if _, err := c.ledger.Release(cleanupCtx, reservationID, SystemActor); err != nil {
		c.logger.Error("failed to release reservation",
			slog.String("letter_id", letterID),
			slog.String("reservation_id", reservationID),
			slog.String("error", err.Error()),
		)
	}
}

// Generate drafts a letter that is in generating. Success moves it to pending_review;
// failure or timeout moves it to failed and releases its reservation. A letter that
// already left generating is skipped and its result discarded.
func (c *AdmissionCoordinator) Generate(ctx context.Context, letterID string) error {
	letter, err := c.letters.Get(ctx, letterID)
	if err != nil {
		return err
	}
	if letter.Status != model.StatusGenerating {
		c.logger.Info("skipping generation", slog.String("letter_id", letterID), slog.String("status", string(letter.Status)))
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, c.opts.GenerationTimeout)
	text, genErr := c.generator.GenerateDraft(genCtx, letter.Intake)
	timedOut := errors.Is(genCtx.Err(), context.DeadlineExceeded)
	cancel()

	if genErr != nil {
		var cause error = &domainErrors.GenerationError{LetterID: letterID, Err: genErr}
		if timedOut {
			cause = &domainErrors.TimeoutError{LetterID: letterID, After: c.opts.GenerationTimeout}
		}
		if err := c.fail(ctx, letterID, cause); err != nil {
			return err
		}
		return cause
	}

	_, err = c.machine.Transition(ctx, model.StatusChange{
		LetterID:  letterID,
		Expected:  model.StatusGenerating,
		Target:    model.StatusPendingReview,
		Actor:     SystemActor,
		DraftText: &text,
	})
	var stale *domainErrors.StaleStateError
	if errors.As(err, &stale) {
		c.logger.Warn("discarding draft for letter that left generating",
			slog.String("letter_id", letterID),
			slog.String("status", string(stale.Actual)),
		)
		return nil
	}
	return err
}

// fail moves a generating letter to failed and releases its reservation. It keeps
// working after ctx is cancelled so a letter is never left in generating.
func (c *AdmissionCoordinator) fail(ctx context.Context, letterID string, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	_, err := c.machine.Transition(ctx, model.StatusChange{
		LetterID: letterID,
		Expected: model.StatusGenerating,
		Target:   model.StatusFailed,
		Actor:    SystemActor,
		Notes:    domainErrors.AuditNote(cause),
	})
	var stale *domainErrors.StaleStateError
	switch {
	case errors.As(err, &stale):
		c.logger.Info("letter already left generating", slog.String("letter_id", letterID), slog.String("status", string(stale.Actual)))
		return nil
	case err != nil:
		return err
	}

	c.logger.Warn("letter failed", slog.String("letter_id", letterID), slog.String("error", cause.Error()))
	if _, err := c.ledger.ReleaseForLetter(ctx, letterID, SystemActor); err != nil {
		return fmt.Errorf("release allowance for %s: %w", letterID, err)
	}
	return nil
}

// SweepStaleGenerating fails letters stuck in generating for longer than maxDuration
// and releases any reservation still held by a failed letter. It returns the number
// of letters it moved to failed.
func (c *AdmissionCoordinator) SweepStaleGenerating(ctx context.Context, maxDuration time.Duration) (int, error) {
	before := c.now().UTC().Add(-maxDuration)
	stale, err := c.letters.ListStaleGenerating(ctx, before, c.opts.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale letters: %w", err)
	}

	var swept atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.SweepConcurrency)
	for _, letter := range stale {
		g.Go(func() error {
			moved, err := c.machine.Transition(gctx, model.StatusChange{
				LetterID: letter.ID,
				Expected: model.StatusGenerating,
				Target:   model.StatusFailed,
				Actor:    SystemActor,
				Notes:    domainErrors.AuditNote(&domainErrors.TimeoutError{LetterID: letter.ID, After: maxDuration}),
			})
			var staleErr *domainErrors.StaleStateError
			if errors.As(err, &staleErr) {
				return nil
			}
			if err != nil {
				return err
			}
			swept.Add(1)
			_, err = c.ledger.ReleaseForLetter(gctx, moved.ID, SystemActor)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return int(swept.Load()), fmt.Errorf("sweep stale letters: %w", err)
	}

	orphans, err := c.ledger.ReleaseOrphaned(ctx, c.opts.SweepBatchSize, SystemActor)
	if err != nil {
		return int(swept.Load()), err
	}

	if n := swept.Load(); n > 0 || orphans > 0 {
		c.logger.Info("stale generation sweep",
			slog.Int64("failed", n),
			slog.Int("orphans_released", orphans),
		)
	}
	return int(swept.Load()), nil
}

// RequeueGenerating hands letters still in generating and submitted within maxDuration
// back to the generation queue, so letters left behind by a restart or a full queue are
// drafted rather than swept. It stops at the first letter the queue refuses and returns
// the number of letters handed over.
func (c *AdmissionCoordinator) RequeueGenerating(ctx context.Context, maxDuration time.Duration) (int, error) {
	if c.queue == nil {
		return 0, nil
	}
	since := c.now().UTC().Add(-maxDuration)
	letters, err := c.letters.ListGenerating(ctx, since, c.opts.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list generating letters: %w", err)
	}

	queued := 0
	for _, letter := range letters {
		if err := c.queue.Enqueue(ctx, letter.ID); err != nil {
			c.logger.Info("requeue interrupted",
				slog.String("letter_id", letter.ID),
				slog.String("error", err.Error()),
			)
			break
		}
		queued++
	}
	if queued > 0 {
		c.logger.Info("requeued generating letters", slog.Int("count", queued))
	}
	return queued, nil
}

// QueuePosition returns the rank of a letter awaiting review.
func (c *AdmissionCoordinator) QueuePosition(ctx context.Context, p model.Principal, letterID string) (int, error) {
	if !p.Has(model.CapabilityReviewer) {
		if err := require(p, model.CapabilitySubscriber); err != nil {
			return 0, err
		}
		if _, err := c.ownedLetter(ctx, p, letterID); err != nil {
			return 0, err
		}
	}
	return c.scheduler.Position(ctx, letterID)
}

// ReviewQueue lists pending letters in priority order.
func (c *AdmissionCoordinator) ReviewQueue(ctx context.Context, p model.Principal) ([]model.QueueItem, error) {
	if err := require(p, model.CapabilityReviewer); err != nil {
		return nil, err
	}
	return c.scheduler.Queue(ctx)
}

// Priority returns the current score of a pending letter.
func (c *AdmissionCoordinator) Priority(ctx context.Context, p model.Principal, letterID string) (float64, error) {
	if err := require(p, model.CapabilityReviewer); err != nil {
		return 0, err
	}
	return c.scheduler.Priority(ctx, letterID)
}

// NextForReview claims the best pending letter for the reviewer. It returns nil when nothing is waiting.
func (c *AdmissionCoordinator) NextForReview(ctx context.Context, p model.Principal) (*model.QueueItem, error) {
	if err := require(p, model.CapabilityReviewer); err != nil {
		return nil, err
	}
	return c.scheduler.Next(ctx, p.ID)
}

// Approve accepts a letter under review.
func (c *AdmissionCoordinator) Approve(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error) {
	return c.decide(ctx, p, letterID, model.StatusUnderReview, model.StatusApproved, "")
}

// Reject returns a letter under review to its owner with reason.
func (c *AdmissionCoordinator) Reject(ctx context.Context, p model.Principal, letterID, reason string) (*model.Letter, error) {
	return c.decide(ctx, p, letterID, model.StatusUnderReview, model.StatusRejected, reason)
}

// Complete marks an approved letter as delivered.
func (c *AdmissionCoordinator) Complete(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error) {
	return c.decide(ctx, p, letterID, model.StatusApproved, model.StatusCompleted, "")
}

func (c *AdmissionCoordinator) decide(ctx context.Context, p model.Principal, letterID string, from, to model.LetterStatus, notes string) (*model.Letter, error) {
	if err := require(p, model.CapabilityReviewer, model.CapabilitySystem); err != nil {
		return nil, err
	}

	var moved *model.Letter
	err := c.retry.do(ctx, func(ctx context.Context) error {
		letter, err := c.letters.Get(ctx, letterID)
		if err != nil {
			return err
		}
		if letter.Status != from {
			return &domainErrors.InvalidTransitionError{From: letter.Status, To: to}
		}
		moved, err = c.machine.Transition(ctx, model.StatusChange{
			LetterID: letterID,
			Expected: from,
			Target:   to,
			Actor:    p.ID,
			Notes:    notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.notify(ctx, moved, notes)
	return moved, nil
}

func (c *AdmissionCoordinator) notify(ctx context.Context, letter *model.Letter, reason string) {
	if c.notifier == nil {
		return
	}
	event := model.LetterEvent{
		LetterID:   letter.ID,
		OwnerID:    letter.OwnerID,
		Status:     letter.Status,
		Reason:     reason,
		OccurredAt: letter.UpdatedAt,
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := c.notifier.Notify(notifyCtx, event); err != nil {
			c.logger.Warn("notification failed",
				slog.String("letter_id", event.LetterID),
				slog.String("status", string(event.Status)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (c *AdmissionCoordinator) Wait() {
	c.pending.Wait()
}

// CheckAllowance reports the caller's allowance.
func (c *AdmissionCoordinator) CheckAllowance(ctx context.Context, p model.Principal) (*model.AllowanceStatus, error) {
	if err := require(p, model.CapabilitySubscriber); err != nil {
		return nil, err
	}
	return c.ledger.CheckAllowance(ctx, p.ID)
}

// DeductAllowance consumes one unit of the caller's allowance without a letter.
func (c *AdmissionCoordinator) DeductAllowance(ctx context.Context, p model.Principal) (bool, error) {
	if err := require(p, model.CapabilitySubscriber); err != nil {
		return false, err
	}
	return c.ledger.Deduct(ctx, p.ID, p.ID)
}

// ResetMonthly restores entitlements for period.
func (c *AdmissionCoordinator) ResetMonthly(ctx context.Context, p model.Principal, period string) (int64, error) {
	if err := require(p, model.CapabilityReviewer, model.CapabilitySystem); err != nil {
		return 0, err
	}
	return c.ledger.ResetMonthly(ctx, period, p.ID)
}

// ActivateSubscription starts or changes a subscriber's plan.
func (c *AdmissionCoordinator) ActivateSubscription(ctx context.Context, p model.Principal, subscriberID string, tier model.PlanTier) (*model.AllowanceAccount, error) {
	if err := require(p, model.CapabilitySystem); err != nil {
		return nil, err
	}
	return c.ledger.Activate(ctx, subscriberID, tier, p.ID)
}

// LogAudit appends a reviewer note to a letter's audit history.
func (c *AdmissionCoordinator) LogAudit(ctx context.Context, p model.Principal, entry model.AuditEntry) (*model.AuditEntry, error) {
	if err := require(p, model.CapabilityReviewer, model.CapabilitySystem); err != nil {
		return nil, err
	}
	entry.Actor = p.ID
	return c.recorder.Log(ctx, entry)
}

// AuditHistory returns the audit trail of one letter.
func (c *AdmissionCoordinator) AuditHistory(ctx context.Context, p model.Principal, letterID string) ([]model.AuditEntry, error) {
	if err := require(p, model.CapabilityReviewer, model.CapabilitySystem); err != nil {
		return nil, err
	}
	return c.recorder.History(ctx, letterID)
}

// AuditRange returns audit entries created in [from, to).
func (c *AdmissionCoordinator) AuditRange(ctx context.Context, p model.Principal, from, to time.Time, limit int) ([]model.AuditEntry, error) {
	if err := require(p, model.CapabilityReviewer, model.CapabilitySystem); err != nil {
		return nil, err
	}
	return c.recorder.Range(ctx, from, to, limit)
}
