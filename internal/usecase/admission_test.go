package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
	"github.com/jamilahmedansari/letterdesk/internal/test"
)

func lastTransition(t *testing.T, h *harness, letterID string) model.AuditEntry {
	t.Helper()
	entries, err := h.audit.ListByLetter(context.Background(), letterID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Action == model.AuditActionTransition {
			return entries[i]
		}
	}
	t.Fatalf("no transition recorded for %s", letterID)
	return model.AuditEntry{}
}

func TestCreateLetterValidatesIntake(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	letter := h.createDraft(t, "owner-1")
	if letter.Status != model.StatusDraft || letter.OwnerID != "owner-1" || !letter.IsFirstLetter {
		t.Fatalf("unexpected draft: %+v", letter)
	}
	if got := h.actions(t, letter.ID, model.AuditActionCreated); got != 1 {
		t.Fatalf("expected creation to be audited, got %d", got)
	}

	bad := test.RandomIntake()
	bad.RecipientName = ""
	if _, err := h.coord.CreateLetter(ctx, subscriberPrincipal("owner-1"), bad); !errors.Is(err, domainErrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := h.coord.CreateLetter(ctx, reviewer, test.RandomIntake()); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("reviewers cannot create letters, got %v", err)
	}
	if _, err := h.coord.CreateLetter(ctx, model.Principal{Capability: model.CapabilitySubscriber}, test.RandomIntake()); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("anonymous principals are refused, got %v", err)
	}
}

func TestLetterVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.createDraft(t, "owner-1")

	if _, err := h.coord.Letter(ctx, subscriberPrincipal("owner-1"), letter.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := h.coord.Letter(ctx, reviewer, letter.ID); err != nil {
		t.Fatalf("reviewer read: %v", err)
	}
	if _, err := h.coord.Letter(ctx, subscriberPrincipal("intruder"), letter.ID); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := h.coord.Letter(ctx, subscriberPrincipal("owner-1"), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	h.createDraft(t, "owner-2")
	own, err := h.coord.Letters(ctx, subscriberPrincipal("owner-1"))
	if err != nil || len(own) != 1 || own[0].ID != letter.ID {
		t.Fatalf("expected only the caller's letters, got %v %v", own, err)
	}
}

func TestSubmitMovesDraftIntoGeneration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.createDraft(t, "owner-1")

	moved, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), letter.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if moved.Status != model.StatusGenerating || moved.SubmittedAt == nil {
		t.Fatalf("expected generating letter with submission time, got %+v", moved)
	}
	if ids := h.queue.IDs(); len(ids) != 1 || ids[0] != letter.ID {
		t.Fatalf("expected letter to be queued for generation, got %v", ids)
	}
	if !h.account(t, "owner-1").FreeTrialUsed {
		t.Fatalf("expected the free trial to back the first letter")
	}
	if got := h.actions(t, letter.ID, model.AuditActionReserve); got != 1 {
		t.Fatalf("expected one reservation, got %d", got)
	}
	if entry := lastTransition(t, h, letter.ID); !strings.Contains(entry.Notes, string(model.ReservationTrial)) {
		t.Fatalf("expected reservation kind in transition notes, got %q", entry.Notes)
	}
}

func TestSubmitWithoutAllowanceStaysDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.pending(t, "owner-1")
	second := h.createDraft(t, "owner-1")

	_, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), second.ID)
	if !errors.Is(err, domainErrors.ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
	if domainErrors.Code(err) != domainErrors.CodeInsufficientAllowance {
		t.Fatalf("unexpected code %s", domainErrors.Code(err))
	}
	if got := h.get(t, second.ID); got.Status != model.StatusDraft {
		t.Fatalf("expected draft, got %s", got.Status)
	}
	if got := h.actions(t, second.ID, model.AuditActionTransition); got != 0 {
		t.Fatalf("expected no transition for refused submission, got %d", got)
	}
	if ids := h.queue.IDs(); len(ids) != 1 {
		t.Fatalf("refused submission must not be queued, got %v", ids)
	}
}

func TestSubmitRefusals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.createDraft(t, "owner-1")

	if _, err := h.coord.Submit(ctx, subscriberPrincipal("intruder"), letter.ID); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden for foreign letter, got %v", err)
	}
	if _, err := h.coord.Submit(ctx, reviewer, letter.ID); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden for reviewer, got %v", err)
	}
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), letter.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), letter.ID)
	var invalid *domainErrors.InvalidTransitionError
	if !errors.As(err, &invalid) || invalid.From != model.StatusGenerating {
		t.Fatalf("expected invalid transition from generating, got %v", err)
	}
	if got := h.actions(t, letter.ID, model.AuditActionReserve); got != 1 {
		t.Fatalf("repeat submission must not reserve again, got %d", got)
	}
}

func TestSubmitSurvivesQueueFailure(t *testing.T) {
	h := newHarness(t)
	h.queue.Err = errors.New("queue full")
	letter := h.createDraft(t, "owner-1")

	moved, err := h.coord.Submit(context.Background(), subscriberPrincipal("owner-1"), letter.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if moved.Status != model.StatusGenerating {
		t.Fatalf("expected generating, got %s", moved.Status)
	}
}

func TestConcurrentSubmitsShareSingleCredit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := subscriberPrincipal("owner-1")

	if _, err := h.coord.ActivateSubscription(ctx, systemPrincipal, owner.ID, "basic"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	for i := 0; i < 4; i++ {
		if ok, err := h.coord.DeductAllowance(ctx, owner); err != nil || !ok {
			t.Fatalf("deduct %d: %v %v", i, ok, err)
		}
	}
	if acc := h.account(t, owner.ID); acc.CreditsRemaining != 1 || !acc.FreeTrialUsed {
		t.Fatalf("expected one credit left, got %+v", acc)
	}

	letters := []*model.Letter{h.createDraft(t, owner.ID), h.createDraft(t, owner.ID)}
	errs := make([]error, len(letters))
	var wg sync.WaitGroup
	for i, letter := range letters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.coord.Submit(ctx, owner, letter.ID)
		}()
	}
	wg.Wait()

	var ok, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domainErrors.ErrInsufficientAllowance):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || refused != 1 {
		t.Fatalf("expected one success and one refusal, got %d/%d", ok, refused)
	}
	if acc := h.account(t, owner.ID); acc.CreditsRemaining != 0 {
		t.Fatalf("credits must not go negative, got %d", acc.CreditsRemaining)
	}
}

func TestSubmitReleasesReservationWhenTransitionFails(t *testing.T) {
	boom := errors.New("boom")
	h := newHarness(t, withLetters(func(r repository.LetterRepository) repository.LetterRepository {
		return &test.LetterRepositoryStub{
			LetterRepository: r,
			ApplyTransitionFn: func(ctx context.Context, change model.StatusChange) (*model.Letter, error) {
				if change.Target == model.StatusGenerating {
					return nil, boom
				}
				return r.ApplyTransition(ctx, change)
			},
		}
	}))
	letter := h.createDraft(t, "owner-1")

	if _, err := h.coord.Submit(context.Background(), subscriberPrincipal("owner-1"), letter.ID); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if h.account(t, "owner-1").FreeTrialUsed {
		t.Fatalf("expected trial to be returned")
	}
	if got := h.actions(t, letter.ID, model.AuditActionRelease); got != 1 {
		t.Fatalf("expected one release, got %d", got)
	}
}

func TestGenerateProducesDraft(t *testing.T) {
	h := newHarness(t)
	letter := h.pending(t, "owner-1")

	if letter.Status != model.StatusPendingReview {
		t.Fatalf("expected pending_review, got %s", letter.Status)
	}
	if letter.DraftText != "draft: "+letter.Intake.Subject {
		t.Fatalf("unexpected draft %q", letter.DraftText)
	}
	if h.generator.Calls() != 1 {
		t.Fatalf("expected one generation call, got %d", h.generator.Calls())
	}
}

func TestGenerateFailureReleasesAllowance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.generator.GenerateFn = func(context.Context, model.Intake) (string, error) {
		return "", errors.New("model unavailable")
	}
	letter := h.createDraft(t, "owner-1")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), letter.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := h.coord.Generate(ctx, letter.ID)
	var genErr *domainErrors.GenerationError
	if !errors.As(err, &genErr) || domainErrors.Code(err) != domainErrors.CodeGenerationFailed {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if got := h.get(t, letter.ID); got.Status != model.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if entry := lastTransition(t, h, letter.ID); !strings.HasPrefix(entry.Notes, "GenerationError:") {
		t.Fatalf("unexpected failure note %q", entry.Notes)
	}
	if h.account(t, "owner-1").FreeTrialUsed {
		t.Fatalf("expected trial to be restored")
	}
	if got := h.actions(t, letter.ID, model.AuditActionRelease); got != 1 {
		t.Fatalf("expected one release, got %d", got)
	}
}

func TestGenerateTimeout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.generator.GenerateFn = func(ctx context.Context, _ model.Intake) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	letter := h.createDraft(t, "owner-1")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), letter.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := h.coord.Generate(ctx, letter.ID)
	var timeout *domainErrors.TimeoutError
	if !errors.As(err, &timeout) || timeout.After != 50*time.Millisecond {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if entry := lastTransition(t, h, letter.ID); !strings.HasPrefix(entry.Notes, "TimeoutError:") || *entry.NewStatus != model.StatusFailed {
		t.Fatalf("unexpected failure entry %+v", entry)
	}
}

func TestGenerateSkipsLettersOutsideGeneration(t *testing.T) {
	h := newHarness(t)
	letter := h.createDraft(t, "owner-1")

	if err := h.coord.Generate(context.Background(), letter.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if h.generator.Calls() != 0 {
		t.Fatalf("generator must not run for drafts")
	}
	if err := h.coord.Generate(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGenerateDiscardsDraftForSweptLetter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.createDraft(t, "owner-1")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), letter.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	h.generator.GenerateFn = func(context.Context, model.Intake) (string, error) {
		h.clock.Advance(time.Hour)
		if n, err := h.coord.SweepStaleGenerating(ctx, 15*time.Minute); err != nil || n != 1 {
			t.Errorf("sweep during generation: %d %v", n, err)
		}
		return "late draft", nil
	}

	if err := h.coord.Generate(ctx, letter.ID); err != nil {
		t.Fatalf("late result must be discarded quietly, got %v", err)
	}
	got := h.get(t, letter.ID)
	if got.Status != model.StatusFailed || got.DraftText != "" {
		t.Fatalf("expected failed letter without draft, got %+v", got)
	}
	if n := h.actions(t, letter.ID, model.AuditActionRelease); n != 1 {
		t.Fatalf("expected exactly one release, got %d", n)
	}
}

func TestSweepFailsStaleLettersOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stuck := h.createDraft(t, "owner-1")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), stuck.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.clock.Advance(20 * time.Minute)
	fresh := h.createDraft(t, "owner-2")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-2"), fresh.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := h.coord.SweepStaleGenerating(ctx, 15*time.Minute)
			if err != nil {
				t.Errorf("sweep: %v", err)
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Fatalf("expected one letter swept in total, got %d", total)
	}
	if got := h.get(t, stuck.ID); got.Status != model.StatusFailed {
		t.Fatalf("expected stuck letter to fail, got %s", got.Status)
	}
	if entry := lastTransition(t, h, stuck.ID); !strings.HasPrefix(entry.Notes, "TimeoutError:") || entry.Actor != SystemActor {
		t.Fatalf("unexpected sweep entry %+v", entry)
	}
	if got := h.get(t, fresh.ID); got.Status != model.StatusGenerating {
		t.Fatalf("fresh letter must be left alone, got %s", got.Status)
	}
	if n := h.actions(t, stuck.ID, model.AuditActionRelease); n != 1 {
		t.Fatalf("expected exactly one release, got %d", n)
	}
	if h.account(t, "owner-1").FreeTrialUsed {
		t.Fatalf("expected trial to be restored")
	}
}

func TestRequeueGeneratingResumesRecentLetters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	old := h.createDraft(t, "owner-1")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), old.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.clock.Advance(2 * time.Hour)
	recent := h.createDraft(t, "owner-2")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-2"), recent.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.clock.Advance(time.Minute)

	queued, err := h.coord.RequeueGenerating(ctx, time.Hour)
	if err != nil || queued != 1 {
		t.Fatalf("expected only the recent letter requeued, got %d %v", queued, err)
	}
	if ids := h.queue.IDs(); len(ids) != 3 || ids[2] != recent.ID {
		t.Fatalf("unexpected queue contents %v", ids)
	}

	h.queue.Err = errors.New("queue full")
	if queued, err := h.coord.RequeueGenerating(ctx, 3*time.Hour); err != nil || queued != 0 {
		t.Fatalf("expected a refused requeue to stop quietly, got %d %v", queued, err)
	}
	h.queue.Err = nil

	if err := h.coord.Generate(ctx, recent.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := h.get(t, recent.ID); got.Status != model.StatusPendingReview {
		t.Fatalf("expected requeued letter drafted, got %s", got.Status)
	}
	if queued, _ := h.coord.RequeueGenerating(ctx, 3*time.Hour); queued != 1 {
		t.Fatalf("expected only the old letter left to requeue, got %d", queued)
	}
}

func TestRequeueGeneratingStorageError(t *testing.T) {
	boom := errors.New("boom")
	h := newHarness(t, withLetters(func(r repository.LetterRepository) repository.LetterRepository {
		return &test.LetterRepositoryStub{
			LetterRepository: r,
			GeneratingFn: func(context.Context, time.Time, int) ([]model.Letter, error) {
				return nil, boom
			},
		}
	}))
	if _, err := h.coord.RequeueGenerating(context.Background(), time.Hour); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestSweepReleasesOrphanedReservations(t *testing.T) {
	var failures int
	h := newHarness(t, withAccounts(func(r repository.AllowanceRepository) repository.AllowanceRepository {
		return &test.AllowanceRepositoryStub{
			AllowanceRepository: r,
			ReleaseFn: func(ctx context.Context, id, actor string) (bool, error) {
				if failures == 0 {
					failures++
					return false, errors.New("connection reset")
				}
				return r.Release(ctx, id, actor)
			},
		}
	}))
	ctx := context.Background()
	h.generator.GenerateFn = func(context.Context, model.Intake) (string, error) {
		return "", errors.New("model unavailable")
	}
	letter := h.createDraft(t, "owner-1")
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), letter.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := h.coord.Generate(ctx, letter.ID); err == nil {
		t.Fatalf("expected release failure to surface")
	}
	if got := h.get(t, letter.ID); got.Status != model.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !h.account(t, "owner-1").FreeTrialUsed {
		t.Fatalf("reservation should still be held")
	}

	n, err := h.coord.SweepStaleGenerating(ctx, 15*time.Minute)
	if err != nil || n != 0 {
		t.Fatalf("sweep: %d %v", n, err)
	}
	if h.account(t, "owner-1").FreeTrialUsed {
		t.Fatalf("expected orphaned reservation to be released")
	}
}

func TestRejectAndResubmit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := subscriberPrincipal("owner-1")
	letter := h.pending(t, owner.ID)

	if _, err := h.coord.NextForReview(ctx, reviewer); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := h.coord.Reject(ctx, reviewer, letter.ID, ""); !errors.Is(err, domainErrors.ErrInvalidInput) {
		t.Fatalf("rejection needs a reason, got %v", err)
	}
	rejected, err := h.coord.Reject(ctx, reviewer, letter.ID, "missing invoice number")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "missing invoice number" {
		t.Fatalf("expected rejection reason, got %+v", rejected)
	}

	intake := test.RandomIntake()
	if _, err := h.coord.Resubmit(ctx, subscriberPrincipal("intruder"), letter.ID, intake); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	moved, err := h.coord.Resubmit(ctx, owner, letter.ID, intake)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if moved.Status != model.StatusGenerating || !moved.IsFirstLetter || moved.RejectionReason != nil {
		t.Fatalf("unexpected resubmitted letter %+v", moved)
	}
	if moved.Intake.Subject != intake.Subject {
		t.Fatalf("expected fresh intake")
	}
	if n := h.actions(t, letter.ID, model.AuditActionReserve); n != 1 {
		t.Fatalf("resubmission must not reserve again, got %d", n)
	}

	if err := h.coord.Generate(ctx, letter.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := h.get(t, letter.ID); got.Status != model.StatusPendingReview || !got.IsFirstLetter {
		t.Fatalf("expected pending first letter, got %+v", got)
	}

	draft := h.createDraft(t, owner.ID)
	_, err = h.coord.Resubmit(ctx, owner, draft.ID, intake)
	var invalid *domainErrors.InvalidTransitionError
	if !errors.As(err, &invalid) || invalid.From != model.StatusDraft {
		t.Fatalf("drafts cannot be resubmitted, got %v", err)
	}
}

func TestDecisionsNotifyOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.pending(t, "owner-1")

	if _, err := h.coord.Approve(ctx, reviewer, letter.ID); !errors.As(err, new(*domainErrors.InvalidTransitionError)) {
		t.Fatalf("approving an unclaimed letter must fail, got %v", err)
	}
	if _, err := h.coord.Approve(ctx, subscriberPrincipal("owner-1"), letter.ID); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("owners cannot approve, got %v", err)
	}
	if _, err := h.coord.NextForReview(ctx, reviewer); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := h.coord.Approve(ctx, reviewer, letter.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	completed, err := h.coord.Complete(ctx, systemPrincipal, letter.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.CompletedAt == nil {
		t.Fatalf("expected completion time")
	}
	h.coord.Wait()

	events := h.notifier.Events()
	if len(events) != 2 {
		t.Fatalf("expected two notifications, got %d", len(events))
	}
	seen := map[model.LetterStatus]bool{}
	for _, e := range events {
		if e.LetterID != letter.ID || e.OwnerID != "owner-1" {
			t.Fatalf("unexpected event %+v", e)
		}
		seen[e.Status] = true
	}
	if !seen[model.StatusApproved] || !seen[model.StatusCompleted] {
		t.Fatalf("expected approved and completed events, got %v", events)
	}
}

func TestNotificationFailureKeepsDecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notifier.Err = errors.New("sink down")
	letter := h.pending(t, "owner-1")
	if _, err := h.coord.NextForReview(ctx, reviewer); err != nil {
		t.Fatalf("next: %v", err)
	}

	if _, err := h.coord.Reject(ctx, reviewer, letter.ID, "unclear demand"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	h.coord.Wait()

	if got := h.get(t, letter.ID); got.Status != model.StatusRejected {
		t.Fatalf("expected rejected, got %s", got.Status)
	}
	if events := h.notifier.Events(); len(events) != 1 || events[0].Reason != "unclear demand" {
		t.Fatalf("expected one attempted delivery with reason, got %v", events)
	}
}

func TestQueueAccessByCapability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.pending(t, "owner-1")

	if pos, err := h.coord.QueuePosition(ctx, subscriberPrincipal("owner-1"), letter.ID); err != nil || pos != 1 {
		t.Fatalf("owner position: %d %v", pos, err)
	}
	if _, err := h.coord.QueuePosition(ctx, subscriberPrincipal("intruder"), letter.ID); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := h.coord.ReviewQueue(ctx, subscriberPrincipal("owner-1")); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("subscribers cannot list the queue, got %v", err)
	}
	if _, err := h.coord.Priority(ctx, subscriberPrincipal("owner-1"), letter.ID); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("subscribers cannot read priority, got %v", err)
	}
	if _, err := h.coord.NextForReview(ctx, systemPrincipal); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("only reviewers claim letters, got %v", err)
	}

	items, err := h.coord.ReviewQueue(ctx, reviewer)
	if err != nil || len(items) != 1 || items[0].LetterID != letter.ID {
		t.Fatalf("unexpected queue %v %v", items, err)
	}
	if score, err := h.coord.Priority(ctx, reviewer, letter.ID); err != nil || score != 24 {
		t.Fatalf("expected bonus-only score at submission time, got %v %v", score, err)
	}
}

func TestAuditHistoryReplaysToCurrentStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.pending(t, "owner-1")
	if _, err := h.coord.NextForReview(ctx, reviewer); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := h.coord.Approve(ctx, reviewer, letter.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := h.coord.LogAudit(ctx, reviewer, model.AuditEntry{LetterID: letter.ID, Action: "note", Notes: "called sender"}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if _, err := h.coord.Complete(ctx, reviewer, letter.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	h.coord.Wait()

	history, err := h.coord.AuditHistory(ctx, reviewer, letter.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	status, err := ReplayStatus(history)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if status != model.StatusCompleted || status != h.get(t, letter.ID).Status {
		t.Fatalf("replayed %s, stored %s", status, h.get(t, letter.ID).Status)
	}
	if _, err := h.coord.AuditHistory(ctx, subscriberPrincipal("owner-1"), letter.ID); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("subscribers cannot read audit history, got %v", err)
	}
}

func TestLogAuditRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	letter := h.createDraft(t, "owner-1")

	entry, err := h.coord.LogAudit(ctx, reviewer, model.AuditEntry{LetterID: letter.ID, Action: " escalated ", Actor: "spoofed"})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if entry.Actor != reviewer.ID || entry.SubscriberID != "owner-1" || entry.Action != "escalated" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	invalid := []model.AuditEntry{
		{LetterID: letter.ID, Action: model.AuditActionTransition},
		{LetterID: letter.ID, Action: model.AuditActionRelease},
		{LetterID: letter.ID, Action: ""},
		{LetterID: letter.ID, Action: strings.Repeat("a", 65)},
		{LetterID: letter.ID, Action: "note", Notes: strings.Repeat("n", 2001)},
		{LetterID: letter.ID, Action: "note", NewStatus: model.StatusPtr("archived")},
	}
	for _, e := range invalid {
		if _, err := h.coord.LogAudit(ctx, reviewer, e); !errors.Is(err, domainErrors.ErrInvalidInput) {
			t.Errorf("%+v: expected invalid input, got %v", e, err)
		}
	}
	if _, err := h.coord.LogAudit(ctx, reviewer, model.AuditEntry{LetterID: "missing", Action: "note"}); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.coord.LogAudit(ctx, subscriberPrincipal("owner-1"), model.AuditEntry{LetterID: letter.ID, Action: "note"}); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestActivateSubscriptionRequiresSystem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.coord.ActivateSubscription(ctx, reviewer, "owner-1", "pro"); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	account, err := h.coord.ActivateSubscription(ctx, systemPrincipal, "owner-1", "pro")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if account.PlanTier != "pro" || account.CreditsRemaining != 8 || !account.Active {
		t.Fatalf("unexpected account %+v", account)
	}

	status, err := h.coord.CheckAllowance(ctx, subscriberPrincipal("owner-1"))
	if err != nil || !status.HasAllowance || status.Remaining != 8 {
		t.Fatalf("unexpected allowance %+v %v", status, err)
	}
	if _, err := h.coord.ResetMonthly(ctx, subscriberPrincipal("owner-1"), ""); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("subscribers cannot reset allowances, got %v", err)
	}
	if _, err := h.coord.ResetMonthly(ctx, reviewer, ""); err != nil {
		t.Fatalf("reviewer reset: %v", err)
	}
}
