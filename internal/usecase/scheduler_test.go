package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
	"github.com/jamilahmedansari/letterdesk/internal/test"
)

func TestScoreFormula(t *testing.T) {
	plans := testPlans()
	now := time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)

	score, wait := Score(model.QueueCandidate{PlanTier: "pro", SubmittedAt: now.Add(-3 * time.Hour)}, plans, now)
	if wait != 3 || score != 6 {
		t.Fatalf("expected 3h * 2.0 = 6, got score %v wait %v", score, wait)
	}

	score, _ = Score(model.QueueCandidate{PlanTier: "free", IsFirstLetter: true, SubmittedAt: now.Add(-time.Hour)}, plans, now)
	if score != 25 {
		t.Fatalf("expected 1h * 1.0 + 24, got %v", score)
	}

	score, wait = Score(model.QueueCandidate{PlanTier: "unknown", SubmittedAt: now.Add(time.Hour)}, plans, now)
	if wait != 0 || score != 0 {
		t.Fatalf("future submissions must not score negative, got %v %v", score, wait)
	}
}

func TestRankOrdering(t *testing.T) {
	plans := testPlans()
	now := time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)
	early := now.Add(-2 * time.Hour)

	items := Rank([]model.QueueCandidate{
		{LetterID: "b", PlanTier: "free", SubmittedAt: early},
		{LetterID: "a", PlanTier: "free", SubmittedAt: early},
		{LetterID: "veteran", PlanTier: "pro", SubmittedAt: now.Add(-10 * time.Hour)},
		{LetterID: "newcomer", PlanTier: "free", IsFirstLetter: true, SubmittedAt: now.Add(-time.Hour)},
		{LetterID: "later", PlanTier: "basic", SubmittedAt: now.Add(-time.Hour - 20*time.Minute)},
	}, plans, now)

	want := []string{"newcomer", "veteran", "later", "a", "b"}
	for i, id := range want {
		if items[i].LetterID != id || items[i].Position != i+1 {
			t.Fatalf("position %d: expected %s, got %s (%d)", i+1, id, items[i].LetterID, items[i].Position)
		}
	}
	if items[2].Score != items[3].Score {
		t.Fatalf("expected a tie between later and a, got %v and %v", items[2].Score, items[3].Score)
	}
}

func TestNextDrainsInNonIncreasingScoreOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	owners := map[string]model.PlanTier{"p1": "pro", "b1": "basic", "f1": "free", "e1": "enterprise", "f2": "free"}
	for owner, tier := range owners {
		if tier != model.PlanFree {
			if _, err := h.ledger.Activate(ctx, owner, tier, SystemActor); err != nil {
				t.Fatalf("activate: %v", err)
			}
		}
	}
	for _, owner := range []string{"p1", "b1", "f1", "e1", "f2", "p1", "b1"} {
		h.pending(t, owner)
		h.clock.Advance(37 * time.Minute)
	}
	h.clock.Advance(5 * time.Hour)

	var scores []float64
	for {
		item, err := h.scheduler.Next(ctx, reviewer.ID)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if item == nil {
			break
		}
		if got := h.get(t, item.LetterID); got.Status != model.StatusUnderReview || got.ReviewerID != reviewer.ID {
			t.Fatalf("expected claimed letter under review by %s, got %+v", reviewer.ID, got)
		}
		scores = append(scores, item.Score)
	}

	if len(scores) != 7 {
		t.Fatalf("expected to drain 7 letters, got %d", len(scores))
	}
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[i-1] {
			t.Fatalf("score increased at %d: %v", i, scores)
		}
	}
}

func TestNextConcurrentClaimsAreExclusive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const letters = 10
	for i := 0; i < letters; i++ {
		h.pending(t, test.RandomSubscriberID())
		h.clock.Advance(time.Minute)
	}

	var (
		mu      sync.Mutex
		claimed = make(map[string]int)
		wg      sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, err := h.scheduler.Next(ctx, reviewer.ID)
				if errors.Is(err, domainErrors.ErrTryAgain) {
					continue
				}
				if err != nil {
					t.Errorf("next: %v", err)
					return
				}
				if item == nil {
					return
				}
				mu.Lock()
				claimed[item.LetterID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimed) != letters {
		t.Fatalf("expected %d distinct claims, got %d", letters, len(claimed))
	}
	for id, n := range claimed {
		if n != 1 {
			t.Fatalf("letter %s claimed %d times", id, n)
		}
	}
}

func TestNextRetriesLostClaims(t *testing.T) {
	var lost int
	h := newHarness(t, withLetters(func(r repository.LetterRepository) repository.LetterRepository {
		return &test.LetterRepositoryStub{
			LetterRepository: r,
			ApplyTransitionFn: func(ctx context.Context, change model.StatusChange) (*model.Letter, error) {
				if change.Target == model.StatusUnderReview && lost < 1 {
					lost++
					return nil, &domainErrors.StaleStateError{LetterID: change.LetterID, Expected: change.Expected, Actual: model.StatusUnderReview}
				}
				return r.ApplyTransition(ctx, change)
			},
		}
	}))
	letter := h.pending(t, "owner-1")

	item, err := h.scheduler.Next(context.Background(), reviewer.ID)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if item == nil || item.LetterID != letter.ID || lost != 1 {
		t.Fatalf("expected claim after one lost race, got %+v (lost %d)", item, lost)
	}
}

func TestNextSurfacesTryAgain(t *testing.T) {
	var attempts int
	h := newHarness(t, withLetters(func(r repository.LetterRepository) repository.LetterRepository {
		return &test.LetterRepositoryStub{
			LetterRepository: r,
			ApplyTransitionFn: func(ctx context.Context, change model.StatusChange) (*model.Letter, error) {
				if change.Target == model.StatusUnderReview {
					attempts++
					return nil, &domainErrors.StaleStateError{LetterID: change.LetterID, Expected: change.Expected, Actual: model.StatusUnderReview}
				}
				return r.ApplyTransition(ctx, change)
			},
		}
	}))
	h.pending(t, "owner-1")

	_, err := h.scheduler.Next(context.Background(), reviewer.ID)
	if !errors.Is(err, domainErrors.ErrTryAgain) || domainErrors.Code(err) != domainErrors.CodeTryAgain {
		t.Fatalf("expected ErrTryAgain, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 claim attempts, got %d", attempts)
	}
}

func TestNextEmptyQueueAndErrors(t *testing.T) {
	h := newHarness(t)
	item, err := h.scheduler.Next(context.Background(), reviewer.ID)
	if err != nil || item != nil {
		t.Fatalf("expected empty queue, got %+v %v", item, err)
	}

	boom := errors.New("boom")
	h = newHarness(t, withLetters(func(r repository.LetterRepository) repository.LetterRepository {
		return &test.LetterRepositoryStub{
			LetterRepository: r,
			CandidatesFn: func(context.Context) ([]model.QueueCandidate, error) {
				return nil, boom
			},
		}
	}))
	if _, err := h.scheduler.Next(context.Background(), reviewer.ID); !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestPositionAndPriority(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	veteran := h.pending(t, "owner-1")
	h.clock.Advance(time.Hour)
	second := h.createDraft(t, "owner-1")
	if _, err := h.ledger.Activate(ctx, "owner-1", "basic", SystemActor); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := h.coord.Submit(ctx, subscriberPrincipal("owner-1"), second.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.coord.Generate(ctx, second.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	h.clock.Advance(2 * time.Hour)

	pos, err := h.scheduler.Position(ctx, veteran.ID)
	if err != nil || pos != 1 {
		t.Fatalf("expected first letter with bonus at position 1, got %d %v", pos, err)
	}
	pos, err = h.scheduler.Position(ctx, second.ID)
	if err != nil || pos != 2 {
		t.Fatalf("expected second letter at position 2, got %d %v", pos, err)
	}

	score, err := h.scheduler.Priority(ctx, veteran.ID)
	if err != nil {
		t.Fatalf("priority: %v", err)
	}
	if want := 3*1.5 + 24; score != want {
		t.Fatalf("expected score %v, got %v", want, score)
	}

	draft := h.createDraft(t, "owner-2")
	if _, err := h.scheduler.Position(ctx, draft.ID); !errors.Is(err, domainErrors.ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued for draft, got %v", err)
	}
	if _, err := h.scheduler.Priority(ctx, "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
