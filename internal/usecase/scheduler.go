package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
)

// Scheduler orders letters awaiting review and hands them to the reviewer.
// Scores are recomputed on every call.
type Scheduler struct {
	letters repository.LetterRepository
	machine *StateMachine
	plans   *model.PlanCatalog
	retry   retrier
	now     func() time.Time
}

// NewScheduler constructs Scheduler.
func NewScheduler(letters repository.LetterRepository, machine *StateMachine, plans *model.PlanCatalog, attempts int) *Scheduler {
	return &Scheduler{
		letters: letters,
		machine: machine,
		plans:   plans,
		retry:   newRetrier(attempts),
		now:     time.Now,
	}
}

// Score returns the priority of c at now and the hours it has waited.
func Score(c model.QueueCandidate, plans *model.PlanCatalog, now time.Time) (score, waitHours float64) {
	waitHours = now.Sub(c.SubmittedAt).Hours()
	if waitHours < 0 {
		waitHours = 0
	}
	score = waitHours * plans.Weight(c.PlanTier)
	if c.IsFirstLetter {
		score += plans.FirstDocumentBonus
	}
	return score, waitHours
}

// Rank scores candidates and sorts them best first. Ties go to the earliest submission, then the lowest id.
func Rank(candidates []model.QueueCandidate, plans *model.PlanCatalog, now time.Time) []model.QueueItem {
	items := make([]model.QueueItem, len(candidates))
	for i, c := range candidates {
		score, wait := Score(c, plans, now)
		items[i] = model.QueueItem{QueueCandidate: c, Score: score, WaitHours: wait}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.LetterID < b.LetterID
	})
	for i := range items {
		items[i].Position = i + 1
	}
	return items
}

// Queue returns every pending_review letter in priority order.
func (s *Scheduler) Queue(ctx context.Context) ([]model.QueueItem, error) {
	candidates, err := s.letters.ListReviewCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(candidates, s.plans, s.now().UTC()), nil
}

// Next claims the highest priority letter for reviewerID. It returns nil when the
// queue is empty. Claims lost to a concurrent session are retried against a fresh ranking.
func (s *Scheduler) Next(ctx context.Context, reviewerID string) (*model.QueueItem, error) {
	var claimed *model.QueueItem
	err := s.retry.do(ctx, func(ctx context.Context) error {
		items, err := s.Queue(ctx)
		if err != nil || len(items) == 0 {
			return err
		}
		top := items[0]
		_, err = s.machine.Transition(ctx, model.StatusChange{
			LetterID:   top.LetterID,
			Expected:   model.StatusPendingReview,
			Target:     model.StatusUnderReview,
			Actor:      reviewerID,
			ReviewerID: reviewerID,
		})
		var stale *domainErrors.StaleStateError
		if errors.As(err, &stale) {
			return &domainErrors.ConcurrencyClaimLostError{LetterID: top.LetterID}
		}
		if err != nil {
			return err
		}
		claimed = &top
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Priority returns the current score of a letter awaiting review.
func (s *Scheduler) Priority(ctx context.Context, letterID string) (float64, error) {
	item, err := s.locate(ctx, letterID)
	if err != nil {
		return 0, err
	}
	return item.Score, nil
}

// Position returns the 1-based rank of a letter awaiting review.
func (s *Scheduler) Position(ctx context.Context, letterID string) (int, error) {
	item, err := s.locate(ctx, letterID)
	if err != nil {
		return 0, err
	}
	return item.Position, nil
}

func (s *Scheduler) locate(ctx context.Context, letterID string) (*model.QueueItem, error) {
	letter, err := s.letters.Get(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if letter.Status != model.StatusPendingReview {
		return nil, domainErrors.ErrNotQueued
	}
	items, err := s.Queue(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].LetterID == letterID {
			return &items[i], nil
		}
	}
	return nil, domainErrors.ErrNotQueued
}
