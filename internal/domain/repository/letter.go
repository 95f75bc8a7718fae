package repository

import (
	"context"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// LetterRepository describes persistence of letters and their lifecycle.
type LetterRepository interface {
	// Create stores a draft letter, deciding IsFirstLetter under a per-owner lock,
	// and appends the creation audit entry.
	Create(ctx context.Context, letter *model.Letter, actor string) (*model.Letter, error)
	Get(ctx context.Context, id string) (*model.Letter, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Letter, error)
	// ApplyTransition updates the letter only if it is still in change.Expected and
	// records the audit entry in the same transaction. A status mismatch yields
	// *errors.StaleStateError.
	ApplyTransition(ctx context.Context, change model.StatusChange) (*model.Letter, error)
	ListReviewCandidates(ctx context.Context) ([]model.QueueCandidate, error)
	ListStaleGenerating(ctx context.Context, before time.Time, limit int) ([]model.Letter, error)
	// ListGenerating returns letters in generating submitted at or after since, oldest first.
	ListGenerating(ctx context.Context, since time.Time, limit int) ([]model.Letter, error)
	CountInFlight(ctx context.Context, ownerID, excludeID string) (int64, error)
}
