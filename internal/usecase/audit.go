package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
)

const (
	defaultAuditRangeLimit = 500
	maxAuditRangeLimit     = 5000
	maxAuditNotesLength    = 2000
)

// AuditRecorder exposes the append-only audit log.
type AuditRecorder struct {
	audit   repository.AuditRepository
	letters repository.LetterRepository
	now     func() time.Time
}

// NewAuditRecorder constructs AuditRecorder.
func NewAuditRecorder(audit repository.AuditRepository, letters repository.LetterRepository) *AuditRecorder {
	return &AuditRecorder{audit: audit, letters: letters, now: time.Now}
}

// Log appends a free-form entry for a letter. Actions owned by the engine are refused.
func (r *AuditRecorder) Log(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error) {
	entry.Action = strings.TrimSpace(entry.Action)
	switch {
	case entry.Action == "" || len(entry.Action) > 64:
		return nil, fmt.Errorf("%w: action must be 1-64 characters", domainErrors.ErrInvalidInput)
	case model.IsReservedAuditAction(entry.Action):
		return nil, fmt.Errorf("%w: action %q is reserved", domainErrors.ErrInvalidInput, entry.Action)
	case len(entry.Notes) > maxAuditNotesLength:
		return nil, fmt.Errorf("%w: notes exceed %d characters", domainErrors.ErrInvalidInput, maxAuditNotesLength)
	case entry.OldStatus != nil && !entry.OldStatus.Valid(),
		entry.NewStatus != nil && !entry.NewStatus.Valid():
		return nil, fmt.Errorf("%w: unknown status", domainErrors.ErrInvalidInput)
	}

	letter, err := r.letters.Get(ctx, entry.LetterID)
	if err != nil {
		return nil, err
	}
	entry.ID = 0
	entry.SubscriberID = letter.OwnerID
	entry.CreatedAt = r.now().UTC()
	return r.audit.Append(ctx, entry)
}

// History returns every entry recorded for the letter in append order.
func (r *AuditRecorder) History(ctx context.Context, letterID string) ([]model.AuditEntry, error) {
	if _, err := r.letters.Get(ctx, letterID); err != nil {
		return nil, err
	}
	return r.audit.ListByLetter(ctx, letterID)
}

// Range returns entries created in [from, to).
func (r *AuditRecorder) Range(ctx context.Context, from, to time.Time, limit int) ([]model.AuditEntry, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: range start must precede its end", domainErrors.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultAuditRangeLimit
	}
	if limit > maxAuditRangeLimit {
		limit = maxAuditRangeLimit
	}
	return r.audit.ListByRange(ctx, from.UTC(), to.UTC(), limit)
}

// ReplayStatus folds a letter's audit history into the status it describes.
// Each transition must leave the status the previous entry arrived at.
func ReplayStatus(entries []model.AuditEntry) (model.LetterStatus, error) {
	var current model.LetterStatus
	for _, e := range entries {
		switch e.Action {
		case model.AuditActionCreated:
			if current != "" || e.NewStatus == nil {
				return "", fmt.Errorf("audit entry %d: unexpected creation record", e.ID)
			}
			current = *e.NewStatus
		case model.AuditActionTransition:
			if e.OldStatus == nil || e.NewStatus == nil || *e.OldStatus != current {
				return "", fmt.Errorf("audit entry %d: transition does not follow %q", e.ID, current)
			}
			if !model.CanTransition(current, *e.NewStatus) {
				return "", &domainErrors.InvalidTransitionError{From: current, To: *e.NewStatus}
			}
			current = *e.NewStatus
		}
	}
	if current == "" {
		return "", fmt.Errorf("audit history has no creation record")
	}
	return current, nil
}
