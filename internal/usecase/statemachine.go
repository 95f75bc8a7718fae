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

// StateMachine is the only writer of letter status.
type StateMachine struct {
	letters repository.LetterRepository
	now     func() time.Time
}

// NewStateMachine constructs StateMachine.
func NewStateMachine(letters repository.LetterRepository) *StateMachine {
	return &StateMachine{letters: letters, now: time.Now}
}

// Transition validates change against the lifecycle table and applies it if the
// letter is still in change.Expected. The status update and its audit entry are
// persisted together.
func (m *StateMachine) Transition(ctx context.Context, change model.StatusChange) (*model.Letter, error) {
	if err := validateChange(change); err != nil {
		return nil, err
	}
	if change.At.IsZero() {
		change.At = m.now().UTC()
	}
	letter, err := m.letters.ApplyTransition(ctx, change)
	if err != nil {
		return nil, fmt.Errorf("transition %s %s -> %s: %w", change.LetterID, change.Expected, change.Target, err)
	}
	return letter, nil
}

func validateChange(c model.StatusChange) error {
	if !model.CanTransition(c.Expected, c.Target) {
		return &domainErrors.InvalidTransitionError{From: c.Expected, To: c.Target}
	}
	if strings.TrimSpace(c.Actor) == "" {
		return fmt.Errorf("%w: actor is required", domainErrors.ErrInvalidInput)
	}

	switch {
	case c.Expected == model.StatusRejected && c.Target == model.StatusGenerating:
		if c.Intake == nil {
			return fmt.Errorf("%w: resubmission requires a fresh intake", domainErrors.ErrInvalidInput)
		}
	case c.Target == model.StatusRejected:
		if strings.TrimSpace(c.Notes) == "" {
			return fmt.Errorf("%w: rejection reason is required", domainErrors.ErrInvalidInput)
		}
	case c.Target == model.StatusPendingReview:
		if c.DraftText == nil {
			return fmt.Errorf("%w: draft text is required", domainErrors.ErrInvalidInput)
		}
	case c.Target == model.StatusUnderReview:
		if c.ReviewerID == "" {
			return fmt.Errorf("%w: reviewer is required", domainErrors.ErrInvalidInput)
		}
	}
	return nil
}
