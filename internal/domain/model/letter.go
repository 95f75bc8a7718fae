package model

import "time"

// Letter is a subscriber document moving through drafting and review.
type Letter struct {
	ID              string
	OwnerID         string
	Status          LetterStatus
	Intake          Intake
	DraftText       string
	ReviewerID      string
	RejectionReason *string
	IsFirstLetter   bool
	CreatedAt       time.Time
	SubmittedAt     *time.Time
	ReviewStartedAt *time.Time
	ReviewedAt      *time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// StatusChange is a lifecycle move guarded by the status the caller believes is current.
type StatusChange struct {
	LetterID   string
	Expected   LetterStatus
	Target     LetterStatus
	Actor      string
	Notes      string
	Intake     *Intake
	DraftText  *string
	ReviewerID string
	At         time.Time
}

// LetterPatch lists the column updates implied by a status change.
// A nil RejectionReason clears the stored reason.
type LetterPatch struct {
	Intake          *Intake
	DraftText       *string
	ReviewerID      *string
	RejectionReason *string
	SubmittedAt     *time.Time
	ReviewStartedAt *time.Time
	ReviewedAt      *time.Time
	CompletedAt     *time.Time
}

// Patch derives the field updates that accompany the change.
func (c StatusChange) Patch() LetterPatch {
	at := c.At
	patch := LetterPatch{Intake: c.Intake, DraftText: c.DraftText}
	switch c.Target {
	case StatusGenerating:
		patch.SubmittedAt = &at
	case StatusUnderReview:
		patch.ReviewStartedAt = &at
		if c.ReviewerID != "" {
			reviewer := c.ReviewerID
			patch.ReviewerID = &reviewer
		}
	case StatusApproved:
		patch.ReviewedAt = &at
	case StatusRejected:
		reason := c.Notes
		patch.ReviewedAt = &at
		patch.RejectionReason = &reason
	case StatusCompleted:
		patch.CompletedAt = &at
	}
	return patch
}

// Apply copies the change onto l, mirroring what storage persists.
func (l *Letter) Apply(c StatusChange) {
	patch := c.Patch()
	l.Status = c.Target
	l.UpdatedAt = c.At
	l.RejectionReason = patch.RejectionReason
	if patch.Intake != nil {
		l.Intake = patch.Intake.Clone()
	}
	if patch.DraftText != nil {
		l.DraftText = *patch.DraftText
	}
	if patch.ReviewerID != nil {
		l.ReviewerID = *patch.ReviewerID
	}
	if patch.SubmittedAt != nil {
		l.SubmittedAt = patch.SubmittedAt
	}
	if patch.ReviewStartedAt != nil {
		l.ReviewStartedAt = patch.ReviewStartedAt
	}
	if patch.ReviewedAt != nil {
		l.ReviewedAt = patch.ReviewedAt
	}
	if patch.CompletedAt != nil {
		l.CompletedAt = patch.CompletedAt
	}
}

// LetterEvent is published to notification sinks after reviewer-facing transitions.
type LetterEvent struct {
	LetterID   string
	OwnerID    string
	Status     LetterStatus
	Reason     string
	OccurredAt time.Time
}
