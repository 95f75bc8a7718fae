package model

// LetterStatus describes the lifecycle position of a letter.
type LetterStatus string

const (
	StatusDraft         LetterStatus = "draft"
	StatusGenerating    LetterStatus = "generating"
	StatusPendingReview LetterStatus = "pending_review"
	StatusUnderReview   LetterStatus = "under_review"
	StatusApproved      LetterStatus = "approved"
	StatusRejected      LetterStatus = "rejected"
	StatusCompleted     LetterStatus = "completed"
	StatusFailed        LetterStatus = "failed"
)

var transitions = map[LetterStatus][]LetterStatus{
	StatusDraft:         {StatusGenerating},
	StatusGenerating:    {StatusPendingReview, StatusFailed},
	StatusPendingReview: {StatusUnderReview},
	StatusUnderReview:   {StatusApproved, StatusRejected},
	StatusApproved:      {StatusCompleted},
	StatusRejected:      {StatusGenerating},
	StatusCompleted:     {},
	StatusFailed:        {},
}

// Valid reports whether s is a known status.
func (s LetterStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s LetterStatus) IsTerminal() bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

// Targets returns the statuses reachable from s in one step.
func (s LetterStatus) Targets() []LetterStatus {
	targets := transitions[s]
	out := make([]LetterStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether from -> to is part of the lifecycle table.
func CanTransition(from, to LetterStatus) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// InFlightStatuses lists statuses that count as a submitted letter for first-letter eligibility.
func InFlightStatuses() []LetterStatus {
	return []LetterStatus{
		StatusGenerating,
		StatusPendingReview,
		StatusUnderReview,
		StatusApproved,
		StatusRejected,
		StatusCompleted,
	}
}
