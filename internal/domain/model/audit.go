package model

import "time"

const (
	AuditActionCreated    = "created"
	AuditActionTransition = "transition"
	AuditActionReserve    = "allowance.reserve"
	AuditActionRelease    = "allowance.release"
	AuditActionReset      = "allowance.reset"
	AuditActionActivate   = "allowance.activate"
)

// AuditEntry is an immutable record of a lifecycle or allowance event.
type AuditEntry struct {
	ID           int64
	LetterID     string
	SubscriberID string
	Actor        string
	Action       string
	OldStatus    *LetterStatus
	NewStatus    *LetterStatus
	Notes        string
	CreatedAt    time.Time
}

// IsReservedAuditAction reports whether action may only be written by the engine.
func IsReservedAuditAction(action string) bool {
	switch action {
	case AuditActionCreated, AuditActionTransition, AuditActionReserve,
		AuditActionRelease, AuditActionReset, AuditActionActivate:
		return true
	}
	return false
}

// StatusPtr returns a pointer to s.
func StatusPtr(s LetterStatus) *LetterStatus {
	return &s
}
