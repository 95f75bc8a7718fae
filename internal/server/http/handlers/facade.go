package handlers

import (
	"context"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// LetterFacade covers the subscriber side of the letter lifecycle.
type LetterFacade interface {
	CreateLetter(ctx context.Context, p model.Principal, intake model.Intake) (*model.Letter, error)
	Letters(ctx context.Context, p model.Principal) ([]model.Letter, error)
	Letter(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error)
	Submit(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error)
	Resubmit(ctx context.Context, p model.Principal, letterID string, intake model.Intake) (*model.Letter, error)
	QueuePosition(ctx context.Context, p model.Principal, letterID string) (int, error)
}

// ReviewFacade covers the reviewer queue and decisions.
type ReviewFacade interface {
	ReviewQueue(ctx context.Context, p model.Principal) ([]model.QueueItem, error)
	Priority(ctx context.Context, p model.Principal, letterID string) (float64, error)
	NextForReview(ctx context.Context, p model.Principal) (*model.QueueItem, error)
	Approve(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error)
	Reject(ctx context.Context, p model.Principal, letterID, reason string) (*model.Letter, error)
	Complete(ctx context.Context, p model.Principal, letterID string) (*model.Letter, error)
}

// AllowanceFacade exposes allowance checks to subscribers.
type AllowanceFacade interface {
	CheckAllowance(ctx context.Context, p model.Principal) (*model.AllowanceStatus, error)
	DeductAllowance(ctx context.Context, p model.Principal) (bool, error)
}

// AuditFacade exposes the audit log.
type AuditFacade interface {
	LogAudit(ctx context.Context, p model.Principal, entry model.AuditEntry) (*model.AuditEntry, error)
	AuditHistory(ctx context.Context, p model.Principal, letterID string) ([]model.AuditEntry, error)
	AuditRange(ctx context.Context, p model.Principal, from, to time.Time, limit int) ([]model.AuditEntry, error)
}

// AdminFacade is used by billing hooks and scheduled jobs.
type AdminFacade interface {
	ResetMonthly(ctx context.Context, p model.Principal, period string) (int64, error)
	ActivateSubscription(ctx context.Context, p model.Principal, subscriberID string, tier model.PlanTier) (*model.AllowanceAccount, error)
	IssueToken(ctx context.Context, p model.Principal, subject model.Principal) (string, error)
}

// CredentialFacade resolves callers for the auth middleware.
type CredentialFacade interface {
	ParseToken(token string) (model.Principal, error)
	VerifySystemKey(key string) error
}

// DeskFacade aggregates the full set of operations used across handlers.
type DeskFacade interface {
	LetterFacade
	ReviewFacade
	AllowanceFacade
	AuditFacade
	AdminFacade
	CredentialFacade
}
