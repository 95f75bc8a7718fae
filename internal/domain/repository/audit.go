package repository

import (
	"context"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// AuditRepository is an append-only log of lifecycle and ledger events.
type AuditRepository interface {
	Append(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error)
	ListByLetter(ctx context.Context, letterID string) ([]model.AuditEntry, error)
	ListByRange(ctx context.Context, from, to time.Time, limit int) ([]model.AuditEntry, error)
}
