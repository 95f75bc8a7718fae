package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const auditColumns = `id, letter_id, subscriber_id, actor, action, old_status, new_status, notes, created_at`

func appendAudit(ctx context.Context, q queryRower, entry model.AuditEntry) (*model.AuditEntry, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_log (letter_id, subscriber_id, actor, action, old_status, new_status, notes, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   RETURNING id`
	err := q.QueryRow(ctx, query,
		nullable(entry.LetterID), nullable(entry.SubscriberID), entry.Actor, entry.Action,
		entry.OldStatus, entry.NewStatus, entry.Notes, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *auditRepository) Append(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error) {
	return appendAudit(ctx, r.storage.pool, entry)
}

func (r *auditRepository) ListByLetter(ctx context.Context, letterID string) ([]model.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log WHERE letter_id=$1 ORDER BY id`
	return r.list(ctx, query, letterID)
}

func (r *auditRepository) ListByRange(ctx context.Context, from, to time.Time, limit int) ([]model.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log
              WHERE created_at >= $1 AND created_at < $2
              ORDER BY id
              LIMIT $3`
	return r.list(ctx, query, from, to, limit)
}

func (r *auditRepository) list(ctx context.Context, query string, args ...any) ([]model.AuditEntry, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.AuditEntry
	for rows.Next() {
		var (
			e                      model.AuditEntry
			letterID, subscriberID *string
		)
		if err := rows.Scan(&e.ID, &letterID, &subscriberID, &e.Actor, &e.Action, &e.OldStatus, &e.NewStatus, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.LetterID = deref(letterID)
		e.SubscriberID = deref(subscriberID)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
