package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

const letterColumns = `id, owner_id, status, intake, draft_text, reviewer_id, rejection_reason, is_first_letter,
       created_at, submitted_at, review_started_at, reviewed_at, completed_at, updated_at`

func scanLetter(row pgx.Row) (*model.Letter, error) {
	var (
		l        model.Letter
		intake   []byte
		reviewer *string
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Status, &intake, &l.DraftText, &reviewer, &l.RejectionReason, &l.IsFirstLetter,
		&l.CreatedAt, &l.SubmittedAt, &l.ReviewStartedAt, &l.ReviewedAt, &l.CompletedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.ReviewerID = deref(reviewer)
	if len(intake) > 0 {
		if err := json.Unmarshal(intake, &l.Intake); err != nil {
			return nil, fmt.Errorf("decode intake of letter %s: %w", l.ID, err)
		}
	}
	return &l, nil
}

func (r *letterRepository) Create(ctx context.Context, letter *model.Letter, actor string) (*model.Letter, error) {
	intake, err := json.Marshal(letter.Intake)
	if err != nil {
		return nil, fmt.Errorf("encode intake: %w", err)
	}
	created := *letter
	created.Status = model.StatusDraft
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt

	err = r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, created.OwnerID); err != nil {
			return err
		}
		var prior int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM letters WHERE owner_id=$1`, created.OwnerID).Scan(&prior); err != nil {
			return err
		}
		created.IsFirstLetter = prior == 0

		const insert = `INSERT INTO letters (id, owner_id, status, intake, draft_text, is_first_letter, created_at, updated_at)
                        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
		if _, err := tx.Exec(ctx, insert, created.ID, created.OwnerID, created.Status, intake, created.DraftText,
			created.IsFirstLetter, created.CreatedAt); err != nil {
			return err
		}

		_, err := appendAudit(ctx, tx, model.AuditEntry{
			LetterID:     created.ID,
			SubscriberID: created.OwnerID,
			Actor:        actor,
			Action:       model.AuditActionCreated,
			NewStatus:    model.StatusPtr(model.StatusDraft),
			CreatedAt:    created.CreatedAt,
		})
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

func (r *letterRepository) Get(ctx context.Context, id string) (*model.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters WHERE id=$1`
	letter, err := scanLetter(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return letter, nil
}

func (r *letterRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters WHERE owner_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *letterRepository) ListStaleGenerating(ctx context.Context, before time.Time, limit int) ([]model.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters
              WHERE status=$1 AND submitted_at < $2
              ORDER BY submitted_at
              LIMIT $3`
	return r.list(ctx, query, model.StatusGenerating, before, limit)
}

func (r *letterRepository) ListGenerating(ctx context.Context, since time.Time, limit int) ([]model.Letter, error) {
	query := `SELECT ` + letterColumns + ` FROM letters
              WHERE status=$1 AND submitted_at >= $2
              ORDER BY submitted_at
              LIMIT $3`
	return r.list(ctx, query, model.StatusGenerating, since, limit)
}

func (r *letterRepository) list(ctx context.Context, query string, args ...any) ([]model.Letter, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *letter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *letterRepository) ApplyTransition(ctx context.Context, change model.StatusChange) (*model.Letter, error) {
	patch := change.Patch()
	var intake any
	if patch.Intake != nil {
		encoded, err := json.Marshal(patch.Intake)
		if err != nil {
			return nil, fmt.Errorf("encode intake: %w", err)
		}
		intake = encoded
	}

	query := `UPDATE letters SET
                  status=$3,
                  intake=COALESCE($4, intake),
                  draft_text=COALESCE($5, draft_text),
                  reviewer_id=COALESCE($6, reviewer_id),
                  rejection_reason=$7,
                  submitted_at=COALESCE($8, submitted_at),
                  review_started_at=COALESCE($9, review_started_at),
                  reviewed_at=COALESCE($10, reviewed_at),
                  completed_at=COALESCE($11, completed_at),
                  updated_at=$12
              WHERE id=$1 AND status=$2
              RETURNING ` + letterColumns

	var updated *model.Letter
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		letter, err := scanLetter(tx.QueryRow(ctx, query,
			change.LetterID, change.Expected, change.Target,
			intake, patch.DraftText, patch.ReviewerID, patch.RejectionReason,
			patch.SubmittedAt, patch.ReviewStartedAt, patch.ReviewedAt, patch.CompletedAt,
			change.At,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return r.staleOrMissing(ctx, tx, change)
		}
		if err != nil {
			return err
		}

		_, err = appendAudit(ctx, tx, model.AuditEntry{
			LetterID:     letter.ID,
			SubscriberID: letter.OwnerID,
			Actor:        change.Actor,
			Action:       model.AuditActionTransition,
			OldStatus:    model.StatusPtr(change.Expected),
			NewStatus:    model.StatusPtr(change.Target),
			Notes:        change.Notes,
			CreatedAt:    change.At,
		})
		if err != nil {
			return err
		}
		updated = letter
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return updated, nil
}

func (r *letterRepository) staleOrMissing(ctx context.Context, tx pgx.Tx, change model.StatusChange) error {
	var actual model.LetterStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM letters WHERE id=$1`, change.LetterID).Scan(&actual); err != nil {
		return err
	}
	return &domainErrors.StaleStateError{LetterID: change.LetterID, Expected: change.Expected, Actual: actual}
}

func (r *letterRepository) ListReviewCandidates(ctx context.Context) ([]model.QueueCandidate, error) {
	const query = `SELECT l.id, l.owner_id,
                          CASE WHEN a.active THEN a.plan_tier ELSE $2 END,
                          l.is_first_letter,
                          COALESCE(l.submitted_at, l.created_at)
                   FROM letters l
                   LEFT JOIN allowance_accounts a ON a.subscriber_id = l.owner_id
                   WHERE l.status = $1`
	rows, err := r.storage.pool.Query(ctx, query, model.StatusPendingReview, model.PlanFree)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.QueueCandidate
	for rows.Next() {
		var c model.QueueCandidate
		if err := rows.Scan(&c.LetterID, &c.OwnerID, &c.PlanTier, &c.IsFirstLetter, &c.SubmittedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *letterRepository) CountInFlight(ctx context.Context, ownerID, excludeID string) (int64, error) {
	return countInFlight(ctx, r.storage.pool, ownerID, excludeID)
}

func countInFlight(ctx context.Context, q queryRower, ownerID, excludeID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM letters WHERE owner_id=$1 AND id <> $2 AND status = ANY($3)`
	var count int64
	if err := q.QueryRow(ctx, query, ownerID, excludeID, inFlightStatuses()).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func inFlightStatuses() []string {
	statuses := model.InFlightStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
