package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

const accountColumns = `subscriber_id, plan_tier, credits_remaining, free_trial_used, reset_period, active, created_at, updated_at`

const reservationColumns = `id, subscriber_id, letter_id, kind, created_at, released_at`

func scanAccount(row pgx.Row) (*model.AllowanceAccount, error) {
	var (
		a      model.AllowanceAccount
		period *string
	)
	if err := row.Scan(&a.SubscriberID, &a.PlanTier, &a.CreditsRemaining, &a.FreeTrialUsed, &period, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.ResetPeriod = deref(period)
	return &a, nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var (
		res      model.Reservation
		letterID *string
	)
	if err := row.Scan(&res.ID, &res.SubscriberID, &letterID, &res.Kind, &res.CreatedAt, &res.ReleasedAt); err != nil {
		return nil, err
	}
	res.LetterID = deref(letterID)
	return &res, nil
}

func (r *allowanceRepository) GetAccount(ctx context.Context, subscriberID string) (*model.AllowanceAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM allowance_accounts WHERE subscriber_id=$1`
	account, err := scanAccount(r.storage.pool.QueryRow(ctx, query, subscriberID))
	if err != nil {
		return nil, mapError(err)
	}
	return account, nil
}

func (r *allowanceRepository) Activate(ctx context.Context, account model.AllowanceAccount, actor string) (*model.AllowanceAccount, error) {
	at := account.UpdatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	query := `INSERT INTO allowance_accounts (subscriber_id, plan_tier, credits_remaining, reset_period, active, created_at, updated_at)
              VALUES ($1, $2, $3, $4, TRUE, $5, $5)
              ON CONFLICT (subscriber_id) DO UPDATE
              SET plan_tier = EXCLUDED.plan_tier,
                  credits_remaining = EXCLUDED.credits_remaining,
                  reset_period = EXCLUDED.reset_period,
                  active = TRUE,
                  updated_at = EXCLUDED.updated_at
              RETURNING ` + accountColumns

	var activated *model.AllowanceAccount
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		stored, err := scanAccount(tx.QueryRow(ctx, query, account.SubscriberID, account.PlanTier,
			account.CreditsRemaining, nullable(account.ResetPeriod), at))
		if err != nil {
			return err
		}
		if _, err := appendAudit(ctx, tx, model.AuditEntry{
			SubscriberID: stored.SubscriberID,
			Actor:        actor,
			Action:       model.AuditActionActivate,
			Notes:        fmt.Sprintf("plan %s, credits %d", stored.PlanTier, stored.CreditsRemaining),
			CreatedAt:    at,
		}); err != nil {
			return err
		}
		activated = stored
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return activated, nil
}

func (r *allowanceRepository) Reserve(ctx context.Context, req model.ReservationRequest) (*model.Reservation, error) {
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	var reservation *model.Reservation
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const ensure = `INSERT INTO allowance_accounts (subscriber_id, plan_tier, reset_period, created_at, updated_at)
                        VALUES ($1, $2, $3, $4, $4)
                        ON CONFLICT (subscriber_id) DO NOTHING`
		if _, err := tx.Exec(ctx, ensure, req.SubscriberID, model.PlanFree, req.Period, req.At); err != nil {
			return err
		}

		var (
			tier      model.PlanTier
			credits   int
			trialUsed bool
			active    bool
		)
		const lock = `SELECT plan_tier, credits_remaining, free_trial_used, active
                      FROM allowance_accounts WHERE subscriber_id=$1 FOR UPDATE`
		if err := tx.QueryRow(ctx, lock, req.SubscriberID).Scan(&tier, &credits, &trialUsed, &active); err != nil {
			return err
		}

		if req.LetterID != "" {
			query := `SELECT ` + reservationColumns + ` FROM reservations WHERE letter_id=$1 AND released_at IS NULL`
			existing, err := scanReservation(tx.QueryRow(ctx, query, req.LetterID))
			if err == nil {
				reservation = existing
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}

		kind, err := r.claim(ctx, tx, req, tier, credits, trialUsed, active)
		if err != nil {
			return err
		}

		res := model.Reservation{
			ID:           uuid.NewString(),
			SubscriberID: req.SubscriberID,
			LetterID:     req.LetterID,
			Kind:         kind,
			CreatedAt:    req.At,
		}
		const insert = `INSERT INTO reservations (id, subscriber_id, letter_id, kind, created_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, insert, res.ID, res.SubscriberID, nullable(res.LetterID), res.Kind, res.CreatedAt); err != nil {
			return err
		}
		if _, err := appendAudit(ctx, tx, model.AuditEntry{
			LetterID:     req.LetterID,
			SubscriberID: req.SubscriberID,
			Actor:        req.Actor,
			Action:       model.AuditActionReserve,
			Notes:        fmt.Sprintf("reservation %s (%s)", res.ID, res.Kind),
			CreatedAt:    req.At,
		}); err != nil {
			return err
		}
		reservation = &res
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return reservation, nil
}

func (r *allowanceRepository) claim(ctx context.Context, tx pgx.Tx, req model.ReservationRequest, tier model.PlanTier, credits int, trialUsed, active bool) (model.ReservationKind, error) {
	if active && req.IsUnlimited(tier) {
		return model.ReservationUnlimited, nil
	}

	if !trialUsed {
		prior, err := countInFlight(ctx, tx, req.SubscriberID, req.LetterID)
		if err != nil {
			return "", err
		}
		if prior == 0 {
			const useTrial = `UPDATE allowance_accounts SET free_trial_used=TRUE, updated_at=$2 WHERE subscriber_id=$1`
			if _, err := tx.Exec(ctx, useTrial, req.SubscriberID, req.At); err != nil {
				return "", err
			}
			return model.ReservationTrial, nil
		}
	}

	if credits > 0 {
		const decrement = `UPDATE allowance_accounts
                           SET credits_remaining = credits_remaining - 1, updated_at=$2
                           WHERE subscriber_id=$1 AND credits_remaining > 0`
		tag, err := tx.Exec(ctx, decrement, req.SubscriberID, req.At)
		if err != nil {
			return "", err
		}
		if tag.RowsAffected() == 1 {
			return model.ReservationCredit, nil
		}
	}

	return "", domainErrors.ErrInsufficientAllowance
}

func (r *allowanceRepository) Release(ctx context.Context, reservationID, actor string) (bool, error) {
	at := time.Now().UTC()
	released := false
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var (
			subscriberID string
			letterID     *string
			kind         model.ReservationKind
		)
		const mark = `UPDATE reservations SET released_at=$2
                      WHERE id=$1 AND released_at IS NULL
                      RETURNING subscriber_id, letter_id, kind`
		err := tx.QueryRow(ctx, mark, reservationID, at).Scan(&subscriberID, &letterID, &kind)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE id=$1)`, reservationID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domainErrors.ErrNotFound
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch kind {
		case model.ReservationCredit:
			const restore = `UPDATE allowance_accounts SET credits_remaining = credits_remaining + 1, updated_at=$2 WHERE subscriber_id=$1`
			if _, err := tx.Exec(ctx, restore, subscriberID, at); err != nil {
				return err
			}
		case model.ReservationTrial:
			const restore = `UPDATE allowance_accounts SET free_trial_used=FALSE, updated_at=$2 WHERE subscriber_id=$1`
			if _, err := tx.Exec(ctx, restore, subscriberID, at); err != nil {
				return err
			}
		}

		if _, err := appendAudit(ctx, tx, model.AuditEntry{
			LetterID:     deref(letterID),
			SubscriberID: subscriberID,
			Actor:        actor,
			Action:       model.AuditActionRelease,
			Notes:        fmt.Sprintf("reservation %s (%s)", reservationID, kind),
			CreatedAt:    at,
		}); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, mapError(err)
	}
	return released, nil
}

func (r *allowanceRepository) ReservationForLetter(ctx context.Context, letterID string) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE letter_id=$1
              ORDER BY (released_at IS NULL) DESC, created_at DESC
              LIMIT 1`
	res, err := scanReservation(r.storage.pool.QueryRow(ctx, query, letterID))
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

func (r *allowanceRepository) ListOrphanedReservations(ctx context.Context, limit int) ([]model.Reservation, error) {
	const query = `SELECT r.id, r.subscriber_id, r.letter_id, r.kind, r.created_at, r.released_at
                   FROM reservations r
                   JOIN letters l ON l.id = r.letter_id
                   WHERE r.released_at IS NULL AND l.status = $1
                   ORDER BY r.created_at
                   LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, model.StatusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *allowanceRepository) ResetPeriod(ctx context.Context, req model.ResetRequest) (int64, error) {
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}
	unlimited := make(map[model.PlanTier]bool, len(req.Unlimited))
	for _, t := range req.Unlimited {
		unlimited[t] = true
	}
	tiers := make([]string, 0, len(req.Entitlements))
	for t := range req.Entitlements {
		tiers = append(tiers, string(t))
	}
	for t := range unlimited {
		if _, ok := req.Entitlements[t]; !ok {
			tiers = append(tiers, string(t))
		}
	}
	sort.Strings(tiers)
	entitlements := make([]int, len(tiers))
	flags := make([]bool, len(tiers))
	for i, t := range tiers {
		entitlements[i] = req.Entitlements[model.PlanTier(t)]
		flags[i] = unlimited[model.PlanTier(t)]
	}

	const query = `WITH plans AS (
                       SELECT * FROM unnest($2::text[], $3::int[], $4::bool[]) AS p(tier, entitlement, unlimited)
                   ), reset AS (
                       UPDATE allowance_accounts a
                       SET credits_remaining = CASE WHEN p.unlimited THEN a.credits_remaining ELSE p.entitlement END,
                           reset_period = $1,
                           updated_at = $5
                       FROM plans p
                       WHERE p.tier = a.plan_tier AND a.active AND (a.reset_period IS NULL OR a.reset_period < $1)
                       RETURNING a.subscriber_id, a.credits_remaining
                   )
                   INSERT INTO audit_log (subscriber_id, actor, action, notes, created_at)
                   SELECT subscriber_id, $6, $7, 'period ' || $1 || ', credits ' || credits_remaining, $5 FROM reset`
	tag, err := r.storage.pool.Exec(ctx, query, req.Period, tiers, entitlements, flags, req.At, req.Actor, model.AuditActionReset)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
