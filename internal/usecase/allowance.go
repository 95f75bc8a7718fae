package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
)

// AllowanceLedger gates admission on subscription credits and the free trial.
type AllowanceLedger struct {
	accounts repository.AllowanceRepository
	letters  repository.LetterRepository
	plans    *model.PlanCatalog
	logger   *slog.Logger
	now      func() time.Time
}

// NewAllowanceLedger constructs AllowanceLedger.
func NewAllowanceLedger(accounts repository.AllowanceRepository, letters repository.LetterRepository, plans *model.PlanCatalog, logger *slog.Logger) *AllowanceLedger {
	return &AllowanceLedger{accounts: accounts, letters: letters, plans: plans, logger: logger, now: time.Now}
}

// CheckAllowance reports what the subscriber could spend right now without reserving anything.
func (l *AllowanceLedger) CheckAllowance(ctx context.Context, subscriberID string) (*model.AllowanceStatus, error) {
	account, err := l.accounts.GetAccount(ctx, subscriberID)
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		account = &model.AllowanceAccount{SubscriberID: subscriberID, PlanTier: model.PlanFree, Active: true}
	case err != nil:
		return nil, err
	}

	tier := account.PlanTier
	if !account.Active {
		tier = model.PlanFree
	}
	status := &model.AllowanceStatus{
		SubscriberID: subscriberID,
		PlanTier:     tier,
		Remaining:    account.CreditsRemaining,
		IsUnlimited:  account.Active && l.plans.IsUnlimited(account.PlanTier),
	}

	if !account.FreeTrialUsed {
		inFlight, err := l.letters.CountInFlight(ctx, subscriberID, "")
		if err != nil {
			return nil, err
		}
		status.FreeTrialAvailable = inFlight == 0
	}
	status.HasAllowance = status.IsUnlimited || status.FreeTrialAvailable || status.Remaining > 0
	return status, nil
}

// Reserve claims one unit of allowance for letterID. An empty letterID reserves
// without binding to a letter. Retrying with the same letter returns the open reservation.
func (l *AllowanceLedger) Reserve(ctx context.Context, subscriberID, letterID, actor string) (*model.Reservation, error) {
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriber is required", domainErrors.ErrInvalidInput)
	}
	at := l.now().UTC()
	res, err := l.accounts.Reserve(ctx, model.ReservationRequest{
		SubscriberID:   subscriberID,
		LetterID:       letterID,
		Actor:          actor,
		UnlimitedTiers: l.plans.UnlimitedTiers(),
		Period:         model.BillingPeriod(at),
		At:             at,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Release returns the reservation's credit or trial. It reports false when the
// reservation was already released.
func (l *AllowanceLedger) Release(ctx context.Context, reservationID, actor string) (bool, error) {
	released, err := l.accounts.Release(ctx, reservationID, actor)
	if err != nil {
		return false, fmt.Errorf("release reservation %s: %w", reservationID, err)
	}
	if released {
		l.logger.Info("allowance released", slog.String("reservation_id", reservationID), slog.String("actor", actor))
	}
	return released, nil
}

// ReleaseForLetter releases the letter's open reservation, if it has one.
func (l *AllowanceLedger) ReleaseForLetter(ctx context.Context, letterID, actor string) (bool, error) {
	res, err := l.accounts.ReservationForLetter(ctx, letterID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if res.Released() {
		return false, nil
	}
	return l.Release(ctx, res.ID, actor)
}

// ReleaseOrphaned releases reservations still held by failed letters and returns how many it released.
func (l *AllowanceLedger) ReleaseOrphaned(ctx context.Context, limit int, actor string) (int, error) {
	orphans, err := l.accounts.ListOrphanedReservations(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list orphaned reservations: %w", err)
	}
	var released int
	for _, res := range orphans {
		ok, err := l.Release(ctx, res.ID, actor)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}
	return released, nil
}

// ResetMonthly restores plan entitlements for every active account not yet reset
// in period. An empty period means the current one.
func (l *AllowanceLedger) ResetMonthly(ctx context.Context, period, actor string) (int64, error) {
	at := l.now().UTC()
	if period == "" {
		period = model.BillingPeriod(at)
	}
	if _, err := time.Parse("2006-01", period); err != nil {
		return 0, fmt.Errorf("%w: period must be YYYY-MM", domainErrors.ErrInvalidInput)
	}

	count, err := l.accounts.ResetPeriod(ctx, model.ResetRequest{
		Period:       period,
		Entitlements: l.plans.Entitlements(),
		Unlimited:    l.plans.UnlimitedTiers(),
		Actor:        actor,
		At:           at,
	})
	if err != nil {
		return 0, fmt.Errorf("reset period %s: %w", period, err)
	}
	l.logger.Info("monthly allowance reset", slog.String("period", period), slog.Int64("accounts", count))
	return count, nil
}

// Activate starts or changes a subscription, granting the tier's full entitlement.
func (l *AllowanceLedger) Activate(ctx context.Context, subscriberID string, tier model.PlanTier, actor string) (*model.AllowanceAccount, error) {
	plan, ok := l.plans.Lookup(tier)
	if !ok {
		return nil, fmt.Errorf("%w: unknown plan tier %q", domainErrors.ErrInvalidInput, tier)
	}
	if strings.TrimSpace(subscriberID) == "" {
		return nil, fmt.Errorf("%w: subscriber is required", domainErrors.ErrInvalidInput)
	}
	at := l.now().UTC()
	return l.accounts.Activate(ctx, model.AllowanceAccount{
		SubscriberID:     subscriberID,
		PlanTier:         plan.Tier,
		CreditsRemaining: plan.MonthlyLetters,
		ResetPeriod:      model.BillingPeriod(at),
		Active:           true,
		UpdatedAt:        at,
	}, actor)
}

// Deduct reserves one unit without a letter and reports whether it succeeded.
func (l *AllowanceLedger) Deduct(ctx context.Context, subscriberID, actor string) (bool, error) {
	_, err := l.Reserve(ctx, subscriberID, "", actor)
	switch {
	case errors.Is(err, domainErrors.ErrInsufficientAllowance):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
