package model

import "time"

// PlanTier names a subscription plan.
type PlanTier string

// PlanFree is the tier assigned to subscribers without an active subscription.
const PlanFree PlanTier = "free"

// AllowanceAccount tracks one subscriber's letter credits.
type AllowanceAccount struct {
	SubscriberID     string
	PlanTier         PlanTier
	CreditsRemaining int
	FreeTrialUsed    bool
	ResetPeriod      string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllowanceStatus is the read-only view returned by allowance checks.
type AllowanceStatus struct {
	SubscriberID       string
	HasAllowance       bool
	Remaining          int
	PlanTier           PlanTier
	IsUnlimited        bool
	FreeTrialAvailable bool
}

// ReservationKind records what a reservation consumed.
type ReservationKind string

const (
	ReservationCredit    ReservationKind = "credit"
	ReservationTrial     ReservationKind = "trial"
	ReservationUnlimited ReservationKind = "unlimited"
)

// Reservation is a ledger claim on one credit or the free trial.
type Reservation struct {
	ID           string
	SubscriberID string
	LetterID     string
	Kind         ReservationKind
	CreatedAt    time.Time
	ReleasedAt   *time.Time
}

// Released reports whether the reservation was already returned.
func (r Reservation) Released() bool {
	return r.ReleasedAt != nil
}

// ReservationRequest carries everything storage needs for an atomic reservation.
type ReservationRequest struct {
	SubscriberID   string
	LetterID       string
	Actor          string
	UnlimitedTiers []PlanTier
	Period         string
	At             time.Time
}

// IsUnlimited reports whether tier skips credit accounting.
func (r ReservationRequest) IsUnlimited(tier PlanTier) bool {
	for _, t := range r.UnlimitedTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// ResetRequest restores plan entitlements for one billing period.
type ResetRequest struct {
	Period       string
	Entitlements map[PlanTier]int
	Unlimited    []PlanTier
	Actor        string
	At           time.Time
}

// BillingPeriod returns the period stamp (YYYY-MM, UTC) containing t.
func BillingPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}
