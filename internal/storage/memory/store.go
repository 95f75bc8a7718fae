// Package memory provides a transactional in-process store used for development and tests.
// A single mutex serialises every operation, so each call behaves like one database transaction.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
)

// Scheme is the DATABASE_URI prefix that selects the in-memory store.
const Scheme = "memory://"

// Store keeps letters, allowance accounts, reservations and the audit log in memory.
type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	letters      map[string]*model.Letter
	accounts     map[string]*model.AllowanceAccount
	reservations map[string]*model.Reservation
	audit        []model.AuditEntry
}

type letterRepository struct{ store *Store }

type allowanceRepository struct{ store *Store }

type auditRepository struct{ store *Store }

var _ repository.Factory = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		letters:      make(map[string]*model.Letter),
		accounts:     make(map[string]*model.AllowanceAccount),
		reservations: make(map[string]*model.Reservation),
	}
}

func (s *Store) Letters() repository.LetterRepository {
	return &letterRepository{store: s}
}

func (s *Store) Allowances() repository.AllowanceRepository {
	return &allowanceRepository{store: s}
}

func (s *Store) Audit() repository.AuditRepository {
	return &auditRepository{store: s}
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func (s *Store) appendAudit(entry model.AuditEntry) model.AuditEntry {
	entry.ID = int64(len(s.audit) + 1)
	entry.CreatedAt = s.stamp(entry.CreatedAt)
	if entry.OldStatus != nil {
		entry.OldStatus = model.StatusPtr(*entry.OldStatus)
	}
	if entry.NewStatus != nil {
		entry.NewStatus = model.StatusPtr(*entry.NewStatus)
	}
	s.audit = append(s.audit, entry)
	return entry
}

func (s *Store) countInFlight(ownerID, excludeID string) int64 {
	var count int64
	for _, l := range s.letters {
		if l.OwnerID != ownerID || l.ID == excludeID {
			continue
		}
		for _, status := range model.InFlightStatuses() {
			if l.Status == status {
				count++
				break
			}
		}
	}
	return count
}

func copyLetter(l *model.Letter) *model.Letter {
	out := *l
	out.Intake = l.Intake.Clone()
	return &out
}

// --- LetterRepository implementation ---

func (r *letterRepository) Create(_ context.Context, letter *model.Letter, actor string) (*model.Letter, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.letters[letter.ID]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}

	created := copyLetter(letter)
	created.Status = model.StatusDraft
	created.CreatedAt = s.stamp(created.CreatedAt)
	created.UpdatedAt = created.CreatedAt
	created.IsFirstLetter = true
	for _, l := range s.letters {
		if l.OwnerID == created.OwnerID {
			created.IsFirstLetter = false
			break
		}
	}
	s.letters[created.ID] = created

	s.appendAudit(model.AuditEntry{
		LetterID:     created.ID,
		SubscriberID: created.OwnerID,
		Actor:        actor,
		Action:       model.AuditActionCreated,
		NewStatus:    model.StatusPtr(model.StatusDraft),
		CreatedAt:    created.CreatedAt,
	})
	return copyLetter(created), nil
}

func (r *letterRepository) Get(_ context.Context, id string) (*model.Letter, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.letters[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return copyLetter(l), nil
}

func (r *letterRepository) ListByOwner(_ context.Context, ownerID string) ([]model.Letter, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Letter
	for _, l := range s.letters {
		if l.OwnerID == ownerID {
			result = append(result, *copyLetter(l))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *letterRepository) ApplyTransition(_ context.Context, change model.StatusChange) (*model.Letter, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.letters[change.LetterID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if l.Status != change.Expected {
		return nil, &domainErrors.StaleStateError{LetterID: l.ID, Expected: change.Expected, Actual: l.Status}
	}

	change.At = s.stamp(change.At)
	l.Apply(change)
	s.appendAudit(model.AuditEntry{
		LetterID:     l.ID,
		SubscriberID: l.OwnerID,
		Actor:        change.Actor,
		Action:       model.AuditActionTransition,
		OldStatus:    model.StatusPtr(change.Expected),
		NewStatus:    model.StatusPtr(change.Target),
		Notes:        change.Notes,
		CreatedAt:    change.At,
	})
	return copyLetter(l), nil
}

func (r *letterRepository) ListReviewCandidates(_ context.Context) ([]model.QueueCandidate, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.QueueCandidate
	for _, l := range s.letters {
		if l.Status != model.StatusPendingReview {
			continue
		}
		tier := model.PlanFree
		if a, ok := s.accounts[l.OwnerID]; ok && a.Active {
			tier = a.PlanTier
		}
		submitted := l.CreatedAt
		if l.SubmittedAt != nil {
			submitted = *l.SubmittedAt
		}
		result = append(result, model.QueueCandidate{
			LetterID:      l.ID,
			OwnerID:       l.OwnerID,
			PlanTier:      tier,
			IsFirstLetter: l.IsFirstLetter,
			SubmittedAt:   submitted,
		})
	}
	return result, nil
}

func (r *letterRepository) ListStaleGenerating(_ context.Context, before time.Time, limit int) ([]model.Letter, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Letter
	for _, l := range s.letters {
		if l.Status == model.StatusGenerating && l.SubmittedAt != nil && l.SubmittedAt.Before(before) {
			result = append(result, *copyLetter(l))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmittedAt.Before(*result[j].SubmittedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *letterRepository) ListGenerating(_ context.Context, since time.Time, limit int) ([]model.Letter, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Letter
	for _, l := range s.letters {
		if l.Status == model.StatusGenerating && l.SubmittedAt != nil && !l.SubmittedAt.Before(since) {
			result = append(result, *copyLetter(l))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmittedAt.Before(*result[j].SubmittedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *letterRepository) CountInFlight(_ context.Context, ownerID, excludeID string) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countInFlight(ownerID, excludeID), nil
}

// --- AllowanceRepository implementation ---

func (r *allowanceRepository) GetAccount(_ context.Context, subscriberID string) (*model.AllowanceAccount, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[subscriberID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (r *allowanceRepository) Activate(_ context.Context, account model.AllowanceAccount, actor string) (*model.AllowanceAccount, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.stamp(account.UpdatedAt)
	stored, ok := s.accounts[account.SubscriberID]
	if !ok {
		stored = &model.AllowanceAccount{SubscriberID: account.SubscriberID, CreatedAt: at}
		s.accounts[account.SubscriberID] = stored
	}
	stored.PlanTier = account.PlanTier
	stored.CreditsRemaining = account.CreditsRemaining
	stored.ResetPeriod = account.ResetPeriod
	stored.Active = true
	stored.UpdatedAt = at

	s.appendAudit(model.AuditEntry{
		SubscriberID: stored.SubscriberID,
		Actor:        actor,
		Action:       model.AuditActionActivate,
		Notes:        fmt.Sprintf("plan %s, credits %d", stored.PlanTier, stored.CreditsRemaining),
		CreatedAt:    at,
	})
	out := *stored
	return &out, nil
}

func (r *allowanceRepository) Reserve(_ context.Context, req model.ReservationRequest) (*model.Reservation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.stamp(req.At)
	account, ok := s.accounts[req.SubscriberID]
	if !ok {
		account = &model.AllowanceAccount{
			SubscriberID: req.SubscriberID,
			PlanTier:     model.PlanFree,
			ResetPeriod:  req.Period,
			Active:       true,
			CreatedAt:    at,
			UpdatedAt:    at,
		}
		s.accounts[req.SubscriberID] = account
	}

	if req.LetterID != "" {
		for _, res := range s.reservations {
			if res.LetterID == req.LetterID && !res.Released() {
				out := *res
				return &out, nil
			}
		}
	}

	var kind model.ReservationKind
	switch {
	case account.Active && req.IsUnlimited(account.PlanTier):
		kind = model.ReservationUnlimited
	case !account.FreeTrialUsed && s.countInFlight(req.SubscriberID, req.LetterID) == 0:
		kind = model.ReservationTrial
		account.FreeTrialUsed = true
	case account.CreditsRemaining > 0:
		kind = model.ReservationCredit
		account.CreditsRemaining--
	default:
		return nil, domainErrors.ErrInsufficientAllowance
	}
	if kind != model.ReservationUnlimited {
		account.UpdatedAt = at
	}

	res := &model.Reservation{
		ID:           uuid.NewString(),
		SubscriberID: req.SubscriberID,
		LetterID:     req.LetterID,
		Kind:         kind,
		CreatedAt:    at,
	}
	s.reservations[res.ID] = res
	s.appendAudit(model.AuditEntry{
		LetterID:     req.LetterID,
		SubscriberID: req.SubscriberID,
		Actor:        req.Actor,
		Action:       model.AuditActionReserve,
		Notes:        fmt.Sprintf("reservation %s (%s)", res.ID, res.Kind),
		CreatedAt:    at,
	})
	out := *res
	return &out, nil
}

func (r *allowanceRepository) Release(_ context.Context, reservationID, actor string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[reservationID]
	if !ok {
		return false, domainErrors.ErrNotFound
	}
	if res.Released() {
		return false, nil
	}

	at := s.now()
	res.ReleasedAt = &at
	if account, ok := s.accounts[res.SubscriberID]; ok {
		switch res.Kind {
		case model.ReservationCredit:
			account.CreditsRemaining++
			account.UpdatedAt = at
		case model.ReservationTrial:
			account.FreeTrialUsed = false
			account.UpdatedAt = at
		}
	}
	s.appendAudit(model.AuditEntry{
		LetterID:     res.LetterID,
		SubscriberID: res.SubscriberID,
		Actor:        actor,
		Action:       model.AuditActionRelease,
		Notes:        fmt.Sprintf("reservation %s (%s)", res.ID, res.Kind),
		CreatedAt:    at,
	})
	return true, nil
}

func (r *allowanceRepository) ReservationForLetter(_ context.Context, letterID string) (*model.Reservation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *model.Reservation
	for _, res := range s.reservations {
		if res.LetterID != letterID {
			continue
		}
		switch {
		case found == nil:
			found = res
		case found.Released() && !res.Released():
			found = res
		case found.Released() == res.Released() && res.CreatedAt.After(found.CreatedAt):
			found = res
		}
	}
	if found == nil {
		return nil, domainErrors.ErrNotFound
	}
	out := *found
	return &out, nil
}

func (r *allowanceRepository) ListOrphanedReservations(_ context.Context, limit int) ([]model.Reservation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.Reservation
	for _, res := range s.reservations {
		if res.Released() || res.LetterID == "" {
			continue
		}
		if l, ok := s.letters[res.LetterID]; ok && l.Status == model.StatusFailed {
			result = append(result, *res)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *allowanceRepository) ResetPeriod(_ context.Context, req model.ResetRequest) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.stamp(req.At)
	unlimited := make(map[model.PlanTier]bool, len(req.Unlimited))
	for _, t := range req.Unlimited {
		unlimited[t] = true
	}

	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var count int64
	for _, id := range ids {
		account := s.accounts[id]
		// YYYY-MM stamps order as text; a reset never moves a stamp backwards.
		if !account.Active || (account.ResetPeriod != "" && account.ResetPeriod >= req.Period) {
			continue
		}
		entitlement, known := req.Entitlements[account.PlanTier]
		if !known && !unlimited[account.PlanTier] {
			continue
		}
		if !unlimited[account.PlanTier] {
			account.CreditsRemaining = entitlement
		}
		account.ResetPeriod = req.Period
		account.UpdatedAt = at
		s.appendAudit(model.AuditEntry{
			SubscriberID: account.SubscriberID,
			Actor:        req.Actor,
			Action:       model.AuditActionReset,
			Notes:        fmt.Sprintf("period %s, credits %d", req.Period, account.CreditsRemaining),
			CreatedAt:    at,
		})
		count++
	}
	return count, nil
}

// --- AuditRepository implementation ---

func (r *auditRepository) Append(_ context.Context, entry model.AuditEntry) (*model.AuditEntry, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.appendAudit(entry)
	return &stored, nil
}

func (r *auditRepository) ListByLetter(_ context.Context, letterID string) ([]model.AuditEntry, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.AuditEntry
	for _, e := range s.audit {
		if e.LetterID == letterID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *auditRepository) ListByRange(_ context.Context, from, to time.Time, limit int) ([]model.AuditEntry, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.AuditEntry
	for _, e := range s.audit {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
