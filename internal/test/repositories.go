package test

import (
	"context"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
	"github.com/jamilahmedansari/letterdesk/internal/domain/repository"
)

// LetterRepositoryStub overrides selected methods of an underlying repository.
// Methods without an override delegate to LetterRepository.
type LetterRepositoryStub struct {
	repository.LetterRepository
	GetFn             func(context.Context, string) (*model.Letter, error)
	ApplyTransitionFn func(context.Context, model.StatusChange) (*model.Letter, error)
	CandidatesFn      func(context.Context) ([]model.QueueCandidate, error)
	StaleFn           func(context.Context, time.Time, int) ([]model.Letter, error)
	GeneratingFn      func(context.Context, time.Time, int) ([]model.Letter, error)
}

// Get delegates to GetFn when set.
func (s *LetterRepositoryStub) Get(ctx context.Context, id string) (*model.Letter, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return s.LetterRepository.Get(ctx, id)
}

// ApplyTransition delegates to ApplyTransitionFn when set.
func (s *LetterRepositoryStub) ApplyTransition(ctx context.Context, change model.StatusChange) (*model.Letter, error) {
	if s.ApplyTransitionFn != nil {
		return s.ApplyTransitionFn(ctx, change)
	}
	return s.LetterRepository.ApplyTransition(ctx, change)
}

// ListReviewCandidates delegates to CandidatesFn when set.
func (s *LetterRepositoryStub) ListReviewCandidates(ctx context.Context) ([]model.QueueCandidate, error) {
	if s.CandidatesFn != nil {
		return s.CandidatesFn(ctx)
	}
	return s.LetterRepository.ListReviewCandidates(ctx)
}

// ListStaleGenerating delegates to StaleFn when set.
func (s *LetterRepositoryStub) ListStaleGenerating(ctx context.Context, before time.Time, limit int) ([]model.Letter, error) {
	if s.StaleFn != nil {
		return s.StaleFn(ctx, before, limit)
	}
	return s.LetterRepository.ListStaleGenerating(ctx, before, limit)
}

// ListGenerating delegates to GeneratingFn when set.
func (s *LetterRepositoryStub) ListGenerating(ctx context.Context, since time.Time, limit int) ([]model.Letter, error) {
	if s.GeneratingFn != nil {
		return s.GeneratingFn(ctx, since, limit)
	}
	return s.LetterRepository.ListGenerating(ctx, since, limit)
}

// AllowanceRepositoryStub overrides selected ledger methods.
type AllowanceRepositoryStub struct {
	repository.AllowanceRepository
	GetAccountFn func(context.Context, string) (*model.AllowanceAccount, error)
	ReserveFn    func(context.Context, model.ReservationRequest) (*model.Reservation, error)
	ReleaseFn    func(context.Context, string, string) (bool, error)
	ResetFn      func(context.Context, model.ResetRequest) (int64, error)
}

// GetAccount delegates to GetAccountFn when set.
func (s *AllowanceRepositoryStub) GetAccount(ctx context.Context, subscriberID string) (*model.AllowanceAccount, error) {
	if s.GetAccountFn != nil {
		return s.GetAccountFn(ctx, subscriberID)
	}
	return s.AllowanceRepository.GetAccount(ctx, subscriberID)
}

// Reserve delegates to ReserveFn when set.
func (s *AllowanceRepositoryStub) Reserve(ctx context.Context, req model.ReservationRequest) (*model.Reservation, error) {
	if s.ReserveFn != nil {
		return s.ReserveFn(ctx, req)
	}
	return s.AllowanceRepository.Reserve(ctx, req)
}

// Release delegates to ReleaseFn when set.
func (s *AllowanceRepositoryStub) Release(ctx context.Context, reservationID, actor string) (bool, error) {
	if s.ReleaseFn != nil {
		return s.ReleaseFn(ctx, reservationID, actor)
	}
	return s.AllowanceRepository.Release(ctx, reservationID, actor)
}

// ResetPeriod delegates to ResetFn when set.
func (s *AllowanceRepositoryStub) ResetPeriod(ctx context.Context, req model.ResetRequest) (int64, error) {
	if s.ResetFn != nil {
		return s.ResetFn(ctx, req)
	}
	return s.AllowanceRepository.ResetPeriod(ctx, req)
}

// AuditRepositoryStub overrides selected audit methods.
type AuditRepositoryStub struct {
	repository.AuditRepository
	AppendFn func(context.Context, model.AuditEntry) (*model.AuditEntry, error)
	RangeFn  func(context.Context, time.Time, time.Time, int) ([]model.AuditEntry, error)
}

// Append delegates to AppendFn when set.
func (s *AuditRepositoryStub) Append(ctx context.Context, entry model.AuditEntry) (*model.AuditEntry, error) {
	if s.AppendFn != nil {
		return s.AppendFn(ctx, entry)
	}
	return s.AuditRepository.Append(ctx, entry)
}

// ListByRange delegates to RangeFn when set.
func (s *AuditRepositoryStub) ListByRange(ctx context.Context, from, to time.Time, limit int) ([]model.AuditEntry, error) {
	if s.RangeFn != nil {
		return s.RangeFn(ctx, from, to, limit)
	}
	return s.AuditRepository.ListByRange(ctx, from, to, limit)
}
