package repository

import (
	"context"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

// AllowanceRepository owns the credit ledger.
type AllowanceRepository interface {
	GetAccount(ctx context.Context, subscriberID string) (*model.AllowanceAccount, error)
	Activate(ctx context.Context, account model.AllowanceAccount, actor string) (*model.AllowanceAccount, error)
	// Reserve atomically claims one credit, the free trial, or an unlimited slot.
	// An open reservation for the same letter is returned unchanged.
	Reserve(ctx context.Context, req model.ReservationRequest) (*model.Reservation, error)
	// Release returns the reservation's credit once; later calls report false.
	Release(ctx context.Context, reservationID, actor string) (bool, error)
	ReservationForLetter(ctx context.Context, letterID string) (*model.Reservation, error)
	ListOrphanedReservations(ctx context.Context, limit int) ([]model.Reservation, error)
	ResetPeriod(ctx context.Context, req model.ResetRequest) (int64, error)
}
