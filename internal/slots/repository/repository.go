package repository

import (
	"context"
	"time"

	"atelier/pkg/model"
)

const (
	SlotsCollection  = "Slots"
	ClaimsCollection = "Slot_claims"
)

// TransactionFunc runs with a transaction-bound context. Every repository call
// made with that ctx joins the transaction.
type TransactionFunc func(ctx context.Context) error

// SlotRepository is the contract against the persisted slot store.
//
// Implementations return slotserrors.ErrNotFound, ErrInvalidID, ErrClaimExists
// and ErrStatusChanged (wrapped) for the expected outcomes; anything else is a
// backend failure.
type SlotRepository interface {
	Create(ctx context.Context, slot *model.BookingSlot) error
	FindByID(ctx context.Context, id string) (*model.BookingSlot, error)
	// Find returns the slots matching filter ordered by ScheduledAt ascending.
	Find(ctx context.Context, filter model.SlotFilter) ([]*model.BookingSlot, error)
	// HasCommittedAt reports whether providerUID already has a booked slot
	// starting exactly at at.
	HasCommittedAt(ctx context.Context, providerUID string, at time.Time) (bool, error)
	// TransitionStatus moves the slot to `to` only if its current status is one
	// of from. Inside a transaction the slot must already have been read with
	// FindByID on the same ctx.
	TransitionStatus(ctx context.Context, id string, from []model.SlotStatus, to model.SlotStatus, bookedBy string) error
	InsertClaim(ctx context.Context, claim *model.SlotClaim) error
	DeleteClaim(ctx context.Context, providerUID string, at time.Time) error
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
	Ping(ctx context.Context) error
}

// NormalizeInstant is the precision every backend stores and compares
// ScheduledAt at.
func NormalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
