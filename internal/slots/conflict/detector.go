package conflict

import (
	"context"
	"fmt"
	"time"

	slotserrors "atelier/internal/slots/errors"
	"atelier/internal/slots/repository"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/logger"
)

// Store is the slice of the slot store the detector reads.
type Store interface {
	HasCommittedAt(ctx context.Context, providerUID string, at time.Time) (bool, error)
}

// Detector flags a candidate booking that starts at the exact instant of an
// already booked slot of the same provider. Overlapping durations with
// different start instants are not conflicts.
type Detector struct {
	store Store
	log   *logger.Logger
}

func NewDetector(store Store, log *logger.Logger) *Detector {
	return &Detector{store: store, log: log}
}

// HasConflict fails closed: when the store cannot answer, the returned error
// wraps slotserrors.ErrLookupFailed and the boolean must be ignored.
func (d *Detector) HasConflict(ctx context.Context, providerUID string, candidate time.Time) (bool, error) {
	if providerUID == "" {
		return false, apperrors.InvalidInput("provider_uid is required for conflict detection")
	}
	if candidate.IsZero() {
		return false, apperrors.InvalidInput("candidate instant is required for conflict detection")
	}

	at := repository.NormalizeInstant(candidate)
	found, err := d.store.HasCommittedAt(ctx, providerUID, at)
	if err != nil {
		d.log.Error("Conflict lookup failed",
			"provider_uid", providerUID,
			"at", at,
			"error", err,
		)
		return false, fmt.Errorf("%w: %w", slotserrors.ErrLookupFailed, err)
	}

	if found {
		d.log.Debug("Conflict detected", "provider_uid", providerUID, "at", at)
	}
	return found, nil
}
