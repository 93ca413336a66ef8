package listing

import (
	"context"
	"fmt"
	"slices"
	"time"

	"atelier/internal/slots/access"
	slotserrors "atelier/internal/slots/errors"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/logger"
	"atelier/pkg/model"
)

type Store interface {
	Find(ctx context.Context, filter model.SlotFilter) ([]*model.BookingSlot, error)
}

// Service answers "which slots can this caller use" for one provider.
type Service struct {
	store     Store
	log       *logger.Logger
	maxWindow time.Duration
}

func NewService(store Store, log *logger.Logger, maxWindow time.Duration) *Service {
	return &Service{store: store, log: log, maxWindow: maxWindow}
}

// ListAvailableSlots returns the provider's available slots inside window
// that caller passes access.HasAccess for, ordered by ScheduledAt. caller may
// be nil. A store failure is returned wrapped in slotserrors.ErrLookupFailed,
// never as an empty result.
func (s *Service) ListAvailableSlots(ctx context.Context, providerUID string, caller *model.CallerIdentity, window *model.DateRange) ([]*model.BookingSlot, error) {
	if providerUID == "" {
		return nil, apperrors.InvalidInput("provider_uid is required")
	}
	if err := s.ValidateWindow(window); err != nil {
		return nil, err
	}

	slots, err := s.store.Find(ctx, model.SlotFilter{
		ProviderUID: providerUID,
		Status:      model.SlotAvailable,
		Range:       window,
	})
	if err != nil {
		s.log.Error("Failed to list available slots", "provider_uid", providerUID, "error", err)
		return nil, fmt.Errorf("%w: %w", slotserrors.ErrLookupFailed, err)
	}

	visible := make([]*model.BookingSlot, 0, len(slots))
	hidden := 0
	for _, slot := range slots {
		if slot.Status != model.SlotAvailable || slot.ProviderUID != providerUID || !window.Contains(slot.ScheduledAt) {
			continue
		}
		if !access.HasAccess(slot, caller) {
			hidden++
			continue
		}
		visible = append(visible, slot)
	}
	sortByScheduledAt(visible)

	s.log.Debug("Available slots listed",
		"provider_uid", providerUID,
		"anonymous", caller.IsAnonymous(),
		"count", len(visible),
		"hidden", hidden,
	)
	return visible, nil
}

// ListAllProviderSlots is the management view: every slot of the provider in
// any status, with no access filtering. Callers must restrict it to the owner.
func (s *Service) ListAllProviderSlots(ctx context.Context, providerUID string) ([]*model.BookingSlot, error) {
	if providerUID == "" {
		return nil, apperrors.InvalidInput("provider_uid is required")
	}

	slots, err := s.store.Find(ctx, model.SlotFilter{ProviderUID: providerUID})
	if err != nil {
		s.log.Error("Failed to list provider slots", "provider_uid", providerUID, "error", err)
		return nil, fmt.Errorf("%w: %w", slotserrors.ErrLookupFailed, err)
	}

	owned := make([]*model.BookingSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.ProviderUID == providerUID {
			owned = append(owned, slot)
		}
	}
	sortByScheduledAt(owned)

	s.log.Debug("Provider slots listed", "provider_uid", providerUID, "count", len(owned))
	return owned, nil
}

// ValidateWindow rejects inverted windows and windows wider than the
// configured maximum. Open-ended windows are accepted.
func (s *Service) ValidateWindow(window *model.DateRange) error {
	if window == nil || window.Start == nil || window.End == nil {
		return nil
	}
	if window.End.Before(*window.Start) {
		return apperrors.InvalidInput("end date must not be before start date")
	}
	if s.maxWindow > 0 && window.End.Sub(*window.Start) > s.maxWindow {
		return apperrors.InvalidInput(fmt.Sprintf("date range must not exceed %s", s.maxWindow))
	}
	return nil
}

func sortByScheduledAt(slots []*model.BookingSlot) {
	slices.SortStableFunc(slots, func(a, b *model.BookingSlot) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})
}
