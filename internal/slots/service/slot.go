package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atelier/internal/slots/access"
	"atelier/internal/slots/conflict"
	slotserrors "atelier/internal/slots/errors"
	"atelier/internal/slots/events"
	"atelier/internal/slots/listing"
	"atelier/internal/slots/repository"
	"atelier/internal/slots/validator"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/model"
	"atelier/pkg/sanitizer"
)

type SlotService interface {
	Create(ctx context.Context, caller *model.CallerIdentity, input *model.SlotCreate) (*model.BookingSlot, error)
	GetByID(ctx context.Context, caller *model.CallerIdentity, id string) (*model.BookingSlot, error)
	Claim(ctx context.Context, caller *model.CallerIdentity, id string) (*model.BookingSlot, error)
	Cancel(ctx context.Context, caller *model.CallerIdentity, id string) (*model.BookingSlot, error)
	ListAvailable(ctx context.Context, providerUID string, caller *model.CallerIdentity, window *model.DateRange) ([]*model.BookingSlot, error)
	ListAll(ctx context.Context, providerUID string) ([]*model.BookingSlot, error)
	CheckAccess(ctx context.Context, caller *model.CallerIdentity, id string) (access.Decision, error)
	CheckConflict(ctx context.Context, providerUID string, at time.Time) (bool, error)
}

type slotService struct {
	repo      repository.SlotRepository
	detector  *conflict.Detector
	listing   *listing.Service
	validator *validator.SlotValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewSlotService(
	repo repository.SlotRepository,
	validator *validator.SlotValidator,
	publisher events.Publisher,
	cfg *config.Config,
) SlotService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &slotService{
		repo:      repo,
		detector:  conflict.NewDetector(repo, cfg.Log),
		listing:   listing.NewService(repo, cfg.Log, cfg.MaxListingWindow),
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *slotService) Create(ctx context.Context, caller *model.CallerIdentity, input *model.SlotCreate) (*model.BookingSlot, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Sign in to create slots")
	}
	if input == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}

	slot, err := s.buildSlot(caller.UID, input)
	if err != nil {
		return nil, err
	}
	if err := s.validate(slot); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		s.cfg.Log.Error("Failed to create slot", "provider_uid", slot.ProviderUID, "error", err)
		return nil, apperrors.Internal("Failed to create slot", err)
	}

	s.cfg.Log.Info("Slot created successfully",
		"id", slot.ID,
		"provider_uid", slot.ProviderUID,
		"scheduled_at", slot.ScheduledAt,
		"invite_only", slot.InviteOnly,
	)
	s.publish(ctx, events.TypeSlotCreated, slot, caller.UID)
	return slot, nil
}

// GetByID shows the slot to its owner and to callers that pass the access rules.
func (s *slotService) GetByID(ctx context.Context, caller *model.CallerIdentity, id string) (*model.BookingSlot, error) {
	slot, err := s.findSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slot.IsOwnedBy(callerUID(caller)) && !access.HasAccess(slot, caller) {
		return nil, apperrors.AccessDenied("You do not have access to this slot")
	}
	return slot, nil
}

// Claim books the slot for caller. Every check and both writes run in one
// store transaction; a concurrent claim on the same provider instant loses
// with a Conflict.
func (s *slotService) Claim(ctx context.Context, caller *model.CallerIdentity, id string) (*model.BookingSlot, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Sign in to book slots")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	var claimed *model.BookingSlot
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		slot, err := s.findSlot(txCtx, id)
		if err != nil {
			return err
		}
		if slot.IsOwnedBy(caller.UID) {
			return apperrors.Forbidden("Providers cannot book their own slots")
		}
		if slot.Status != model.SlotAvailable {
			return apperrors.Conflict(fmt.Sprintf("Slot is %s", slot.Status))
		}
		if !access.HasAccess(slot, caller) {
			return apperrors.AccessDenied("You do not have access to this slot")
		}

		taken, err := s.detector.HasConflict(txCtx, slot.ProviderUID, slot.ScheduledAt)
		if err != nil {
			return asLookupFailed(err, "Could not verify the provider's calendar")
		}
		if taken {
			return apperrors.Conflict("Provider already has a booking at this time")
		}

		// writes only from here on
		err = s.repo.TransitionStatus(txCtx, slot.ID, []model.SlotStatus{model.SlotAvailable}, model.SlotBooked, caller.UID)
		if err != nil {
			return mapWriteError(err, "Failed to book slot")
		}
		claim := model.NewSlotClaim(slot, caller.UID)
		claim.CreatedAt = s.now().UTC()
		if err := s.repo.InsertClaim(txCtx, claim); err != nil {
			return mapWriteError(err, "Failed to record booking")
		}

		slot.Status = model.SlotBooked
		slot.BookedBy = caller.UID
		claimed = slot
		return nil
	})
	if err != nil {
		err = mapWriteError(err, "Failed to book slot")
		s.cfg.Log.Warn("Slot claim rejected", "id", id, "caller_uid", caller.UID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Slot booked successfully",
		"id", claimed.ID,
		"provider_uid", claimed.ProviderUID,
		"booked_by", caller.UID,
		"scheduled_at", claimed.ScheduledAt,
	)
	s.publish(ctx, events.TypeSlotBooked, claimed, caller.UID)
	return claimed, nil
}

// Cancel is owner-only. Cancelling a booked slot releases its claim so the
// instant can be booked again.
func (s *slotService) Cancel(ctx context.Context, caller *model.CallerIdentity, id string) (*model.BookingSlot, error) {
	if caller.IsAnonymous() {
		return nil, apperrors.Unauthorized("Sign in to cancel slots")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	var cancelled *model.BookingSlot
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		slot, err := s.findSlot(txCtx, id)
		if err != nil {
			return err
		}
		if !slot.IsOwnedBy(caller.UID) {
			return apperrors.Forbidden("Only the provider can cancel this slot")
		}
		if slot.Status == model.SlotCancelled {
			return apperrors.Conflict("Slot is already cancelled")
		}

		wasBooked := slot.Status == model.SlotBooked
		err = s.repo.TransitionStatus(txCtx, slot.ID, []model.SlotStatus{model.SlotAvailable, model.SlotBooked}, model.SlotCancelled, "")
		if err != nil {
			return mapWriteError(err, "Failed to cancel slot")
		}
		// an available slot holds no claim; the key may belong to another slot
		if wasBooked {
			if err := s.repo.DeleteClaim(txCtx, slot.ProviderUID, slot.ScheduledAt); err != nil {
				return apperrors.Internal("Failed to release booking", err)
			}
		}

		slot.Status = model.SlotCancelled
		slot.BookedBy = ""
		cancelled = slot
		return nil
	})
	if err != nil {
		err = mapWriteError(err, "Failed to cancel slot")
		s.cfg.Log.Warn("Slot cancel rejected", "id", id, "caller_uid", caller.UID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Slot cancelled successfully", "id", cancelled.ID, "provider_uid", cancelled.ProviderUID)
	s.publish(ctx, events.TypeSlotCancelled, cancelled, caller.UID)
	return cancelled, nil
}

func (s *slotService) ListAvailable(ctx context.Context, providerUID string, caller *model.CallerIdentity, window *model.DateRange) ([]*model.BookingSlot, error) {
	slots, err := s.listing.ListAvailableSlots(ctx, providerUID, caller, window)
	if err != nil {
		return nil, asLookupFailed(err, "Could not list slots")
	}
	return slots, nil
}

func (s *slotService) ListAll(ctx context.Context, providerUID string) ([]*model.BookingSlot, error) {
	slots, err := s.listing.ListAllProviderSlots(ctx, providerUID)
	if err != nil {
		return nil, asLookupFailed(err, "Could not list slots")
	}
	return slots, nil
}

func (s *slotService) CheckAccess(ctx context.Context, caller *model.CallerIdentity, id string) (access.Decision, error) {
	slot, err := s.findSlot(ctx, id)
	if err != nil {
		return access.Decision{}, err
	}
	return access.Explain(slot, caller), nil
}

func (s *slotService) CheckConflict(ctx context.Context, providerUID string, at time.Time) (bool, error) {
	taken, err := s.detector.HasConflict(ctx, providerUID, at)
	if err != nil {
		return false, asLookupFailed(err, "Could not verify the provider's calendar")
	}
	return taken, nil
}

// --- Helpers ---

func (s *slotService) buildSlot(providerUID string, input *model.SlotCreate) (*model.BookingSlot, error) {
	scheduledAt, err := validator.ParseScheduledAt(input.ScheduledAt)
	if err != nil {
		return nil, validationError(err)
	}
	minRank, err := validator.ParseMinRank(input.MinRank)
	if err != nil {
		return nil, validationError(err)
	}

	now := repository.NormalizeInstant(s.now())
	return &model.BookingSlot{
		ProviderUID:     providerUID,
		ScheduledAt:     repository.NormalizeInstant(scheduledAt),
		DurationMinutes: sanitizer.NormalizeDuration(input.DurationMinutes, s.cfg.DefaultSlotDurationMin),
		InviteOnly:      input.InviteOnly,
		AllowedUIDs:     sanitizer.NormalizeUIDs(input.AllowedUIDs),
		MinRank:         minRank,
		Status:          model.SlotAvailable,
		Title:           sanitizer.SanitizeText(input.Title),
		Description:     sanitizer.SanitizeMultiline(input.Description),
		Price:           sanitizer.NormalizePrice(input.Price),
		Location:        sanitizer.SanitizeText(input.Location),
		MaxParticipants: input.MaxParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *slotService) validate(slot *model.BookingSlot) error {
	if err := s.validator.Validate(slot); err != nil {
		s.cfg.Log.Warn("Slot validation failed", "error", err)
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Slot validation failed", map[string]any{"errors": verrs})
	}
	return apperrors.Validation("Slot validation failed", map[string]any{"error": err.Error()})
}

func (s *slotService) findSlot(ctx context.Context, id string) (*model.BookingSlot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", id)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		}
		s.cfg.Log.Error("Failed to read slot", "id", id, "error", err)
		return nil, apperrors.LookupFailed("Failed to retrieve slot", err)
	}
	return slot, nil
}

// publish never fails the caller: the mutation is already committed.
func (s *slotService) publish(ctx context.Context, eventType string, slot *model.BookingSlot, actorUID string) {
	event := events.NewSlotEvent(eventType, slot, actorUID)
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.cfg.Log.Error("Failed to publish slot event",
			"event_type", eventType,
			"slot_id", slot.ID,
			"error", err,
		)
	}
}

func callerUID(caller *model.CallerIdentity) string {
	if caller == nil {
		return ""
	}
	return caller.UID
}

// asLookupFailed turns a bare ErrLookupFailed into its AppError. AppErrors
// pass through unchanged.
func asLookupFailed(err error, message string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, slotserrors.ErrLookupFailed) {
		return apperrors.LookupFailed(message, err)
	}
	return apperrors.Internal(message, err)
}

// mapWriteError translates the expected lost-race outcomes into Conflict.
func mapWriteError(err error, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, slotserrors.ErrClaimExists):
		return apperrors.Conflict("Provider already has a booking at this time")
	case errors.Is(err, slotserrors.ErrStatusChanged):
		return apperrors.Conflict("Slot was modified by another request")
	case errors.Is(err, slotserrors.ErrNotFound):
		return apperrors.NotFound("Slot")
	case errors.Is(err, slotserrors.ErrLookupFailed):
		return apperrors.LookupFailed(message, err)
	default:
		return apperrors.Internal(message, err)
	}
}
