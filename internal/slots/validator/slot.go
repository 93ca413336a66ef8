package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"atelier/pkg/logger"
	"atelier/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SlotValidator struct {
	validate       *validator.Validate
	logger         *logger.Logger
	maxDurationMin int
	now            func() time.Time
}

func NewSlotValidator(log *logger.Logger, maxDurationMin int) *SlotValidator {
	v := validator.New()

	if err := v.RegisterValidation("uid_list", validateUIDList); err != nil {
		log.Fatal("Failed to register 'uid_list' validator",
			"error", err,
		)
	}

	log.Info("Slot validator initialized successfully")

	return &SlotValidator{
		validate:       v,
		logger:         log,
		maxDurationMin: maxDurationMin,
		now:            time.Now,
	}
}

// validateUIDList rejects blank or padded uids in an allow-list.
func validateUIDList(fl validator.FieldLevel) bool {
	uids, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, uid := range uids {
		if uid == "" || strings.TrimSpace(uid) != uid {
			return false
		}
	}
	return true
}

// Validate checks a fully built slot before it is persisted.
func (v *SlotValidator) Validate(slot *model.BookingSlot) error {
	if err := v.validate.Struct(slot); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	var errs ValidationErrors

	if v.maxDurationMin > 0 && slot.DurationMinutes > v.maxDurationMin {
		errs = append(errs, ValidationError{
			Field:   "DurationMinutes",
			Message: fmt.Sprintf("duration_minutes must be at most %d", v.maxDurationMin),
		})
	}

	if !slot.InviteOnly && (len(slot.AllowedUIDs) > 0 || slot.MinRank != model.RankNone) {
		errs = append(errs, ValidationError{
			Field:   "InviteOnly",
			Message: "allowed_uids and min_rank require invite_only",
		})
	}

	if slot.ScheduledAt.Before(v.now()) {
		errs = append(errs, ValidationError{
			Field:   "ScheduledAt",
			Message: "scheduled_at cannot be in the past",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ParseScheduledAt accepts RFC 3339 with or without fractional seconds.
func ParseScheduledAt(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ValidationErrors{
			ValidationError{
				Field:   "ScheduledAt",
				Message: "scheduled_at must be an RFC 3339 timestamp (e.g., 2025-07-01T10:00:00Z)",
			},
		}
	}
	return t, nil
}

// ParseMinRank maps the request value to a Rank. Empty means no minimum.
func ParseMinRank(raw string) (model.Rank, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "none" {
		return model.RankNone, nil
	}
	r, ok := model.ParseRank(raw)
	if !ok {
		return model.RankNone, ValidationErrors{
			ValidationError{
				Field:   "MinRank",
				Message: "min_rank must be one of: verified signature top5",
			},
		}
	}
	return r, nil
}

func (v *SlotValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "unique":
			message = fmt.Sprintf("%s must not contain duplicates", err.Field())
		case "uid_list":
			message = fmt.Sprintf("%s must contain non-blank uids", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
