package model

import (
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
)

// BookingSlot occupies [ScheduledAt, ScheduledAt+DurationMinutes) on the
// provider's calendar. AllowedUIDs and MinRank only apply when InviteOnly is set.
type BookingSlot struct {
	ID              string     `json:"id,omitempty" bson:"_id,omitempty" firestore:"-" validate:"omitempty"`
	ProviderUID     string     `json:"provider_uid" bson:"provider_uid" firestore:"providerUid" validate:"required,min=1,max=128"`
	ScheduledAt     time.Time  `json:"scheduled_at" bson:"scheduled_at" firestore:"scheduledAt" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" bson:"duration_minutes" firestore:"durationMinutes" validate:"required,min=1"`
	InviteOnly      bool       `json:"invite_only" bson:"invite_only" firestore:"inviteOnly"`
	AllowedUIDs     []string   `json:"allowed_uids,omitempty" bson:"allowed_uids,omitempty" firestore:"allowedUids,omitempty" validate:"omitempty,max=500,unique,uid_list,dive,required,max=128"`
	MinRank         Rank       `json:"min_rank,omitempty" bson:"min_rank,omitempty" firestore:"minRank,omitempty" validate:"omitempty,oneof=verified signature top5"`
	Status          SlotStatus `json:"status" bson:"status" firestore:"status" validate:"required,oneof=available booked cancelled"`
	Title           string     `json:"title" bson:"title" firestore:"title" validate:"required,min=2,max=120"`
	Description     string     `json:"description,omitempty" bson:"description,omitempty" firestore:"description,omitempty" validate:"omitempty,max=2000"`
	Price           float64    `json:"price" bson:"price" firestore:"price" validate:"gte=0"`
	Location        string     `json:"location,omitempty" bson:"location,omitempty" firestore:"location,omitempty" validate:"omitempty,max=200"`
	MaxParticipants int        `json:"max_participants" bson:"max_participants" firestore:"maxParticipants" validate:"required,min=1,max=200"`
	BookedBy        string     `json:"booked_by,omitempty" bson:"booked_by,omitempty" firestore:"bookedBy,omitempty"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time  `json:"updated_at" bson:"updated_at" firestore:"updatedAt"`
}

// EndsAt returns the exclusive end of the occupied interval.
func (s *BookingSlot) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

func (s *BookingSlot) IsOwnedBy(uid string) bool {
	return uid != "" && s.ProviderUID == uid
}

// DateRange bounds a listing query on ScheduledAt. Both ends are inclusive and optional.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// SlotFilter is the read contract against the slot store.
type SlotFilter struct {
	ProviderUID string
	Status      SlotStatus // empty matches every status
	Range       *DateRange
}
