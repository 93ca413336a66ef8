package model

import (
	"fmt"
	"time"
)

// SlotClaim records a committed booking. Its ID is derived from the provider
// and start instant so that the store rejects a second claim on the same instant.
type SlotClaim struct {
	ID          string    `bson:"_id" json:"id" firestore:"-"`
	SlotID      string    `bson:"slot_id" json:"slot_id" firestore:"slotId"`
	ProviderUID string    `bson:"provider_uid" json:"provider_uid" firestore:"providerUid"`
	BookerUID   string    `bson:"booker_uid" json:"booker_uid" firestore:"bookerUid"`
	ScheduledAt time.Time `bson:"scheduled_at" json:"scheduled_at" firestore:"scheduledAt"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at" firestore:"createdAt"`
}

func ClaimKey(providerUID string, at time.Time) string {
	return fmt.Sprintf("claim_%s_%d", providerUID, at.UTC().UnixMilli())
}

func NewSlotClaim(slot *BookingSlot, bookerUID string) *SlotClaim {
	return &SlotClaim{
		ID:          ClaimKey(slot.ProviderUID, slot.ScheduledAt),
		SlotID:      slot.ID,
		ProviderUID: slot.ProviderUID,
		BookerUID:   bookerUID,
		ScheduledAt: slot.ScheduledAt,
	}
}
