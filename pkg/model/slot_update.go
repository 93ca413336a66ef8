package model

// SlotCreate is the request body for a new slot. ProviderUID comes from the
// authenticated caller, never from the body.
type SlotCreate struct {
	ScheduledAt     string   `json:"scheduled_at" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"omitempty,min=1"`
	InviteOnly      bool     `json:"invite_only"`
	AllowedUIDs     []string `json:"allowed_uids,omitempty"`
	MinRank         string   `json:"min_rank,omitempty"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Price           float64  `json:"price"`
	Location        string   `json:"location,omitempty"`
	MaxParticipants int      `json:"max_participants"`
}
