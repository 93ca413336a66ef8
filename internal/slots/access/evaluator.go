package access

import (
	"slices"

	"atelier/pkg/model"
)

// HasAccess decides whether caller may see and book slot. caller may be nil
// for anonymous requests. An invite-only slot with neither an allow-list nor a
// minimum rank is locked to everyone.
func HasAccess(slot *model.BookingSlot, caller *model.CallerIdentity) bool {
	if slot == nil {
		return false
	}
	if !slot.InviteOnly {
		return true
	}
	if caller.IsAnonymous() {
		return false
	}
	if slices.Contains(slot.AllowedUIDs, caller.UID) {
		return true
	}
	if slot.MinRank != model.RankNone && MeetsRank(caller, slot.MinRank) {
		return true
	}
	return false
}

// Decision explains an access outcome for API consumers.
type Decision struct {
	Allowed      bool       `json:"allowed"`
	Reason       string     `json:"reason"`
	ResolvedRank model.Rank `json:"resolved_rank,omitempty"`
}

const (
	ReasonPublic           = "public"
	ReasonAnonymous        = "anonymous"
	ReasonAllowListed      = "allow_listed"
	ReasonRank             = "rank"
	ReasonInsufficientRank = "insufficient_rank"
	ReasonLocked           = "locked"
	ReasonNotInvited       = "not_invited"
)

// Explain returns the same verdict as HasAccess together with the rule that produced it.
func Explain(slot *model.BookingSlot, caller *model.CallerIdentity) Decision {
	d := Decision{Allowed: HasAccess(slot, caller), ResolvedRank: ResolveRank(caller)}
	switch {
	case slot == nil:
		d.Reason = ReasonLocked
	case !slot.InviteOnly:
		d.Reason = ReasonPublic
	case caller.IsAnonymous():
		d.Reason = ReasonAnonymous
	case slices.Contains(slot.AllowedUIDs, caller.UID):
		d.Reason = ReasonAllowListed
	case slot.MinRank != model.RankNone && d.Allowed:
		d.Reason = ReasonRank
	case slot.MinRank != model.RankNone:
		d.Reason = ReasonInsufficientRank
	case len(slot.AllowedUIDs) == 0:
		d.Reason = ReasonLocked
	default:
		d.Reason = ReasonNotInvited
	}
	return d
}
