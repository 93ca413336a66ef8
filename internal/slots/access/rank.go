package access

import "atelier/pkg/model"

const (
	proTierSignature = "signature"
	proTierVerified  = "verified"
)

// ResolveRank reduces the caller's overlapping rank fields to one canonical
// rank. First match wins:
//  1. an explicit Rank is returned as-is, even when a legacy flag says more
//  2. signature flag or proTier "signature"
//  3. isVerified, verified, or proTier "verified"
//
// A nil identity resolves to RankNone.
func ResolveRank(id *model.CallerIdentity) model.Rank {
	if id == nil {
		return model.RankNone
	}
	if id.Rank != model.RankNone {
		return id.Rank
	}
	if id.Signature || id.ProTier == proTierSignature {
		return model.RankSignature
	}
	if id.IsVerified || id.Verified || id.ProTier == proTierVerified {
		return model.RankVerified
	}
	return model.RankNone
}

// MeetsRank reports whether the resolved rank of id is at least min.
func MeetsRank(id *model.CallerIdentity, min model.Rank) bool {
	if !min.IsValid() {
		return false
	}
	return ResolveRank(id).Level() >= min.Level()
}
