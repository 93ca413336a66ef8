package model

// CallerIdentity is the already-authenticated user behind a request. The rank
// fields are overlapping legacy encodings of one tier and may disagree.
type CallerIdentity struct {
	UID        string `json:"uid"`
	Rank       Rank   `json:"rank,omitempty"`
	ProTier    string `json:"proTier,omitempty"`
	IsVerified bool   `json:"isVerified,omitempty"`
	Verified   bool   `json:"verified,omitempty"`
	Signature  bool   `json:"signature,omitempty"`
}

func (c *CallerIdentity) IsAnonymous() bool {
	return c == nil || c.UID == ""
}
