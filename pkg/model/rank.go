package model

// Rank is the canonical provider tier used for slot gating. The zero value
// means no rank.
type Rank string

const (
	RankNone      Rank = ""
	RankVerified  Rank = "verified"
	RankSignature Rank = "signature"
	RankTop5      Rank = "top5"
)

var rankLevels = map[Rank]int{
	RankVerified:  1,
	RankSignature: 2,
	RankTop5:      3,
}

// Level returns the position of r in the order verified < signature < top5.
// RankNone and unknown values have level 0.
func (r Rank) Level() int {
	return rankLevels[r]
}

func (r Rank) IsValid() bool {
	_, ok := rankLevels[r]
	return ok
}

func (r Rank) String() string {
	if r == RankNone {
		return "none"
	}
	return string(r)
}

func ParseRank(s string) (Rank, bool) {
	r := Rank(s)
	if !r.IsValid() {
		return RankNone, false
	}
	return r, true
}
