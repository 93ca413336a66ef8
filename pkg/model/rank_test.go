package model

import "testing"

func TestRank_Level(t *testing.T) {
	tests := []struct {
		rank Rank
		want int
	}{
		{RankNone, 0},
		{RankVerified, 1},
		{RankSignature, 2},
		{RankTop5, 3},
		{Rank("gold"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.rank.String(), func(t *testing.T) {
			if got := tt.rank.Level(); got != tt.want {
				t.Errorf("Level() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseRank(t *testing.T) {
	if r, ok := ParseRank("signature"); !ok || r != RankSignature {
		t.Errorf("ParseRank(signature) = %q, %v", r, ok)
	}
	if r, ok := ParseRank("Signature"); ok || r != RankNone {
		t.Errorf("ParseRank is case sensitive, got %q, %v", r, ok)
	}
	if _, ok := ParseRank(""); ok {
		t.Error("empty string must not parse as a rank")
	}
}

func TestDateRange_Contains(t *testing.T) {
	start := mustTime(t, "2025-07-01T10:00:00Z")
	end := mustTime(t, "2025-07-01T14:00:00Z")
	r := &DateRange{Start: &start, End: &end}

	if !r.Contains(start) || !r.Contains(end) {
		t.Error("bounds must be inclusive")
	}
	if r.Contains(end.Add(1)) {
		t.Error("instant after end must be excluded")
	}

	var open *DateRange
	if !open.Contains(start) {
		t.Error("nil range must contain everything")
	}
}

func TestClaimKey_NormalizesZone(t *testing.T) {
	utc := mustTime(t, "2025-07-01T10:00:00Z")
	offset := mustTime(t, "2025-07-01T12:00:00+02:00")

	if ClaimKey("p1", utc) != ClaimKey("p1", offset) {
		t.Error("same instant in different zones must share a claim key")
	}
	if ClaimKey("p1", utc) == ClaimKey("p2", utc) {
		t.Error("different providers must not share a claim key")
	}
}
