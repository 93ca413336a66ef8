package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	slotserrors "atelier/internal/slots/errors"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/logger"
)

type booked struct {
	provider string
	at       time.Time
}

// mockStore answers from an in-memory list of booked instants.
type mockStore struct {
	booked []booked
	err    error
	calls  int
}

func (m *mockStore) HasCommittedAt(ctx context.Context, providerUID string, at time.Time) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	for _, b := range m.booked {
		if b.provider == providerUID && b.at.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

var t0 = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

func TestHasConflict(t *testing.T) {
	store := &mockStore{booked: []booked{{provider: "P", at: t0}}}
	d := NewDetector(store, logger.Discard())

	tests := []struct {
		name      string
		provider  string
		candidate time.Time
		want      bool
	}{
		{"same provider same instant", "P", t0, true},
		{"same instant in another zone", "P", t0.In(time.FixedZone("CEST", 2*60*60)), true},
		{"different provider same instant", "Q", t0, false},
		{"same provider inside the duration window", "P", t0.Add(30 * time.Minute), false},
		{"same provider a minute earlier", "P", t0.Add(-time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.HasConflict(context.Background(), tt.provider, tt.candidate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasConflict_FailsClosed(t *testing.T) {
	cause := errors.New("deadline exceeded")
	store := &mockStore{err: cause}
	d := NewDetector(store, logger.Discard())

	_, err := d.HasConflict(context.Background(), "P", t0)
	if err == nil {
		t.Fatal("expected error when the store fails")
	}
	if !errors.Is(err, slotserrors.ErrLookupFailed) {
		t.Errorf("expected ErrLookupFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected the store error to be preserved, got %v", err)
	}
}

func TestHasConflict_RejectsInvalidInputBeforeStore(t *testing.T) {
	store := &mockStore{}
	d := NewDetector(store, logger.Discard())

	if _, err := d.HasConflict(context.Background(), "", t0); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("empty provider: expected INVALID_INPUT, got %v", err)
	}
	if _, err := d.HasConflict(context.Background(), "P", time.Time{}); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("zero instant: expected INVALID_INPUT, got %v", err)
	}
	if store.calls != 0 {
		t.Errorf("store must not be queried for invalid input, got %d calls", store.calls)
	}
}
