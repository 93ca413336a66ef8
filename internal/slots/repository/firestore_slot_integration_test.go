//go:build integration

package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	slotserrors "atelier/internal/slots/errors"
	"atelier/internal/slots/repository"
	"atelier/pkg/client"
	"atelier/pkg/config"
	"atelier/pkg/logger"
	"atelier/pkg/model"

	"cloud.google.com/go/firestore"
)

// Runs against the emulator, e.g. FIRESTORE_EMULATOR_HOST=localhost:8080.
func newFirestoreRepo(t *testing.T) repository.SlotRepository {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	if projectID == "" {
		projectID = "atelier-test"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fs, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	for _, name := range []string{"bookingSlots", "slotClaims"} {
		docs, err := fs.Collection(name).Documents(ctx).GetAll()
		if err != nil {
			t.Fatalf("failed to list %s: %v", name, err)
		}
		for _, doc := range docs {
			if _, err := doc.Ref.Delete(ctx); err != nil {
				t.Fatalf("failed to clear %s: %v", name, err)
			}
		}
	}

	t.Cleanup(func() {
		if err := fs.Close(); err != nil {
			t.Logf("warning: failed to close Firestore client: %v", err)
		}
	})

	cfg := &config.Config{
		FirebaseProjectID: projectID,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
	cfg.Client.Firestore = fs
	return repository.NewFirestoreSlotRepository(cfg)
}

func claimInTx(repo repository.SlotRepository, slot *model.BookingSlot, booker string) error {
	return repo.ExecuteTransaction(context.Background(), func(txCtx context.Context) error {
		if _, err := repo.FindByID(txCtx, slot.ID); err != nil {
			return err
		}
		if err := repo.TransitionStatus(txCtx, slot.ID, []model.SlotStatus{model.SlotAvailable}, model.SlotBooked, booker); err != nil {
			return err
		}
		return repo.InsertClaim(txCtx, model.NewSlotClaim(slot, booker))
	})
}

func TestFirestoreSlotRepository_ClaimLifecycle(t *testing.T) {
	repo := newFirestoreRepo(t)
	ctx := context.Background()
	at := time.Date(2031, 3, 4, 10, 0, 0, 0, time.UTC)

	slot := newSlot("prov-1", at)
	if err := repo.Create(ctx, slot); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if slot.ID == "" {
		t.Fatal("Create() did not assign an id")
	}
	if err := claimInTx(repo, slot, "booker-1"); err != nil {
		t.Fatalf("claim transaction error = %v", err)
	}

	got, err := repo.FindByID(ctx, slot.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Status != model.SlotBooked || got.BookedBy != "booker-1" {
		t.Errorf("slot = %+v, want booked by booker-1", got)
	}

	// the claim document only collides at commit, inside the transaction
	other := newSlot("prov-1", at)
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := claimInTx(repo, other, "booker-2"); !errors.Is(err, slotserrors.ErrClaimExists) {
		t.Errorf("duplicate claim in transaction error = %v, want ErrClaimExists", err)
	}
	if got, _ := repo.FindByID(ctx, other.ID); got == nil || got.Status != model.SlotAvailable {
		t.Errorf("rolled back slot = %+v, want still available", got)
	}

	err = repo.InsertClaim(ctx, model.NewSlotClaim(other, "booker-2"))
	if !errors.Is(err, slotserrors.ErrClaimExists) {
		t.Errorf("duplicate claim error = %v, want ErrClaimExists", err)
	}

	err = repo.TransitionStatus(ctx, slot.ID, []model.SlotStatus{model.SlotAvailable}, model.SlotBooked, "booker-2")
	if !errors.Is(err, slotserrors.ErrStatusChanged) {
		t.Errorf("stale transition error = %v, want ErrStatusChanged", err)
	}

	if err := repo.TransitionStatus(ctx, "missing-slot", []model.SlotStatus{model.SlotAvailable}, model.SlotBooked, "x"); !errors.Is(err, slotserrors.ErrNotFound) {
		t.Errorf("missing slot transition error = %v, want ErrNotFound", err)
	}
}

func TestFirestoreSlotRepository_HasCommittedAt(t *testing.T) {
	repo := newFirestoreRepo(t)
	ctx := context.Background()
	at := time.Date(2031, 4, 2, 14, 0, 0, 0, time.UTC)

	slot := newSlot("prov-3", at)
	if err := repo.Create(ctx, slot); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := claimInTx(repo, slot, "booker-1"); err != nil {
		t.Fatalf("claim transaction error = %v", err)
	}

	tests := []struct {
		name     string
		provider string
		at       time.Time
		want     bool
	}{
		{"same provider same instant", "prov-3", at, true},
		{"sub-millisecond drift", "prov-3", at.Add(300 * time.Microsecond), true},
		{"other provider", "prov-4", at, false},
		{"overlapping but different start", "prov-3", at.Add(30 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.HasCommittedAt(ctx, tt.provider, tt.at)
			if err != nil {
				t.Fatalf("HasCommittedAt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasCommittedAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirestoreSlotRepository_FindOrdersByStart(t *testing.T) {
	repo := newFirestoreRepo(t)
	ctx := context.Background()
	base := time.Date(2031, 5, 1, 9, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour, 0} {
		if err := repo.Create(ctx, newSlot("prov-2", base.Add(offset))); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.Create(ctx, newSlot("prov-9", base.Add(time.Hour))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	end := base.Add(2 * time.Hour)
	slots, err := repo.Find(ctx, model.SlotFilter{
		ProviderUID: "prov-2",
		Status:      model.SlotAvailable,
		Range:       &model.DateRange{Start: &base, End: &end},
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	// both window bounds are inclusive
	if len(slots) != 3 {
		t.Fatalf("Find() returned %d slots, want 3", len(slots))
	}
	for i, want := range []time.Time{base, base.Add(time.Hour), end} {
		if !slots[i].ScheduledAt.Equal(want) {
			t.Errorf("slots[%d] starts at %v, want %v", i, slots[i].ScheduledAt, want)
		}
		if slots[i].ProviderUID != "prov-2" {
			t.Errorf("slots[%d] belongs to %s", i, slots[i].ProviderUID)
		}
	}

	all, err := repo.Find(ctx, model.SlotFilter{ProviderUID: "prov-2"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("unbounded Find() returned %d slots, want 4", len(all))
	}
}

func TestFirestoreSlotRepository_TransactionTrustsCallerRead(t *testing.T) {
	repo := newFirestoreRepo(t)
	ctx := context.Background()

	slot := newSlot("prov-5", time.Date(2031, 6, 1, 8, 0, 0, 0, time.UTC))
	if err := repo.Create(ctx, slot); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// inside a transaction the caller has already read and checked the
	// status, so the from list is not consulted again
	err := repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if _, err := repo.FindByID(txCtx, slot.ID); err != nil {
			return err
		}
		return repo.TransitionStatus(txCtx, slot.ID, []model.SlotStatus{model.SlotBooked}, model.SlotCancelled, "")
	})
	if err != nil {
		t.Fatalf("transaction error = %v", err)
	}

	got, err := repo.FindByID(ctx, slot.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Status != model.SlotCancelled {
		t.Errorf("status = %s, want %s", got.Status, model.SlotCancelled)
	}
}
