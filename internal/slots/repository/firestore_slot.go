package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	slotserrors "atelier/internal/slots/errors"
	"atelier/pkg/config"
	fstx "atelier/pkg/db/firestore"
	"atelier/pkg/model"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	firestoreSlotsCollection  = "bookingSlots"
	firestoreClaimsCollection = "slotClaims"
)

type firestoreSlotRepository struct {
	cfg       *config.Config
	fs        *firestore.Client
	txManager fstx.TransactionManager
}

func NewFirestoreSlotRepository(cfg *config.Config) SlotRepository {
	return &firestoreSlotRepository{
		cfg:       cfg,
		fs:        cfg.Client.Firestore,
		txManager: fstx.NewTransactionManager(cfg.Client.Firestore),
	}
}

func (r *firestoreSlotRepository) slots() *firestore.CollectionRef {
	return r.fs.Collection(firestoreSlotsCollection)
}

func (r *firestoreSlotRepository) claims() *firestore.CollectionRef {
	return r.fs.Collection(firestoreClaimsCollection)
}

func (r *firestoreSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := fstx.FromContext(ctx); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *firestoreSlotRepository) Create(ctx context.Context, slot *model.BookingSlot) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	slot.ScheduledAt = NormalizeInstant(slot.ScheduledAt)
	slot.CreatedAt = now
	slot.UpdatedAt = now

	ref := r.slots().NewDoc()
	if tx, ok := fstx.FromContext(ctx); ok {
		if err := tx.Create(ref, slot); err != nil {
			return fmt.Errorf("failed to create slot: %w", err)
		}
	} else if _, err := ref.Create(ctx, slot); err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}

	slot.ID = ref.ID
	return nil
}

func (r *firestoreSlotRepository) FindByID(ctx context.Context, id string) (*model.BookingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	ref := r.slots().Doc(id)
	if ref == nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var (
		doc *firestore.DocumentSnapshot
		err error
	)
	if tx, ok := fstx.FromContext(ctx); ok {
		doc, err = tx.Get(ref)
	} else {
		doc, err = ref.Get(ctx)
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return decodeSlot(doc)
}

func (r *firestoreSlotRepository) Find(ctx context.Context, filter model.SlotFilter) ([]*model.BookingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	q := r.slots().Where("providerUid", "==", filter.ProviderUID)
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status))
	}
	if filter.Range != nil {
		if filter.Range.Start != nil {
			q = q.Where("scheduledAt", ">=", NormalizeInstant(*filter.Range.Start))
		}
		if filter.Range.End != nil {
			q = q.Where("scheduledAt", "<=", NormalizeInstant(*filter.Range.End))
		}
	}
	q = q.OrderBy("scheduledAt", firestore.Asc)

	return r.collect(ctx, q)
}

func (r *firestoreSlotRepository) collect(ctx context.Context, q firestore.Query) ([]*model.BookingSlot, error) {
	var iter *firestore.DocumentIterator
	if tx, ok := fstx.FromContext(ctx); ok {
		iter = tx.Documents(q)
	} else {
		iter = q.Documents(ctx)
	}
	defer iter.Stop()

	slots := []*model.BookingSlot{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate slots: %w", err)
		}
		slot, err := decodeSlot(doc)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (r *firestoreSlotRepository) HasCommittedAt(ctx context.Context, providerUID string, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	q := r.slots().
		Where("providerUid", "==", providerUID).
		Where("scheduledAt", "==", NormalizeInstant(at)).
		Where("status", "==", string(model.SlotBooked)).
		Limit(1)

	slots, err := r.collect(ctx, q)
	if err != nil {
		return false, fmt.Errorf("failed to query committed slots: %w", err)
	}
	return len(slots) > 0, nil
}

func (r *firestoreSlotRepository) TransitionStatus(ctx context.Context, id string, from []model.SlotStatus, to model.SlotStatus, bookedBy string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	updates := []firestore.Update{
		{Path: "status", Value: string(to)},
		{Path: "updatedAt", Value: time.Now().UTC().Truncate(time.Millisecond)},
	}
	if bookedBy != "" {
		updates = append(updates, firestore.Update{Path: "bookedBy", Value: bookedBy})
	} else if to != model.SlotBooked {
		updates = append(updates, firestore.Update{Path: "bookedBy", Value: firestore.Delete})
	}

	ref := r.slots().Doc(id)
	if ref == nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	if tx, ok := fstx.FromContext(ctx); ok {
		// the caller read this document earlier in the same transaction, so a
		// concurrent change aborts and retries the whole transaction
		if err := tx.Update(ref, updates); err != nil {
			return fmt.Errorf("failed to update slot status: %w", err)
		}
		return nil
	}

	return r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return slotserrors.ErrNotFound
			}
			return fmt.Errorf("failed to read slot: %w", err)
		}
		current, err := doc.DataAt("status")
		if err != nil {
			return fmt.Errorf("failed to read slot status: %w", err)
		}
		if s, _ := current.(string); !slices.Contains(from, model.SlotStatus(s)) {
			return fmt.Errorf("%w: %s", slotserrors.ErrStatusChanged, id)
		}
		return tx.Update(ref, updates)
	})
}

func (r *firestoreSlotRepository) InsertClaim(ctx context.Context, claim *model.SlotClaim) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	claim.ScheduledAt = NormalizeInstant(claim.ScheduledAt)
	claim.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	ref := r.claims().Doc(claim.ID)
	var err error
	if tx, ok := fstx.FromContext(ctx); ok {
		// inside a transaction the existence check happens at commit;
		// ExecuteTransaction translates it
		err = tx.Create(ref, claim)
	} else {
		_, err = ref.Create(ctx, claim)
	}
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%w: %s", slotserrors.ErrClaimExists, claim.ID)
		}
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

func (r *firestoreSlotRepository) DeleteClaim(ctx context.Context, providerUID string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ref := r.claims().Doc(model.ClaimKey(providerUID, at))
	var err error
	if tx, ok := fstx.FromContext(ctx); ok {
		err = tx.Delete(ref)
	} else {
		_, err = ref.Delete(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to delete claim: %w", err)
	}
	return nil
}

func (r *firestoreSlotRepository) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	err := r.txManager.ExecuteTransaction(ctx, fstx.TransactionFunc(fn))
	if err != nil && status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: %v", slotserrors.ErrClaimExists, err)
	}
	return err
}

func (r *firestoreSlotRepository) Ping(ctx context.Context) error {
	iter := r.fs.Collections(ctx)
	_, err := iter.Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func decodeSlot(doc *firestore.DocumentSnapshot) (*model.BookingSlot, error) {
	var slot model.BookingSlot
	if err := doc.DataTo(&slot); err != nil {
		return nil, fmt.Errorf("failed to decode slot %s: %w", doc.Ref.ID, err)
	}
	slot.ID = doc.Ref.ID
	return &slot, nil
}
