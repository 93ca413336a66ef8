package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "atelier/internal/slots/errors"
	"atelier/pkg/config"
	mongotx "atelier/pkg/db/mongo"
	"atelier/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoSlotRepository struct {
	cfg       *config.Config
	client    *mongo.Client
	slots     *mongo.Collection
	claims    *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:       cfg,
		client:    cfg.Client.Mongo,
		slots:     db.Collection(SlotsCollection),
		claims:    db.Collection(ClaimsCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout bounds ctx unless it is a session context; wrapping a
// SessionContext would detach the call from its transaction.
func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if mongotx.InTransaction(ctx) {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.BookingSlot) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	slot.ScheduledAt = NormalizeInstant(slot.ScheduledAt)
	slot.CreatedAt = now
	slot.UpdatedAt = now

	result, err := r.slots.InsertOne(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.BookingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.BookingSlot
	err = r.slots.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) Find(ctx context.Context, filter model.SlotFilter) ([]*model.BookingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.slots.Find(ctx, buildSlotFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.BookingSlot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func buildSlotFilter(f model.SlotFilter) bson.M {
	filter := bson.M{"provider_uid": f.ProviderUID}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	if f.Range != nil && (f.Range.Start != nil || f.Range.End != nil) {
		window := bson.M{}
		if f.Range.Start != nil {
			window["$gte"] = NormalizeInstant(*f.Range.Start)
		}
		if f.Range.End != nil {
			window["$lte"] = NormalizeInstant(*f.Range.End)
		}
		filter["scheduled_at"] = window
	}

	return filter
}

func (r *mongoSlotRepository) HasCommittedAt(ctx context.Context, providerUID string, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"provider_uid": providerUID,
		"scheduled_at": NormalizeInstant(at),
		"status":       model.SlotBooked,
	}

	count, err := r.slots.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count committed slots: %w", err)
	}
	return count > 0, nil
}

func (r *mongoSlotRepository) TransitionStatus(ctx context.Context, id string, from []model.SlotStatus, to model.SlotStatus, bookedBy string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": from},
	}
	set := bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	update := bson.M{"$set": set}
	if bookedBy != "" {
		set["booked_by"] = bookedBy
	} else if to != model.SlotBooked {
		update["$unset"] = bson.M{"booked_by": ""}
	}

	result, err := r.slots.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", slotserrors.ErrStatusChanged, id)
	}
	return nil
}

// InsertClaim relies on the unique _id of the claim: a second claim for the
// same provider and instant fails with a duplicate key error.
func (r *mongoSlotRepository) InsertClaim(ctx context.Context, claim *model.SlotClaim) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	claim.ScheduledAt = NormalizeInstant(claim.ScheduledAt)
	claim.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.claims.InsertOne(ctx, claim); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", slotserrors.ErrClaimExists, claim.ID)
		}
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

func (r *mongoSlotRepository) DeleteClaim(ctx context.Context, providerUID string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.claims.DeleteOne(ctx, bson.M{"_id": model.ClaimKey(providerUID, at)})
	if err != nil {
		return fmt.Errorf("failed to delete claim: %w", err)
	}
	return nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, mongotx.TransactionFunc(fn))
}

func (r *mongoSlotRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
