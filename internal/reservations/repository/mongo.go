package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "examslots/internal/reservations/errors"
	"examslots/pkg/config"
	"examslots/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoReservation adds the BSON date the TTL index reclaims on.
type mongoReservation struct {
	model.SlotReservation `bson:",inline"`
	ExpireAt              time.Time `bson:"expire_at"`
}

type mongoReservationStore struct {
	client       *mongo.Client
	collection   *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoReservationStore(cfg *config.Config) ReservationStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationStore{
		client:       cfg.Client.Mongo,
		collection:   db.Collection(CollectionName),
		readTimeout:  cfg.StoreReadTimeout,
		writeTimeout: cfg.StoreWriteTimeout,
	}
}

// Create upserts over an expired record. When a live record exists the
// filter misses and the upsert collides on _id.
func (r *mongoReservationStore) Create(ctx context.Context, res *model.SlotReservation, now time.Time) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	doc := mongoReservation{
		SlotReservation: *res,
		ExpireAt:        res.ExpiresAtTime(),
	}
	filter := bson.M{
		"_id":        res.SlotKey,
		"expires_at": bson.M{"$lte": now.Unix()},
	}

	_, err := r.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reservationserrors.ErrConflict
		}
		return fmt.Errorf("failed to create slot reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationStore) Get(ctx context.Context, slotKey string) (*model.SlotReservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	var doc mongoReservation
	err := r.collection.FindOne(ctx, bson.M{"_id": slotKey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot reservation: %w", err)
	}
	return &doc.SlotReservation, nil
}

func (r *mongoReservationStore) DeleteIfOwner(ctx context.Context, slotKey, examinationID string) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": slotKey, "examination_id": examinationID})
	if err != nil {
		return fmt.Errorf("failed to delete slot reservation: %w", err)
	}
	if result.DeletedCount == 1 {
		return nil
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": slotKey}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check slot reservation: %w", err)
	}
	if count == 0 {
		return reservationserrors.ErrNotFound
	}
	return reservationserrors.ErrConditionFailed
}

func (r *mongoReservationStore) FindLiveByExaminer(ctx context.Context, examinerProfileID string, now time.Time) ([]*model.SlotReservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	filter := bson.M{
		"examiner_profile_id": examinerProfileID,
		"expires_at":          bson.M{"$gt": now.Unix()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "booking_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find examiner reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoReservation
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode examiner reservations: %w", err)
	}

	reservations := make([]*model.SlotReservation, 0, len(docs))
	for i := range docs {
		reservations = append(reservations, &docs[i].SlotReservation)
	}
	return reservations, nil
}

func (r *mongoReservationStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()
	return r.client.Ping(ctx, nil)
}
