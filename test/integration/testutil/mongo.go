//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"examslots/internal/reservations/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017"
	DefaultDatabaseName = "examslots"
	ConnectionTimeout   = 10 * time.Second
)

// MongoHelper gives tests direct access to the reservation collection the
// service under test writes to.
type MongoHelper struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

func NewMongoHelper(t *testing.T, mongoURI, dbName string) *MongoHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	return &MongoHelper{
		Client:     client,
		Collection: client.Database(dbName).Collection(repository.CollectionName),
	}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

func (m *MongoHelper) CleanReservations(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.Collection.DeleteMany(ctx, bson.M{}); err != nil {
		t.Fatalf("failed to clean reservations: %v", err)
	}
}

func (m *MongoHelper) CountReservations(t *testing.T) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count reservations: %v", err)
	}
	return count
}

// ExpireNow moves a reservation's expiry into the past without deleting it,
// as if its TTL ran out before the TTL monitor reclaimed it.
func (m *MongoHelper) ExpireNow(t *testing.T, slotKey string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	past := time.Now().Add(-time.Second)
	res, err := m.Collection.UpdateOne(ctx, bson.M{"_id": slotKey}, bson.M{
		"$set": bson.M{"expires_at": past.Unix(), "expire_at": past.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("failed to expire %s: %v", slotKey, err)
	}
	if res.MatchedCount != 1 {
		t.Fatalf("no reservation stored under %s", slotKey)
	}
}
