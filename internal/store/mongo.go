package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rainwatch/rain-monitor/internal/rain"
)

const readingsCollection = "readings"

// MongoStore persists readings in a MongoDB collection, keyed by reading ID.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to the given MongoDB URI. The driver dials lazily,
// so an unreachable database is not a construction error; operations fail
// until it becomes reachable.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(readingsCollection),
	}, nil
}

// InsertReading stores a new reading document.
func (s *MongoStore) InsertReading(ctx context.Context, reading rain.Reading) error {
	if _, err := s.collection.InsertOne(ctx, reading); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// MarkAlertSent sets alert_sent on the reading with the given ID.
func (s *MongoStore) MarkAlertSent(ctx context.Context, id string) error {
	result, err := s.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"alert_sent": true},
	})
	if err != nil {
		return fmt.Errorf("update reading %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestReadings returns up to limit readings, newest first.
func (s *MongoStore) LatestReadings(ctx context.Context, limit int) ([]rain.Reading, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}

	readings := []rain.Reading{}
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	return readings, nil
}

// EpisodesSince returns episode-start readings at or after since, newest
// first.
func (s *MongoStore) EpisodesSince(ctx context.Context, since time.Time) ([]rain.Reading, error) {
	filter := bson.M{
		"rain_detected": true,
		"timestamp":     bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find episodes: %w", err)
	}

	readings := []rain.Reading{}
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("decode episodes: %w", err)
	}
	return readings, nil
}

// CountReadings returns the number of stored readings.
func (s *MongoStore) CountReadings(ctx context.Context) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return count, nil
}

// Ping verifies the database connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
