package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// collectionName is the request log collection.
const collectionName = "request_logs"

// MongoSink is a Sink backed by a MongoDB collection. Retention is enforced
// by a TTL index on expiresAt; the application never deletes records itself.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to MongoDB and prepares the request log collection,
// including its indexes.
func NewMongoSink(ctx context.Context, uri, database string) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	s := &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("creating request log indexes: %w", err)
	}

	return s, nil
}

// ensureIndexes creates the query and retention indexes.
func (s *MongoSink) ensureIndexes(ctx context.Context) error {
	zero := int32(0)
	unique := true
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "requestId", Value: 1}},
			Options: &options.IndexOptions{Unique: &unique},
		},
		{Keys: bson.D{{Key: "ip", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "verdict", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "blocked", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			// TTL index: MongoDB expires each record at its expiresAt.
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: &options.IndexOptions{ExpireAfterSeconds: &zero},
		},
	})
	return err
}

// Insert persists one record.
func (s *MongoSink) Insert(ctx context.Context, rec Record) error {
	_, err := s.collection.InsertOne(ctx, rec)
	return err
}

// Recent returns up to limit records, newest first.
func (s *MongoSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Ping verifies the server is reachable. Used by the health endpoint.
func (s *MongoSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
