// Package db stores the route activation audit trail in MongoDB.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

const (
	ActivationsCollection = "activations"
	DefaultHistoryLimit   = 50
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI is empty")
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoCollection wraps a MongoDB collection for activation records.
type MongoCollection struct {
	Collection *mongo.Collection
}

// NewActivationCollection returns the activations collection of database.
func NewActivationCollection(client *mongo.Client, database string) *MongoCollection {
	return &MongoCollection{Collection: client.Database(database).Collection(ActivationsCollection)}
}

// EnsureIndexes creates the descending activated_at index used by history queries.
func (c *MongoCollection) EnsureIndexes(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "activated_at", Value: -1}},
	})
	return err
}

// InsertActivation inserts an activation record into the collection.
func (c *MongoCollection) InsertActivation(ctx context.Context, activation models.Activation) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.InsertOne(ctx, activation)
	return err
}

// mongoActivationCursor wraps a MongoDB cursor for activation queries.
type mongoActivationCursor struct {
	cursor *mongo.Cursor
}

func (m *mongoActivationCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

func (m *mongoActivationCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// FindActivations returns up to limit records, newest first.
func (c *MongoCollection) FindActivations(ctx context.Context, limit int64) ([]models.Activation, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "activated_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := c.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return readActivations(ctx, &mongoActivationCursor{cursor: cursor})
}

func readActivations(ctx context.Context, cursor ActivationCursor) ([]models.Activation, error) {
	defer cursor.Close(ctx)

	activations := []models.Activation{}
	if err := cursor.All(ctx, &activations); err != nil {
		return nil, fmt.Errorf("decode activations: %w", err)
	}
	return activations, nil
}

