package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoOption configures a MongoRegistry.
type MongoOption func(*MongoRegistry)

// WithCollectionName sets the MongoDB collection name. Default: "rollaball_issued_keys".
func WithCollectionName(name string) MongoOption {
	return func(r *MongoRegistry) {
		r.collectionName = name
	}
}

// MongoRegistry implements Registry using MongoDB.
type MongoRegistry struct {
	collection     *mongo.Collection
	collectionName string
}

// NewMongoRegistry creates a MongoDB-backed registry.
// It creates the necessary indexes on initialization.
func NewMongoRegistry(ctx context.Context, db *mongo.Database, opts ...MongoOption) (*MongoRegistry, error) {
	r := &MongoRegistry{
		collectionName: defaultName,
	}
	for _, opt := range opts {
		opt(r)
	}
	if !validIdentifier.MatchString(r.collectionName) {
		return nil, fmt.Errorf("invalid collection name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", r.collectionName)
	}
	if db == nil {
		return nil, errors.New("mongo registry: nil database")
	}
	r.collection = db.Collection(r.collectionName)

	if err := r.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return r, nil
}

func (r *MongoRegistry) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "machine", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "product", Value: 1},
				{Key: "expires_at", Value: 1},
			},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MongoRegistry) Put(ctx context.Context, key IssuedKey) (*IssuedKey, error) {
	if key.IssuedAt.IsZero() {
		key.IssuedAt = time.Now().UTC()
	}
	filter := bson.M{"_id": key.ID}
	update := bson.M{
		"$set": bson.M{
			"product":        key.Product,
			"machine":        key.Machine,
			"customer":       key.Customer,
			"activation_key": key.ActivationKey,
			"expires_at":     key.ExpiresAt,
		},
		"$setOnInsert": bson.M{
			"issued_at": key.IssuedAt,
		},
	}

	// ReturnDocument=After keeps issued_at from the first insert.
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var result IssuedKey
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, fmt.Errorf("put issued key: %w", err)
	}
	return &result, nil
}

func (r *MongoRegistry) Get(ctx context.Context, id string) (*IssuedKey, error) {
	var result IssuedKey
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issued key: %w", err)
	}
	return &result, nil
}

func (r *MongoRegistry) ListByMachine(ctx context.Context, machine string) ([]IssuedKey, error) {
	return r.find(ctx, bson.M{"machine": machine})
}

func (r *MongoRegistry) List(ctx context.Context, product string) ([]IssuedKey, error) {
	return r.find(ctx, bson.M{"product": product})
}

func (r *MongoRegistry) find(ctx context.Context, filter bson.M) ([]IssuedKey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "issued_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list issued keys: %w", err)
	}
	var keys []IssuedKey
	if err := cursor.All(ctx, &keys); err != nil {
		return nil, fmt.Errorf("decode issued keys: %w", err)
	}
	return keys, nil
}

func (r *MongoRegistry) Count(ctx context.Context, product string) (int, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"product": product})
	if err != nil {
		return 0, fmt.Errorf("count issued keys: %w", err)
	}
	return int(count), nil
}

func (r *MongoRegistry) PruneExpired(ctx context.Context, product string, before time.Time) (int, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"product":    product,
		"expires_at": bson.M{"$ne": nil, "$lt": before},
	})
	if err != nil {
		return 0, fmt.Errorf("prune issued keys: %w", err)
	}
	return int(result.DeletedCount), nil
}

func (r *MongoRegistry) Close(_ context.Context) error {
	return nil // caller manages the mongo.Database lifecycle
}
