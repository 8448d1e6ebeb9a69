package statestore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultMongoCollection = "unlock_state"

// validCollectionName matches safe MongoDB collection names.
var validCollectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MongoOption configures a MongoStore.
type MongoOption func(*MongoStore)

// WithCollectionName sets the MongoDB collection name. Default: "unlock_state".
func WithCollectionName(name string) MongoOption {
	return func(s *MongoStore) {
		s.collectionName = name
	}
}

// MongoStore implements StateStore using MongoDB.
type MongoStore struct {
	collection     *mongo.Collection
	collectionName string
}

// stateRecord is the stored document shape.
type stateRecord struct {
	InstallID string    `bson:"install_id"`
	State     string    `bson:"state"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore creates a new MongoDB-backed state store.
// It creates the necessary index on initialization.
func NewMongoStore(ctx context.Context, db *mongo.Database, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{
		collectionName: defaultMongoCollection,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !validCollectionName.MatchString(s.collectionName) {
		return nil, fmt.Errorf("invalid collection name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", s.collectionName)
	}
	s.collection = db.Collection(s.collectionName)

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "install_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.collection.Indexes().CreateOne(ctx, index); err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return s, nil
}

func (s *MongoStore) Save(ctx context.Context, installID, state string) error {
	filter := bson.M{"install_id": installID}
	update := bson.M{
		"$set": bson.M{
			"state":      state,
			"updated_at": time.Now(),
		},
	}
	opts := options.UpdateOne().SetUpsert(true)
	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, installID string) (string, error) {
	var rec stateRecord
	err := s.collection.FindOne(ctx, bson.M{"install_id": installID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil // first run
	}
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}
	return rec.State, nil
}

func (s *MongoStore) Delete(ctx context.Context, installID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"install_id": installID}); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(_ context.Context) error {
	return nil // user manages the mongo.Database lifecycle
}
