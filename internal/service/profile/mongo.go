package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/halwest-tech/kurdish-chat/backend/internal/model/profile"
)

const usersCollection = "users"

// MongoStore writes profiles into the "users" collection, one document per user id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo dials uri, verifies the connection and returns a store bound to database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(usersCollection),
	}, nil
}

// Write upserts the profile document under _id = userID.
func (s *MongoStore) Write(ctx context.Context, userID string, p profile.Profile) error {
	if userID == "" {
		return ErrUserIDMissing
	}
	p.UserID = userID

	filter := bson.M{"_id": userID}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, filter, p, opts); err != nil {
		return fmt.Errorf("write profile %s: %w", userID, err)
	}
	return nil
}

// Get loads the profile document for userID.
func (s *MongoStore) Get(ctx context.Context, userID string) (profile.Profile, error) {
	var p profile.Profile
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return p, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
