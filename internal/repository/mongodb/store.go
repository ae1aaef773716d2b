// package mongodb implements the repositories on top of MongoDB collections
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	todoCollection = "todos"
	userCollection = "users"
)

// Store owns the MongoDB client shared by the repositories
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, checks connectivity and makes sure indexes exist
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	store := &Store{client: client, db: client.Database(database)}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return store, nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks the server is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Todos returns the todo repository backed by this store
func (s *Store) Todos() *TodoRepository {
	return &TodoRepository{coll: s.db.Collection(todoCollection)}
}

// Users returns the user repository backed by this store
func (s *Store) Users() *UserRepository {
	return &UserRepository{coll: s.db.Collection(userCollection)}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(todoCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "done", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create todo indexes: %w", err)
	}

	if _, err := s.db.Collection(userCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	return nil
}
