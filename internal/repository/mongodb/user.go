package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

// userDoc is the stored shape of a user
type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"createdAt"`
	LastLogin    *time.Time         `bson:"lastLogin,omitempty"`
}

func (d userDoc) toModel() model.User {
	return model.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         model.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		LastLogin:    d.LastLogin,
	}
}

// UserRepository implements repository.UserRepository
type UserRepository struct {
	coll *mongo.Collection
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Create stores a new user
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		CreatedAt:    storedTime(user.CreatedAt),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, repository.ErrDuplicateUser
		}
		return model.User{}, repository.NewStorageError("insert user", err)
	}

	return doc.toModel(), nil
}

// FindByID returns a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.User{}, repository.ErrUserNotFound
	}

	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// FindByEmail returns a user by email; emails are stored lower-cased
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrUserNotFound
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: bson.D{{Key: "lastLogin", Value: at.UTC()}}}})
	if err != nil {
		return repository.NewStorageError("update user", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (model.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, repository.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, repository.NewStorageError("find user", err)
	}

	return doc.toModel(), nil
}
