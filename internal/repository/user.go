package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Irene-03/todo-list-app/internal/model"
)

// UserRepository defines the interface for user account data access
type UserRepository interface {
	// Create stores a new user; ErrDuplicateUser when the username or email is taken
	Create(ctx context.Context, user model.User) (model.User, error)

	// FindByID returns a user by ID or ErrUserNotFound
	FindByID(ctx context.Context, id string) (model.User, error)

	// FindByEmail returns a user by email or ErrUserNotFound
	FindByEmail(ctx context.Context, email string) (model.User, error)

	// TouchLastLogin records a successful login
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// InMemoryUserRepository implements UserRepository with an in-memory map
type InMemoryUserRepository struct {
	users map[string]model.User
	mutex sync.RWMutex
}

// NewInMemoryUserRepository creates a new empty in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]model.User),
	}
}

// Create stores a new user
func (r *InMemoryUserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return model.User{}, ErrDuplicateUser
		}
	}

	user.ID = uuid.NewString()
	r.users[user.ID] = user

	return user, nil
}

// FindByID returns a user by ID
func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return model.User{}, ErrUserNotFound
	}

	return user, nil
}

// FindByEmail returns a user by email, ignoring case
func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}

	return model.User{}, ErrUserNotFound
}

// TouchLastLogin records a successful login
func (r *InMemoryUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, exists := r.users[id]
	if !exists {
		return ErrUserNotFound
	}

	user.LastLogin = &at
	r.users[id] = user

	return nil
}
