package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

const userColumns = `id, username, email, password_hash, role, created_at, last_login`

// UserRepository implements repository.UserRepository
type UserRepository struct {
	db *sql.DB
}

var _ repository.UserRepository = (*UserRepository)(nil)

// Create stores a new user
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (username, email, password_hash, role, created_at)
VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, string(user.Role), toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, repository.ErrDuplicateUser
		}
		return model.User{}, repository.NewStorageError("insert user", err)
	}

	rowID, err := res.LastInsertId()
	if err != nil {
		return model.User{}, repository.NewStorageError("insert user", err)
	}

	user.ID = strconv.FormatInt(rowID, 10)
	user.CreatedAt = storedTime(user.CreatedAt)
	return user, nil
}

// FindByID returns a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	rowID, ok := parseID(id)
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, rowID)
	return scanUser(row)
}

// FindByEmail returns a user by email, ignoring case
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	rowID, ok := parseID(id)
	if !ok {
		return repository.ErrUserNotFound
	}

	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, toMillis(at), rowID)
	if err != nil {
		return repository.NewStorageError("update user", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return repository.NewStorageError("update user", err)
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		user      model.User
		rowID     int64
		role      string
		createdAt int64
		lastLogin sql.NullInt64
	)

	err := row.Scan(&rowID, &user.Username, &user.Email, &user.PasswordHash, &role, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, repository.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, repository.NewStorageError("find user", err)
	}

	user.ID = strconv.FormatInt(rowID, 10)
	user.Role = model.Role(role)
	user.CreatedAt = fromMillis(createdAt)
	user.LastLogin = fromNullMillis(lastLogin)

	return user, nil
}
