// package sqlite implements the repositories on top of an embedded SQLite
// database. Group labels live in a per-user directories table linked to
// todos through todo_directories.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Irene-03/todo-list-app/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Store owns the SQLite connection pool shared by the repositories
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != MemoryPath {
		dsn = filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// every connection to :memory: is a separate database
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Todos returns the todo repository backed by this store
func (s *Store) Todos() *TodoRepository {
	return &TodoRepository{db: s.db}
}

// Users returns the user repository backed by this store
func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// storedTime is value at the precision the database keeps
func storedTime(value time.Time) time.Time {
	return fromMillis(toMillis(value))
}

func storedTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	t := storedTime(*value)
	return &t
}

// withStoredTimes returns todo as it reads back from the database
func withStoredTimes(todo model.Todo) model.Todo {
	todo.DueDate = storedTimePtr(todo.DueDate)
	todo.CreatedAt = storedTime(todo.CreatedAt)
	todo.UpdatedAt = storedTime(todo.UpdatedAt)
	todo.CompletedAt = storedTimePtr(todo.CompletedAt)
	return todo
}

func nullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// without extended result codes only the message tells UNIQUE apart
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
