// package repository provides data access and error types
package repository

import (
	"errors"
	"fmt"
)

// ErrTodoNotFound is returned when a todo with the specified ID does not
// exist for the requesting owner. Foreign todos are reported the same way.
type ErrTodoNotFound struct {
	ID string
}

// Error implements the error interface
func (e ErrTodoNotFound) Error() string {
	return fmt.Sprintf("todo with id %s not found", e.ID)
}

// ErrUserNotFound is returned when a user lookup has no match
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUser is returned when the username or email is already taken
var ErrDuplicateUser = errors.New("user already exists")

// StorageError wraps a failure of the underlying store
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying store error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err unless it is nil or already a domain error
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}

	var notFound ErrTodoNotFound
	if errors.As(err, &notFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrDuplicateUser) {
		return err
	}

	return &StorageError{Op: op, Err: err}
}
