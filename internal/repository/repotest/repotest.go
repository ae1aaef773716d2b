// package repotest holds behaviour checks shared by every repository backend
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

// base is a fixed instant with millisecond precision so every backend round trips it
var base = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// NewTodo builds a todo owned by owner with sensible defaults
func NewTodo(owner, text string, createdAt time.Time) model.Todo {
	return model.Todo{
		Text:      text,
		Priority:  model.PriorityNormal,
		Groups:    []string{},
		UserID:    owner,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ignoreID compares todos without their backend assigned identifiers
var ignoreID = cmpopts.IgnoreFields(model.Todo{}, "ID")

// timeEqual compares instants regardless of location
var timeEqual = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

// TodoRepository runs the shared todo checks against repositories built by newRepo
func TodoRepository(t *testing.T, newRepo func(t *testing.T) repository.TodoRepository) {
	t.Helper()

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		due := base.Add(48 * time.Hour)
		want := NewTodo("u1", "Buy milk", base)
		want.Description = "semi-skimmed"
		want.Priority = model.PriorityHigh
		want.Important = true
		want.DueDate = &due
		want.Groups = []string{"home", "errands"}

		created, err := repo.Create(ctx, want)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		got, err := repo.FindByID(ctx, "u1", created.ID)
		require.NoError(t, err)

		if diff := cmp.Diff(want, got, ignoreID, timeEqual); diff != "" {
			t.Errorf("todo mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("writes return what reads return", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		now := base.Add(123456789 * time.Nanosecond)
		created, err := repo.Create(ctx, NewTodo("u1", "precise", now))
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, "u1", created.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(created, got, timeEqual); diff != "" {
			t.Errorf("created todo differs from stored (-created +stored):\n%s", diff)
		}

		later := now.Add(time.Minute + 555*time.Microsecond)
		created.Done = true
		created.UpdatedAt = later
		created.CompletedAt = &later

		updated, err := repo.Update(ctx, "u1", created.ID, created)
		require.NoError(t, err)

		got, err = repo.FindByID(ctx, "u1", created.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(updated, got, timeEqual); diff != "" {
			t.Errorf("updated todo differs from stored (-updated +stored):\n%s", diff)
		}
	})

	t.Run("owner scoping", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		mine, err := repo.Create(ctx, NewTodo("u1", "mine", base))
		require.NoError(t, err)
		_, err = repo.Create(ctx, NewTodo("u2", "theirs", base))
		require.NoError(t, err)

		todos, err := repo.FindAll(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, "mine", todos[0].Text)

		_, err = repo.FindByID(ctx, "u2", mine.ID)
		assertNotFound(t, err)

		_, err = repo.Update(ctx, "u2", mine.ID, mine)
		assertNotFound(t, err)

		assertNotFound(t, repo.Delete(ctx, "u2", mine.ID))

		_, err = repo.FindByID(ctx, "u1", mine.ID)
		require.NoError(t, err)
	})

	t.Run("update replaces fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, NewTodo("u1", "draft", base))
		require.NoError(t, err)

		completed := base.Add(time.Hour)
		created.Text = "final"
		created.Done = true
		created.CompletedAt = &completed
		created.Groups = []string{"work"}
		created.UpdatedAt = completed

		updated, err := repo.Update(ctx, "u1", created.ID, created)
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)

		got, err := repo.FindByID(ctx, "u1", created.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(created, got, timeEqual); diff != "" {
			t.Errorf("todo mismatch (-want +got):\n%s", diff)
		}

		// clearing optional fields
		got.Done = false
		got.CompletedAt = nil
		got.Groups = []string{}
		_, err = repo.Update(ctx, "u1", got.ID, got)
		require.NoError(t, err)

		again, err := repo.FindByID(ctx, "u1", got.ID)
		require.NoError(t, err)
		assert.Nil(t, again.CompletedAt)
		assert.Empty(t, again.Groups)
	})

	t.Run("missing todo", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.FindByID(ctx, "u1", MissingID)
		assertNotFound(t, err)

		assertNotFound(t, repo.Delete(ctx, "u1", MissingID))
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, NewTodo("u1", "gone soon", base))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "u1", created.ID))

		_, err = repo.FindByID(ctx, "u1", created.ID)
		assertNotFound(t, err)
	})

	t.Run("delete completed", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i, done := range []bool{true, false, true, true, false} {
			todo := NewTodo("u1", "task", base.Add(time.Duration(i)*time.Minute))
			todo.Done = done
			_, err := repo.Create(ctx, todo)
			require.NoError(t, err)
		}
		other := NewTodo("u2", "someone else's", base)
		other.Done = true
		_, err := repo.Create(ctx, other)
		require.NoError(t, err)

		n, err := repo.DeleteCompleted(ctx, "u1")
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		n, err = repo.DeleteCompleted(ctx, "u1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		left, err := repo.FindAll(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, left, 2)

		theirs, err := repo.FindAll(ctx, "u2")
		require.NoError(t, err)
		assert.Len(t, theirs, 1)
	})
}

// UserRepository runs the shared user checks against repositories built by newRepo
func UserRepository(t *testing.T, newRepo func(t *testing.T) repository.UserRepository) {
	t.Helper()

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, model.User{
			Username:     "jane_doe",
			Email:        "jane@example.com",
			PasswordHash: "hash",
			Role:         model.RoleUser,
			CreatedAt:    base,
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		byID, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "jane_doe", byID.Username)
		assert.Equal(t, "hash", byID.PasswordHash)

		byEmail, err := repo.FindByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
	})

	t.Run("duplicates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, model.User{Username: "jane", Email: "jane@example.com", Role: model.RoleUser, CreatedAt: base})
		require.NoError(t, err)

		_, err = repo.Create(ctx, model.User{Username: "jane", Email: "other@example.com", Role: model.RoleUser, CreatedAt: base})
		assert.ErrorIs(t, err, repository.ErrDuplicateUser)

		_, err = repo.Create(ctx, model.User{Username: "other", Email: "jane@example.com", Role: model.RoleUser, CreatedAt: base})
		assert.ErrorIs(t, err, repository.ErrDuplicateUser)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.FindByID(ctx, MissingID)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)

		_, err = repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)

		assert.ErrorIs(t, repo.TouchLastLogin(ctx, MissingID, base), repository.ErrUserNotFound)
	})

	t.Run("last login", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, model.User{Username: "jane", Email: "jane@example.com", Role: model.RoleUser, CreatedAt: base})
		require.NoError(t, err)

		at := base.Add(time.Hour)
		require.NoError(t, repo.TouchLastLogin(ctx, created.ID, at))

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		assert.True(t, at.Equal(*got.LastLogin))
	})
}

// MissingID is a well formed identifier that no backend ever assigns in tests
const MissingID = "000000000000000000000000"

func assertNotFound(t *testing.T, err error) {
	t.Helper()

	var notFound repository.ErrTodoNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrTodoNotFound, got %v", err)
	}
}
