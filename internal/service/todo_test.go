package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

// clock hands out increasing instants, one minute apart
type clock struct {
	next time.Time
}

func (c *clock) now() time.Time {
	t := c.next
	c.next = c.next.Add(time.Minute)
	return t
}

func newTestService() (*TodoService, *clock) {
	c := &clock{next: t0}
	svc := NewTodoService(repository.NewInMemoryTodoRepository())
	svc.now = c.now
	return svc, c
}

func mustCreate(t *testing.T, svc *TodoService, owner string, req model.CreateTodoRequest) model.Todo {
	t.Helper()

	todo, err := svc.CreateTodo(context.Background(), owner, req)
	require.NoError(t, err)
	return todo
}

func requireValidationError(t *testing.T, err error, field, rule string) {
	t.Helper()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Errors)
	assert.Equal(t, field, verr.Errors[0].Field)
	assert.Equal(t, rule, verr.Errors[0].Rule)
	assert.NotEmpty(t, verr.Errors[0].Message)
}

func TestCreateTodo(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for name, tc := range map[string]struct {
		req       model.CreateTodoRequest
		want      model.Todo
		wantField string
		wantRule  string
	}{
		"defaults": {
			req: model.CreateTodoRequest{Text: "  Buy milk  "},
			want: model.Todo{
				Text:      "Buy milk",
				Priority:  model.PriorityNormal,
				Groups:    []string{},
				UserID:    "u1",
				CreatedAt: t0,
				UpdatedAt: t0,
			},
		},
		"all fields": {
			req: model.CreateTodoRequest{
				Text:        "Buy milk",
				Description: " semi-skimmed ",
				Priority:    model.PriorityHigh,
				DueDate:     model.NewNullableDate(due),
				Groups:      model.GroupList{"home, errands", " home "},
				Important:   true,
			},
			want: model.Todo{
				Text:        "Buy milk",
				Description: "semi-skimmed",
				Important:   true,
				Priority:    model.PriorityHigh,
				DueDate:     &due,
				Groups:      []string{"home", "errands"},
				UserID:      "u1",
				CreatedAt:   t0,
				UpdatedAt:   t0,
			},
		},
		"text of 500 characters": {
			req: model.CreateTodoRequest{Text: strings.Repeat("a", 500)},
			want: model.Todo{
				Text:      strings.Repeat("a", 500),
				Priority:  model.PriorityNormal,
				Groups:    []string{},
				UserID:    "u1",
				CreatedAt: t0,
				UpdatedAt: t0,
			},
		},
		"multibyte text counts characters": {
			req: model.CreateTodoRequest{Text: strings.Repeat("é", 500)},
			want: model.Todo{
				Text:      strings.Repeat("é", 500),
				Priority:  model.PriorityNormal,
				Groups:    []string{},
				UserID:    "u1",
				CreatedAt: t0,
				UpdatedAt: t0,
			},
		},
		"empty text": {
			req:       model.CreateTodoRequest{Text: ""},
			wantField: "text",
			wantRule:  "required",
		},
		"whitespace text": {
			req:       model.CreateTodoRequest{Text: " \t "},
			wantField: "text",
			wantRule:  "required",
		},
		"text of 501 characters": {
			req:       model.CreateTodoRequest{Text: strings.Repeat("a", 501)},
			wantField: "text",
			wantRule:  "max",
		},
		"description too long": {
			req:       model.CreateTodoRequest{Text: "ok", Description: strings.Repeat("d", 2001)},
			wantField: "description",
			wantRule:  "max",
		},
		"unknown priority": {
			req:       model.CreateTodoRequest{Text: "ok", Priority: "urgent"},
			wantField: "priority",
			wantRule:  "oneof",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newTestService()

			got, err := svc.CreateTodo(context.Background(), "u1", tc.req)
			if tc.wantField != "" {
				requireValidationError(t, err, tc.wantField, tc.wantRule)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.False(t, got.Done)
			assert.Nil(t, got.CompletedAt)

			if diff := cmp.Diff(tc.want, got, cmpopts.IgnoreFields(model.Todo{}, "ID")); diff != "" {
				t.Errorf("todo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateTodoRequiresOwner(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()

	_, err := svc.CreateTodo(context.Background(), "", model.CreateTodoRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestUpdateTodo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for name, tc := range map[string]struct {
		req    model.UpdateTodoRequest
		mutate func(want *model.Todo)
	}{
		"priority only": {
			req: model.UpdateTodoRequest{Priority: ptr(model.PriorityHigh)},
			mutate: func(want *model.Todo) {
				want.Priority = model.PriorityHigh
			},
		},
		"text is trimmed": {
			req: model.UpdateTodoRequest{Text: ptr("  Buy oat milk ")},
			mutate: func(want *model.Todo) {
				want.Text = "Buy oat milk"
			},
		},
		"groups are replaced and normalized": {
			req: model.UpdateTodoRequest{Groups: model.GroupList{"work,  ", "later"}},
			mutate: func(want *model.Todo) {
				want.Groups = []string{"work", "later"}
			},
		},
		"groups can be emptied": {
			req: model.UpdateTodoRequest{Groups: model.GroupList{}},
			mutate: func(want *model.Todo) {
				want.Groups = []string{}
			},
		},
		"due date is cleared by null": {
			req: model.UpdateTodoRequest{DueDate: model.NullableDate{Set: true}},
			mutate: func(want *model.Todo) {
				want.DueDate = nil
			},
		},
		"done true stamps completedAt": {
			req: model.UpdateTodoRequest{Done: ptr(true)},
			mutate: func(want *model.Todo) {
				want.Done = true
				want.CompletedAt = ptr(t0.Add(time.Minute))
			},
		},
		"done false on open todo keeps completedAt unset": {
			req: model.UpdateTodoRequest{Done: ptr(false)},
			mutate: func(want *model.Todo) {
			},
		},
		"action is ignored": {
			req: model.UpdateTodoRequest{Action: model.ActionToggle, Important: ptr(true)},
			mutate: func(want *model.Todo) {
				want.Important = true
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newTestService()
			created := mustCreate(t, svc, "u1", model.CreateTodoRequest{
				Text:        "Buy milk",
				Description: "semi-skimmed",
				DueDate:     model.NewNullableDate(due),
				Groups:      model.GroupList{"home"},
			})

			got, err := svc.UpdateTodo(ctx, "u1", created.ID, tc.req)
			require.NoError(t, err)

			want := created
			want.UpdatedAt = t0.Add(time.Minute)
			tc.mutate(&want)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("todo mismatch (-want +got):\n%s", diff)
			}

			stored, err := svc.GetTodo(ctx, "u1", created.ID)
			require.NoError(t, err)
			if diff := cmp.Diff(want, stored); diff != "" {
				t.Errorf("stored todo mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateTodoDoneIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService()
	created := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "x"})

	first, err := svc.UpdateTodo(ctx, "u1", created.ID, model.UpdateTodoRequest{Done: ptr(true)})
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	second, err := svc.UpdateTodo(ctx, "u1", created.ID, model.UpdateTodoRequest{Done: ptr(true)})
	require.NoError(t, err)

	assert.Equal(t, *first.CompletedAt, *second.CompletedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	reopened, err := svc.UpdateTodo(ctx, "u1", created.ID, model.UpdateTodoRequest{Done: ptr(false)})
	require.NoError(t, err)
	assert.False(t, reopened.Done)
	assert.Nil(t, reopened.CompletedAt)
}

func TestUpdateTodoErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for name, tc := range map[string]struct {
		owner     string
		id        func(created model.Todo) string
		req       model.UpdateTodoRequest
		wantField string
		wantRule  string
		wantFound bool
	}{
		"empty text": {
			owner:     "u1",
			req:       model.UpdateTodoRequest{Text: ptr("   ")},
			wantField: "text",
			wantRule:  "min",
		},
		"text too long": {
			owner:     "u1",
			req:       model.UpdateTodoRequest{Text: ptr(strings.Repeat("a", 501))},
			wantField: "text",
			wantRule:  "max",
		},
		"bad priority": {
			owner:     "u1",
			req:       model.UpdateTodoRequest{Priority: ptr(model.Priority("asap"))},
			wantField: "priority",
			wantRule:  "oneof",
		},
		"missing todo": {
			owner: "u1",
			id:    func(model.Todo) string { return "nope" },
			req:   model.UpdateTodoRequest{Important: ptr(true)},
		},
		"another owner's todo": {
			owner: "u2",
			req:   model.UpdateTodoRequest{Important: ptr(true)},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newTestService()
			created := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "Buy milk"})

			id := created.ID
			if tc.id != nil {
				id = tc.id(created)
			}

			_, err := svc.UpdateTodo(ctx, tc.owner, id, tc.req)
			if tc.wantField != "" {
				requireValidationError(t, err, tc.wantField, tc.wantRule)
			} else {
				var notFound repository.ErrTodoNotFound
				require.ErrorAs(t, err, &notFound)
			}

			// no side effects
			stored, err := svc.GetTodo(ctx, "u1", created.ID)
			require.NoError(t, err)
			if diff := cmp.Diff(created, stored); diff != "" {
				t.Errorf("stored todo changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToggleTodo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService()
	created := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "Buy milk", Priority: model.PriorityHigh})

	assert.False(t, created.Done)
	assert.Nil(t, created.CompletedAt)
	assert.Equal(t, model.PriorityHigh, created.Priority)

	toggled, err := svc.ToggleTodo(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Done)
	require.NotNil(t, toggled.CompletedAt)
	assert.Equal(t, t0.Add(time.Minute), *toggled.CompletedAt)

	stats, err := svc.GetStats(ctx, "u1", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 100.0, stats.CompletionRate)

	back, err := svc.ToggleTodo(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Done, back.Done)
	assert.Equal(t, created.CompletedAt, back.CompletedAt)

	_, err = svc.ToggleTodo(ctx, "u2", created.ID)
	var notFound repository.ErrTodoNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestListTodos(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService()

	first := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "first"})
	second := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "second", Important: true})
	third := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "third"})
	mustCreate(t, svc, "u2", model.CreateTodoRequest{Text: "not mine"})

	all, err := svc.ListTodos(ctx, "u1", model.TodoFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, ids(all))

	important, err := svc.ListTodos(ctx, "u1", model.TodoFilter{Important: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids(important))

	none, err := svc.ListTodos(ctx, "u1", model.TodoFilter{Search: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeleteTodo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService()
	created := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "x"})

	var notFound repository.ErrTodoNotFound
	assert.ErrorAs(t, svc.DeleteTodo(ctx, "u2", created.ID), &notFound)
	assert.ErrorAs(t, svc.DeleteTodo(ctx, "u1", ""), &notFound)

	require.NoError(t, svc.DeleteTodo(ctx, "u1", created.ID))
	assert.ErrorAs(t, svc.DeleteTodo(ctx, "u1", created.ID), &notFound)
}

func TestClearCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService()

	for i, done := range []bool{true, true, false, true, false} {
		todo := mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "task"})
		if done {
			_, err := svc.ToggleTodo(ctx, "u1", todo.ID)
			require.NoError(t, err, "toggle %d", i)
		}
	}

	n, err := svc.ClearCompleted(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = svc.ClearCompleted(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	left, err := svc.ListTodos(ctx, "u1", model.TodoFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestGetStatsEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()

	stats, err := svc.GetStats(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.TodoStats{}, stats)
}

func TestListGroups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService()

	mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "a", Groups: model.GroupList{"work,home"}})
	mustCreate(t, svc, "u1", model.CreateTodoRequest{Text: "b", Groups: model.GroupList{"home", "gym"}})
	mustCreate(t, svc, "u2", model.CreateTodoRequest{Text: "c", Groups: model.GroupList{"secret"}})

	groups, err := svc.ListGroups(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "home", "gym"}, groups)
}

// mockTodoRepository is a mock implementation of repository.TodoRepository
type mockTodoRepository struct {
	mock.Mock
}

func (m *mockTodoRepository) FindAll(ctx context.Context, owner string) ([]model.Todo, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]model.Todo), args.Error(1)
}

func (m *mockTodoRepository) FindByID(ctx context.Context, owner, id string) (model.Todo, error) {
	args := m.Called(ctx, owner, id)
	return args.Get(0).(model.Todo), args.Error(1)
}

func (m *mockTodoRepository) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	args := m.Called(ctx, todo)
	return args.Get(0).(model.Todo), args.Error(1)
}

func (m *mockTodoRepository) Update(ctx context.Context, owner, id string, todo model.Todo) (model.Todo, error) {
	args := m.Called(ctx, owner, id, todo)
	return args.Get(0).(model.Todo), args.Error(1)
}

func (m *mockTodoRepository) Delete(ctx context.Context, owner, id string) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}

func (m *mockTodoRepository) DeleteCompleted(ctx context.Context, owner string) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

func TestStorageErrorsPropagate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storageErr := &repository.StorageError{Op: "find", Err: errors.New("connection reset")}

	repo := new(mockTodoRepository)
	repo.On("FindAll", mock.Anything, "u1").Return([]model.Todo(nil), storageErr)
	repo.On("DeleteCompleted", mock.Anything, "u1").Return(int64(0), storageErr)

	svc := NewTodoService(repo)

	_, err := svc.ListTodos(ctx, "u1", model.TodoFilter{})
	assert.ErrorIs(t, err, storageErr)

	_, err = svc.GetStats(ctx, "u1", nil)
	assert.ErrorIs(t, err, storageErr)

	_, err = svc.ClearCompleted(ctx, "u1")
	assert.ErrorIs(t, err, storageErr)

	repo.AssertExpectations(t)
}
