// package repository provides data access interfaces and implementations
package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Irene-03/todo-list-app/internal/model"
)

// TodoRepository defines the interface for todo data access. Every method is
// scoped to an owner; todos of other owners are invisible.
type TodoRepository interface {
	// FindAll returns all todos of the owner
	FindAll(ctx context.Context, owner string) ([]model.Todo, error)

	// FindByID returns a specific todo by ID
	FindByID(ctx context.Context, owner, id string) (model.Todo, error)

	// Create adds a new todo and returns it with its assigned ID
	Create(ctx context.Context, todo model.Todo) (model.Todo, error)

	// Update replaces the stored fields of an existing todo
	Update(ctx context.Context, owner, id string, todo model.Todo) (model.Todo, error)

	// Delete removes a todo
	Delete(ctx context.Context, owner, id string) error

	// DeleteCompleted removes every done todo of the owner and returns how many went away
	DeleteCompleted(ctx context.Context, owner string) (int64, error)
}

// InMemoryTodoRepository implements TodoRepository on top of an insertion
// ordered slice guarded by a mutex
type InMemoryTodoRepository struct {
	todos []model.Todo
	mutex sync.RWMutex
}

// NewInMemoryTodoRepository creates a new empty in-memory todo repository
func NewInMemoryTodoRepository() *InMemoryTodoRepository {
	return &InMemoryTodoRepository{}
}

// FindAll returns all todos of the owner
func (r *InMemoryTodoRepository) FindAll(ctx context.Context, owner string) ([]model.Todo, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	todos := make([]model.Todo, 0, len(r.todos))
	for _, todo := range r.todos {
		if todo.UserID == owner {
			todos = append(todos, cloneTodo(todo))
		}
	}

	return todos, nil
}

// FindByID returns a specific todo by ID
func (r *InMemoryTodoRepository) FindByID(ctx context.Context, owner, id string) (model.Todo, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	idx := r.index(owner, id)
	if idx < 0 {
		return model.Todo{}, ErrTodoNotFound{ID: id}
	}

	return cloneTodo(r.todos[idx]), nil
}

// Create adds a new todo
func (r *InMemoryTodoRepository) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	todo.ID = uuid.NewString()
	r.todos = append(r.todos, cloneTodo(todo))

	return todo, nil
}

// Update modifies an existing todo
func (r *InMemoryTodoRepository) Update(ctx context.Context, owner, id string, todo model.Todo) (model.Todo, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idx := r.index(owner, id)
	if idx < 0 {
		return model.Todo{}, ErrTodoNotFound{ID: id}
	}

	// ensure identity and ownership don't change
	todo.ID = id
	todo.UserID = owner
	r.todos[idx] = cloneTodo(todo)

	return todo, nil
}

// Delete removes a todo
func (r *InMemoryTodoRepository) Delete(ctx context.Context, owner, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idx := r.index(owner, id)
	if idx < 0 {
		return ErrTodoNotFound{ID: id}
	}

	r.todos = slices.Delete(r.todos, idx, idx+1)
	return nil
}

// DeleteCompleted removes every done todo of the owner
func (r *InMemoryTodoRepository) DeleteCompleted(ctx context.Context, owner string) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	before := len(r.todos)
	r.todos = slices.DeleteFunc(r.todos, func(t model.Todo) bool {
		return t.UserID == owner && t.Done
	})

	return int64(before - len(r.todos)), nil
}

func (r *InMemoryTodoRepository) index(owner, id string) int {
	return slices.IndexFunc(r.todos, func(t model.Todo) bool {
		return t.ID == id && t.UserID == owner
	})
}

// cloneTodo copies the slice and pointer fields so callers can't mutate stored state
func cloneTodo(t model.Todo) model.Todo {
	t.Groups = slices.Clone(t.Groups)
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}
