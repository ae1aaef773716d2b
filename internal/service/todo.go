// package service implements business logic for the application
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

// ErrOwnerRequired is returned when an operation is attempted without an owner
var ErrOwnerRequired = errors.New("owner is required")

// TodoService handles business logic for todo operations
type TodoService struct {
	repo     repository.TodoRepository
	validate *validator.Validate
	now      func() time.Time
}

// NewTodoService creates a new todo service with the given repository
func NewTodoService(repo repository.TodoRepository) *TodoService {
	return &TodoService{
		repo:     repo,
		validate: newValidator(),
		now:      time.Now,
	}
}

// ListTodos returns the owner's todos matching filter, newest first
func (s *TodoService) ListTodos(ctx context.Context, owner string, filter model.TodoFilter) ([]model.Todo, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	todos, err := s.repo.FindAll(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("find todos: %w", err)
	}

	return FilterTodos(todos, filter), nil
}

// GetTodo returns a todo by ID
func (s *TodoService) GetTodo(ctx context.Context, owner, id string) (model.Todo, error) {
	if owner == "" {
		return model.Todo{}, ErrOwnerRequired
	}
	if id == "" {
		return model.Todo{}, repository.ErrTodoNotFound{ID: id}
	}

	return s.repo.FindByID(ctx, owner, id)
}

// CreateTodo validates the request and stores a new open todo
func (s *TodoService) CreateTodo(ctx context.Context, owner string, req model.CreateTodoRequest) (model.Todo, error) {
	if owner == "" {
		return model.Todo{}, ErrOwnerRequired
	}

	req.Text = strings.TrimSpace(req.Text)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate(s.validate, req); err != nil {
		return model.Todo{}, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	now := s.now()
	todo := model.Todo{
		Text:        req.Text,
		Description: req.Description,
		Done:        false,
		Important:   req.Important,
		Priority:    priority,
		DueDate:     req.DueDate.Value,
		Groups:      NormalizeGroups(req.Groups),
		UserID:      owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return s.repo.Create(ctx, todo)
}

// UpdateTodo applies the fields present in req to an existing todo
func (s *TodoService) UpdateTodo(ctx context.Context, owner, id string, req model.UpdateTodoRequest) (model.Todo, error) {
	if owner == "" {
		return model.Todo{}, ErrOwnerRequired
	}

	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		req.Text = &text
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		req.Description = &description
	}
	if err := validate(s.validate, req); err != nil {
		return model.Todo{}, err
	}

	// get existing todo
	todo, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return model.Todo{}, err
	}

	// apply updates
	if req.Text != nil {
		todo.Text = *req.Text
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	if req.Priority != nil {
		todo.Priority = *req.Priority
	}
	if req.DueDate.Set {
		todo.DueDate = req.DueDate.Value
	}
	if req.Groups != nil {
		todo.Groups = NormalizeGroups(req.Groups)
	}
	if req.Important != nil {
		todo.Important = *req.Important
	}

	now := s.now()
	if req.Done != nil {
		setDone(&todo, *req.Done, now)
	}
	todo.UpdatedAt = now

	return s.repo.Update(ctx, owner, id, todo)
}

// ToggleTodo flips the done flag of a todo
func (s *TodoService) ToggleTodo(ctx context.Context, owner, id string) (model.Todo, error) {
	if owner == "" {
		return model.Todo{}, ErrOwnerRequired
	}

	todo, err := s.repo.FindByID(ctx, owner, id)
	if err != nil {
		return model.Todo{}, err
	}

	now := s.now()
	setDone(&todo, !todo.Done, now)
	todo.UpdatedAt = now

	return s.repo.Update(ctx, owner, id, todo)
}

// setDone moves the todo to the requested completion state. completedAt is
// only stamped on an actual transition.
func setDone(todo *model.Todo, done bool, now time.Time) {
	if todo.Done == done {
		return
	}

	todo.Done = done
	if done {
		todo.CompletedAt = &now
	} else {
		todo.CompletedAt = nil
	}
}

// DeleteTodo deletes a todo
func (s *TodoService) DeleteTodo(ctx context.Context, owner, id string) error {
	if owner == "" {
		return ErrOwnerRequired
	}
	if id == "" {
		return repository.ErrTodoNotFound{ID: id}
	}

	return s.repo.Delete(ctx, owner, id)
}

// ClearCompleted removes all done todos of the owner and reports how many were removed
func (s *TodoService) ClearCompleted(ctx context.Context, owner string) (int64, error) {
	if owner == "" {
		return 0, ErrOwnerRequired
	}

	return s.repo.DeleteCompleted(ctx, owner)
}

// GetStats summarizes the owner's todos. Today is the current calendar day in
// loc, or in the server's local zone when loc is nil.
func (s *TodoService) GetStats(ctx context.Context, owner string, loc *time.Location) (model.TodoStats, error) {
	if owner == "" {
		return model.TodoStats{}, ErrOwnerRequired
	}

	todos, err := s.repo.FindAll(ctx, owner)
	if err != nil {
		return model.TodoStats{}, fmt.Errorf("find todos: %w", err)
	}

	now := s.now()
	if loc != nil {
		now = now.In(loc)
	}

	return ComputeStats(todos, now), nil
}

// ListGroups returns the distinct group labels used by the owner's todos
func (s *TodoService) ListGroups(ctx context.Context, owner string) ([]string, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	todos, err := s.repo.FindAll(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("find todos: %w", err)
	}

	return DistinctGroups(todos), nil
}
