// package api provides the HTTP API for the application
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Irene-03/todo-list-app/internal/auth"
	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/service"
)

// TodoHandler handles HTTP requests for todo operations
type TodoHandler struct {
	todoService TodoService
	now         func() time.Time
}

// NewTodoHandler creates a new todo handler with the given service
func NewTodoHandler(todoService TodoService) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// owner returns the authenticated user's ID
func owner(r *http.Request) string {
	user, _ := auth.UserFromContext(r.Context())
	return user.ID
}

// parseFilter reads the list filter from the query string
func parseFilter(r *http.Request) model.TodoFilter {
	q := r.URL.Query()

	filter := model.TodoFilter{
		Status:   strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Priority: model.Priority(strings.ToLower(strings.TrimSpace(q.Get("priority")))),
		Group:    strings.TrimSpace(q.Get("group")),
		Search:   q.Get("search"),
	}

	switch strings.ToLower(q.Get("important")) {
	case "true":
		important := true
		filter.Important = &important
	case "false":
		important := false
		filter.Important = &important
	}

	return filter
}

// ListTodos handles GET /api/todos
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todoService.ListTodos(r.Context(), owner(r), parseFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, model.TodoListResponse{
		Success:   true,
		Data:      todos,
		Count:     len(todos),
		Timestamp: h.now(),
	}, http.StatusOK)
}

// GetTodo handles GET /api/todos/{id}
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todoService.GetTodo(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeTodo(w, todo, http.StatusOK)
}

// CreateTodo handles POST /api/todos
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTodoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	todo, err := h.todoService.CreateTodo(r.Context(), owner(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeTodo(w, todo, http.StatusCreated)
}

// UpdateTodo handles PUT /api/todos/{id}; {"action":"toggle"} flips done
// and ignores every other field
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateTodoRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeDecodeError(w, err)
		return
	}

	var (
		todo model.Todo
		err  error
	)
	if req.Action == model.ActionToggle {
		todo, err = h.todoService.ToggleTodo(r.Context(), owner(r), r.PathValue("id"))
	} else {
		todo, err = h.todoService.UpdateTodo(r.Context(), owner(r), r.PathValue("id"), req)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeTodo(w, todo, http.StatusOK)
}

// ToggleTodo handles POST /api/todos/{id}/toggle
func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todoService.ToggleTodo(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeTodo(w, todo, http.StatusOK)
}

// DeleteTodo handles DELETE /api/todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.todoService.DeleteTodo(r.Context(), owner(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCompleted handles DELETE /api/todos
func (h *TodoHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.todoService.ClearCompleted(r.Context(), owner(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, model.ClearCompletedResponse{
		Success: true,
		Data: model.ClearCompletedResult{
			Message:      "Completed todos cleared",
			DeletedCount: deleted,
		},
		Timestamp: h.now(),
	}, http.StatusOK)
}

// GetStats handles GET /api/todos/stats; tz names the IANA zone that
// decides which todos are due today
func (h *TodoHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	loc := time.Local
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			writeServiceError(w, r, &service.ValidationError{Errors: []service.FieldError{{
				Field:   "tz",
				Rule:    "timezone",
				Message: "Time zone must be an IANA name such as Europe/Berlin",
			}}})
			return
		}
	}

	stats, err := h.todoService.GetStats(r.Context(), owner(r), loc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, model.StatsResponse{
		Success:   true,
		Data:      stats,
		Timestamp: h.now(),
	}, http.StatusOK)
}

// ListGroups handles GET /api/todos/groups
func (h *TodoHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.todoService.ListGroups(r.Context(), owner(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, model.GroupListResponse{
		Success:   true,
		Data:      groups,
		Count:     len(groups),
		Timestamp: h.now(),
	}, http.StatusOK)
}

func (h *TodoHandler) writeTodo(w http.ResponseWriter, todo model.Todo, status int) {
	writeJSON(w, model.TodoResponse{
		Success:   true,
		Data:      todo,
		Timestamp: h.now(),
	}, status)
}
