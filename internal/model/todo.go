// package model contains the data models for the todo list application
package model

import (
	"time"
)

// Priority is the urgency level of a todo item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Status values accepted by the list filter
const (
	StatusAll         = "all"
	StatusCompleted   = "completed"
	StatusUncompleted = "uncompleted"
	// StatusActive is an alias of StatusUncompleted
	StatusActive = "active"
)

// Todo represents a todo item owned by a single user
type Todo struct {
	ID          string     `json:"id" doc:"Unique identifier for the todo item" example:"665f1c2e8a1b2c3d4e5f6a7b"`
	Text        string     `json:"text" doc:"Short text of the todo item" example:"Buy milk"`
	Description string     `json:"description" doc:"Detailed description of the todo item" example:"Two litres, semi-skimmed"`
	Done        bool       `json:"done" doc:"Whether the todo item is completed" example:"false"`
	Important   bool       `json:"important" doc:"Whether the todo item is flagged as important" example:"false"`
	Priority    Priority   `json:"priority" doc:"Priority of the todo item" enum:"low,normal,high" example:"normal"`
	DueDate     *time.Time `json:"dueDate,omitempty" doc:"When the todo item is due"`
	Groups      []string   `json:"groups" doc:"Labels the todo item belongs to"`
	UserID      string     `json:"userId" doc:"Owner of the todo item"`
	CreatedAt   time.Time  `json:"createdAt" doc:"When the todo item was created"`
	UpdatedAt   time.Time  `json:"updatedAt" doc:"When the todo item was last updated"`
	CompletedAt *time.Time `json:"completedAt,omitempty" doc:"When the todo item was completed"`
}

// HasGroup reports whether the todo carries the given group label
func (t Todo) HasGroup(group string) bool {
	for _, g := range t.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// TodoFilter narrows down a todo listing. Zero values mean no filter.
type TodoFilter struct {
	Status    string
	Important *bool
	Priority  Priority
	Group     string
	Search    string
}

// CreateTodoRequest is used when creating a new todo item
type CreateTodoRequest struct {
	Text        string       `json:"text" validate:"required,max=500" doc:"Short text of the todo item" example:"Buy milk"`
	Description string       `json:"description,omitempty" validate:"max=2000" doc:"Detailed description of the todo item"`
	Priority    Priority     `json:"priority,omitempty" validate:"omitempty,oneof=low normal high" doc:"Priority of the todo item" enum:"low,normal,high" example:"normal"`
	DueDate     NullableDate `json:"dueDate,omitempty" format:"date-time" doc:"Due date as YYYY-MM-DD or RFC 3339"`
	Groups      GroupList    `json:"groups,omitempty" doc:"Group labels, as a list or a comma separated string"`
	Important   bool         `json:"important,omitempty" doc:"Whether the todo item is flagged as important"`
}

// UpdateTodoRequest is used when updating an existing todo item. Absent
// fields are left untouched.
type UpdateTodoRequest struct {
	Action      string       `json:"action,omitempty" doc:"Set to toggle to flip the done flag and ignore other fields" enum:"toggle"`
	Text        *string      `json:"text,omitempty" validate:"omitnil,min=1,max=500" doc:"Short text of the todo item"`
	Description *string      `json:"description,omitempty" validate:"omitnil,max=2000" doc:"Detailed description of the todo item"`
	Priority    *Priority    `json:"priority,omitempty" validate:"omitnil,oneof=low normal high" doc:"Priority of the todo item" enum:"low,normal,high"`
	DueDate     NullableDate `json:"dueDate,omitempty" format:"date-time" doc:"Due date, null clears it"`
	Groups      GroupList    `json:"groups,omitempty" doc:"Group labels replacing the current ones, null or [] clears them"`
	Important   *bool        `json:"important,omitempty" doc:"Whether the todo item is flagged as important"`
	Done        *bool        `json:"done,omitempty" doc:"Whether the todo item is completed"`
}

// ActionToggle is the UpdateTodoRequest action that flips the done flag
const ActionToggle = "toggle"

// TodoStats summarizes the todos of one owner
type TodoStats struct {
	Total          int     `json:"total" doc:"Number of todo items"`
	Completed      int     `json:"completed" doc:"Number of completed todo items"`
	Uncompleted    int     `json:"uncompleted" doc:"Number of open todo items"`
	Important      int     `json:"important" doc:"Number of important todo items"`
	Today          int     `json:"today" doc:"Number of todo items due today"`
	CompletionRate float64 `json:"completionRate" doc:"Percentage of completed todo items, one decimal" example:"66.7"`
}

// ClearCompletedResult is returned after removing completed todos
type ClearCompletedResult struct {
	Message      string `json:"message" example:"Completed todos cleared"`
	DeletedCount int64  `json:"deletedCount" doc:"Number of todo items removed" example:"3"`
}
