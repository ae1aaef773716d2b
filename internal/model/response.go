package model

import "time"

// TodoResponse is used for responses with a single todo item
type TodoResponse struct {
	Success   bool      `json:"success" example:"true"`
	Data      Todo      `json:"data" doc:"A todo item"`
	Timestamp time.Time `json:"timestamp"`
}

// TodoListResponse is used for responses with multiple todo items
type TodoListResponse struct {
	Success   bool      `json:"success" example:"true"`
	Data      []Todo    `json:"data" doc:"List of todo items"`
	Count     int       `json:"count" doc:"Number of todo items returned"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsResponse wraps the todo statistics of the caller
type StatsResponse struct {
	Success   bool      `json:"success" example:"true"`
	Data      TodoStats `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// GroupListResponse lists the distinct group labels of the caller
type GroupListResponse struct {
	Success   bool      `json:"success" example:"true"`
	Data      []string  `json:"data" doc:"Group labels in first-seen order"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// ClearCompletedResponse wraps the result of removing completed todos
type ClearCompletedResponse struct {
	Success   bool                 `json:"success" example:"true"`
	Data      ClearCompletedResult `json:"data"`
	Timestamp time.Time            `json:"timestamp"`
}

// AuthResponse wraps an issued token
type AuthResponse struct {
	Success   bool       `json:"success" example:"true"`
	Data      AuthResult `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
}

// UserResponse wraps the current user
type UserResponse struct {
	Success   bool      `json:"success" example:"true"`
	Data      User      `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports the liveness of the server
type HealthResponse struct {
	Status    string    `json:"status" example:"OK"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime" doc:"Seconds since the server started"`
}

// ErrorDetail points at a single invalid request field
type ErrorDetail struct {
	Field string `json:"field" example:"text"`
	Msg   string `json:"msg" example:"Task text is required"`
}

// ErrorBody describes what went wrong
type ErrorBody struct {
	Message string        `json:"message" example:"Todo not found"`
	Status  int           `json:"status" example:"404"`
	Details []ErrorDetail `json:"details,omitempty"`
	Path    string        `json:"path,omitempty"`
	Method  string        `json:"method,omitempty"`
}

// ErrorResponse represents an error returned by the API
type ErrorResponse struct {
	Success   bool      `json:"success" example:"false"`
	Error     ErrorBody `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
