package model

import "time"

// Role is the authorization role of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account that owns todo items
type User struct {
	ID           string     `json:"id" doc:"Unique identifier for the user"`
	Username     string     `json:"username" doc:"Display name" example:"jane_doe"`
	Email        string     `json:"email" doc:"Email address" example:"jane@example.com"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role" enum:"user,admin" example:"user"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// RegisterRequest is used when creating a new account
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,username" doc:"3 to 30 letters, digits or underscores" example:"jane_doe"`
	Email    string `json:"email" validate:"required,email" example:"jane@example.com"`
	Password string `json:"password" validate:"required,min=6" doc:"At least 6 characters"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=user admin" enum:"user,admin"`
}

// LoginRequest is used to exchange credentials for a token
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"jane@example.com"`
	Password string `json:"password" validate:"required"`
}

// AuthResult carries an issued token and the authenticated user
type AuthResult struct {
	Token string `json:"token" doc:"Bearer token for the Authorization header"`
	User  User   `json:"user"`
}
