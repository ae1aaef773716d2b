package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Irene-03/todo-list-app/internal/auth"
	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

// maxPasswordBytes is the longest password bcrypt can hash
const maxPasswordBytes = 72

// ErrInvalidCredentials is returned when the email or password does not match
var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenIssuer signs access tokens for a user
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// UserService handles registration, login and account lookups
type UserService struct {
	repo     repository.UserRepository
	tokens   TokenIssuer
	validate *validator.Validate
	now      func() time.Time
}

// NewUserService creates a new user service
func NewUserService(repo repository.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Register creates an account and returns a token for it
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate(s.validate, req); err != nil {
		return model.AuthResult{}, err
	}
	if len(req.Password) > maxPasswordBytes {
		return model.AuthResult{}, newValidationError("password", "max", "Password must be at most 72 bytes")
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	user, err := s.repo.Create(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return model.AuthResult{}, err
	}

	return s.authResult(user)
}

// Login checks the credentials, records the login and returns a token
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate(s.validate, req); err != nil {
		return model.AuthResult{}, err
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResult{}, ErrInvalidCredentials
		}
		return model.AuthResult{}, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}
	if !ok {
		return model.AuthResult{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return model.AuthResult{}, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now

	return s.authResult(user)
}

// GetUser returns the account with the given ID
func (s *UserService) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) authResult(user model.User) (model.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.AuthResult{}, err
	}

	return model.AuthResult{Token: token, User: user}, nil
}
