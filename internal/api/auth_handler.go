package api

import (
	"net/http"
	"time"

	"github.com/Irene-03/todo-list-app/internal/auth"
	"github.com/Irene-03/todo-list-app/internal/model"
)

// AuthHandler handles account registration and login
type AuthHandler struct {
	userService UserService
	now         func() time.Time
}

// NewAuthHandler creates a new auth handler with the given service
func NewAuthHandler(userService UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, model.AuthResponse{Success: true, Data: result, Timestamp: h.now()}, http.StatusCreated)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, model.AuthResponse{Success: true, Data: result, Timestamp: h.now()}, http.StatusOK)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, msgNoToken, http.StatusUnauthorized)
		return
	}

	writeJSON(w, model.UserResponse{Success: true, Data: user, Timestamp: h.now()}, http.StatusOK)
}
