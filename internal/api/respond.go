package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
	"github.com/Irene-03/todo-list-app/internal/service"
)

// error messages shared by handlers and middlewares
const (
	msgInvalidJSON       = "Invalid JSON body"
	msgValidationFailed  = "Validation failed"
	msgTodoNotFound      = "Todo not found"
	msgUserNotFound      = "User not found"
	msgUserExists        = "User already exists"
	msgInvalidCreds      = "Invalid credentials"
	msgInternal          = "Internal server error"
	msgRequestTimeout    = "Request timeout. Please try again later."
	msgRouteNotFound     = "Route not found"
	msgNoToken           = "Access denied. No token provided."
	msgInvalidToken      = "Invalid token."
	msgExpiredToken      = "Token expired. Please login again."
	msgTokenUserNotFound = "Invalid token. User not found."
	msgInvalidAPIKey     = "Invalid or missing API key."
)

var dueDateDetail = model.ErrorDetail{Field: "dueDate", Msg: "Due date must be a valid ISO 8601 date"}

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError writes the error envelope with the given status code
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, model.ErrorResponse{
		Success:   false,
		Error:     model.ErrorBody{Message: message, Status: statusCode},
		Timestamp: time.Now().UTC(),
	}, statusCode)
}

// writeErrorBody writes a prepared error body
func writeErrorBody(w http.ResponseWriter, body model.ErrorBody) {
	writeJSON(w, model.ErrorResponse{
		Success:   false,
		Error:     body,
		Timestamp: time.Now().UTC(),
	}, body.Status)
}

// writeServiceError maps domain errors to HTTP responses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   repository.ErrTodoNotFound
		dateErr       *model.DateError
	)

	switch {
	case errors.As(err, &validationErr):
		details := make([]model.ErrorDetail, 0, len(validationErr.Errors))
		for _, fe := range validationErr.Errors {
			details = append(details, model.ErrorDetail{Field: fe.Field, Msg: fe.Message})
		}
		writeErrorBody(w, model.ErrorBody{
			Message: msgValidationFailed,
			Status:  http.StatusBadRequest,
			Details: details,
		})
	case errors.As(err, &notFoundErr):
		writeError(w, msgTodoNotFound, http.StatusNotFound)
	case errors.As(err, &dateErr):
		writeErrorBody(w, model.ErrorBody{
			Message: msgValidationFailed,
			Status:  http.StatusBadRequest,
			Details: []model.ErrorDetail{dueDateDetail},
		})
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(w, msgUserNotFound, http.StatusNotFound)
	case errors.Is(err, repository.ErrDuplicateUser):
		writeError(w, msgUserExists, http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, msgInvalidCreds, http.StatusUnauthorized)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, msgRequestTimeout, http.StatusServiceUnavailable)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, msgInternal, http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("decode body: %w", err)
	}

	return nil
}

var errEmptyBody = errors.New("empty body")

// writeDecodeError answers a body that could not be decoded
func writeDecodeError(w http.ResponseWriter, err error) {
	var dateErr *model.DateError
	if errors.As(err, &dateErr) {
		writeErrorBody(w, model.ErrorBody{
			Message: msgValidationFailed,
			Status:  http.StatusBadRequest,
			Details: []model.ErrorDetail{dueDateDetail},
		})
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		writeErrorBody(w, model.ErrorBody{
			Message: msgValidationFailed,
			Status:  http.StatusBadRequest,
			Details: []model.ErrorDetail{{Field: typeErr.Field, Msg: fmt.Sprintf("%s must be a %s", typeErr.Field, jsonTypeName(typeErr.Type.Kind()))}},
		})
		return
	}

	writeError(w, msgInvalidJSON, http.StatusBadRequest)
}

// jsonTypeName names Go kinds the way clients know them
func jsonTypeName(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.String:
		return "string"
	}
	return "value"
}
