package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Irene-03/todo-list-app/internal/auth"
	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/ratelimit"
	"github.com/Irene-03/todo-list-app/internal/repository"
	"github.com/Irene-03/todo-list-app/internal/service"
)

// newTestRouter wires the real services over in-memory repositories
func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()

	tokens := auth.NewTokenService("test-secret", time.Hour)
	todos := service.NewTodoService(repository.NewInMemoryTodoRepository())
	users := service.NewUserService(repository.NewInMemoryUserRepository(), tokens)

	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.RateLimits.Store == nil {
		opts.RateLimits.Store = ratelimit.NewMemoryStore()
	}

	return NewRouter(todos, users, tokens, opts)
}

func do(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// register creates an account and returns its token
func register(t *testing.T, h http.Handler, username string) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/auth/register", "",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return decode[model.AuthResponse](t, rec).Data.Token
}

func TestTodoLifecycle(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{})
	token := register(t, h, "jane_doe")

	rec := do(t, h, http.MethodPost, "/api/todos", token, `{"text":"  Buy milk  ","priority":"high","groups":"home","dueDate":"2024-06-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	milk := decode[model.TodoResponse](t, rec).Data
	assert.Equal(t, "Buy milk", milk.Text)
	assert.Equal(t, model.PriorityHigh, milk.Priority)
	assert.Equal(t, []string{"home"}, milk.Groups)
	require.NotNil(t, milk.DueDate)

	rec = do(t, h, http.MethodPost, "/api/todos", token, `{"text":"Call mom","important":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	call := decode[model.TodoResponse](t, rec).Data

	rec = do(t, h, http.MethodPost, "/api/todos/"+milk.ID+"/toggle", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[model.TodoResponse](t, rec).Data
	assert.True(t, toggled.Done)
	assert.NotNil(t, toggled.CompletedAt)

	rec = do(t, h, http.MethodGet, "/api/todos?status=completed", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	completed := decode[model.TodoListResponse](t, rec)
	require.Equal(t, 1, completed.Count)
	assert.Equal(t, milk.ID, completed.Data[0].ID)

	rec = do(t, h, http.MethodGet, "/api/todos?important=true", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	important := decode[model.TodoListResponse](t, rec)
	require.Equal(t, 1, important.Count)
	assert.Equal(t, call.ID, important.Data[0].ID)

	rec = do(t, h, http.MethodGet, "/api/todos/stats", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[model.StatsResponse](t, rec).Data
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Uncompleted)
	assert.Equal(t, 1, stats.Important)
	assert.InDelta(t, 50.0, stats.CompletionRate, 0.001)

	rec = do(t, h, http.MethodGet, "/api/todos/groups", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"home"}, decode[model.GroupListResponse](t, rec).Data)

	rec = do(t, h, http.MethodPut, "/api/todos/"+call.ID, token, `{"text":"Call dad","dueDate":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Call dad", decode[model.TodoResponse](t, rec).Data.Text)

	rec = do(t, h, http.MethodPut, "/api/todos/"+call.ID, token, `{"action":"toggle"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.TodoResponse](t, rec).Data.Done)

	rec = do(t, h, http.MethodDelete, "/api/todos/completed", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), decode[model.ClearCompletedResponse](t, rec).Data.DeletedCount)

	rec = do(t, h, http.MethodDelete, "/api/todos/"+milk.ID, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/todos", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[model.TodoListResponse](t, rec).Count)
}

func TestTodosAreScopedToOwner(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{})
	jane := register(t, h, "jane")
	john := register(t, h, "john")

	rec := do(t, h, http.MethodPost, "/api/todos", jane, `{"text":"Private"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[model.TodoResponse](t, rec).Data.ID

	for name, tc := range map[string]struct {
		method string
		target string
		body   string
	}{
		"get":    {method: http.MethodGet, target: "/api/todos/" + id},
		"update": {method: http.MethodPut, target: "/api/todos/" + id, body: `{"done":true}`},
		"toggle": {method: http.MethodPost, target: "/api/todos/" + id + "/toggle"},
		"delete": {method: http.MethodDelete, target: "/api/todos/" + id},
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.target, john, tc.body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "Todo not found", decodeError(t, rec).Error.Message)
		})
	}

	rec = do(t, h, http.MethodGet, "/api/todos", john, "")
	assert.Equal(t, 0, decode[model.TodoListResponse](t, rec).Count)

	rec = do(t, h, http.MethodGet, "/api/todos/"+id, jane, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{})
	token := register(t, h, "jane_doe")

	rec := do(t, h, http.MethodPost, "/api/auth/register", "", `{"username":"other","email":"jane_doe@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"JANE_DOE@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[model.AuthResponse](t, rec).Data
	assert.NotEmpty(t, login.Token)
	assert.NotNil(t, login.User.LastLogin)

	rec = do(t, h, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[model.UserResponse](t, rec).Data
	assert.Equal(t, "jane_doe", me.Username)
	assert.Equal(t, model.RoleUser, me.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, h, http.MethodGet, "/api/todos", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", decodeError(t, rec).Error.Message)

	rec = do(t, h, http.MethodGet, "/api/todos", token+"x", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token.", decodeError(t, rec).Error.Message)
}

func TestAPIKeyIsRequiredWhenConfigured(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{APIKey: "k3y"})
	token := register(t, h, "jane")

	rec := do(t, h, http.MethodGet, "/api/todos", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or missing API key.", decodeError(t, rec).Error.Message)

	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-KEY", "k3y")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForwardedForOnlyTrustedBehindProxy(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		trustProxy bool
		want       []int
	}{
		"direct clients cannot rotate their address": {
			want: []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests},
		},
		"proxy supplied addresses are separate clients": {
			trustProxy: true,
			want:       []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized},
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newTestRouter(t, Options{TrustProxy: tc.trustProxy, RateLimits: RateLimits{APIMax: 2}})

			got := make([]int, 0, len(tc.want))
			for i := range len(tc.want) {
				req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
				req.Header.Set("X-Forwarded-For", "198.51.100."+strconv.Itoa(i+1))
				req.Header.Set("X-Real-IP", "198.51.100."+strconv.Itoa(i+1))
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				got = append(got, rec.Code)
			}

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAuthRateLimitSkipsSuccessfulAttempts(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{RateLimits: RateLimits{AuthMax: 2, Window: time.Minute}})
	register(t, h, "jane")

	for range 3 {
		rec := do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	for range 2 {
		rec := do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com","password":"wrong1"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t,
		"Too many authentication attempts from this IP, please try again after 1 minutes.",
		decodeError(t, rec).Error.Message)
}

func TestCreateRateLimit(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{RateLimits: RateLimits{CreateMax: 1}})
	token := register(t, h, "jane")

	rec := do(t, h, http.MethodPost, "/api/todos", token, `{"text":"one"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/todos", token, `{"text":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many todos created, please try again later.", decodeError(t, rec).Error.Message)

	rec = do(t, h, http.MethodGet, "/api/todos", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterSurface(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	t.Run("health", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/health", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		health := decode[model.HealthResponse](t, rec)
		assert.Equal(t, "OK", health.Status)
		assert.GreaterOrEqual(t, health.Uptime, 0.0)
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Empty(t, rec.Header().Get("RateLimit-Limit"))
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/unknown", "", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		errResp := decodeError(t, rec)
		assert.Equal(t, "Route not found", errResp.Error.Message)
		assert.Equal(t, "/api/unknown", errResp.Error.Path)
		assert.Equal(t, http.MethodGet, errResp.Error.Method)
	})

	t.Run("unsupported method", func(t *testing.T) {
		rec := do(t, h, http.MethodPatch, "/api/todos/1", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestOpenAPIDocument(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, Options{Version: "2.1.0"})

	rec := do(t, h, http.MethodGet, "/openapi.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths      map[string]map[string]json.RawMessage `json:"paths"`
		Components struct {
			Schemas         map[string]json.RawMessage `json:"schemas"`
			SecuritySchemes map[string]json.RawMessage `json:"securitySchemes"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "Todo List API", doc.Info.Title)
	assert.Equal(t, "2.1.0", doc.Info.Version)

	for path, methods := range map[string][]string{
		"/health":                {"get"},
		"/api/auth/register":     {"post"},
		"/api/auth/login":        {"post"},
		"/api/auth/me":           {"get"},
		"/api/todos":             {"get", "post", "delete"},
		"/api/todos/stats":       {"get"},
		"/api/todos/groups":      {"get"},
		"/api/todos/completed":   {"delete"},
		"/api/todos/{id}":        {"get", "put", "delete"},
		"/api/todos/{id}/toggle": {"post"},
	} {
		require.Contains(t, doc.Paths, path)
		for _, method := range methods {
			assert.Contains(t, doc.Paths[path], method, "%s %s", method, path)
		}
	}

	assert.Contains(t, doc.Components.Schemas, "Todo")
	assert.Contains(t, doc.Components.Schemas, "ErrorResponse")
	assert.Contains(t, doc.Components.SecuritySchemes, "bearerAuth")
	assert.Contains(t, string(doc.Paths["/api/todos"]["get"]), `"bearerAuth"`)
	assert.NotContains(t, string(doc.Paths["/api/auth/login"]["post"]), `"bearerAuth"`)
}
