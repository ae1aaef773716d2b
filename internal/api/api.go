// package api provides the HTTP API for the application
package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Irene-03/todo-list-app/internal/logging"
	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/ratelimit"
	"github.com/Irene-03/todo-list-app/pkg/router"
)

// TodoService defines the minimal interface needed by the API
type TodoService interface {
	// ListTodos returns the owner's todos matching filter, newest first
	ListTodos(ctx context.Context, owner string, filter model.TodoFilter) ([]model.Todo, error)

	// GetTodo returns a todo by ID
	GetTodo(ctx context.Context, owner, id string) (model.Todo, error)

	// CreateTodo creates a new todo
	CreateTodo(ctx context.Context, owner string, req model.CreateTodoRequest) (model.Todo, error)

	// UpdateTodo updates an existing todo
	UpdateTodo(ctx context.Context, owner, id string, req model.UpdateTodoRequest) (model.Todo, error)

	// ToggleTodo flips the done flag of a todo
	ToggleTodo(ctx context.Context, owner, id string) (model.Todo, error)

	// DeleteTodo deletes a todo
	DeleteTodo(ctx context.Context, owner, id string) error

	// ClearCompleted deletes the owner's completed todos
	ClearCompleted(ctx context.Context, owner string) (int64, error)

	// GetStats summarizes the owner's todos, "today" is taken in loc
	GetStats(ctx context.Context, owner string, loc *time.Location) (model.TodoStats, error)

	// ListGroups returns the owner's distinct group labels
	ListGroups(ctx context.Context, owner string) ([]string, error)
}

// UserService defines the account operations needed by the API
type UserService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error)
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error)
	GetUser(ctx context.Context, id string) (model.User, error)
}

// RateLimits configures the three request limiters
type RateLimits struct {
	Store     ratelimit.Store
	Window    time.Duration
	APIMax    int64
	AuthMax   int64
	CreateMax int64
}

// Options holds the HTTP settings. TrustProxy takes the client address from
// X-Forwarded-For / X-Real-IP; leave it off unless a proxy sets them.
type Options struct {
	Logger         *slog.Logger
	AccessLog      *logging.AccessLog
	APIKey         string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Production     bool
	TrustProxy     bool
	RateLimits     RateLimits
	Version        string
}

// API holds the components needed to register routes
type API struct {
	router      *router.DocRouter
	todoHandler *TodoHandler
	authHandler *AuthHandler
	opts        Options
	started     time.Time

	authenticate  router.Middleware
	apiKey        router.Middleware
	apiLimiter    router.Middleware
	authLimiter   router.Middleware
	createLimiter router.Middleware
}

// NewRouter creates a new router with all routes configured
func NewRouter(todoService TodoService, userService UserService, tokens TokenParser, opts Options) *router.DocRouter {
	opts = withDefaults(opts)

	r := router.NewDocRouter("Todo List API",
		"Personal todo lists with filtering, groups and statistics",
		opts.Version,
	)

	api := &API{
		router:       r,
		todoHandler:  NewTodoHandler(todoService),
		authHandler:  NewAuthHandler(userService),
		opts:         opts,
		started:      time.Now(),
		authenticate: authenticate(tokens, userService),
		apiKey:       (&apiKeyGuard{key: opts.APIKey, logger: opts.Logger}).Middleware,
	}
	api.setupLimiters()

	// Add middlewares
	stack := []router.Middleware{
		recovererMiddleware(opts.Logger),
		middleware.RequestID,
	}
	if opts.TrustProxy {
		stack = append(stack, middleware.RealIP)
	}
	stack = append(stack,
		loggerMiddleware(opts.Logger, opts.AccessLog),
		secureMiddleware(opts.Production),
		corsMiddleware(opts.AllowedOrigins),
		middleware.Compress(5),
		timeoutMiddleware(opts.RequestTimeout),
	)
	r.Use(stack...)

	api.registerRoutes()
	r.NotFound(notFoundHandler)

	return r
}

func withDefaults(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	rl := &opts.RateLimits
	if rl.Store == nil {
		rl.Store = ratelimit.NewMemoryStore()
	}
	if rl.Window <= 0 {
		rl.Window = 15 * time.Minute
	}
	if rl.APIMax <= 0 {
		rl.APIMax = 100
	}
	if rl.AuthMax <= 0 {
		rl.AuthMax = 5
	}
	if rl.CreateMax <= 0 {
		rl.CreateMax = 20
	}

	return opts
}

// setupLimiters builds the api, auth and create limiters over one store
func (api *API) setupLimiters() {
	rl := api.opts.RateLimits

	reject := func(message string) func(http.ResponseWriter, *http.Request, time.Duration) {
		return func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
			writeErrorBody(w, model.ErrorBody{
				Message: message,
				Status:  http.StatusTooManyRequests,
				Details: []model.ErrorDetail{{
					Field: "retryAfter",
					Msg:   strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10) + " seconds",
				}},
			})
		}
	}

	minutes := strconv.Itoa(int(rl.Window.Minutes()))

	api.apiLimiter = ratelimit.New(rl.Store, ratelimit.Options{
		Name:    "api",
		Max:     rl.APIMax,
		Window:  rl.Window,
		OnLimit: reject("Too many requests from this IP, please try again after " + minutes + " minutes."),
		Logger:  api.opts.Logger,
	}).Middleware

	api.authLimiter = ratelimit.New(rl.Store, ratelimit.Options{
		Name:                   "auth",
		Max:                    rl.AuthMax,
		Window:                 rl.Window,
		SkipSuccessfulRequests: true,
		OnLimit:                reject("Too many authentication attempts from this IP, please try again after " + minutes + " minutes."),
		Logger:                 api.opts.Logger,
	}).Middleware

	api.createLimiter = ratelimit.New(rl.Store, ratelimit.Options{
		Name:    "create",
		Max:     rl.CreateMax,
		Window:  rl.Window,
		OnLimit: reject("Too many todos created, please try again later."),
		Logger:  api.opts.Logger,
	}).Middleware
}

// errorSchema is used for documentation of error responses
var errorSchema = &model.ErrorResponse{}

func errorExample(status int, message string) router.Example {
	return router.Example{
		ContentType: "application/json",
		Value:       `{"success": false, "error": {"message": "` + message + `", "status": ` + strconv.Itoa(status) + `}, "timestamp": "2024-05-01T09:00:00Z"}`,
	}
}

// registerRoutes configures all API routes with documentation
func (api *API) registerRoutes() {
	api.router = api.router.
		WithServer("http://localhost:3000", "Local development server").
		WithTag("Todos", "Operations on the caller's todo items").
		WithTag("Auth", "Registration and login").
		WithTag("Core", "Core API endpoints").
		WithBearerAuth()

	api.router.Route("GET", "/health", api.health).
		WithName("Health Check").
		WithDescription("API health check endpoint").
		WithResponse(&model.HealthResponse{}).
		WithTags("Core").
		Register()

	api.router.Route("GET", "/openapi.json", api.router.OpenAPIHandler()).
		WithName("OpenAPI Document").
		WithDescription("This document").
		WithTags("Core").
		Register()

	api.registerAuthRoutes()
	api.registerTodoRoutes()
}

func (api *API) registerAuthRoutes() {
	public := []router.Middleware{api.apiLimiter, api.authLimiter}

	api.router.Route("POST", "/api/auth/register", api.authHandler.Register).
		WithName("Register").
		WithDescription("Create an account and receive a token").
		WithRequest(&model.RegisterRequest{}).
		WithResponse(&model.AuthResponse{}).
		WithStatus(http.StatusCreated).
		WithErrorResponse("400", "Bad Request", errorSchema, errorExample(http.StatusBadRequest, msgValidationFailed)).
		WithErrorResponse("409", "Conflict", errorSchema, errorExample(http.StatusConflict, msgUserExists)).
		WithErrorResponse("429", "Too Many Requests", errorSchema).
		WithTags("Auth").
		WithMiddleware(public...).
		Register()

	api.router.Route("POST", "/api/auth/login", api.authHandler.Login).
		WithName("Login").
		WithDescription("Exchange credentials for a token").
		WithRequest(&model.LoginRequest{}).
		WithResponse(&model.AuthResponse{}).
		WithErrorResponse("400", "Bad Request", errorSchema).
		WithErrorResponse("401", "Unauthorized", errorSchema, errorExample(http.StatusUnauthorized, msgInvalidCreds)).
		WithErrorResponse("429", "Too Many Requests", errorSchema).
		WithTags("Auth").
		WithMiddleware(public...).
		Register()

	api.router.Route("GET", "/api/auth/me", api.authHandler.Me).
		WithName("Current User").
		WithDescription("Get the authenticated user").
		WithResponse(&model.UserResponse{}).
		WithErrorResponse("401", "Unauthorized", errorSchema, errorExample(http.StatusUnauthorized, msgNoToken)).
		WithTags("Auth").
		WithSecurity().
		WithMiddleware(api.apiLimiter, api.authenticate).
		Register()
}

func (api *API) registerTodoRoutes() {
	protected := []router.Middleware{api.apiLimiter, api.apiKey, api.authenticate}

	todo := func(method, path string, handler http.HandlerFunc) *router.RouteConfig {
		return api.router.Route(method, path, handler).
			WithErrorResponse("401", "Unauthorized", errorSchema, errorExample(http.StatusUnauthorized, msgNoToken)).
			WithErrorResponse("429", "Too Many Requests", errorSchema).
			WithErrorResponse("500", "Internal Server Error", errorSchema).
			WithTags("Todos").
			WithSecurity().
			WithMiddleware(protected...)
	}

	todo("GET", "/api/todos", api.todoHandler.ListTodos).
		WithName("List Todos").
		WithDescription("Get the caller's todo items, newest first").
		WithResponse(&model.TodoListResponse{}).
		WithQueryParam(router.QueryParam{Name: "status", Description: "completed, uncompleted (or active); anything else lists all", Enum: []string{"all", "completed", "uncompleted", "active"}}).
		WithQueryParam(router.QueryParam{Name: "important", Type: "boolean", Description: "Only important (true) or unimportant (false) items"}).
		WithQueryParam(router.QueryParam{Name: "priority", Description: "Exact priority", Enum: []string{"low", "normal", "high"}}).
		WithQueryParam(router.QueryParam{Name: "group", Description: "Items carrying this group label"}).
		WithQueryParam(router.QueryParam{Name: "search", Description: "Case-insensitive substring of the text"}).
		Register()

	todo("GET", "/api/todos/stats", api.todoHandler.GetStats).
		WithName("Todo Statistics").
		WithDescription("Counts and completion rate of the caller's todo items").
		WithResponse(&model.StatsResponse{}).
		WithQueryParam(router.QueryParam{Name: "tz", Description: "IANA time zone deciding which items are due today"}).
		WithErrorResponse("400", "Bad Request", errorSchema).
		Register()

	todo("GET", "/api/todos/groups", api.todoHandler.ListGroups).
		WithName("List Groups").
		WithDescription("Distinct group labels of the caller's todo items").
		WithResponse(&model.GroupListResponse{}).
		Register()

	todo("GET", "/api/todos/{id}", api.todoHandler.GetTodo).
		WithName("Get Todo").
		WithDescription("Get a todo item by ID").
		WithResponse(&model.TodoResponse{}).
		WithErrorResponse("404", "Not Found", errorSchema, errorExample(http.StatusNotFound, msgTodoNotFound)).
		Register()

	todo("POST", "/api/todos", api.todoHandler.CreateTodo).
		WithName("Create Todo").
		WithDescription("Create a new todo item").
		WithRequest(&model.CreateTodoRequest{}).
		WithResponse(&model.TodoResponse{}).
		WithStatus(http.StatusCreated).
		WithErrorResponse("400", "Bad Request", errorSchema, errorExample(http.StatusBadRequest, msgValidationFailed)).
		WithMiddleware(api.createLimiter).
		Register()

	todo("PUT", "/api/todos/{id}", api.todoHandler.UpdateTodo).
		WithName("Update Todo").
		WithDescription(`Update fields of a todo item; {"action": "toggle"} flips done instead`).
		WithRequest(&model.UpdateTodoRequest{}).
		WithResponse(&model.TodoResponse{}).
		WithErrorResponse("400", "Bad Request", errorSchema).
		WithErrorResponse("404", "Not Found", errorSchema, errorExample(http.StatusNotFound, msgTodoNotFound)).
		Register()

	todo("POST", "/api/todos/{id}/toggle", api.todoHandler.ToggleTodo).
		WithName("Toggle Todo").
		WithDescription("Flip the done flag of a todo item").
		WithResponse(&model.TodoResponse{}).
		WithErrorResponse("404", "Not Found", errorSchema).
		Register()

	todo("DELETE", "/api/todos/{id}", api.todoHandler.DeleteTodo).
		WithName("Delete Todo").
		WithDescription("Delete a todo item").
		WithStatus(http.StatusNoContent).
		WithErrorResponse("404", "Not Found", errorSchema, errorExample(http.StatusNotFound, msgTodoNotFound)).
		Register()

	todo("DELETE", "/api/todos", api.todoHandler.ClearCompleted).
		WithName("Clear Completed").
		WithDescription("Delete every completed todo item of the caller").
		WithResponse(&model.ClearCompletedResponse{}).
		Register()

	todo("DELETE", "/api/todos/completed", api.todoHandler.ClearCompleted).
		WithName("Clear Completed (alias)").
		WithDescription("Same as DELETE /api/todos").
		WithResponse(&model.ClearCompletedResponse{}).
		Register()
}

// health handles the health check endpoint
func (api *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, model.HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(api.started).Seconds(),
	}, http.StatusOK)
}
