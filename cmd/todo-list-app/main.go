// main is the entry point for the todo list server
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"github.com/Irene-03/todo-list-app/internal/api"
	"github.com/Irene-03/todo-list-app/internal/auth"
	"github.com/Irene-03/todo-list-app/internal/config"
	"github.com/Irene-03/todo-list-app/internal/logging"
	"github.com/Irene-03/todo-list-app/internal/ratelimit"
	"github.com/Irene-03/todo-list-app/internal/repository"
	"github.com/Irene-03/todo-list-app/internal/repository/mongodb"
	"github.com/Irene-03/todo-list-app/internal/repository/sqlite"
	"github.com/Irene-03/todo-list-app/internal/service"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = os.Args[1:]

	var err error
	switch cmd {
	case "run":
		err = runServer()
	case "openapi-gen":
		err = generateOpenAPI()
	case "healthcheck":
		err = healthcheck()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`
Usage: todo-list-app <command> [options]

Commands:
  run          Start the HTTP server
  openapi-gen  Generate OpenAPI documentation
  healthcheck  Check the /health endpoint of a running server

Run 'todo-list-app <command> -h' for more information on a command.
`)
}

// storage bundles the repositories of the selected driver
type storage struct {
	todos repository.TodoRepository
	users repository.UserRepository
	close func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{
			todos: store.Todos(),
			users: store.Users(),
			close: func(context.Context) error { return store.Close() },
		}, nil
	case config.DriverMongo:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &storage{
			todos: store.Todos(),
			users: store.Users(),
			close: store.Close,
		}, nil
	case config.DriverMemory:
		return &storage{
			todos: repository.NewInMemoryTodoRepository(),
			users: repository.NewInMemoryUserRepository(),
			close: func(context.Context) error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func runServer() error {
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// setup logger
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	var accessLog *logging.AccessLog
	if cfg.AccessLogPath != "" {
		rotated := logging.OpenAccessLog(cfg.AccessLogPath)
		defer rotated.Close()
		accessLog = logging.NewAccessLog(rotated)
	}

	// create context that listens for interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// setup dependencies
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.Error("close storage", "error", err)
		}
	}()
	logger.Info("storage ready", "driver", cfg.StorageDriver)

	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		limitStore = ratelimit.NewRedisStore(rdb, "ratelimit:")
		logger.Info("rate limits shared through redis", "addr", cfg.RedisAddr)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if secret, err = randomSecret(); err != nil {
			return err
		}
		logger.Warn("JWT_SECRET is not set, using a random secret; tokens will not survive a restart")
	}
	tokens := auth.NewTokenService(secret, cfg.JWTExpire.Std())

	todoService := service.NewTodoService(store.todos)
	userService := service.NewUserService(store.users, tokens)

	// create router
	r := api.NewRouter(todoService, userService, tokens, api.Options{
		Logger:         logger,
		AccessLog:      accessLog,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout(),
		Production:     cfg.IsProduction(),
		TrustProxy:     cfg.TrustProxy,
		Version:        version,
		RateLimits: api.RateLimits{
			Store:     limitStore,
			Window:    cfg.RateLimitWindow,
			APIMax:    cfg.RateLimitAPIMax,
			AuthMax:   cfg.RateLimitAuthMax,
			CreateMax: cfg.RateLimitCreateMax,
		},
	})

	// create server
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr, "env", cfg.Env, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// wait for interrupt or a failed listener
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	// shutdown server gracefully
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func generateOpenAPI() error {
	// define only the output file flag
	output := flag.String("o", "openapi.json", "Output file path")
	flag.Parse()

	// the document only needs the route table, in-memory services will do
	tokens := auth.NewTokenService("openapi-gen", time.Hour)
	todoService := service.NewTodoService(repository.NewInMemoryTodoRepository())
	userService := service.NewUserService(repository.NewInMemoryUserRepository(), tokens)

	r := api.NewRouter(todoService, userService, tokens, api.Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version: version,
	})

	data, err := r.OpenAPIJSON()
	if err != nil {
		return fmt.Errorf("marshal openapi spec: %w", err)
	}

	// write to file
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return fmt.Errorf("write openapi spec to file '%s': %w", *output, err)
	}

	fmt.Printf("OpenAPI spec generated at %s\n", *output)
	return nil
}

func healthcheck() error {
	url := flag.String("url", "", "Health endpoint, defaults to http://localhost:$PORT/health")
	timeout := flag.Duration("timeout", 3*time.Second, "Request timeout")
	flag.Parse()

	if *url == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		*url = "http://localhost:" + port + "/health"
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(*url)
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck: %s returned %s", *url, resp.Status)
	}

	fmt.Println("OK")
	return nil
}
