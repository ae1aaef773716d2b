// package config loads the server configuration from the environment
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds every setting of the server
type Config struct {
	Port     int        `env:"PORT" envDefault:"3000"`
	Env      string     `env:"ENV" envDefault:"development"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is text or json
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	AccessLogPath string `env:"ACCESS_LOG_PATH"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"todo.db"`
	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DB" envDefault:"todoapp"`

	JWTSecret string   `env:"JWT_SECRET"`
	JWTExpire Duration `env:"JWT_EXPIRE" envDefault:"7d"`
	APIKey    string   `env:"API_KEY"`

	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	RequestTimeoutMS int           `env:"REQUEST_TIMEOUT_MS" envDefault:"10000"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// TrustProxy reads the client address from X-Forwarded-For / X-Real-IP
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	RedisAddr          string        `env:"REDIS_ADDR"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RateLimitAPIMax    int64         `env:"RATE_LIMIT_API_MAX" envDefault:"100"`
	RateLimitAuthMax   int64         `env:"RATE_LIMIT_AUTH_MAX" envDefault:"5"`
	RateLimitCreateMax int64         `env:"RATE_LIMIT_CREATE_MAX" envDefault:"20"`
}

// Load reads an optional .env file and then the process environment
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}

	for _, file := range dotenvFiles {
		// existing variables win over the file
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	return parse(env.Options{})
}

// parse decodes and validates the configuration
func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.AllowedOrigins = origins

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if !slices.Contains([]string{EnvDevelopment, EnvTest, EnvProduction}, c.Env) {
		errs = append(errs, fmt.Errorf("ENV must be development, test or production, got %q", c.Env))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if !slices.Contains([]string{DriverSQLite, DriverMongo, DriverMemory}, c.StorageDriver) {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be sqlite, mongo or memory, got %q", c.StorageDriver))
	}
	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.JWTExpire <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRE must be positive"))
	}
	if c.RequestTimeoutMS <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_MS must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimitAPIMax <= 0 || c.RateLimitAuthMax <= 0 || c.RateLimitCreateMax <= 0 {
		errs = append(errs, errors.New("rate limit maximums must be positive"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Addr is the listen address
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// RequestTimeout is the per request deadline
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Duration is a time.Duration that also accepts a day suffix ("7d") and a
// bare number of seconds
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q", s)
		}
		*d = Duration(time.Duration(n * float64(24*time.Hour)))
		return nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)

	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
