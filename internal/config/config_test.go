package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	want := Config{
		Port:               3000,
		Env:                EnvDevelopment,
		LogLevel:           slog.LevelInfo,
		LogFormat:          "text",
		StorageDriver:      DriverSQLite,
		SQLitePath:         "todo.db",
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "todoapp",
		JWTExpire:          Duration(7 * 24 * time.Hour),
		AllowedOrigins:     []string{"http://localhost:3000"},
		RequestTimeoutMS:   10000,
		ShutdownTimeout:    10 * time.Second,
		RateLimitWindow:    15 * time.Minute,
		RateLimitAPIMax:    100,
		RateLimitAuthMax:   5,
		RateLimitCreateMax: 20,
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.IsProduction())
}

func TestParseOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := parse(env.Options{Environment: map[string]string{
		"PORT":               "8080",
		"ENV":                "Production",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "JSON",
		"STORAGE_DRIVER":     "mongo",
		"JWT_SECRET":         "s3cret",
		"JWT_EXPIRE":         "12h",
		"ALLOWED_ORIGINS":    "https://a.example, https://b.example,",
		"REQUEST_TIMEOUT_MS": "2500",
		"REDIS_ADDR":         "localhost:6379",
		"TRUST_PROXY":        "true",
	}})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DriverMongo, cfg.StorageDriver)
	assert.Equal(t, 12*time.Hour, cfg.JWTExpire.Std())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2500*time.Millisecond, cfg.RequestTimeout())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.TrustProxy)
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		environment map[string]string
		wantErr     string
	}{
		"port not a number": {
			environment: map[string]string{"PORT": "http"},
			wantErr:     "parse env:",
		},
		"port out of range": {
			environment: map[string]string{"PORT": "70000"},
			wantErr:     "PORT must be between 1 and 65535",
		},
		"unknown environment": {
			environment: map[string]string{"ENV": "staging"},
			wantErr:     "ENV must be development, test or production",
		},
		"unknown log format": {
			environment: map[string]string{"LOG_FORMAT": "xml"},
			wantErr:     "LOG_FORMAT must be text or json",
		},
		"unknown storage driver": {
			environment: map[string]string{"STORAGE_DRIVER": "postgres"},
			wantErr:     "STORAGE_DRIVER must be sqlite, mongo or memory",
		},
		"production without secret": {
			environment: map[string]string{"ENV": "production"},
			wantErr:     "JWT_SECRET is required in production",
		},
		"bad expiry": {
			environment: map[string]string{"JWT_EXPIRE": "soon"},
			wantErr:     "parse env:",
		},
		"zero rate limit": {
			environment: map[string]string{"RATE_LIMIT_AUTH_MAX": "0"},
			wantErr:     "rate limit maximums must be positive",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := parse(env.Options{Environment: tc.environment})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		"days":            {in: "7d", want: 7 * 24 * time.Hour},
		"fractional days": {in: "0.5d", want: 12 * time.Hour},
		"go duration":     {in: "90m", want: 90 * time.Minute},
		"seconds":         {in: "3600", want: time.Hour},
		"garbage":         {in: "week", wantErr: true},
		"bad days":        {in: "xd", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var d Duration
			err := d.UnmarshalText([]byte(tc.in))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Std())
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SQLITE_PATH=/tmp/from-dotenv.db\nMONGODB_DB=fromfile\n"), 0o600))

	// process environment wins over the file
	t.Setenv("MONGODB_DB", "fromenv")
	// restore the variable godotenv sets
	t.Setenv("SQLITE_PATH", "")
	require.NoError(t, os.Unsetenv("SQLITE_PATH"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-dotenv.db", cfg.SQLitePath)
	assert.Equal(t, "fromenv", cfg.MongoDatabase)
}

func TestLoadMissingDotenv(t *testing.T) {
	t.Setenv("PORT", "4000")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
}
