// package api provides middleware handlers for HTTP routing
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"

	"github.com/Irene-03/todo-list-app/internal/auth"
	"github.com/Irene-03/todo-list-app/internal/logging"
	"github.com/Irene-03/todo-list-app/internal/model"
	"github.com/Irene-03/todo-list-app/internal/repository"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	bytes       int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write counts the body bytes
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Unwrap exposes the wrapped writer to http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// loggerMiddleware logs every request and appends it to the access log
func loggerMiddleware(logger *slog.Logger, access *logging.AccessLog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap the response writer to capture the status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.statusCode),
				slog.String("duration", duration.String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("remote_ip", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)

			if access == nil {
				return
			}
			err := access.Write(logging.AccessEntry{
				Time:       start,
				RemoteAddr: r.RemoteAddr,
				Method:     r.Method,
				URI:        r.RequestURI,
				Proto:      r.Proto,
				Status:     ww.statusCode,
				Bytes:      ww.bytes,
				Referer:    r.Referer(),
				UserAgent:  r.UserAgent(),
			})
			if err != nil {
				logger.Error("write access log", "error", err)
			}
		})
	}
}

// recovererMiddleware recovers from panics and logs the error
func recovererMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("recovered from panic",
						"error", fmt.Sprintf("%v", err),
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)

					writeError(w, msgInternal, http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// secureMiddleware sets the security headers
func secureMiddleware(production bool) func(http.Handler) http.Handler {
	return secure.New(secure.Options{
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "no-referrer",
		STSSeconds:           15552000,
		STSIncludeSubdomains: true,
		IsDevelopment:        !production,
	}).Handler
}

// corsMiddleware allows the configured origins with credentials
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-KEY", "X-Request-Id"},
		ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// timeoutMiddleware bounds the request context. Handlers that notice the
// deadline answer 503 themselves; silent ones get the 503 here.
func timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(ctx))

			if !ww.wroteHeader && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				writeError(w, msgRequestTimeout, http.StatusServiceUnavailable)
			}
		})
	}
}

// apiKeyGuard requires the X-API-KEY header when a key is configured
type apiKeyGuard struct {
	key    string
	logger *slog.Logger
	warn   sync.Once
}

// Middleware checks the header
func (g *apiKeyGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.key == "" {
			g.warn.Do(func() {
				g.logger.Warn("API_KEY is not set, API key validation skipped")
			})
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get("X-API-KEY")
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(g.key)) != 1 {
			writeError(w, msgInvalidAPIKey, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TokenParser verifies bearer tokens
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// UserLookup loads the user a token was issued to
type UserLookup interface {
	GetUser(ctx context.Context, id string) (model.User, error)
}

// authenticate requires a valid bearer token and puts its user in the context
func authenticate(tokens TokenParser, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, _ := strings.Cut(r.Header.Get("Authorization"), " ")
			token = strings.TrimSpace(token)
			if !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, msgNoToken, http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(token)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				writeError(w, msgExpiredToken, http.StatusUnauthorized)
				return
			case err != nil:
				writeError(w, msgInvalidToken, http.StatusUnauthorized)
				return
			}

			user, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					writeError(w, msgTokenUserNotFound, http.StatusUnauthorized)
					return
				}
				writeServiceError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
		})
	}
}

// notFoundHandler answers every unmatched route
func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeErrorBody(w, model.ErrorBody{
		Message: msgRouteNotFound,
		Status:  http.StatusNotFound,
		Path:    r.URL.RequestURI(),
		Method:  r.Method,
	})
}
