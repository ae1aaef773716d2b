package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Options configures a Limiter
type Options struct {
	// Name namespaces the counters so limiters don't share windows
	Name string
	// Max is the number of requests allowed per window and client
	Max int64
	// Window is the fixed window length
	Window time.Duration
	// SkipSuccessfulRequests takes back hits for responses below 400
	SkipSuccessfulRequests bool
	// KeyFunc identifies the client; defaults to the remote IP
	KeyFunc func(r *http.Request) string
	// OnLimit writes the rejection; defaults to a plain 429
	OnLimit func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)
	Logger  *slog.Logger
}

// Limiter rejects clients that exceed Max requests per Window
type Limiter struct {
	store Store
	opts  Options
	now   func() time.Time
}

// New creates a limiter counting in store
func New(store Store, opts Options) *Limiter {
	if opts.KeyFunc == nil {
		opts.KeyFunc = ClientIP
	}
	if opts.OnLimit == nil {
		opts.OnLimit = func(w http.ResponseWriter, r *http.Request, _ time.Duration) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Limiter{store: store, opts: opts, now: time.Now}
}

// ClientIP returns the host part of the request's remote address
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder remembers the response status
type statusRecorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before writing it
func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

// Write records an implicit 200
func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap exposes the wrapped writer to http.ResponseController
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Middleware enforces the limit before calling next
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.opts.Name + ":" + l.opts.KeyFunc(r)

		count, resetAt, err := l.store.Increment(r.Context(), key, l.opts.Window)
		if err != nil {
			// fail open
			l.opts.Logger.Error("rate limit store", "limiter", l.opts.Name, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		resetIn := resetAt.Sub(l.now())
		if resetIn < 0 {
			resetIn = 0
		}
		remaining := l.opts.Max - count
		if remaining < 0 {
			remaining = 0
		}

		h := w.Header()
		h.Set("RateLimit-Limit", strconv.FormatInt(l.opts.Max, 10))
		h.Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("RateLimit-Reset", strconv.FormatInt(int64(math.Ceil(resetIn.Seconds())), 10))

		if count > l.opts.Max {
			h.Set("Retry-After", strconv.FormatInt(int64(math.Ceil(resetIn.Seconds())), 10))
			l.opts.OnLimit(w, r, resetIn)
			return
		}

		if !l.opts.SkipSuccessfulRequests {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 || rec.status < http.StatusBadRequest {
			if err := l.store.Decrement(r.Context(), key); err != nil {
				l.opts.Logger.Error("rate limit store", "limiter", l.opts.Name, "error", err)
			}
		}
	})
}
