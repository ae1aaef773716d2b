// package ratelimit implements fixed window request limiting per client
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts hits per key inside a fixed window
type Store interface {
	// Increment records a hit and returns the count within the current window
	// and when that window resets
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)

	// Decrement takes back a previously recorded hit
	Decrement(ctx context.Context, key string) error
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// sweepThreshold is the number of keys above which expired windows are purged
const sweepThreshold = 10_000

// MemoryStore keeps counters in process memory
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Increment records a hit for key
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.entries) > sweepThreshold {
		for k, e := range s.entries {
			if !now.Before(e.resetAt) {
				delete(s.entries, k)
			}
		}
	}

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memoryEntry{resetAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++

	return e.count, e.resetAt, nil
}

// Decrement takes back a hit for key
func (s *MemoryStore) Decrement(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.count > 0 {
		e.count--
	}
	return nil
}

// incrementScript bumps the counter and starts the window on the first hit
var incrementScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// decrementScript lowers the counter only while the window is alive
var decrementScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return redis.call("DECR", KEYS[1])
end
return 0
`)

// RedisStore keeps counters in Redis so that several instances share limits
type RedisStore struct {
	rdb    redis.Scripter
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a store using rdb; keys are namespaced with prefix
func NewRedisStore(rdb redis.Scripter, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

// Increment records a hit for key
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	res, err := incrementScript.Run(ctx, s.rdb, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}

	count, ttl := res[0], res[1]
	if ttl < 0 {
		ttl = window.Milliseconds()
	}

	return count, s.now().Add(time.Duration(ttl) * time.Millisecond), nil
}

// Decrement takes back a hit for key
func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	return decrementScript.Run(ctx, s.rdb, []string{s.prefix + key}).Err()
}
