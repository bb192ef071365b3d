package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"
)

// Config is a fixed-window limit.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

var (
	// DrawLimit allows 5 draws per minute per client.
	DrawLimit = Config{MaxRequests: 5, Window: time.Minute}
	// ChatLimit allows 20 chat turns per minute per client.
	ChatLimit = Config{MaxRequests: 20, Window: time.Minute}
)

// DrawKey and ChatKey build the per-route limiter keys.
func DrawKey(ip string) string { return "draw:" + ip }
func ChatKey(ip string) string { return "chat:" + ip }

// Result is the outcome of one Check. RetryAfter is in whole seconds and only
// set when Success is false.
type Result struct {
	Success    bool
	Remaining  int
	ResetTime  time.Time
	RetryAfter int
}

// Entry is the stored counter of one key.
type Entry struct {
	Count     int       `json:"count"`
	ResetTime time.Time `json:"resetTime"`
}

// Store persists counters. Entries may be dropped once their TTL passes.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const lockShards = 64

// Limiter is a fixed-window counter over an injected Store. Updates to the
// same key are serialised within the process.
type Limiter struct {
	store Store
	now   func() time.Time
	locks [lockShards]sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Check counts one request for key. It never blocks; the caller rejects the
// request when Success is false.
func (l *Limiter) Check(ctx context.Context, key string, cfg Config) (Result, error) {
	mu := l.lock(key)
	mu.Lock()
	defer mu.Unlock()

	now := l.now()
	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit get %s: %w", key, err)
	}

	if !ok || !now.Before(entry.ResetTime) {
		entry = Entry{Count: 1, ResetTime: now.Add(cfg.Window)}
		if err := l.store.Set(ctx, key, entry, cfg.Window); err != nil {
			return Result{}, fmt.Errorf("rate limit set %s: %w", key, err)
		}
		return Result{Success: true, Remaining: cfg.MaxRequests - 1, ResetTime: entry.ResetTime}, nil
	}

	if entry.Count >= cfg.MaxRequests {
		return Result{
			Success:    false,
			Remaining:  0,
			ResetTime:  entry.ResetTime,
			RetryAfter: int(math.Ceil(entry.ResetTime.Sub(now).Seconds())),
		}, nil
	}

	entry.Count++
	if err := l.store.Set(ctx, key, entry, entry.ResetTime.Sub(now)); err != nil {
		return Result{}, fmt.Errorf("rate limit set %s: %w", key, err)
	}
	return Result{Success: true, Remaining: cfg.MaxRequests - entry.Count, ResetTime: entry.ResetTime}, nil
}

// Reset forgets the counter of key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	mu := l.lock(key)
	mu.Lock()
	defer mu.Unlock()
	return l.store.Delete(ctx, key)
}

func (l *Limiter) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.locks[h.Sum32()%lockShards]
}
