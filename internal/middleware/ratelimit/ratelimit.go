// Package ratelimit throttles API callers per client address using a fixed
// one-minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

// Limiter counts requests per client. The zero value is not usable; call
// NewLimiter and Stop when done.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time

	limit           int
	cleanupInterval time.Duration
	staleAfter      time.Duration

	hits         atomic.Int64
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type client struct {
	windowStart time.Time
	lastSeen    time.Time
	requests    int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter starts the background cleanup of idle clients.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Limiter{
		clients:         make(map[string]*client),
		now:             cfg.Now,
		limit:           cfg.RequestsPerMinute,
		cleanupInterval: cfg.CleanupInterval,
		staleAfter:      10 * window,
		stopCleanup:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records a request from key and reports whether it fits the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok || now.Sub(c.windowStart) >= window {
		l.clients[key] = &client{windowStart: now, lastSeen: now, requests: 1}
		return true
	}
	c.requests++
	c.lastSeen = now
	if c.requests > l.limit {
		l.hits.Add(1)
		return false
	}
	return true
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup drops clients idle for longer than staleAfter and returns how
// many were removed.
func (l *Limiter) cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.staleAfter)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Metrics for the readiness endpoint.
type Metrics struct {
	RejectedRequests int64 `json:"rejected_requests"`
	ActiveClients    int   `json:"active_clients"`
}

func (l *Limiter) Metrics() Metrics {
	return Metrics{RejectedRequests: l.hits.Load(), ActiveClients: l.ActiveClients()}
}

func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() { close(l.stopCleanup) })
}

// Middleware rejects over-limit requests. keyFn picks the client key and
// onLimit, when set, writes the rejection.
func (l *Limiter) Middleware(keyFn func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(keyFn(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
