// Package ratelimit throttles write requests per client with a token bucket.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const idleTTL = 10 * time.Minute

// Limiter is a per-client token bucket holding RequestsPerMinute tokens and
// refilling one token every minute/RequestsPerMinute. It is kept as a GCRA
// theoretical arrival time so all arithmetic stays in whole nanoseconds.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	interval time.Duration // refill period of one token
	burst    time.Duration // interval * capacity
	methods  map[string]bool
	sweep    time.Duration

	rejected int64
	done     chan struct{}
	stopOnce sync.Once
}

// bucket is empty until tat-burst and full from tat on.
type bucket struct {
	tat time.Time
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods limits which HTTP methods are counted. Empty means all.
	Methods []string
}

// DefaultConfig limits the mutating methods to 60 requests per minute.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
	}
}

// NewLimiter starts the idle-bucket sweeper. Call Stop to release it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		buckets:  make(map[string]*bucket),
		now:      time.Now,
		interval: time.Minute / time.Duration(cfg.RequestsPerMinute),
		sweep:    cfg.CleanupInterval,
		done:     make(chan struct{}),
	}
	if len(cfg.Methods) > 0 {
		l.methods = make(map[string]bool, len(cfg.Methods))
		for _, m := range cfg.Methods {
			l.methods[m] = true
		}
	}
	l.burst = l.interval * time.Duration(cfg.RequestsPerMinute)
	go l.sweepLoop()
	return l
}

// Take spends one token for client. When the bucket is empty it returns false
// and how long until a token is available.
func (l *Limiter) Take(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{tat: now}
		l.buckets[client] = b
	}

	tat := b.tat
	if tat.Before(now) {
		tat = now
	}
	next := tat.Add(l.interval)
	if allowAt := next.Add(-l.burst); now.Before(allowAt) {
		atomic.AddInt64(&l.rejected, 1)
		return false, allowAt.Sub(now)
	}
	b.tat = next
	return true, 0
}

// Counts reports whether requests with method draw from the bucket.
func (l *Limiter) Counts(method string) bool {
	return l.methods == nil || l.methods[method]
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.sweep)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.dropIdle()
		case <-l.done:
			return
		}
	}
}

// dropIdle forgets clients whose bucket has been full for idleTTL.
func (l *Limiter) dropIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idleTTL)
	for client, b := range l.buckets {
		if b.tat.Before(cutoff) {
			delete(l.buckets, client)
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&l.rejected),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware answers 429 with Retry-After in whole seconds once the client's
// bucket is empty. onLimit, when set, writes the response body.
func (l *Limiter) Middleware(clientOf func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Counts(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := l.Take(clientOf(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			if onLimit == nil {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
