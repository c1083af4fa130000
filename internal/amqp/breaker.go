package amqp

import (
	"errors"
	"sync"
	"time"
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker stops publishing after maxFailures consecutive failures. Once
// openTimeout has passed it lets publishes through again; a failure while
// half-open reopens it immediately.
type breaker struct {
	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

func (b *breaker) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != breakerOpen {
		return true
	}
	if b.clock().Sub(b.openedAt) >= openTimeout {
		b.state = breakerHalfOpen
		return true
	}
	return false
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= maxFailures || b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = b.clock()
	}
}
