// Package ratelimit throttles per-caller command throughput using
// golang.org/x/time/rate, the same limiter library the teacher wires one
// instance of per websocket Client in internal/handlers/chat_handler.go;
// here every user id gets one bucket, shared across all the groups they
// send in, instead of one bucket per connection.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

// DefaultRPS/DefaultBurst match the teacher's own per-client limiter
// constants in chat_handler.go.
const (
	DefaultRPS   = 5
	DefaultBurst = 10
)

// Limiter owns one token bucket per caller, created lazily on first use.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[ids.UserId]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func New(rps float64, burst int) *Limiter {
	return &Limiter{buckets: make(map[ids.UserId]*rate.Limiter), rps: rate.Limit(rps), burst: burst}
}

func NewDefault() *Limiter { return New(DefaultRPS, DefaultBurst) }

// Allow reports whether caller may issue another command right now,
// consuming a token if so.
func (l *Limiter) Allow(caller ids.UserId) bool {
	l.mu.Lock()
	b, ok := l.buckets[caller]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[caller] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// Forget drops caller's bucket, e.g. once they leave the group, so
// memory doesn't grow with every user who ever passed through.
func (l *Limiter) Forget(caller ids.UserId) {
	l.mu.Lock()
	delete(l.buckets, caller)
	l.mu.Unlock()
}
