package provider

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestInterval spaces out requests to the same service.
const DefaultRequestInterval = 100 * time.Millisecond

// Limiter enforces a minimum interval between requests. One limiter is
// shared by every provider that talks to the same host.
type Limiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Wait blocks until a request can be made.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l == nil || l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	nextAllowed := l.lastRequest.Add(l.interval)

	if now.Before(nextAllowed) {
		timer := time.NewTimer(nextAllowed.Sub(now))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.lastRequest = time.Now()
	return nil
}
