// Package middleware holds HTTP middleware shared by the API routes.
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter is a sliding-window request limiter keyed by client address.
// Assessment submission fans out into model calls, so it is throttled harder
// than read endpoints.
type Limiter struct {
	mu      sync.Mutex
	seen    map[string][]time.Time
	limit   int
	window  time.Duration
	stopped chan struct{}
}

// NewLimiter creates a limiter allowing limit requests per window per client.
func NewLimiter(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		seen:    make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		stopped: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-l.stopped:
				return
			case <-ticker.C:
				l.evictStale()
			}
		}
	}()

	return l
}

// Stop terminates the background eviction loop.
func (l *Limiter) Stop() {
	close(l.stopped)
}

// Allow records a request for key and reports whether it fits the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.withinWindow(l.seen[key], time.Now())
	if len(recent) >= l.limit {
		l.seen[key] = recent
		return false
	}
	l.seen[key] = append(recent, time.Now())
	return true
}

func (l *Limiter) withinWindow(times []time.Time, now time.Time) []time.Time {
	var valid []time.Time
	for _, t := range times {
		if now.Sub(t) < l.window {
			valid = append(valid, t)
		}
	}
	return valid
}

func (l *Limiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, times := range l.seen {
		valid := l.withinWindow(times, now)
		if len(valid) == 0 {
			delete(l.seen, key)
		} else {
			l.seen[key] = valid
		}
	}
}

// Throttle wraps a handler with per-client rate limiting.
func Throttle(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientKey(r)) {
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey strips the ephemeral port so one client maps to one bucket.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
