// Package ratelimit throttles outbound requests per remote host.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a name for logging/debugging.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// New creates a new rate limiter with the given requests per second.
// The burst size equals the rate, allowing short bursts up to the rate limit.
// A non-positive rate disables limiting.
func New(name string, requestsPerSecond int) *Limiter {
	if requestsPerSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0), name: name}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows a request to proceed.
// Returns an error if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Allow reports whether a request can proceed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}

// HostLimiter keeps one Limiter per URL host so a slow image host does not
// throttle requests to unrelated hosts.
type HostLimiter struct {
	mu       sync.Mutex
	perHost  int
	limiters map[string]*Limiter
}

// NewHostLimiter allows requestsPerSecond requests to each host.
func NewHostLimiter(requestsPerSecond int) *HostLimiter {
	return &HostLimiter{
		perHost:  requestsPerSecond,
		limiters: make(map[string]*Limiter),
	}
}

// For returns the limiter for the host of rawURL.
func (h *HostLimiter) For(rawURL string) *Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)

	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = New(host, h.perHost)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until a request to rawURL's host may proceed. A nil
// HostLimiter never blocks.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}
	l := h.For(rawURL)
	if l.Allow() {
		return nil
	}
	slog.Debug("Waiting for host rate limit", "host", l.Name())
	return l.Wait(ctx)
}
