// Package probe checks that a cover URL answers with an image.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/ebookgrid/internal/cache"
	"github.com/lepinkainen/ebookgrid/internal/httpclient"
	"github.com/lepinkainen/ebookgrid/internal/ratelimit"
)

const (
	// DefaultTTL is how long a successful probe stays cached.
	DefaultTTL = 24 * time.Hour
	// DefaultRatePerHost is the number of probes per second sent to one host.
	DefaultRatePerHost = 4
)

// Result is the outcome of probing one URL.
type Result struct {
	OK          bool   `json:"ok"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Reason      string `json:"reason,omitempty"`
}

// Prober issues HEAD requests (GET when HEAD is refused) against cover URLs.
type Prober struct {
	client  httpclient.Doer
	limiter *ratelimit.HostLimiter
	cache   *cache.CacheDB
	ttl     time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithCache stores successful results in db for ttl.
func WithCache(db *cache.CacheDB, ttl time.Duration) Option {
	return func(p *Prober) {
		p.cache = db
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithRate overrides the per-host request rate. Non-positive disables limiting.
func WithRate(requestsPerSecond int) Option {
	return func(p *Prober) {
		p.limiter = ratelimit.NewHostLimiter(requestsPerSecond)
	}
}

// New creates a Prober using client for requests.
func New(client httpclient.Doer, opts ...Option) *Prober {
	p := &Prober{
		client:  client,
		limiter: ratelimit.NewHostLimiter(DefaultRatePerHost),
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe checks rawURL. Network failures and bad answers are reported in the
// Result; the error is only set when ctx is done.
func (p *Prober) Probe(ctx context.Context, rawURL string) (Result, error) {
	result, fromCache, err := cache.GetOrFetchWithPolicy(p.cache, cache.ProbeCacheTable, rawURL, p.ttl,
		func() (Result, error) {
			return p.probe(ctx, rawURL)
		},
		func(r Result) bool { return r.OK },
	)
	if err != nil {
		return Result{}, err
	}
	if fromCache {
		slog.Debug("Probe result from cache", "url", rawURL)
	}
	return result, nil
}

func (p *Prober) probe(ctx context.Context, rawURL string) (Result, error) {
	if err := p.limiter.Wait(ctx, rawURL); err != nil {
		return Result{}, err
	}

	resp, err := p.do(ctx, http.MethodHead, rawURL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		slog.Debug("HEAD refused, retrying with GET", "url", rawURL, "status", resp.StatusCode)
		resp, err = p.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{Reason: err.Error()}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	return evaluate(resp), nil
}

func (p *Prober) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet {
		// Range may be ignored; drain only a little before closing.
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
	}
	return resp, nil
}

func evaluate(resp *http.Response) Result {
	contentType := resp.Header.Get("Content-Type")
	result := Result{Status: resp.StatusCode, ContentType: contentType}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Reason = fmt.Sprintf("HTTP %s", statusText(resp))
		return result
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		if contentType == "" {
			result.Reason = "no content type"
		} else {
			result.Reason = fmt.Sprintf("content type %s is not an image", contentType)
		}
		return result
	}

	result.OK = true
	return result
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
