// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves remote documents through the response cache.
// A Get is served from the cache when a current entry exists; otherwise the
// URL is requested, retried once without delay on a transient transfer
// failure, and the body is stored before it is returned.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/inspireq/internal/cache"
	"github.com/pdiddy/inspireq/internal/httputil"
	"github.com/pdiddy/inspireq/internal/logging"
	"github.com/pdiddy/inspireq/pkg/types"
)

// maxAttempts bounds requests per Get for transient failures.
const maxAttempts = 2

// Fetcher is a cache-first HTTP GET client. The zero value is not usable;
// construct with New.
type Fetcher struct {
	Client    *http.Client
	Cache     *cache.Cache  // nil disables caching
	Limiter   *rate.Limiter // nil disables pacing
	UserAgent string

	// Update bypasses cache lookups; fresh responses are still stored.
	Update bool

	// MaxRetries bounds HTTP 429 retries (0 uses the httputil default).
	MaxRetries int
}

// New builds a Fetcher from configuration. c may be nil.
func New(cfg types.Config, c *cache.Cache) *Fetcher {
	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	ua := cfg.HTTP.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	f := &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		Cache:     c,
		UserAgent: ua,
		Update:    cfg.Update,
	}
	if cfg.HTTP.RequestsPerSecond > 0 {
		f.Limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.RequestsPerSecond), 1)
	}
	return f
}

// WithCache returns a copy of f that reads and writes c.
func (f *Fetcher) WithCache(c *cache.Cache) *Fetcher {
	cp := *f
	cp.Cache = c
	return &cp
}

// Get returns the body of rawURL.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	if f.Cache != nil && !f.Update {
		if body, ok := f.Cache.Lookup(rawURL); ok {
			CacheServed.Inc()
			return body, nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := f.request(ctx, rawURL)
		if err == nil {
			Requests.WithLabelValues("ok").Inc()
			f.store(rawURL, body)
			return body, nil
		}

		var se *StatusError
		if errors.As(err, &se) {
			Requests.WithLabelValues("status").Inc()
			return nil, err
		}
		Requests.WithLabelValues("transport").Inc()
		lastErr = err

		if ctx.Err() != nil || !httputil.IsTransient(err) {
			return nil, &TransportError{URL: rawURL, Attempts: attempt, Err: err}
		}
		if attempt < maxAttempts {
			Retries.Inc()
			f.logger().Warn().Str("url", rawURL).Int("attempt", attempt).Err(err).Msg("transfer interrupted, retrying")
		}
	}
	return nil, &TransportError{URL: rawURL, Attempts: maxAttempts, Err: lastErr}
}

func (f *Fetcher) request(ctx context.Context, rawURL string) ([]byte, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	defer func() { RequestDuration.Observe(time.Since(start).Seconds()) }()

	f.logger().Debug().Str("url", rawURL).Msg("requesting")
	resp, err := httputil.DoWithRetry(ctx, client, req, f.MaxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func (f *Fetcher) store(rawURL string, body []byte) {
	if f.Cache == nil {
		return
	}
	if err := f.Cache.Store(rawURL, body); err != nil {
		f.logger().Warn().Str("url", rawURL).Err(err).Msg("caching response")
	}
}

func (f *Fetcher) logger() *zerolog.Logger {
	l := logging.NewLogger("fetch")
	return &l
}
