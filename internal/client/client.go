package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

const maxResponseBytes = 8 << 20

// Config carries the connection settings for the catalog API.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// RequestOptions are the request inputs that take part in de-duplication.
type RequestOptions struct {
	Query url.Values
}

func (o RequestOptions) encode() string {
	if len(o.Query) == 0 {
		return ""
	}
	return o.Query.Encode()
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(doer interfaces.HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithCache sets the response cache. A nil cache disables caching.
func WithCache(cache interfaces.CacheProvider) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// Client is the caching catalog API client. Responses are cached per logical
// key with a TTL and concurrent identical requests share one network call.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	http    interfaces.HTTPDoer
	cache   interfaces.CacheProvider
	logger  interfaces.Logger
	sleep   Sleeper
	flights singleflight.Group
}

// New constructs a client. Zero durations fall back to a 10s timeout and 1s backoff.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		http:       http.DefaultClient,
		logger:     logging.NoOp(),
		sleep:      sleepContext,
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.backoff <= 0 {
		c.backoff = time.Second
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasAPIKey reports whether credentials were configured.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// FetchCached returns the raw JSON body for endpoint. A valid cache entry under
// cacheKey short-circuits the network; otherwise the request joins any
// identical in-flight request or starts a new one, and a successful body is
// cached for ttl.
func (c *Client) FetchCached(ctx context.Context, cacheKey, endpoint string, ttl time.Duration, opts RequestOptions) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, configError(ErrMissingAPIKey)
	}
	if c.cache != nil && cacheKey != "" {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
			if body, ok := cached.(json.RawMessage); ok {
				c.logger.Trace("client.cache.hit", "key", cacheKey)
				return body, nil
			}
		}
	}

	flightKey := http.MethodGet + " " + endpoint + "?" + opts.encode()
	// The flight runs detached from the first caller so its cancellation does
	// not fail the other callers sharing the result.
	detached := context.WithoutCancel(ctx)
	result := c.flights.DoChan(flightKey, func() (any, error) {
		body, err := c.fetch(detached, endpoint, opts)
		if err != nil {
			return nil, err
		}
		if c.cache != nil && cacheKey != "" && ttl > 0 {
			if err := c.cache.Set(detached, cacheKey, body, ttl); err != nil {
				c.logger.Warn("client.cache.set_failed", "key", cacheKey, "error", err)
			}
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

// Invalidate drops cached entries whose key starts with prefix. Providers
// without prefix support are cleared entirely.
func (c *Client) Invalidate(ctx context.Context, prefix string) error {
	if c.cache == nil {
		return nil
	}
	if invalidator, ok := c.cache.(interfaces.PrefixInvalidator); ok {
		return invalidator.DeleteByPrefix(ctx, prefix)
	}
	return c.cache.Clear(ctx)
}

// Clear drops every cached response.
func (c *Client) Clear(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear(ctx)
}

// BackoffDelay returns the wait before retry n (1-based): base * 2^(n-1).
func BackoffDelay(base time.Duration, retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return base * time.Duration(1<<uint(retry-1))
}

func (c *Client) fetch(ctx context.Context, endpoint string, opts RequestOptions) (json.RawMessage, error) {
	var last *Error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := BackoffDelay(c.backoff, attempt)
			c.logger.Warn("client.retry",
				"endpoint", endpoint,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"backoff_ms", delay.Milliseconds(),
				"error", last,
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, last
			}
		}

		body, err := c.attempt(ctx, endpoint, opts)
		if err == nil {
			return body, nil
		}
		err.Attempts = attempt + 1
		last = err
		if !err.Retryable() || attempt >= c.maxRetries {
			c.logger.Debug("client.request.failed", "endpoint", endpoint, "code", err.Code, "status", err.Status)
			return nil, err
		}
	}
}

func (c *Client) attempt(ctx context.Context, endpoint string, opts RequestOptions) (json.RawMessage, *Error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + endpoint
	if query := opts.encode(); query != "" {
		target += "?" + query
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, configError(fmt.Errorf("client: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError(err)
		}
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError(err)
		}
		return nil, networkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError(resp.StatusCode, body)
	}
	return json.RawMessage(body), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
