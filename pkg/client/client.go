// Package client provides the HTTP client shared by the market-data
// providers, with response caching, request pacing and typed errors.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/JackSmack1971/microanalyst-tools/pkg/cache"
	"github.com/JackSmack1971/microanalyst-tools/pkg/ratelimit"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microanalyst_upstream_requests_total",
		Help: "Total upstream requests by provider and status",
	}, []string{"provider", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "microanalyst_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by provider",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microanalyst_upstream_errors_total",
		Help: "Total upstream errors by provider and kind",
	}, []string{"provider", "kind"})
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Config holds the client configuration.
type Config struct {
	// Provider names the upstream in keys, logs and metrics (e.g., "coingecko").
	Provider string

	// BaseURL is prefixed to every request path.
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// Retry controls the single retry on rate limiting.
	Retry RetryPolicy
}

// DefaultConfig returns a configuration with a 10s timeout and retries off.
func DefaultConfig(provider, baseURL string) Config {
	return Config{
		Provider:  provider,
		BaseURL:   baseURL,
		UserAgent: "microanalyst/1.0",
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryPolicy(),
	}
}

// Request describes one GET against the provider.
type Request struct {
	// Endpoint is the path template used for cache keys and logs (e.g., "/coins/{id}").
	Endpoint string

	// Path is the concrete request path; defaults to Endpoint.
	Path string

	// Symbol is the coin id or pair the request concerns.
	Symbol string

	// Params are the query parameters.
	Params url.Values

	// Category selects the cache TTL.
	Category cache.Category
}

// Client fetches JSON from one provider.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	ttl        cache.TTLPolicy
	limiter    *ratelimit.Tracker
	group      singleflight.Group
	config     Config
	logger     zerolog.Logger
	sleep      func(context.Context, time.Duration) error
}

// New creates a client. cacheManager and limiter may be nil.
func New(cfg Config, cacheManager *cache.Manager, ttl cache.TTLPolicy, limiter *ratelimit.Tracker) (*Client, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := log.With().Str("component", "client").Str("provider", cfg.Provider).Logger()

	if cacheManager == nil {
		cacheManager = cache.NewManager(nil)
	}
	if limiter == nil {
		limiter = ratelimit.NewTracker(cfg.Provider, ratelimit.Config{}, logger)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cacheManager,
		ttl:        ttl,
		limiter:    limiter,
		config:     cfg,
		logger:     logger,
		sleep:      sleepContext,
	}, nil
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return c.config.Provider
}

// GetJSON fetches req, decoding the body into out. cached reports whether the
// body came from the cache. Failures are *FetchError values.
func (c *Client) GetJSON(ctx context.Context, req Request, out any) (cached bool, err error) {
	key := cache.CacheKey{
		Provider: c.config.Provider,
		Endpoint: req.Endpoint,
		Symbol:   req.Symbol,
		Params:   req.Params,
	}

	if body, ok := c.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(body, out); err == nil {
			c.logger.Debug().
				Str("endpoint", req.Endpoint).
				Str("symbol", req.Symbol).
				Bool("cache_hit", true).
				Msg("Served from cache")
			recordTrace(ctx, true)
			return true, nil
		}
		// Cached body no longer decodes into out; refetch.
		_ = c.cache.Delete(ctx, key)
	}

	// The shared fetch outlives any single caller; the HTTP client timeout
	// bounds it instead.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		var body []byte
		err := retryOnRateLimit(fetchCtx, c.config.Retry, c.config.Provider, c.logger, c.sleep, func() error {
			b, err := c.fetch(fetchCtx, req)
			body = b
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(fetchCtx, key, body, c.ttl.For(req.Category)); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", req.Endpoint).Msg("Failed to cache response")
		}
		return body, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return false, c.fail(&FetchError{Kind: KindUnavailable, Endpoint: req.Endpoint, Err: ctx.Err()})
	}
	if res.Err != nil {
		return false, res.Err
	}
	v, shared := res.Val, res.Shared

	if err := json.Unmarshal(v.([]byte), out); err != nil {
		return false, c.fail(&FetchError{
			Kind:     KindUnavailable,
			Endpoint: req.Endpoint,
			Err:      fmt.Errorf("decode response: %w", err),
		})
	}

	c.logger.Debug().
		Str("endpoint", req.Endpoint).
		Str("symbol", req.Symbol).
		Bool("cache_hit", false).
		Bool("shared", shared).
		Msg("Fetched from upstream")
	recordTrace(ctx, false)
	return false, nil
}

// fetch performs one paced GET and returns the validated JSON body.
func (c *Client) fetch(ctx context.Context, req Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		var blocked *ratelimit.BlockedError
		if errors.As(err, &blocked) {
			return nil, c.fail(&FetchError{
				Kind:       KindRateLimited,
				Endpoint:   req.Endpoint,
				RetryAfter: blocked.RetryAfter,
				Err:        err,
			})
		}
		return nil, c.fail(&FetchError{Kind: KindUnavailable, Endpoint: req.Endpoint, Err: err})
	}

	path := req.Path
	if path == "" {
		path = req.Endpoint
	}
	target := c.config.BaseURL + path
	if len(req.Params) > 0 {
		target += "?" + req.Params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.fail(&FetchError{Kind: KindUnavailable, Endpoint: req.Endpoint, Err: err})
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	requestDuration.WithLabelValues(c.config.Provider).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(c.config.Provider, "network_error").Inc()
		return nil, c.fail(&FetchError{Kind: KindUnavailable, Endpoint: req.Endpoint, Err: err})
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(c.config.Provider, strconv.Itoa(resp.StatusCode)).Inc()

	if err := c.limiter.UpdateFromHeaders(resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if kind, failed := classifyStatus(resp.StatusCode); failed {
		fe := &FetchError{
			Kind:       kind,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New(snippet(body)),
		}
		if kind == KindRateLimited {
			fe.RetryAfter = ratelimit.ParseRetryAfter(resp.Header, time.Now(), c.config.Retry.DefaultWait)
			c.limiter.RecordRateLimited(fe.RetryAfter)
		}
		return nil, c.fail(fe)
	}

	if readErr != nil {
		return nil, c.fail(&FetchError{
			Kind:       KindUnavailable,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read body: %w", readErr),
		})
	}
	if !json.Valid(body) {
		return nil, c.fail(&FetchError{
			Kind:       KindUnavailable,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New("response is not valid JSON"),
		})
	}

	return body, nil
}

// fail stamps the provider, records metrics and logs the error.
func (c *Client) fail(fe *FetchError) *FetchError {
	fe.Provider = c.config.Provider
	errorsTotal.WithLabelValues(c.config.Provider, string(fe.Kind)).Inc()

	event := c.logger.Warn()
	if fe.Kind == KindNotFound {
		event = c.logger.Debug()
	}
	event.Err(fe.Err).
		Str("endpoint", fe.Endpoint).
		Int("status_code", fe.StatusCode).
		Str("error_kind", string(fe.Kind)).
		Msg("Upstream request failed")
	return fe
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSleep replaces the retry sleeper (for testing).
func (c *Client) SetSleep(sleep func(context.Context, time.Duration) error) {
	c.sleep = sleep
}

// GetCache returns the cache manager.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// Limiter returns the provider's rate limit tracker.
func (c *Client) Limiter() *ratelimit.Tracker {
	return c.limiter
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty response body"
	}
	return s
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
