package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microanalyst_rate_limit_blocks_total",
		Help: "Total number of requests refused because the provider is rate limited",
	}, []string{"provider"})

	rateLimitThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microanalyst_rate_limit_throttles_total",
		Help: "Total number of requests delayed because of high weight usage",
	}, []string{"provider"})

	upstreamWeightUsed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "microanalyst_upstream_weight_used",
		Help: "Last reported request weight used in the current window",
	}, []string{"provider"})
)

// ErrBlocked is returned by Wait while the provider is rate limited.
var ErrBlocked = errors.New("provider rate limited")

// BlockedError carries how long the caller should wait.
type BlockedError struct {
	Provider   string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %v for %s", e.Provider, ErrBlocked, e.RetryAfter.Round(time.Second))
}

// Unwrap returns ErrBlocked.
func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}

// Config configures a Tracker.
type Config struct {
	// MinInterval is the minimum spacing between requests. Zero disables pacing.
	MinInterval time.Duration

	// WeightHeader is the response header carrying used weight (optional).
	WeightHeader string

	// WeightLimit is the budget for WeightHeader per WeightWindow.
	WeightLimit int

	// ThrottleDelay is added before a request in the warning zone.
	ThrottleDelay time.Duration
}

// Tracker gates requests to one provider. It is safe for concurrent use.
type Tracker struct {
	provider string
	config   Config
	logger   zerolog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu    sync.Mutex
	state State
	next  time.Time
}

// NewTracker creates a new rate limit tracker for provider.
func NewTracker(provider string, cfg Config, logger zerolog.Logger) *Tracker {
	return &Tracker{
		provider: provider,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
		state: State{
			Provider:    provider,
			WeightLimit: cfg.WeightLimit,
		},
	}
}

// SetClock replaces the time source and sleeper (for testing).
func (t *Tracker) SetClock(now func() time.Time, sleep func(context.Context, time.Duration) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	t.sleep = sleep
}

// Provider returns the provider name.
func (t *Tracker) Provider() string {
	return t.provider
}

// GetState returns a copy of the current state.
func (t *Tracker) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until a request may be sent. It returns a *BlockedError without
// waiting when the provider is in a Retry-After window or over its weight
// budget, and ctx.Err() when cancelled while pacing.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	now := t.now()
	state := t.state
	sleep := t.sleep

	if state.NeedsCriticalBlock(now) {
		t.mu.Unlock()
		retryAfter := state.TimeUntilReset(now)
		rateLimitBlocksTotal.WithLabelValues(t.provider).Inc()
		t.logger.Warn().
			Str("provider", t.provider).
			Dur("retry_after", retryAfter).
			Msg("Request blocked by rate limiter")
		return &BlockedError{Provider: t.provider, RetryAfter: retryAfter}
	}

	// Reserve the next slot so concurrent callers queue up behind each other.
	slot := now
	if t.config.MinInterval > 0 {
		if t.next.After(slot) {
			slot = t.next
		}
		t.next = slot.Add(t.config.MinInterval)
	}
	delay := slot.Sub(now)

	if state.NeedsThrottling(now) && t.config.ThrottleDelay > 0 {
		delay += t.config.ThrottleDelay
		rateLimitThrottlesTotal.WithLabelValues(t.provider).Inc()
		t.logger.Debug().
			Str("provider", t.provider).
			Int("used_weight", state.UsedWeight).
			Msg("High weight usage, throttling request")
	}
	t.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	return sleep(ctx, delay)
}

// UpdateFromHeaders records the used weight reported by the provider.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	if t.config.WeightHeader == "" {
		return nil
	}
	raw := headers.Get(t.config.WeightHeader)
	if raw == "" {
		return nil
	}

	used, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.config.WeightHeader, err)
	}

	t.mu.Lock()
	t.state.UsedWeight = used
	t.state.LastUpdate = t.now()
	state := t.state
	t.mu.Unlock()

	upstreamWeightUsed.WithLabelValues(t.provider).Set(float64(used))

	if state.WeightRatio() >= WeightThresholdWarning {
		t.logger.Warn().
			Str("provider", t.provider).
			Int("used_weight", used).
			Int("weight_limit", state.WeightLimit).
			Msg("Request weight approaching limit")
	}
	return nil
}

// RecordRateLimited blocks the provider for retryAfter.
func (t *Tracker) RecordRateLimited(retryAfter time.Duration) {
	t.mu.Lock()
	now := t.now()
	until := now.Add(retryAfter)
	if until.After(t.state.BlockedUntil) {
		t.state.BlockedUntil = until
	}
	t.state.LastUpdate = now
	t.mu.Unlock()

	t.logger.Warn().
		Str("provider", t.provider).
		Dur("retry_after", retryAfter).
		Msg("Provider rate limit hit")
}

// ParseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
// It returns fallback when the header is missing or unparseable.
func ParseRetryAfter(headers http.Header, now time.Time, fallback time.Duration) time.Duration {
	raw := headers.Get("Retry-After")
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return fallback
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
