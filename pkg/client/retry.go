package client

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "microanalyst_upstream_retries_total",
	Help: "Total number of rate-limit retries by provider",
}, []string{"provider"})

// RetryPolicy controls the single wait-and-retry on rate limiting.
type RetryPolicy struct {
	// Enabled turns the retry on. Off by default.
	Enabled bool

	// DefaultWait is used when the provider sends no Retry-After.
	DefaultWait time.Duration

	// MaxWait caps the wait; longer Retry-After values are not retried.
	MaxWait time.Duration
}

// DefaultRetryPolicy returns the disabled policy with a 60s default wait.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Enabled:     false,
		DefaultWait: 60 * time.Second,
		MaxWait:     90 * time.Second,
	}
}

// retryOnRateLimit runs fn and, if it fails with a retryable rate limit,
// waits out Retry-After once and runs it again.
func retryOnRateLimit(ctx context.Context, policy RetryPolicy, provider string, logger zerolog.Logger,
	sleep func(context.Context, time.Duration) error, fn func() error) error {
	err := fn()
	if err == nil || !policy.Enabled {
		return err
	}

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindRateLimited || fe.StatusCode == 418 {
		return err
	}

	wait := fe.RetryAfter
	if wait <= 0 {
		wait = policy.DefaultWait
	}
	if policy.MaxWait > 0 && wait > policy.MaxWait {
		logger.Warn().
			Str("provider", provider).
			Dur("retry_after", wait).
			Msg("Retry-After exceeds max wait, not retrying")
		return err
	}

	retriesTotal.WithLabelValues(provider).Inc()
	logger.Info().
		Str("provider", provider).
		Dur("wait", wait).
		Msg("Rate limited, waiting before single retry")

	if sleepErr := sleep(ctx, wait); sleepErr != nil {
		return err
	}
	return fn()
}
