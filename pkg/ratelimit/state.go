// Package ratelimit paces requests to one upstream provider and remembers
// when that provider has told us to back off.
//
// It tracks three signals:
//   - a minimum interval between uncached requests (CoinGecko free tier)
//   - the used request weight reported in a response header (Binance)
//   - 429/418 responses with their Retry-After, which block the provider
package ratelimit

import (
	"time"
)

// Thresholds for weight-based decisions, as fractions of the weight limit.
const (
	// WeightThresholdCritical blocks requests until the weight window resets.
	WeightThresholdCritical = 0.95

	// WeightThresholdWarning throttles requests.
	WeightThresholdWarning = 0.80

	// WeightWindow is the length of the weight accounting window.
	WeightWindow = time.Minute
)

// State is a snapshot of one provider's rate limit state.
type State struct {
	// Provider is the upstream name.
	Provider string `json:"provider"`

	// UsedWeight is the last value of the weight header.
	UsedWeight int `json:"used_weight"`

	// WeightLimit is the per-window weight budget; 0 disables weight checks.
	WeightLimit int `json:"weight_limit"`

	// BlockedUntil is set after a 429/418 to the end of the Retry-After window.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when a response last updated this state.
	LastUpdate time.Time `json:"last_update"`
}

// WeightRatio returns UsedWeight / WeightLimit, or 0 without a limit.
func (s State) WeightRatio() float64 {
	if s.WeightLimit <= 0 {
		return 0
	}
	return float64(s.UsedWeight) / float64(s.WeightLimit)
}

// IsStale reports whether the weight reading is older than maxAge at now.
func (s State) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}

// IsBlocked reports whether a 429/418 window is still open at now.
func (s State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// NeedsCriticalBlock reports whether requests must stop at now.
func (s State) NeedsCriticalBlock(now time.Time) bool {
	if s.IsBlocked(now) {
		return true
	}
	return !s.IsStale(now, WeightWindow) && s.WeightRatio() >= WeightThresholdCritical
}

// NeedsThrottling reports whether requests should be slowed at now.
func (s State) NeedsThrottling(now time.Time) bool {
	if s.NeedsCriticalBlock(now) || s.IsStale(now, WeightWindow) {
		return false
	}
	return s.WeightRatio() >= WeightThresholdWarning
}

// TimeUntilReset returns how long until requests are allowed again at now.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	if s.IsBlocked(now) {
		return s.BlockedUntil.Sub(now)
	}
	if s.NeedsCriticalBlock(now) {
		reset := s.LastUpdate.Add(WeightWindow).Sub(now)
		if reset > 0 {
			return reset
		}
	}
	return 0
}

// IsHealthy reports whether the provider is neither blocked nor throttled.
func (s State) IsHealthy(now time.Time) bool {
	return !s.NeedsCriticalBlock(now) && !s.NeedsThrottling(now)
}
