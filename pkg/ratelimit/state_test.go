package ratelimit

import (
	"testing"
	"time"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestState_NeedsCriticalBlock(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{
			name:     "fresh state",
			state:    State{WeightLimit: 1200},
			expected: false,
		},
		{
			name:     "inside retry-after window",
			state:    State{BlockedUntil: base.Add(30 * time.Second)},
			expected: true,
		},
		{
			name:     "retry-after window elapsed",
			state:    State{BlockedUntil: base.Add(-time.Second)},
			expected: false,
		},
		{
			name:     "weight over critical threshold",
			state:    State{UsedWeight: 1150, WeightLimit: 1200, LastUpdate: base},
			expected: true,
		},
		{
			name:     "weight reading is stale",
			state:    State{UsedWeight: 1150, WeightLimit: 1200, LastUpdate: base.Add(-2 * time.Minute)},
			expected: false,
		},
		{
			name:     "no weight limit",
			state:    State{UsedWeight: 99999, LastUpdate: base},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.NeedsCriticalBlock(base); got != tt.expected {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_NeedsThrottling(t *testing.T) {
	tests := []struct {
		name     string
		used     int
		expected bool
	}{
		{"healthy", 100, false},
		{"warning zone", 1000, true},
		{"critical is a block, not a throttle", 1190, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{UsedWeight: tt.used, WeightLimit: 1200, LastUpdate: base}
			if got := s.NeedsThrottling(base); got != tt.expected {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected time.Duration
	}{
		{"healthy", State{}, 0},
		{"blocked", State{BlockedUntil: base.Add(45 * time.Second)}, 45 * time.Second},
		{
			name:     "weight critical resets with the window",
			state:    State{UsedWeight: 1200, WeightLimit: 1200, LastUpdate: base.Add(-20 * time.Second)},
			expected: 40 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.TimeUntilReset(base); got != tt.expected {
				t.Errorf("TimeUntilReset() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsHealthy(t *testing.T) {
	if !(State{}).IsHealthy(base) {
		t.Error("zero state should be healthy")
	}
	if (State{BlockedUntil: base.Add(time.Minute)}).IsHealthy(base) {
		t.Error("blocked state should not be healthy")
	}
}
