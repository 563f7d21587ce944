package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name      string
		level     LogLevel
		logAt     func(l *zerolog.Logger) *zerolog.Event
		wantInLog bool
	}{
		{"info passes at info", LevelInfo, (*zerolog.Logger).Info, true},
		{"debug suppressed at info", LevelInfo, (*zerolog.Logger).Debug, false},
		{"debug passes at debug", LevelDebug, (*zerolog.Logger).Debug, true},
		{"info suppressed at warn", LevelWarn, (*zerolog.Logger).Info, false},
		{"warn passes at warn", LevelWarn, (*zerolog.Logger).Warn, true},
		{"error suppressed when off", LevelOff, (*zerolog.Logger).Error, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			tt.logAt(&logger).Msg("probe message")

			if got := strings.Contains(buf.String(), "probe message"); got != tt.wantInLog {
				t.Errorf("log contains message = %v, want %v (output %q)", got, tt.wantInLog, buf.String())
			}
		})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, ok := range []string{"debug", "warn", "OFF"} {
		if !ValidLevel(ok) {
			t.Errorf("ValidLevel(%q) = false", ok)
		}
	}
	if ValidLevel("loud") {
		t.Error("ValidLevel(loud) = true")
	}
}

func TestNewLogger_Component(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("analyzer")
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"analyzer"`) {
		t.Errorf("missing component field in %q", buf.String())
	}
}

func TestSetup_PrettyNoColor(t *testing.T) {
	tests := []struct {
		name     string
		noColor  bool
		wantANSI bool
	}{
		{"colored", false, true},
		{"no color", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: LevelInfo, Pretty: true, NoColor: tt.noColor, Output: buf})

			logger.Warn().Str("symbol", "btc").Msg("partial data")

			if !strings.Contains(buf.String(), "partial data") {
				t.Fatalf("message missing from %q", buf.String())
			}
			if got := strings.Contains(buf.String(), "\x1b["); got != tt.wantANSI {
				t.Errorf("ANSI present = %v, want %v (output %q)", got, tt.wantANSI, buf.String())
			}
		})
	}
}
