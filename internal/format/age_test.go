package format

import (
	"testing"
	"time"
)

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"zero", 0, "now"},
		{"59 seconds", 59 * time.Second, "now"},
		{"1 minute", time.Minute, "1m"},
		{"59 minutes", 59 * time.Minute, "59m"},
		{"1 hour", time.Hour, "1h"},
		{"23 hours", 23 * time.Hour, "23h"},
		{"1 day", 24 * time.Hour, "1d"},
		{"6 days", 6 * 24 * time.Hour, "6d"},
		{"7 days (1 week)", 7 * 24 * time.Hour, "1w"},
		{"30 days", 30 * 24 * time.Hour, "4w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatAge(tt.duration)
			if got != tt.expected {
				t.Errorf("FormatAge(%v) = %q, want %q", tt.duration, got, tt.expected)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	v := func(n int) *int { return &n }

	tests := []struct {
		name     string
		seconds  *int
		expected string
	}{
		{"missing", nil, "-"},
		{"zero", v(0), "0m"},
		{"minutes only", v(45 * 60), "45m"},
		{"full night", v(7*3600 + 5*60), "7h 05m"},
		{"rounds down seconds", v(8*3600 + 59), "8h 00m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSeconds(tt.seconds); got != tt.expected {
				t.Errorf("FormatSeconds() = %q, want %q", got, tt.expected)
			}
		})
	}
}
