package duration

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
		want    time.Duration
	}{
		{"30s", false, 30 * time.Second},
		{"15m", false, 15 * time.Minute},
		{"1h", false, time.Hour},
		{"2hours", false, 2 * time.Hour},
		{"1d", false, 24 * time.Hour},
		{"0m", true, 0},
		{"5w", true, 0},
		{"invalid", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"manual", 0},
		{"MANUAL", 0},
		{"", 0},
		{"off", 0},
		{"15m", 15 * time.Minute},
		{" 30m ", 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInterval(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseInterval(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  string
	}{
		{0, "manual"},
		{-time.Minute, "manual"},
		{45 * time.Second, "45s"},
		{15 * time.Minute, "15m"},
		{2 * time.Hour, "2h"},
		{48 * time.Hour, "2d"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatInterval(tt.input); got != tt.want {
				t.Errorf("FormatInterval(%v) = %q, want %q", tt.input, got, tt.want)
			}
			if tt.input > 0 {
				back, err := ParseInterval(FormatInterval(tt.input))
				if err != nil || back != tt.input {
					t.Errorf("round trip of %v gave %v (err %v)", tt.input, back, err)
				}
			}
		})
	}
}
