package retry

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{60, 30 * time.Second},
		{2000, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Backoff(tt.n); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestDelayJitterBounds(t *testing.T) {
	p := DefaultPolicy()

	for n := 0; n < 8; n++ {
		lo := p.Delay(n, 0, func() float64 { return 0 })
		hi := p.Delay(n, 0, func() float64 { return 0.999999 })
		base := p.Backoff(n)

		if lo != base {
			t.Errorf("n=%d: zero jitter delay = %v, want %v", n, lo, base)
		}
		if hi < lo {
			t.Errorf("n=%d: max jitter %v below min %v", n, hi, lo)
		}
		if hi > p.MaxDelay {
			t.Errorf("n=%d: delay %v exceeds max %v", n, hi, p.MaxDelay)
		}
		if limit := base + base/2; hi > limit {
			t.Errorf("n=%d: delay %v exceeds base+50%% %v", n, hi, limit)
		}
	}
}

func TestDelayMonotoneWithoutJitter(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}
	zero := func() float64 { return 0 }

	prev := time.Duration(0)
	for n := 0; n < 12; n++ {
		d := p.Delay(n, 0, zero)
		if d < prev {
			t.Errorf("Delay(%d) = %v decreased from %v", n, d, prev)
		}
		prev = d
	}
}

func TestDelayRetryAfter(t *testing.T) {
	p := DefaultPolicy()

	if got := p.Delay(3, 2*time.Second, nil); got != 2*time.Second {
		t.Errorf("Retry-After delay = %v, want 2s", got)
	}
	if got := p.Delay(0, time.Hour, nil); got != p.MaxDelay {
		t.Errorf("Retry-After above max = %v, want %v", got, p.MaxDelay)
	}
}

func TestDelayDefaultRandom(t *testing.T) {
	p := DefaultPolicy()
	for i := 0; i < 100; i++ {
		d := p.Delay(1, 0, nil)
		if d < 2*time.Second || d > 3*time.Second {
			t.Fatalf("Delay(1) = %v, want within [2s, 3s]", d)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"no retries", Policy{MaxAttempts: 0, BaseDelay: time.Second, MaxDelay: time.Second}, false},
		{"negative attempts", Policy{MaxAttempts: -1, BaseDelay: time.Second, MaxDelay: time.Second}, true},
		{"max below base", Policy{MaxAttempts: 1, BaseDelay: time.Minute, MaxDelay: time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
