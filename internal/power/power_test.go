package power

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStaticNotifiesOnTransition(t *testing.T) {
	m := NewStatic(false)

	var got []bool
	unsubscribe := m.Subscribe(func(c bool) { got = append(got, c) })

	m.Set(false) // no change
	m.Set(true)
	m.Set(true) // no change
	m.Set(false)

	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("transitions = %v, want [true false]", got)
	}

	unsubscribe()
	unsubscribe()
	m.Set(true)
	if len(got) != 2 {
		t.Errorf("expected no notification after unsubscribe, got %v", got)
	}
	if !m.Constrained() {
		t.Error("expected Constrained() to reflect the last Set")
	}
}

type supply struct {
	name  string
	attrs map[string]string
}

func writeSupplies(t *testing.T, dir string, supplies ...supply) {
	t.Helper()
	for _, s := range supplies {
		path := filepath.Join(dir, s.name)
		if err := os.MkdirAll(path, 0755); err != nil {
			t.Fatal(err)
		}
		for k, v := range s.attrs {
			if err := os.WriteFile(filepath.Join(path, k), []byte(v+"\n"), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestSample(t *testing.T) {
	ac := func(online string) supply {
		return supply{"AC", map[string]string{"type": "Mains", "online": online}}
	}
	bat := func(status string) supply {
		return supply{"BAT0", map[string]string{"type": "Battery", "status": status}}
	}
	mouse := supply{"hidpp_battery_0", map[string]string{"type": "Battery", "scope": "Device", "status": "Discharging"}}

	tests := []struct {
		name     string
		supplies []supply
		want     bool
	}{
		{"desktop without supplies", nil, false},
		{"desktop with wireless mouse", []supply{ac("1"), mouse}, false},
		{"laptop plugged in", []supply{ac("1"), bat("Charging")}, false},
		{"laptop full on AC", []supply{ac("1"), bat("Full")}, false},
		{"laptop on battery", []supply{ac("0"), bat("Discharging")}, true},
		{"battery without adapter entry", []supply{bat("Unknown")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSupplies(t, dir, tt.supplies...)
			if got := Sample(dir); got != tt.want {
				t.Errorf("Sample() = %v, want %v", got, tt.want)
			}
		})
	}

	if Sample(filepath.Join(t.TempDir(), "missing")) {
		t.Error("expected missing directory to be unconstrained")
	}
}

func TestSysfsPollNotifies(t *testing.T) {
	dir := t.TempDir()
	writeSupplies(t, dir,
		supply{"AC", map[string]string{"type": "Mains", "online": "1"}},
		supply{"BAT0", map[string]string{"type": "Battery", "status": "Charging"}},
	)

	m := NewSysfs(dir, time.Hour)
	if m.Constrained() {
		t.Fatal("expected unconstrained initial sample")
	}

	var got []bool
	m.Subscribe(func(c bool) { got = append(got, c) })

	writeSupplies(t, dir,
		supply{"AC", map[string]string{"online": "0"}},
		supply{"BAT0", map[string]string{"status": "Discharging"}},
	)
	m.Poll()
	m.Poll()

	if !m.Constrained() {
		t.Error("expected constrained after unplugging")
	}
	if len(got) != 1 || !got[0] {
		t.Errorf("transitions = %v, want [true]", got)
	}
}

func TestSysfsServeStopsOnCancel(t *testing.T) {
	m := NewSysfs(t.TempDir(), time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
