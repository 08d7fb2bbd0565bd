package power

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/log"
)

// Sysfs polls the Linux power-supply class. The device is constrained when
// it has a battery and no online mains adapter, or when the battery reports
// discharging.
type Sysfs struct {
	dir      string
	interval time.Duration

	mu          sync.Mutex
	constrained bool
	subs        subscribers
}

// NewSysfs creates a monitor reading dir (usually /sys/class/power_supply)
// and takes an initial sample.
func NewSysfs(dir string, interval time.Duration) *Sysfs {
	if dir == "" {
		dir = constants.PowerSupplyDir
	}
	if interval <= 0 {
		interval = constants.PowerPollInterval
	}
	s := &Sysfs{dir: dir, interval: interval}
	s.constrained = Sample(dir)
	return s
}

// Available reports whether dir looks like a power-supply class directory.
func Available(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func (s *Sysfs) Constrained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constrained
}

func (s *Sysfs) Subscribe(fn func(bool)) func() {
	return s.subs.add(fn)
}

// Poll takes one sample and notifies subscribers on a transition.
func (s *Sysfs) Poll() {
	next := Sample(s.dir)

	s.mu.Lock()
	changed := next != s.constrained
	s.constrained = next
	s.mu.Unlock()

	if changed {
		log.Debug("power state changed", "constrained", next)
		s.subs.notify(next)
	}
}

// Serve polls until ctx is done. It satisfies suture.Service.
func (s *Sysfs) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Poll()
		}
	}
}

func (s *Sysfs) String() string {
	return "power-monitor"
}

// Sample reads the power-supply directory once.
func Sample(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	var (
		hasBattery  bool
		discharging bool
		mainsOnline bool
	)
	for _, e := range entries {
		supply := filepath.Join(dir, e.Name())
		switch readAttr(supply, "type") {
		case "Mains", "USB":
			if readAttr(supply, "online") == "1" {
				mainsOnline = true
			}
		case "Battery":
			// Peripheral batteries (mice, headsets) report scope=Device.
			if readAttr(supply, "scope") == "Device" {
				continue
			}
			hasBattery = true
			if readAttr(supply, "status") == "Discharging" {
				discharging = true
			}
		}
	}

	if !hasBattery {
		return false
	}
	return discharging || !mainsOnline
}

func readAttr(supply, name string) string {
	data, err := os.ReadFile(filepath.Join(supply, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

var _ Monitor = (*Sysfs)(nil)
