package refresh

import (
	"sync"
	"time"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/metrics"
)

// Timer is the handle returned by AfterFunc. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc arms a one-shot timer.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Schedule keeps exactly one timer armed for the effective interval.
// Each re-arm bumps a generation counter so a callback from a replaced
// timer that already fired never runs or re-arms.
type Schedule struct {
	afterFunc AfterFunc
	fire      func()

	mu          sync.Mutex
	interval    time.Duration
	constrained bool
	running     bool
	timer       Timer
	gen         uint64
}

// NewSchedule creates a stopped schedule. interval 0 means manual.
func NewSchedule(interval time.Duration, afterFunc AfterFunc, fire func()) *Schedule {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Schedule{
		afterFunc: afterFunc,
		fire:      fire,
		interval:  interval,
	}
}

// Effective returns the current timer period, 0 when manual.
func (s *Schedule) Effective() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked()
}

func (s *Schedule) effectiveLocked() time.Duration {
	if s.interval <= 0 {
		return 0
	}
	if s.constrained {
		return s.interval * constants.PowerConstrainedFactor
	}
	return s.interval
}

// Interval returns the configured period, 0 when manual.
func (s *Schedule) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Start arms the timer.
func (s *Schedule) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.rearmLocked()
}

// Stop disarms the timer. Pending callbacks become no-ops.
func (s *Schedule) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.rearmLocked()
}

// SetInterval changes the configured period and restarts the timer.
func (s *Schedule) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	s.rearmLocked()
}

// SetConstrained records a power transition and restarts the timer when
// the state changed.
func (s *Schedule) SetConstrained(constrained bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.constrained == constrained {
		return
	}
	s.constrained = constrained
	s.rearmLocked()
}

// Reset restarts the current period from now.
func (s *Schedule) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rearmLocked()
}

func (s *Schedule) rearmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++

	eff := s.effectiveLocked()
	metrics.SetSchedule(eff, s.constrained)
	if !s.running || eff == 0 {
		return
	}

	gen := s.gen
	s.timer = s.afterFunc(eff, func() { s.onFire(gen) })
}

func (s *Schedule) onFire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.running {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if s.fire != nil {
		s.fire()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A reschedule during the cycle already armed a replacement.
	if gen == s.gen && s.running {
		s.rearmLocked()
	}
}
