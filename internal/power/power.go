// Package power reports whether the device is running on constrained power
// (on battery or in a low-power mode).
package power

import (
	"sync"
)

// Monitor observes the device power state.
type Monitor interface {
	// Constrained reports the current state.
	Constrained() bool
	// Subscribe registers fn for state transitions and returns a function
	// that removes it. fn is not called for the current state.
	Subscribe(fn func(constrained bool)) (unsubscribe func())
}

// subscribers fans transitions out to registered callbacks.
type subscribers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(bool)
}

func (s *subscribers) add(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(bool))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify(constrained bool) {
	s.mu.Lock()
	fns := make([]func(bool), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(constrained)
	}
}

// Static is a Monitor whose state is set explicitly. It backs the
// "power_monitor: off" setting and tests.
type Static struct {
	mu          sync.Mutex
	constrained bool
	subs        subscribers
}

// NewStatic returns a monitor fixed at the given state until Set is called.
func NewStatic(constrained bool) *Static {
	return &Static{constrained: constrained}
}

func (s *Static) Constrained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constrained
}

func (s *Static) Subscribe(fn func(bool)) func() {
	return s.subs.add(fn)
}

// Set changes the state and notifies subscribers when it differs.
func (s *Static) Set(constrained bool) {
	s.mu.Lock()
	changed := s.constrained != constrained
	s.constrained = constrained
	s.mu.Unlock()

	if changed {
		s.subs.notify(constrained)
	}
}

var _ Monitor = (*Static)(nil)
