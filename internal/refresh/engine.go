package refresh

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spiffcs/vitals/internal/auth"
	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/metrics"
	"github.com/spiffcs/vitals/internal/model"
	"github.com/spiffcs/vitals/internal/oura"
	"github.com/spiffcs/vitals/internal/power"
)

// Cycle outcomes, used as metric labels.
const (
	OutcomeSuccess       = "success"
	OutcomeError         = "error"
	OutcomeNotConfigured = "not_configured"
	OutcomeCancelled     = "cancelled"
)

// Options configures an Engine.
type Options struct {
	Fetcher Fetcher
	Tokens  auth.Source
	// Power defaults to an unconstrained static monitor.
	Power power.Monitor
	// Interval is the configured refresh period; 0 means manual.
	Interval time.Duration
	// LookbackDays is one of constants.LookbackChoices.
	LookbackDays int

	// Now, AfterFunc and OnProgress are optional hooks for tests and CLI
	// progress output.
	Now        func() time.Time
	AfterFunc  AfterFunc
	OnProgress ProgressFunc
}

// Engine owns the snapshot and runs refresh cycles. At most one cycle runs
// at a time.
type Engine struct {
	fetcher    Fetcher
	tokens     auth.Source
	power      power.Monitor
	now        func() time.Time
	onProgress ProgressFunc
	sched      *Schedule

	running atomic.Bool

	mu       sync.Mutex
	snap     Snapshot
	lookback int

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int

	life       context.Context
	stopLife   context.CancelFunc
	lifeMu     sync.Mutex
	started    bool
	unsubPower func()
	wg         sync.WaitGroup
}

// ValidLookback reports whether days is a selectable history window.
func ValidLookback(days int) bool {
	return slices.Contains(constants.LookbackChoices, days)
}

// New creates a stopped engine.
func New(opts Options) (*Engine, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("refresh: fetcher is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("refresh: token source is required")
	}
	if opts.LookbackDays == 0 {
		opts.LookbackDays = constants.DefaultLookbackDays
	}
	if !ValidLookback(opts.LookbackDays) {
		return nil, fmt.Errorf("refresh: lookback must be one of %v days, got %d", constants.LookbackChoices, opts.LookbackDays)
	}
	if opts.Interval < 0 {
		return nil, errors.New("refresh: interval must not be negative")
	}
	if opts.Power == nil {
		opts.Power = power.NewStatic(false)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	life, stop := context.WithCancel(context.Background())
	e := &Engine{
		fetcher:    opts.Fetcher,
		tokens:     opts.Tokens,
		power:      opts.Power,
		now:        opts.Now,
		onProgress: opts.OnProgress,
		lookback:   opts.LookbackDays,
		subs:       make(map[int]chan Snapshot),
		life:       life,
		stopLife:   stop,
	}
	e.sched = NewSchedule(opts.Interval, opts.AfterFunc, e.onTimer)
	return e, nil
}

// Start arms the schedule, follows power transitions and kicks off an
// initial cycle in the background.
func (e *Engine) Start() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.started || e.life.Err() != nil {
		return
	}
	e.started = true

	e.sched.SetConstrained(e.power.Constrained())
	e.unsubPower = e.power.Subscribe(func(constrained bool) {
		log.Info("power state changed", "constrained", constrained)
		e.sched.SetConstrained(constrained)
	})
	e.sched.Start()
	log.Debug("refresh schedule started",
		"interval", e.sched.Interval(),
		"effective", e.sched.Effective(),
		"lookback_days", e.Lookback())

	e.refreshAsync()
}

// Stop cancels any running cycle, disarms the timer and waits for
// background cycles to finish. The engine cannot be restarted.
func (e *Engine) Stop() {
	e.lifeMu.Lock()
	e.stopLife()
	e.sched.Stop()
	if e.unsubPower != nil {
		e.unsubPower()
		e.unsubPower = nil
	}
	e.lifeMu.Unlock()

	e.wg.Wait()
}

// Serve runs the engine until ctx is done. It satisfies suture.Service.
func (e *Engine) Serve(ctx context.Context) error {
	e.Start()
	<-ctx.Done()
	e.Stop()
	return ctx.Err()
}

func (e *Engine) String() string {
	return "refresh-engine"
}

// RefreshNow runs one cycle and blocks until it ends. It returns false
// without doing anything when a cycle is already running or the engine has
// been stopped. Outcomes are reported through the snapshot, never returned.
func (e *Engine) RefreshNow(ctx context.Context) bool {
	if e.life.Err() != nil {
		return false
	}
	if !e.running.CompareAndSwap(false, true) {
		metrics.RefreshSkippedTotal.Inc()
		log.Debug("refresh already in progress")
		return false
	}
	defer e.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.life, cancel)
	defer stop()

	e.cycle(ctx)
	return true
}

// IsRefreshing reports whether a cycle is running.
func (e *Engine) IsRefreshing() bool {
	return e.running.Load()
}

func (e *Engine) refreshAsync() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.RefreshNow(e.life)
	}()
}

func (e *Engine) onTimer() {
	log.Debug("refresh timer fired")
	e.RefreshNow(e.life)
}

func (e *Engine) cycle(ctx context.Context) {
	start := time.Now()
	metrics.RefreshInProgress.Set(1)
	defer metrics.RefreshInProgress.Set(0)

	e.mu.Lock()
	prevErr := e.snap.LastError
	lookback := e.lookback
	e.snap.IsLoading = true
	e.snap.LastError = nil
	e.publishLocked()
	e.mu.Unlock()

	outcome := e.run(ctx, prevErr, lookback)
	metrics.RecordCycle(outcome, time.Since(start))
	log.Debug("refresh cycle finished", "outcome", outcome, "duration", time.Since(start).Round(time.Millisecond))
}

func (e *Engine) run(ctx context.Context, prevErr error, lookback int) string {
	tok, err := e.tokens.Token()
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			log.Debug("no credential configured, clearing snapshot")
			e.finish(func(s *Snapshot) { *s = Snapshot{} })
			return OutcomeNotConfigured
		}
		e.finish(func(s *Snapshot) { s.LastError = err })
		return OutcomeError
	}

	now := e.now()
	today := model.Today(now)
	history := model.LookBack(now, lookback)

	result, err := FetchAll(ctx, e.fetcher, tok, today, history, e.onProgress)
	if err != nil {
		if ctx.Err() != nil || oura.KindOf(err) == oura.KindCancelled {
			log.Debug("refresh cycle cancelled")
			e.finish(func(s *Snapshot) { s.LastError = prevErr })
			return OutcomeCancelled
		}
		log.Warn("refresh failed, keeping previous data", "error", err)
		e.finish(func(s *Snapshot) { s.LastError = err })
		return OutcomeError
	}

	fetchedAt := e.now()
	e.finish(func(s *Snapshot) { result.apply(s, fetchedAt) })
	log.Debug("refresh succeeded", "records", result.TotalFetched(), "range", history.String())
	return OutcomeSuccess
}

// finish applies fn, clears the loading flag and publishes in one step.
func (e *Engine) finish(fn func(s *Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.snap)
	e.snap.IsLoading = false
	e.publishLocked()
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.clone()
}

// Subscribe returns a channel that receives the current snapshot and every
// later one. Slow readers only see the latest value. Call the returned
// function to unsubscribe; the channel is then closed.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.mu.Lock()
	ch <- e.snap.clone()
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subMu.Unlock()
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
			close(ch)
		})
	}
}

// publishLocked sends the snapshot to every subscriber. e.mu must be held
// so publications are delivered in order.
func (e *Engine) publishLocked() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if len(e.subs) == 0 {
		return
	}
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- e.snap.clone()
	}
}

// SetInterval changes the configured period; 0 switches to manual.
func (e *Engine) SetInterval(d time.Duration) {
	e.sched.SetInterval(d)
	log.Debug("refresh interval changed", "interval", d, "effective", e.sched.Effective())
}

// Interval returns the configured period, 0 when manual.
func (e *Engine) Interval() time.Duration {
	return e.sched.Interval()
}

// EffectiveInterval returns the active timer period after power scaling.
func (e *Engine) EffectiveInterval() time.Duration {
	return e.sched.Effective()
}

// PowerConstrained reports the monitored power state.
func (e *Engine) PowerConstrained() bool {
	return e.power.Constrained()
}

// SetLookback changes the history window, restarts the timer and triggers
// an immediate cycle when the engine is running.
func (e *Engine) SetLookback(days int) error {
	if !ValidLookback(days) {
		return fmt.Errorf("lookback must be one of %v days, got %d", constants.LookbackChoices, days)
	}
	e.mu.Lock()
	e.lookback = days
	e.mu.Unlock()

	e.sched.Reset()
	log.Debug("lookback changed", "days", days)

	e.lifeMu.Lock()
	started := e.started && e.life.Err() == nil
	if started {
		e.refreshAsync()
	}
	e.lifeMu.Unlock()
	return nil
}

// Lookback returns the history window in days.
func (e *Engine) Lookback() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lookback
}
