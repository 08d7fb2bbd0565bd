// Package refresh runs the refresh cycle: it fans out every collection
// fetch, merges the results into a Snapshot and republishes it on a
// power-aware schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/spiffcs/vitals/internal/model"
)

// Fetcher drains complete collections for a date range.
// *oura.Client satisfies it.
type Fetcher interface {
	DrainReadiness(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.Readiness, error)
	DrainSleep(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.SleepSummary, error)
	DrainSleepPeriods(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.SleepPeriod, error)
	DrainHeartRate(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.HeartRateSample, error)
}

// ProgressFunc is called as fetches complete.
type ProgressFunc func(completed, total int)

// FetchResult holds the raw records of one cycle, in API order.
type FetchResult struct {
	TodayReadiness     []model.Readiness
	TodaySleep         []model.SleepSummary
	TodaySleepPeriods  []model.SleepPeriod
	ReadinessHistory   []model.Readiness
	SleepHistory       []model.SleepSummary
	SleepPeriodHistory []model.SleepPeriod
	HeartRate          []model.HeartRateSample
}

// TotalFetched returns the number of records across all fetches.
func (r *FetchResult) TotalFetched() int {
	return len(r.TodayReadiness) + len(r.TodaySleep) + len(r.TodaySleepPeriods) +
		len(r.ReadinessHistory) + len(r.SleepHistory) + len(r.SleepPeriodHistory) +
		len(r.HeartRate)
}

// totalFetches is the fan-out width of one cycle.
const totalFetches = 7

// FetchAll runs the seven fetches of a cycle concurrently. The first
// failure cancels the others and is returned; no partial result is
// returned on error.
func FetchAll(ctx context.Context, f Fetcher, tok *oauth2.Token, today, history model.DateRange, onProgress ProgressFunc) (*FetchResult, error) {
	var completed int32
	report := func() {
		if onProgress != nil {
			onProgress(int(atomic.AddInt32(&completed, 1)), totalFetches)
		}
	}
	if onProgress != nil {
		onProgress(0, totalFetches)
	}

	result := &FetchResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	// Today
	spawn(gctx, g, &mu, "today readiness", report, &result.TodayReadiness,
		func(ctx context.Context) ([]model.Readiness, error) { return f.DrainReadiness(ctx, today, tok) })
	spawn(gctx, g, &mu, "today sleep", report, &result.TodaySleep,
		func(ctx context.Context) ([]model.SleepSummary, error) { return f.DrainSleep(ctx, today, tok) })
	spawn(gctx, g, &mu, "today sleep periods", report, &result.TodaySleepPeriods,
		func(ctx context.Context) ([]model.SleepPeriod, error) { return f.DrainSleepPeriods(ctx, today, tok) })

	// History
	spawn(gctx, g, &mu, "readiness history", report, &result.ReadinessHistory,
		func(ctx context.Context) ([]model.Readiness, error) { return f.DrainReadiness(ctx, history, tok) })
	spawn(gctx, g, &mu, "sleep history", report, &result.SleepHistory,
		func(ctx context.Context) ([]model.SleepSummary, error) { return f.DrainSleep(ctx, history, tok) })
	spawn(gctx, g, &mu, "sleep period history", report, &result.SleepPeriodHistory,
		func(ctx context.Context) ([]model.SleepPeriod, error) { return f.DrainSleepPeriods(ctx, history, tok) })
	spawn(gctx, g, &mu, "heart rate history", report, &result.HeartRate,
		func(ctx context.Context) ([]model.HeartRateSample, error) { return f.DrainHeartRate(ctx, history, tok) })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func spawn[T any](ctx context.Context, g *errgroup.Group, mu *sync.Mutex, name string, report func(), dst *[]T, fetch func(context.Context) ([]T, error)) {
	g.Go(func() error {
		defer report()
		records, err := fetch(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		mu.Lock()
		*dst = records
		mu.Unlock()
		return nil
	})
}
