package refresh

import (
	"cmp"
	"slices"
	"time"

	"github.com/spiffcs/vitals/internal/model"
)

// latest returns the chronologically last record, ordering by day and then
// by timestamp. Records that compare equal keep API order, so the later one
// in the slice wins.
func latest[T model.Record](records []T) *T {
	if len(records) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(records); i++ {
		if compareRecords(records[i], records[best]) >= 0 {
			best = i
		}
	}
	r := records[best]
	return &r
}

func compareRecords[T model.Record](a, b T) int {
	if c := cmp.Compare(a.RecordDay(), b.RecordDay()); c != 0 {
		return c
	}
	return a.RecordTime().Compare(b.RecordTime())
}

// latestSleepPeriod prefers the last long_sleep period and falls back to
// the last period of any type.
func latestSleepPeriod(periods []model.SleepPeriod) *model.SleepPeriod {
	if p := latest(longSleepOnly(periods)); p != nil {
		return p
	}
	return latest(periods)
}

// sortByDay returns a copy sorted ascending by day. Same-day records keep
// API order.
func sortByDay[T model.Record](records []T) []T {
	out := make([]T, len(records))
	copy(out, records)
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(a.RecordDay(), b.RecordDay())
	})
	return out
}

// longSleepOnly drops naps, rest periods and deleted entries.
func longSleepOnly(periods []model.SleepPeriod) []model.SleepPeriod {
	out := make([]model.SleepPeriod, 0, len(periods))
	for _, p := range periods {
		if p.IsLongSleep() {
			out = append(out, p)
		}
	}
	return out
}

// sortByTimestamp returns a copy sorted ascending by sample time.
func sortByTimestamp(samples []model.HeartRateSample) []model.HeartRateSample {
	out := make([]model.HeartRateSample, len(samples))
	copy(out, samples)
	slices.SortStableFunc(out, func(a, b model.HeartRateSample) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// apply merges a successful fetch into s. Loading and error state are left
// to the caller.
func (r *FetchResult) apply(s *Snapshot, fetchedAt time.Time) {
	s.TodayReadiness = latest(r.TodayReadiness)
	s.TodaySleep = latest(r.TodaySleep)
	s.TodaySleepPeriod = latestSleepPeriod(r.TodaySleepPeriods)
	s.ReadinessHistory = sortByDay(r.ReadinessHistory)
	s.SleepHistory = sortByDay(r.SleepHistory)
	s.SleepPeriodHistory = sortByDay(longSleepOnly(r.SleepPeriodHistory))
	s.HeartRateHistory = sortByTimestamp(r.HeartRate)
	s.LastFetched = fetchedAt
}
