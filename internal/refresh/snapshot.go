package refresh

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/spiffcs/vitals/internal/model"
)

// Snapshot is the published state of the most recent refresh cycles.
// Readers receive copies; the slices are never mutated after publication.
type Snapshot struct {
	TodayReadiness     *model.Readiness        `json:"today_readiness"`
	TodaySleep         *model.SleepSummary     `json:"today_sleep"`
	TodaySleepPeriod   *model.SleepPeriod      `json:"today_sleep_period"`
	ReadinessHistory   []model.Readiness       `json:"readiness_history"`
	SleepHistory       []model.SleepSummary    `json:"sleep_history"`
	SleepPeriodHistory []model.SleepPeriod     `json:"sleep_period_history"`
	HeartRateHistory   []model.HeartRateSample `json:"heart_rate_history"`
	IsLoading          bool                    `json:"is_loading"`
	LastError          error                   `json:"-"`
	LastFetched        time.Time               `json:"last_fetched"`
}

// HasData reports whether any cycle has populated the snapshot.
func (s Snapshot) HasData() bool {
	return !s.LastFetched.IsZero()
}

// ErrorMessage returns LastError as text, or "" when there is none.
func (s Snapshot) ErrorMessage() string {
	if s.LastError == nil {
		return ""
	}
	return s.LastError.Error()
}

// MarshalJSON renders LastError as a nullable string.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	var lastError *string
	if s.LastError != nil {
		msg := s.LastError.Error()
		lastError = &msg
	}
	var lastFetched *time.Time
	if !s.LastFetched.IsZero() {
		lastFetched = &s.LastFetched
	}
	return json.Marshal(struct {
		plain
		LastError   *string    `json:"last_error"`
		LastFetched *time.Time `json:"last_fetched"`
	}{
		plain:       plain(s),
		LastError:   lastError,
		LastFetched: lastFetched,
	})
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.ReadinessHistory = cloneSlice(s.ReadinessHistory)
	c.SleepHistory = cloneSlice(s.SleepHistory)
	c.SleepPeriodHistory = cloneSlice(s.SleepPeriodHistory)
	c.HeartRateHistory = cloneSlice(s.HeartRateHistory)
	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
