package model

import (
	"fmt"
	"time"

	"github.com/spiffcs/vitals/internal/constants"
)

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange returns the range [start, end] truncated to local days.
// It fails when start is after end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s, e := startOfDay(start), startOfDay(end)
	if s.After(e) {
		return DateRange{}, fmt.Errorf("invalid date range: start %s is after end %s",
			s.Format(constants.DateLayout), e.Format(constants.DateLayout))
	}
	return DateRange{start: s, end: e}, nil
}

// Today is the single-day range containing now.
func Today(now time.Time) DateRange {
	d := startOfDay(now)
	return DateRange{start: d, end: d}
}

// LookBack is the range from days before now through now.
func LookBack(now time.Time, days int) DateRange {
	if days < 0 {
		days = 0
	}
	end := startOfDay(now)
	return DateRange{start: end.AddDate(0, 0, -days), end: end}
}

// StartDate formats the first day as YYYY-MM-DD.
func (r DateRange) StartDate() string {
	return r.start.Format(constants.DateLayout)
}

// EndDate formats the last day as YYYY-MM-DD.
func (r DateRange) EndDate() string {
	return r.end.Format(constants.DateLayout)
}

// Days returns the number of calendar days covered.
func (r DateRange) Days() int {
	if r.start.IsZero() {
		return 0
	}
	n := 0
	for d := r.start; !d.After(r.end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Contains reports whether the day string falls inside the range.
func (r DateRange) Contains(day string) bool {
	return day >= r.StartDate() && day <= r.EndDate()
}

func (r DateRange) String() string {
	return r.StartDate() + ".." + r.EndDate()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
