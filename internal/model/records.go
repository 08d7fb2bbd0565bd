// Package model defines the health records fetched from the API and the
// value types used to request them.
package model

import (
	"fmt"
	"time"

	"github.com/spiffcs/vitals/internal/constants"
)

// Record is implemented by every resource type the API returns.
type Record interface {
	// RecordID returns the stable identifier of the record.
	RecordID() string
	// RecordDay returns the calendar day (YYYY-MM-DD) the record belongs to.
	RecordDay() string
	// RecordTime orders records that share a day. Zero when unknown.
	RecordTime() time.Time
}

// ResourceType identifies one of the API collections.
type ResourceType string

const (
	ResourceReadiness   ResourceType = "daily_readiness"
	ResourceSleep       ResourceType = "daily_sleep"
	ResourceSleepPeriod ResourceType = "sleep"
	ResourceHeartRate   ResourceType = "heartrate"
)

// ResourceTypes lists every collection in fetch order.
var ResourceTypes = []ResourceType{
	ResourceReadiness,
	ResourceSleep,
	ResourceSleepPeriod,
	ResourceHeartRate,
}

// Readiness is a daily readiness summary.
// Optional numeric fields are nil when the provider had no data.
type Readiness struct {
	ID                        string                `json:"id"`
	Day                       string                `json:"day"`
	Score                     *int                  `json:"score"`
	TemperatureDeviation      *float64              `json:"temperature_deviation"`
	TemperatureTrendDeviation *float64              `json:"temperature_trend_deviation"`
	Timestamp                 time.Time             `json:"timestamp"`
	Contributors              ReadinessContributors `json:"contributors"`
}

// ReadinessContributors are the 0-100 inputs to the readiness score.
type ReadinessContributors struct {
	ActivityBalance     *int `json:"activity_balance"`
	BodyTemperature     *int `json:"body_temperature"`
	HRVBalance          *int `json:"hrv_balance"`
	PreviousDayActivity *int `json:"previous_day_activity"`
	PreviousNight       *int `json:"previous_night"`
	RecoveryIndex       *int `json:"recovery_index"`
	RestingHeartRate    *int `json:"resting_heart_rate"`
	SleepBalance        *int `json:"sleep_balance"`
}

func (r Readiness) RecordID() string      { return r.ID }
func (r Readiness) RecordDay() string     { return r.Day }
func (r Readiness) RecordTime() time.Time { return r.Timestamp }

// SleepSummary is the daily sleep score.
type SleepSummary struct {
	ID           string            `json:"id"`
	Day          string            `json:"day"`
	Score        *int              `json:"score"`
	Timestamp    time.Time         `json:"timestamp"`
	Contributors SleepContributors `json:"contributors"`
}

// SleepContributors are the 0-100 inputs to the sleep score.
type SleepContributors struct {
	DeepSleep   *int `json:"deep_sleep"`
	Efficiency  *int `json:"efficiency"`
	Latency     *int `json:"latency"`
	REMSleep    *int `json:"rem_sleep"`
	Restfulness *int `json:"restfulness"`
	Timing      *int `json:"timing"`
	TotalSleep  *int `json:"total_sleep"`
}

func (s SleepSummary) RecordID() string      { return s.ID }
func (s SleepSummary) RecordDay() string     { return s.Day }
func (s SleepSummary) RecordTime() time.Time { return s.Timestamp }

// SleepPeriodType distinguishes the primary overnight sleep from naps and rest.
type SleepPeriodType string

const (
	SleepTypeLongSleep SleepPeriodType = "long_sleep"
	SleepTypeSleep     SleepPeriodType = "sleep"
	SleepTypeLateNap   SleepPeriodType = "late_nap"
	SleepTypeRest      SleepPeriodType = "rest"
	SleepTypeDeleted   SleepPeriodType = "deleted"
)

// SleepPeriod is one detailed sleep segment. Durations are in seconds,
// heart rate in bpm, HRV in ms.
type SleepPeriod struct {
	ID                 string          `json:"id"`
	Day                string          `json:"day"`
	Type               SleepPeriodType `json:"type"`
	BedtimeStart       time.Time       `json:"bedtime_start"`
	BedtimeEnd         time.Time       `json:"bedtime_end"`
	TimeInBed          *int            `json:"time_in_bed"`
	TotalSleepDuration *int            `json:"total_sleep_duration"`
	DeepSleepDuration  *int            `json:"deep_sleep_duration"`
	LightSleepDuration *int            `json:"light_sleep_duration"`
	REMSleepDuration   *int            `json:"rem_sleep_duration"`
	AwakeTime          *int            `json:"awake_time"`
	Latency            *int            `json:"latency"`
	Efficiency         *int            `json:"efficiency"`
	AverageHeartRate   *float64        `json:"average_heart_rate"`
	LowestHeartRate    *int            `json:"lowest_heart_rate"`
	AverageHRV         *int            `json:"average_hrv"`
	AverageBreath      *float64        `json:"average_breath"`
}

func (p SleepPeriod) RecordID() string      { return p.ID }
func (p SleepPeriod) RecordDay() string     { return p.Day }
func (p SleepPeriod) RecordTime() time.Time { return p.BedtimeEnd }

// IsLongSleep reports whether the period is the primary overnight sleep.
func (p SleepPeriod) IsLongSleep() bool {
	return p.Type == SleepTypeLongSleep
}

// HeartRateSample is a single heart-rate reading.
type HeartRateSample struct {
	BPM       int       `json:"bpm"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordID derives an identifier; the API does not assign one to samples.
func (h HeartRateSample) RecordID() string {
	return fmt.Sprintf("%s@%s", h.Source, h.Timestamp.UTC().Format(time.RFC3339))
}

// RecordDay is the local calendar day of the sample.
func (h HeartRateSample) RecordDay() string {
	return h.Timestamp.Local().Format(constants.DateLayout)
}

func (h HeartRateSample) RecordTime() time.Time { return h.Timestamp }
