package output

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/spiffcs/vitals/internal/format"
	"github.com/spiffcs/vitals/internal/model"
	"github.com/spiffcs/vitals/internal/refresh"
)

var (
	headerColor = color.New(color.Bold)
	dimColor    = color.New(color.Faint)
	errorColor  = color.New(color.FgRed)
	goodColor   = color.New(color.FgGreen)
	fairColor   = color.New(color.FgYellow)
	poorColor   = color.New(color.FgRed)
)

// Column widths
const (
	colLabel     = 14
	colDay       = 12
	colScore     = 11
	colDuration  = 13
	colHeartRate = 9
)

// TextFormatter formats output as a terminal summary
type TextFormatter struct {
	LookbackDays int
	Now          func() time.Time
}

// Format outputs a today panel followed by a per-day history table
func (f *TextFormatter) Format(s refresh.Snapshot, w io.Writer) error {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	var b strings.Builder

	if !s.HasData() && s.LastError == nil {
		b.WriteString("No data. Set a token with 'vitals token set' or VITALS_TOKEN.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	if s.HasData() {
		fmt.Fprintf(&b, "%s %s (%s ago)\n",
			dimColor.Sprint("Last fetched:"),
			s.LastFetched.Format("2006-01-02 15:04"),
			format.FormatAge(now().Sub(s.LastFetched)))
	}
	if s.LastError != nil {
		fmt.Fprintf(&b, "%s %s\n", errorColor.Sprint("Last refresh failed:"), s.LastError)
	}
	b.WriteString("\n")

	writeToday(&b, s)
	b.WriteString("\n")
	f.writeHistory(&b, s)
	writeHeartRate(&b, s.HeartRateHistory)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeToday(b *strings.Builder, s refresh.Snapshot) {
	headerColor.Fprintln(b, "TODAY")

	readiness := format.Missing
	if r := s.TodayReadiness; r != nil {
		readiness = scoreString(r.Score)
		if r.TemperatureDeviation != nil {
			readiness += "  temp " + format.Signed(r.TemperatureDeviation, 1) + "°C"
		}
	}
	writeRow(b, "Readiness", readiness)

	sleep := format.Missing
	if s.TodaySleep != nil {
		sleep = scoreString(s.TodaySleep.Score)
	}
	writeRow(b, "Sleep score", sleep)

	period := format.Missing
	if p := s.TodaySleepPeriod; p != nil {
		parts := []string{format.FormatSeconds(p.TotalSleepDuration)}
		if p.Efficiency != nil {
			parts = append(parts, "eff "+format.Int(p.Efficiency)+"%")
		}
		if p.AverageHeartRate != nil || p.LowestHeartRate != nil {
			parts = append(parts, fmt.Sprintf("HR %s avg / %s low",
				format.Float(p.AverageHeartRate, 0), format.Int(p.LowestHeartRate)))
		}
		if p.AverageHRV != nil {
			parts = append(parts, "HRV "+format.Int(p.AverageHRV)+" ms")
		}
		period = strings.Join(parts, "  ")
		if !p.IsLongSleep() {
			period += dimColor.Sprintf("  (%s)", p.Type)
		}
	}
	writeRow(b, "Sleep", period)
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString("  ")
	b.WriteString(format.PadRight(label, colLabel))
	b.WriteString(value)
	b.WriteString("\n")
}

type dayRow struct {
	readiness *int
	sleep     *int
	duration  *int
	hrv       *int
}

func (f *TextFormatter) writeHistory(b *strings.Builder, s refresh.Snapshot) {
	title := "HISTORY"
	if f.LookbackDays > 0 {
		title = fmt.Sprintf("HISTORY (%d days)", f.LookbackDays)
	}
	headerColor.Fprintln(b, title)

	rows := map[string]*dayRow{}
	row := func(day string) *dayRow {
		if r, ok := rows[day]; ok {
			return r
		}
		r := &dayRow{}
		rows[day] = r
		return r
	}
	// Histories are sorted by day, so later entries overwrite earlier
	// same-day ones.
	for _, r := range s.ReadinessHistory {
		row(r.Day).readiness = r.Score
	}
	for _, r := range s.SleepHistory {
		row(r.Day).sleep = r.Score
	}
	for _, p := range s.SleepPeriodHistory {
		dr := row(p.Day)
		dr.duration = p.TotalSleepDuration
		dr.hrv = p.AverageHRV
	}

	if len(rows) == 0 {
		b.WriteString(dimColor.Sprint("  no records in range") + "\n")
		return
	}

	days := make([]string, 0, len(rows))
	for d := range rows {
		days = append(days, d)
	}
	slices.Sort(days)

	b.WriteString("  ")
	b.WriteString(dimColor.Sprint(
		format.PadRight("DAY", colDay) +
			format.PadRight("READINESS", colScore) +
			format.PadRight("SLEEP", colScore) +
			format.PadRight("DURATION", colDuration) +
			"HRV"))
	b.WriteString("\n")

	for _, d := range days {
		r := rows[d]
		b.WriteString("  ")
		b.WriteString(format.PadRight(d, colDay))
		b.WriteString(format.PadRight(scoreString(r.readiness), colScore))
		b.WriteString(format.PadRight(scoreString(r.sleep), colScore))
		b.WriteString(format.PadRight(format.FormatSeconds(r.duration), colDuration))
		b.WriteString(format.Int(r.hrv))
		b.WriteString("\n")
	}
}

func writeHeartRate(b *strings.Builder, samples []model.HeartRateSample) {
	if len(samples) == 0 {
		return
	}
	lo, hi, sum := samples[0].BPM, samples[0].BPM, 0
	for _, s := range samples {
		lo = min(lo, s.BPM)
		hi = max(hi, s.BPM)
		sum += s.BPM
	}
	b.WriteString("\n")
	headerColor.Fprintln(b, "HEART RATE")
	writeRow(b, "Samples", fmt.Sprintf("%d", len(samples)))
	writeRow(b, "Range", fmt.Sprintf("%d-%d bpm", lo, hi))
	writeRow(b, "Average", fmt.Sprintf("%d bpm", sum/len(samples)))
	last := samples[len(samples)-1]
	writeRow(b, "Latest", fmt.Sprintf("%d bpm (%s, %s)",
		last.BPM, last.Source, last.Timestamp.Local().Format("2006-01-02 15:04")))
}

// scoreString colors a 0-100 score: 85+ good, 70+ fair, below poor.
func scoreString(score *int) string {
	if score == nil {
		return format.Missing
	}
	v := format.Int(score)
	switch {
	case *score >= 85:
		return goodColor.Sprint(v)
	case *score >= 70:
		return fairColor.Sprint(v)
	default:
		return poorColor.Sprint(v)
	}
}
