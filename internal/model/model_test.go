package model

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestLookBackBounds(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.Local)

	tests := []struct {
		days      int
		wantStart string
		wantEnd   string
		wantDays  int
	}{
		{7, "2026-03-08", "2026-03-15", 8},
		{14, "2026-03-01", "2026-03-15", 15},
		{30, "2026-02-13", "2026-03-15", 31},
		{0, "2026-03-15", "2026-03-15", 1},
	}

	for _, tt := range tests {
		r := LookBack(now, tt.days)
		if r.StartDate() != tt.wantStart || r.EndDate() != tt.wantEnd {
			t.Errorf("LookBack(%d) = %s, want %s..%s", tt.days, r, tt.wantStart, tt.wantEnd)
		}
		if r.Days() != tt.wantDays {
			t.Errorf("LookBack(%d).Days() = %d, want %d", tt.days, r.Days(), tt.wantDays)
		}
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2026, 1, 1, 23, 59, 0, 0, time.Local)
	r := Today(now)
	if r.StartDate() != "2026-01-01" || r.EndDate() != "2026-01-01" {
		t.Errorf("Today() = %s, want 2026-01-01..2026-01-01", r)
	}
	if !r.Contains("2026-01-01") || r.Contains("2026-01-02") {
		t.Error("Today() range membership is wrong")
	}
}

func TestNewDateRangeRejectsInverted(t *testing.T) {
	start := time.Date(2026, 5, 2, 0, 0, 0, 0, time.Local)
	end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local)

	if _, err := NewDateRange(start, end); err == nil {
		t.Error("expected error for start after end")
	}
	if _, err := NewDateRange(end, start); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// Same day, different hours is still a valid single-day range.
	if _, err := NewDateRange(start.Add(20*time.Hour), start.Add(time.Hour)); err != nil {
		t.Errorf("unexpected error for same-day range: %v", err)
	}
}

func TestPageCursor(t *testing.T) {
	empty := ""
	next := "abc"

	tests := []struct {
		name string
		page *Page[Readiness]
		want bool
	}{
		{"nil page", nil, false},
		{"missing cursor", &Page[Readiness]{}, false},
		{"empty cursor", &Page[Readiness]{NextToken: &empty}, false},
		{"cursor present", &Page[Readiness]{NextToken: &next}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.HasMore(); got != tt.want {
				t.Errorf("HasMore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionalFieldsStayNil(t *testing.T) {
	body := `{"data":[{"id":"r1","day":"2026-03-15","score":null,"timestamp":"2026-03-15T00:00:00+00:00",
		"contributors":{"hrv_balance":0}}],"next_token":null}`

	var page Page[Readiness]
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(page.Data) != 1 {
		t.Fatalf("expected 1 record, got %d", len(page.Data))
	}
	r := page.Data[0]
	if r.Score != nil {
		t.Errorf("expected nil score, got %d", *r.Score)
	}
	if r.Contributors.ActivityBalance != nil {
		t.Error("expected absent contributor to stay nil")
	}
	if r.Contributors.HRVBalance == nil || *r.Contributors.HRVBalance != 0 {
		t.Error("expected explicit zero contributor to be preserved")
	}
	if page.HasMore() {
		t.Error("expected null next_token to terminate")
	}
}

func TestHeartRateSampleIdentity(t *testing.T) {
	ts := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)
	h := HeartRateSample{BPM: 60, Source: "awake", Timestamp: ts}

	if h.RecordDay() != "2026-03-15" {
		t.Errorf("RecordDay() = %q, want 2026-03-15", h.RecordDay())
	}
	other := HeartRateSample{BPM: 61, Source: "awake", Timestamp: ts.Add(time.Minute)}
	if h.RecordID() == other.RecordID() {
		t.Error("expected distinct identifiers for distinct samples")
	}
}
