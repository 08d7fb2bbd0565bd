package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/spiffcs/vitals/internal/model"
	"github.com/spiffcs/vitals/internal/refresh"
)

type fakeEngine struct {
	mu        sync.Mutex
	snap      refresh.Snapshot
	busy      bool
	refreshes int
	interval  time.Duration
	lookback  int
	subs      []chan refresh.Snapshot
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{interval: 15 * time.Minute, lookback: 7}
}

func (f *fakeEngine) Snapshot() refresh.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeEngine) Subscribe() (<-chan refresh.Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan refresh.Snapshot, 1)
	ch <- f.snap
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

func (f *fakeEngine) publish(s refresh.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = s
	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (f *fakeEngine) RefreshNow(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	f.refreshes++
	f.snap.LastFetched = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	return true
}

func (f *fakeEngine) IsRefreshing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeEngine) SetInterval(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = d
}

func (f *fakeEngine) Interval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interval
}

func (f *fakeEngine) EffectiveInterval() time.Duration {
	return f.Interval()
}

func (f *fakeEngine) PowerConstrained() bool { return false }

func (f *fakeEngine) SetLookback(days int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !refresh.ValidLookback(days) {
		return errors.New("bad lookback")
	}
	f.lookback = days
	return nil
}

func (f *fakeEngine) Lookback() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookback
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	h := New(newFakeEngine(), Options{}).Handler()
	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("body = %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(newFakeEngine(), Options{}).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "vitals_websocket_connections") {
		t.Error("expected vitals metrics in exposition output")
	}
}

func TestSnapshot(t *testing.T) {
	eng := newFakeEngine()
	score := 86
	eng.snap = refresh.Snapshot{
		TodayReadiness: &model.Readiness{ID: "r1", Day: "2026-03-15", Score: &score},
		LastError:      errors.New("boom"),
	}
	h := New(eng, Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"last_error":"boom"`, `"score":86`, `"last_fetched":null`} {
		if !strings.Contains(body, want) {
			t.Errorf("snapshot body missing %s: %s", want, body)
		}
	}
}

func TestStatus(t *testing.T) {
	eng := newFakeEngine()
	eng.snap.LastError = errors.New("unauthorized")
	h := New(eng, Options{}).Handler()

	got := decode[Status](t, do(t, h, http.MethodGet, "/api/v1/status", ""))
	if got.HasData || got.LastFetched != nil {
		t.Errorf("expected no data, got %+v", got)
	}
	if got.LastError == nil || *got.LastError != "unauthorized" {
		t.Errorf("LastError = %v, want unauthorized", got.LastError)
	}
	if got.RefreshInterval != "15m" || got.LookbackDays != 7 {
		t.Errorf("interval/lookback = %q/%d, want 15m/7", got.RefreshInterval, got.LookbackDays)
	}
}

func TestRefresh(t *testing.T) {
	eng := newFakeEngine()
	h := New(eng, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[Status](t, rec); !got.HasData {
		t.Error("expected status to report data after refresh")
	}
	if eng.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", eng.refreshes)
	}

	eng.busy = true
	rec = do(t, h, http.MethodPost, "/api/v1/refresh", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 while busy", rec.Code)
	}
	if eng.refreshes != 1 {
		t.Errorf("busy refresh must not run a cycle, refreshes = %d", eng.refreshes)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/refresh", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET refresh status = %d, want 405", rec.Code)
	}
}

func TestSettings(t *testing.T) {
	eng := newFakeEngine()
	h := New(eng, Options{}).Handler()

	got := decode[Settings](t, do(t, h, http.MethodGet, "/api/v1/config", ""))
	if got.RefreshInterval != "15m" || got.LookbackDays != 7 {
		t.Fatalf("initial settings = %+v", got)
	}

	rec := do(t, h, http.MethodPut, "/api/v1/config", `{"refresh_interval":"manual","lookback_days":30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got = decode[Settings](t, rec)
	if got.RefreshInterval != "manual" || got.LookbackDays != 30 {
		t.Errorf("updated settings = %+v, want manual/30", got)
	}
	if eng.Interval() != 0 {
		t.Errorf("engine interval = %v, want 0", eng.Interval())
	}

	rec = do(t, h, http.MethodPut, "/api/v1/config", `{"refresh_interval":"1h"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if eng.Interval() != time.Hour || eng.Lookback() != 30 {
		t.Errorf("partial update changed wrong fields: interval %v lookback %d", eng.Interval(), eng.Lookback())
	}
}

func TestSettingsRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad lookback", `{"lookback_days":10}`, "lookback_days"},
		{"bad interval", `{"refresh_interval":"soon"}`, "invalid duration"},
		{"too short", `{"refresh_interval":"10s"}`, "at least"},
		{"malformed", `{`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newFakeEngine()
			h := New(eng, Options{}).Handler()

			rec := do(t, h, http.MethodPut, "/api/v1/config", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decode[errorResponse](t, rec); !strings.Contains(got.Error, tt.want) {
				t.Errorf("error = %q, want it to mention %q", got.Error, tt.want)
			}
			if eng.Interval() != 15*time.Minute || eng.Lookback() != 7 {
				t.Error("rejected update must not change settings")
			}
		})
	}
}

func TestStream(t *testing.T) {
	eng := newFakeEngine()
	srv := httptest.NewServer(New(eng, Options{}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	read := func() map[string]any {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error: %v", err)
		}
		var v map[string]any
		if err := json.Unmarshal(data, &v); err != nil {
			t.Fatalf("invalid frame %q: %v", data, err)
		}
		return v
	}

	first := read()
	if first["last_fetched"] != nil {
		t.Errorf("initial frame should have no data, got %v", first["last_fetched"])
	}

	eng.publish(refresh.Snapshot{
		LastFetched: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
		LastError:   errors.New("rate limited"),
	})
	next := read()
	if next["last_error"] != "rate limited" {
		t.Errorf("last_error = %v, want rate limited", next["last_error"])
	}
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	srv := httptest.NewServer(New(newFakeEngine(), Options{}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}
}

func TestServeShutsDown(t *testing.T) {
	s := New(newFakeEngine(), Options{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
