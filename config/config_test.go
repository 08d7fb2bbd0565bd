package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spiffcs/vitals/internal/constants"
)

func intPtr(n int) *int { return &n }

func TestResolveDefaults(t *testing.T) {
	s, err := (&Config{}).Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if s.APIBaseURL != constants.DefaultBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", s.APIBaseURL, constants.DefaultBaseURL)
	}
	if s.RefreshInterval != 15*time.Minute {
		t.Errorf("RefreshInterval = %v, want 15m", s.RefreshInterval)
	}
	if s.LookbackDays != 7 {
		t.Errorf("LookbackDays = %d, want 7", s.LookbackDays)
	}
	if s.Retry.MaxAttempts != 3 || s.Retry.BaseDelay != time.Second || s.Retry.MaxDelay != 30*time.Second {
		t.Errorf("Retry = %+v, want 3/1s/30s", s.Retry)
	}
	if s.MaxPages != 1000 {
		t.Errorf("MaxPages = %d, want 1000", s.MaxPages)
	}
	if s.CredentialStore != "keyring" || s.PowerMonitor != "auto" {
		t.Errorf("CredentialStore/PowerMonitor = %q/%q, want keyring/auto", s.CredentialStore, s.PowerMonitor)
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := &Config{
		RefreshInterval: "manual",
		LookbackDays:    30,
		MaxPages:        intPtr(0),
		Retry: &RetryOverrides{
			MaxAttempts: intPtr(0),
			BaseDelay:   "250ms",
		},
	}

	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s.RefreshInterval != 0 {
		t.Errorf("manual interval should resolve to 0, got %v", s.RefreshInterval)
	}
	if s.LookbackDays != 30 {
		t.Errorf("LookbackDays = %d, want 30", s.LookbackDays)
	}
	if s.MaxPages != 0 {
		t.Errorf("explicit max_pages 0 should be kept, got %d", s.MaxPages)
	}
	if s.Retry.MaxAttempts != 0 {
		t.Errorf("explicit max_attempts 0 should be kept, got %d", s.Retry.MaxAttempts)
	}
	if s.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 250ms", s.Retry.BaseDelay)
	}
	if s.Retry.MaxDelay != 30*time.Second {
		t.Errorf("unset MaxDelay should keep default, got %v", s.Retry.MaxDelay)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty", cfg: Config{}},
		{name: "defaults", cfg: *DefaultConfig()},
		{name: "bad lookback", cfg: Config{LookbackDays: 10}, wantErr: "lookback_days"},
		{name: "bad interval", cfg: Config{RefreshInterval: "soon"}, wantErr: "refresh_interval"},
		{name: "interval too short", cfg: Config{RefreshInterval: "30s"}, wantErr: "refresh_interval"},
		{name: "manual interval", cfg: Config{RefreshInterval: "manual"}},
		{name: "bad store", cfg: Config{CredentialStore: "vault"}, wantErr: "credential_store"},
		{name: "bad power", cfg: Config{PowerMonitor: "maybe"}, wantErr: "power_monitor"},
		{name: "bad url", cfg: Config{APIBaseURL: "not a url"}, wantErr: "api_base_url"},
		{name: "bad listen", cfg: Config{ListenAddr: "nope"}, wantErr: "listen_addr"},
		{name: "negative pages", cfg: Config{MaxPages: intPtr(-1)}, wantErr: "max_pages"},
		{name: "bad delay", cfg: Config{Retry: &RetryOverrides{BaseDelay: "fast"}}, wantErr: "retry.base_delay"},
		{name: "too many attempts", cfg: Config{Retry: &RetryOverrides{MaxAttempts: intPtr(50)}}, wantErr: "retry.max_attempts"},
		{
			name:    "base above max",
			cfg:     Config{Retry: &RetryOverrides{BaseDelay: "1m", MaxDelay: "10s"}},
			wantErr: "delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestMergeConfig(t *testing.T) {
	global := &Config{
		RefreshInterval: "30m",
		LookbackDays:    14,
		ListenAddr:      "127.0.0.1:9000",
		Retry:           &RetryOverrides{MaxAttempts: intPtr(5), MaxDelay: "1m"},
	}
	local := &Config{
		LookbackDays: 30,
		Retry:        &RetryOverrides{BaseDelay: "2s"},
	}

	got := mergeConfig(global, local)

	if got.RefreshInterval != "30m" {
		t.Errorf("RefreshInterval = %q, want global 30m", got.RefreshInterval)
	}
	if got.LookbackDays != 30 {
		t.Errorf("LookbackDays = %d, want local 30", got.LookbackDays)
	}
	if got.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q, want global value", got.ListenAddr)
	}
	if got.Retry == nil || got.Retry.MaxAttempts == nil || *got.Retry.MaxAttempts != 5 {
		t.Fatalf("Retry.MaxAttempts not preserved from global: %+v", got.Retry)
	}
	if got.Retry.BaseDelay != "2s" || got.Retry.MaxDelay != "1m" {
		t.Errorf("Retry = %+v, want base 2s from local and max 1m from global", got.Retry)
	}
	if global.Retry.BaseDelay != "" {
		t.Error("mergeConfig must not mutate the global config")
	}
}

func TestMergeRetryOverridesNil(t *testing.T) {
	if got := mergeRetryOverrides(nil, nil); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if got := mergeRetryOverrides(nil, &RetryOverrides{}); got != nil {
		t.Errorf("expected empty overrides to collapse to nil, got %+v", got)
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "config.yaml")
	localPath := filepath.Join(dir, ".vitals.yaml")

	if err := os.WriteFile(globalPath, []byte("refresh_interval: 1h\nlookback_days: 14\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(localPath, []byte("lookback_days: 30\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(globalPath, localPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.RefreshInterval != "1h" || cfg.LookbackDays != 30 {
		t.Errorf("got interval %q lookback %d, want 1h and 30", cfg.RefreshInterval, cfg.LookbackDays)
	}
}

func TestLoadFromMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "none.yaml"), filepath.Join(dir, "also-none.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected empty config, got nil")
	}
}

func TestLoadFromInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("lookback_days: 9\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path, ""); err == nil {
		t.Error("expected validation error for lookback_days 9")
	}

	if err := os.WriteFile(path, []byte("lookback_days: [\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path, ""); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestSet(t *testing.T) {
	cfg := &Config{}

	if err := cfg.Set("lookback_days", "14"); err != nil {
		t.Fatalf("Set(lookback_days) error: %v", err)
	}
	if cfg.LookbackDays != 14 {
		t.Errorf("LookbackDays = %d, want 14", cfg.LookbackDays)
	}

	if err := cfg.Set("retry.max_attempts", "5"); err != nil {
		t.Fatalf("Set(retry.max_attempts) error: %v", err)
	}
	if cfg.Retry == nil || *cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts not set: %+v", cfg.Retry)
	}

	if err := cfg.Set("lookback_days", "9"); err == nil {
		t.Error("expected validation error for lookback_days 9")
	}
	if cfg.LookbackDays != 14 {
		t.Errorf("failed Set must leave config unchanged, got %d", cfg.LookbackDays)
	}

	if err := cfg.Set("retry.base_delay", "1h"); err == nil {
		t.Error("expected error when base_delay exceeds max_delay")
	}
	if cfg.Retry.BaseDelay != "" {
		t.Errorf("failed Set must not leak into nested section, got %q", cfg.Retry.BaseDelay)
	}

	if err := cfg.Set("colour", "blue"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestToYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	out, err := DefaultConfig().ToYAML()
	if err != nil {
		t.Fatalf("ToYAML() error: %v", err)
	}
	if err := SaveTo(path, out); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s != DefaultSettings() {
		t.Errorf("round trip changed settings:\n got %+v\nwant %+v", s, DefaultSettings())
	}
}

func TestMinimalConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveTo(path, MinimalConfig()); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path, ""); err != nil {
		t.Errorf("MinimalConfig() does not load: %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	rps := 2.5
	cfg := &Config{
		APIBaseURL:           "http://localhost:9999/v2",
		RequestTimeout:       "5s",
		MaxRequestsPerSecond: &rps,
		MaxPages:             intPtr(10),
	}
	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	opts := s.ClientOptions()
	if opts.BaseURL != "http://localhost:9999/v2" || opts.Timeout != 5*time.Second {
		t.Errorf("BaseURL/Timeout = %q/%v", opts.BaseURL, opts.Timeout)
	}
	if opts.RequestsPerSecond != 2.5 || opts.MaxPages != 10 {
		t.Errorf("RequestsPerSecond/MaxPages = %v/%d", opts.RequestsPerSecond, opts.MaxPages)
	}
	if opts.Retry != s.Retry {
		t.Errorf("Retry = %+v, want %+v", opts.Retry, s.Retry)
	}
}
