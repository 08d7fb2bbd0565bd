package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/duration"
	"github.com/spiffcs/vitals/internal/oura"
	"github.com/spiffcs/vitals/internal/retry"
)

// Config represents the application configuration as written in YAML.
// Unset fields fall back to defaults in Resolve.
type Config struct {
	APIBaseURL           string          `json:"api_base_url,omitempty" yaml:"api_base_url,omitempty" validate:"omitempty,url"`
	RefreshInterval      string          `json:"refresh_interval,omitempty" yaml:"refresh_interval,omitempty" validate:"omitempty,interval"`
	LookbackDays         int             `json:"lookback_days,omitempty" yaml:"lookback_days,omitempty" validate:"omitempty,oneof=7 14 30"`
	RequestTimeout       string          `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty" validate:"omitempty,go_duration"`
	MaxRequestsPerSecond *float64        `json:"max_requests_per_second,omitempty" yaml:"max_requests_per_second,omitempty" validate:"omitempty,gte=0"`
	MaxPages             *int            `json:"max_pages,omitempty" yaml:"max_pages,omitempty" validate:"omitempty,gte=0"`
	CredentialStore      string          `json:"credential_store,omitempty" yaml:"credential_store,omitempty" validate:"omitempty,oneof=keyring file"`
	PowerMonitor         string          `json:"power_monitor,omitempty" yaml:"power_monitor,omitempty" validate:"omitempty,oneof=auto off"`
	ListenAddr           string          `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" validate:"omitempty,hostname_port"`
	LogFile              string          `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	Retry                *RetryOverrides `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// RetryOverrides customizes the backoff policy.
type RetryOverrides struct {
	MaxAttempts *int   `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"omitempty,gte=0,lte=10"`
	BaseDelay   string `json:"base_delay,omitempty" yaml:"base_delay,omitempty" validate:"omitempty,go_duration"`
	MaxDelay    string `json:"max_delay,omitempty" yaml:"max_delay,omitempty" validate:"omitempty,go_duration"`
}

// Settings is the fully resolved, typed configuration.
type Settings struct {
	APIBaseURL           string
	RefreshInterval      time.Duration // 0 = manual
	LookbackDays         int
	Retry                retry.Policy
	RequestTimeout       time.Duration
	MaxRequestsPerSecond float64
	MaxPages             int
	CredentialStore      string
	PowerMonitor         string
	ListenAddr           string
	LogFile              string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
		d, err := duration.ParseInterval(fl.Field().String())
		return err == nil && (d == 0 || d >= constants.MinRefreshInterval)
	})
	_ = v.RegisterValidation("go_duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return v
}

// Validate checks every field and the cross-field retry constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]error, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Errorf("invalid %s: %q fails %s", fieldPath(fe), fmt.Sprint(fe.Value()), fe.Tag()))
			}
			return errors.Join(msgs...)
		}
		return err
	}
	settings, err := c.Resolve()
	if err != nil {
		return err
	}
	return settings.Retry.Validate()
}

// fieldPath turns "Config.retry.base_delay" into "retry.base_delay".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

// DefaultSettings returns the built-in values.
func DefaultSettings() Settings {
	return Settings{
		APIBaseURL:      constants.DefaultBaseURL,
		RefreshInterval: constants.DefaultRefreshInterval,
		LookbackDays:    constants.DefaultLookbackDays,
		Retry:           retry.DefaultPolicy(),
		RequestTimeout:  constants.DefaultRequestTimeout,
		MaxPages:        constants.DefaultMaxPages,
		CredentialStore: "keyring",
		PowerMonitor:    "auto",
		ListenAddr:      constants.DefaultListenAddr,
	}
}

// Resolve returns settings with user overrides merged onto defaults.
func (c *Config) Resolve() (Settings, error) {
	s := DefaultSettings()

	if c.APIBaseURL != "" {
		s.APIBaseURL = c.APIBaseURL
	}
	if c.RefreshInterval != "" {
		d, err := duration.ParseInterval(c.RefreshInterval)
		if err != nil {
			return s, fmt.Errorf("invalid refresh_interval: %w", err)
		}
		s.RefreshInterval = d
	}
	if c.LookbackDays != 0 {
		s.LookbackDays = c.LookbackDays
	}
	if c.RequestTimeout != "" {
		d, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			return s, fmt.Errorf("invalid request_timeout: %w", err)
		}
		s.RequestTimeout = d
	}
	if c.MaxRequestsPerSecond != nil {
		s.MaxRequestsPerSecond = *c.MaxRequestsPerSecond
	}
	if c.MaxPages != nil {
		s.MaxPages = *c.MaxPages
	}
	if c.CredentialStore != "" {
		s.CredentialStore = c.CredentialStore
	}
	if c.PowerMonitor != "" {
		s.PowerMonitor = c.PowerMonitor
	}
	if c.ListenAddr != "" {
		s.ListenAddr = c.ListenAddr
	}
	if c.LogFile != "" {
		s.LogFile = c.LogFile
	}

	if r := c.Retry; r != nil {
		if r.MaxAttempts != nil {
			s.Retry.MaxAttempts = *r.MaxAttempts
		}
		if r.BaseDelay != "" {
			d, err := time.ParseDuration(r.BaseDelay)
			if err != nil {
				return s, fmt.Errorf("invalid retry.base_delay: %w", err)
			}
			s.Retry.BaseDelay = d
		}
		if r.MaxDelay != "" {
			d, err := time.ParseDuration(r.MaxDelay)
			if err != nil {
				return s, fmt.Errorf("invalid retry.max_delay: %w", err)
			}
			s.Retry.MaxDelay = d
		}
	}

	return s, nil
}

// ClientOptions maps the settings onto API client options.
func (s Settings) ClientOptions() oura.Options {
	opts := oura.DefaultOptions()
	opts.BaseURL = s.APIBaseURL
	opts.Timeout = s.RequestTimeout
	opts.RequestsPerSecond = s.MaxRequestsPerSecond
	opts.MaxPages = s.MaxPages
	opts.Retry = s.Retry
	return opts
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".vitals"
	}
	return filepath.Join(configDir, "vitals")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".vitals.yaml"
}

// Load loads the configuration from disk.
// It first loads the global config from XDG config directory, then merges
// any local .vitals.yaml config on top (local values take precedence).
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), LocalConfigPath())
}

// LoadFrom loads and merges the given global and local files. Missing
// files are skipped.
func LoadFrom(globalPath, localPath string) (*Config, error) {
	cfg := &Config{}

	global, err := readFile(globalPath)
	if err != nil {
		return nil, fmt.Errorf("global config: %w", err)
	}
	if global != nil {
		cfg = global
	}

	local, err := readFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("local config: %w", err)
	}
	if local != nil {
		cfg = mergeConfig(cfg, local)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// mergeConfig merges local config on top of global config.
// Local values take precedence; unset local values preserve global values.
func mergeConfig(global, local *Config) *Config {
	result := *global

	if local.APIBaseURL != "" {
		result.APIBaseURL = local.APIBaseURL
	}
	if local.RefreshInterval != "" {
		result.RefreshInterval = local.RefreshInterval
	}
	if local.LookbackDays != 0 {
		result.LookbackDays = local.LookbackDays
	}
	if local.RequestTimeout != "" {
		result.RequestTimeout = local.RequestTimeout
	}
	if local.MaxRequestsPerSecond != nil {
		result.MaxRequestsPerSecond = local.MaxRequestsPerSecond
	}
	if local.MaxPages != nil {
		result.MaxPages = local.MaxPages
	}
	if local.CredentialStore != "" {
		result.CredentialStore = local.CredentialStore
	}
	if local.PowerMonitor != "" {
		result.PowerMonitor = local.PowerMonitor
	}
	if local.ListenAddr != "" {
		result.ListenAddr = local.ListenAddr
	}
	if local.LogFile != "" {
		result.LogFile = local.LogFile
	}

	result.Retry = mergeRetryOverrides(global.Retry, local.Retry)
	return &result
}

func mergeRetryOverrides(global, local *RetryOverrides) *RetryOverrides {
	if global == nil && local == nil {
		return nil
	}
	result := &RetryOverrides{}

	if global != nil {
		*result = *global
	}

	if local != nil {
		if local.MaxAttempts != nil {
			result.MaxAttempts = local.MaxAttempts
		}
		if local.BaseDelay != "" {
			result.BaseDelay = local.BaseDelay
		}
		if local.MaxDelay != "" {
			result.MaxDelay = local.MaxDelay
		}
	}

	if result.MaxAttempts == nil && result.BaseDelay == "" && result.MaxDelay == "" {
		return nil
	}
	return result
}

// Set assigns a single key, using dotted names for nested sections
// (e.g. "retry.max_attempts"). The result is validated.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	next := *c
	if c.Retry != nil {
		r := *c.Retry
		next.Retry = &r
	}
	retrySection := func() *RetryOverrides {
		if next.Retry == nil {
			next.Retry = &RetryOverrides{}
		}
		return next.Retry
	}

	switch key {
	case "api_base_url":
		next.APIBaseURL = value
	case "refresh_interval":
		next.RefreshInterval = value
	case "lookback_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("lookback_days must be a number: %w", err)
		}
		next.LookbackDays = n
	case "request_timeout":
		next.RequestTimeout = value
	case "max_requests_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("max_requests_per_second must be a number: %w", err)
		}
		next.MaxRequestsPerSecond = &f
	case "max_pages":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_pages must be a number: %w", err)
		}
		next.MaxPages = &n
	case "credential_store":
		next.CredentialStore = value
	case "power_monitor":
		next.PowerMonitor = value
	case "listen_addr":
		next.ListenAddr = value
	case "log_file":
		next.LogFile = value
	case "retry.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retry.max_attempts must be a number: %w", err)
		}
		retrySection().MaxAttempts = &n
	case "retry.base_delay":
		retrySection().BaseDelay = value
	case "retry.max_delay":
		retrySection().MaxDelay = value
	default:
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Keys lists the names accepted by Set.
func Keys() []string {
	return []string{
		"api_base_url",
		"refresh_interval",
		"lookback_days",
		"request_timeout",
		"max_requests_per_second",
		"max_pages",
		"credential_store",
		"power_monitor",
		"listen_addr",
		"log_file",
		"retry.max_attempts",
		"retry.base_delay",
		"retry.max_delay",
	}
}

// DefaultConfig returns a fully populated config with all default values.
// This is useful for generating a complete config file template.
func DefaultConfig() *Config {
	s := DefaultSettings()
	rps := s.MaxRequestsPerSecond
	maxPages := s.MaxPages
	attempts := s.Retry.MaxAttempts

	return &Config{
		APIBaseURL:           s.APIBaseURL,
		RefreshInterval:      duration.FormatInterval(s.RefreshInterval),
		LookbackDays:         s.LookbackDays,
		RequestTimeout:       s.RequestTimeout.String(),
		MaxRequestsPerSecond: &rps,
		MaxPages:             &maxPages,
		CredentialStore:      s.CredentialStore,
		PowerMonitor:         s.PowerMonitor,
		ListenAddr:           s.ListenAddr,
		Retry: &RetryOverrides{
			MaxAttempts: &attempts,
			BaseDelay:   s.Retry.BaseDelay.String(),
			MaxDelay:    s.Retry.MaxDelay.String(),
		},
	}
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	// Get absolute path for local config
	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}

// MinimalConfig returns a minimal config template with comments
func MinimalConfig() string {
	return `# vitals configuration file
# See: vitals config defaults  (for all available options)
#
# The access token is never stored here. Use 'vitals token set' or the
# VITALS_TOKEN environment variable.

# How often to refresh: 5m, 15m, 30m, 1h, ... or manual
refresh_interval: 15m

# History window in days: 7, 14 or 30
lookback_days: 7

# Where 'vitals token set' stores the token: keyring or file
# credential_store: keyring

# Double the refresh interval on battery: auto or off
# power_monitor: auto

# Control server address for 'vitals run'
# listen_addr: 127.0.0.1:8787

# Backoff for rate limits and server errors (optional)
# retry:
#   max_attempts: 3
#   base_delay: 1s
#   max_delay: 30s
`
}

// SaveTo writes content to a specific path, creating directories as needed
func SaveTo(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}
