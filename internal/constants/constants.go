// Package constants provides a centralized location for all configuration
// values and magic numbers used throughout the vitals application.
package constants

import "time"

// API constants
const (
	// DefaultBaseURL is the root of the v2 usercollection API.
	DefaultBaseURL = "https://api.ouraring.com/v2/usercollection"

	// DefaultRequestTimeout bounds a single HTTP round trip.
	DefaultRequestTimeout = 30 * time.Second

	// DateLayout is the calendar-day format used by query parameters and
	// the day field of every record.
	DateLayout = "2006-01-02"

	// MaxErrorBodyBytes is how much of a non-2xx body is kept for diagnostics.
	MaxErrorBodyBytes = 4096
)

// Retry policy defaults
const (
	// DefaultMaxAttempts is the number of retries after the first attempt.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first backoff delay before jitter.
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay caps every backoff delay, including Retry-After.
	DefaultMaxDelay = 30 * time.Second
)

// Pagination constants
const (
	// DefaultMaxPages fails a drain that follows more cursors than this.
	// Zero disables the ceiling.
	DefaultMaxPages = 1000
)

// Refresh schedule constants
const (
	// DefaultRefreshInterval is the configured timer period.
	DefaultRefreshInterval = 15 * time.Minute

	// MinRefreshInterval protects the API from overly aggressive schedules.
	MinRefreshInterval = 1 * time.Minute

	// PowerConstrainedFactor multiplies the interval while on battery or in
	// low-power mode.
	PowerConstrainedFactor = 2

	// DefaultLookbackDays is the history window.
	DefaultLookbackDays = 7

	// ManualInterval is the config value that disables the timer.
	ManualInterval = "manual"
)

// LookbackChoices are the selectable history windows in days.
var LookbackChoices = []int{7, 14, 30}

// Power monitor constants
const (
	// PowerPollInterval is how often the sysfs monitor samples supply state.
	PowerPollInterval = 30 * time.Second

	// PowerSupplyDir is the Linux power-supply class directory.
	PowerSupplyDir = "/sys/class/power_supply"
)

// Credential storage constants
const (
	// KeyringService is the service name used in the OS keyring.
	KeyringService = "vitals"

	// KeyringUser is the account name used in the OS keyring.
	KeyringUser = "personal-access-token"

	// TokenEnvVar supplies a direct credential value.
	TokenEnvVar = "VITALS_TOKEN"
)

// Control server constants
const (
	// DefaultListenAddr is where the control server listens in daemon mode.
	DefaultListenAddr = "127.0.0.1:8787"

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout = 5 * time.Second
)
