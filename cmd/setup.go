package cmd

import (
	"fmt"
	"os"

	"github.com/spiffcs/vitals/config"
	"github.com/spiffcs/vitals/internal/auth"
	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/oura"
	"github.com/spiffcs/vitals/internal/power"
	"github.com/spiffcs/vitals/internal/refresh"
	"github.com/spiffcs/vitals/internal/secret"
)

// session bundles what every data command needs.
type session struct {
	settings config.Settings
	store    secret.Store
	tokens   *auth.Selector
	client   *oura.Client
}

// loadSettings reads the merged config and applies command-line overrides.
func loadSettings(opts *Options) (config.Settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := cfg.Resolve()
	if err != nil {
		return config.Settings{}, err
	}
	if opts.LookbackDays != 0 {
		if !refresh.ValidLookback(opts.LookbackDays) {
			return config.Settings{}, fmt.Errorf("invalid --days %d (must be one of %v)", opts.LookbackDays, constants.LookbackChoices)
		}
		settings.LookbackDays = opts.LookbackDays
	}
	return settings, nil
}

// newSession resolves settings, the credential chain and the API client.
func newSession(opts *Options) (*session, error) {
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	store, err := secret.New(settings.CredentialStore)
	if err != nil {
		// The flag or environment can still supply a token.
		log.Warn("credential store unavailable", "backend", settings.CredentialStore, "error", err)
		store = nil
	}

	client, err := oura.NewClient(settings.ClientOptions())
	if err != nil {
		return nil, err
	}

	return &session{
		settings: settings,
		store:    store,
		tokens:   auth.NewSelector(store, opts.tokenValue()),
		client:   client,
	}, nil
}

// newEngine builds a refresh engine over the session's client.
func (sess *session) newEngine(monitor power.Monitor, onProgress refresh.ProgressFunc) (*refresh.Engine, error) {
	return refresh.New(refresh.Options{
		Fetcher:      sess.client,
		Tokens:       sess.tokens,
		Power:        monitor,
		Interval:     sess.settings.RefreshInterval,
		LookbackDays: sess.settings.LookbackDays,
		OnProgress:   onProgress,
	})
}

// newPowerMonitor picks the sysfs monitor when enabled and supported.
// The second return value is non-nil when the monitor needs supervising.
func newPowerMonitor(settings config.Settings) (power.Monitor, *power.Sysfs) {
	if settings.PowerMonitor == "off" || !power.Available(constants.PowerSupplyDir) {
		log.Debug("power monitoring disabled", "setting", settings.PowerMonitor)
		return power.NewStatic(false), nil
	}
	s := power.NewSysfs(constants.PowerSupplyDir, constants.PowerPollInterval)
	return s, s
}

// initLogging routes logs to stderr, or to a rotating file when
// logFile is set. The returned function closes the file.
func initLogging(verbosity int, logFile string) func() {
	if logFile == "" {
		log.Initialize(verbosity, os.Stderr)
		return func() {}
	}
	closer := log.InitializeFile(verbosity, log.FileOptions{
		Path:       logFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})
	return func() { _ = closer.Close() }
}
