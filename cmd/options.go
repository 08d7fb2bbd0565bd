package cmd

import (
	"os"

	"github.com/spiffcs/vitals/internal/constants"
)

// Options holds the shared command-line options for the vitals CLI.
type Options struct {
	Format       string
	Token        string
	LookbackDays int // 0 = use config
	Verbosity    int
	Progress     *bool // nil = auto-detect, true = force, false = disable

	// Profiling options
	CPUProfile string // Write CPU profile to file
	MemProfile string // Write memory profile to file
	Trace      string // Write execution trace to file
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{Format: "text"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFormat sets the output format (text, json).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithToken sets the direct credential value.
func WithToken(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

// WithLookbackDays overrides the configured history window.
func WithLookbackDays(days int) Option {
	return func(o *Options) {
		o.LookbackDays = days
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}

// WithProgress controls progress output (nil = auto-detect).
func WithProgress(p *bool) Option {
	return func(o *Options) {
		o.Progress = p
	}
}

// tokenValue returns the direct credential: --token, then $VITALS_TOKEN.
func (o *Options) tokenValue() string {
	if o.Token != "" {
		return o.Token
	}
	return os.Getenv(constants.TokenEnvVar)
}
