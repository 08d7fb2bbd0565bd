// Package output renders snapshots for the terminal.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/spiffcs/vitals/internal/refresh"
)

// Format represents the output format
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Formatter defines the interface for output formatters
type Formatter interface {
	Format(s refresh.Snapshot, w io.Writer) error
}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be text or json)", s)
	}
}

// NewFormatter creates a formatter for the specified format
func NewFormatter(format Format, lookbackDays int) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}
	default:
		return &TextFormatter{LookbackDays: lookbackDays, Now: time.Now}
	}
}
