// Package format provides shared text formatting utilities for terminal output.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Missing is shown for values the provider did not report.
const Missing = "-"

// ansiRegex matches ANSI escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripAnsi removes ANSI escape sequences from a string.
func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// DisplayWidth returns the visible width of a string in terminal columns,
// ignoring ANSI escape sequences.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(StripAnsi(s))
}

// PadRight pads a string with spaces to reach the target visible width.
func PadRight(s string, targetWidth int) string {
	w := DisplayWidth(s)
	if w >= targetWidth {
		return s
	}
	return s + strings.Repeat(" ", targetWidth-w)
}

// Int renders an optional integer.
func Int(v *int) string {
	if v == nil {
		return Missing
	}
	return strconv.Itoa(*v)
}

// Float renders an optional float with the given precision.
func Float(v *float64, precision int) string {
	if v == nil {
		return Missing
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

// Signed renders an optional float with an explicit sign, e.g. "+0.3".
func Signed(v *float64, precision int) string {
	if v == nil {
		return Missing
	}
	return fmt.Sprintf("%+.*f", precision, *v)
}
