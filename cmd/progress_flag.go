package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// progressFlag implements pflag.Value for the tri-state --progress flag.
type progressFlag struct {
	opts *Options
}

func newProgressFlag(opts *Options) *progressFlag {
	return &progressFlag{opts: opts}
}

func (f *progressFlag) String() string {
	if f.opts.Progress == nil {
		return "auto"
	}
	if *f.opts.Progress {
		return "true"
	}
	return "false"
}

func (f *progressFlag) Set(s string) error {
	switch s {
	case "true", "1", "yes":
		v := true
		f.opts.Progress = &v
	case "false", "0", "no":
		v := false
		f.opts.Progress = &v
	case "auto":
		f.opts.Progress = nil
	default:
		return fmt.Errorf("invalid value %q: use true, false, or auto", s)
	}
	return nil
}

func (f *progressFlag) Type() string {
	return "bool"
}

func (f *progressFlag) IsBoolFlag() bool {
	return true
}

// shouldShowProgress decides whether to draw the fetch progress line.
func shouldShowProgress(opts *Options) bool {
	if opts.Progress != nil {
		return *opts.Progress
	}
	// Progress and JSON on the same terminal interleave badly
	if opts.Format == "json" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
