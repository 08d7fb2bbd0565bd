package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/oura"
	"github.com/spiffcs/vitals/internal/output"
	"github.com/spiffcs/vitals/internal/power"
)

var errNoCredential = errors.New("no access token configured. Run 'vitals token set' or set the " + constants.TokenEnvVar + " environment variable")

// NewCmdFetch creates the fetch command.
func NewCmdFetch(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one refresh cycle and print the snapshot",
		Long: `Fetch today's readiness and sleep plus the history window in a single
refresh cycle, then print the result.

Exits non-zero when the cycle failed; whatever was fetched is still printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}
	addFetchFlags(cmd, opts)
	return cmd
}

func addFetchFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Format, "output", "o", opts.Format, "Output format (text, json)")
	cmd.Flags().IntVarP(&opts.LookbackDays, "days", "d", 0, "History window in days (7, 14, 30; default from config)")
	cmd.Flags().Var(newProgressFlag(opts), "progress", "Show fetch progress (default: auto-detect)")
}

func runFetch(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()

	stopProfiling, err := startProfiling(opts)
	defer stopProfiling()
	if err != nil {
		return err
	}
	log.Initialize(opts.Verbosity, os.Stderr)

	format, err := output.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	sess, err := newSession(opts)
	if err != nil {
		return err
	}

	log.SetProgress(shouldShowProgress(opts))
	onProgress := func(completed, total int) {
		log.Progress("Fetching %d/%d collections...", completed, total)
	}

	engine, err := sess.newEngine(power.NewStatic(false), onProgress)
	if err != nil {
		return err
	}
	defer engine.Stop()

	log.Info("refreshing", "lookback_days", sess.settings.LookbackDays, "credential", sess.tokens.Describe())
	engine.RefreshNow(ctx)
	log.ProgressClear()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := engine.Snapshot()
	if !snap.HasData() && snap.LastError == nil {
		return errNoCredential
	}

	formatter := output.NewFormatter(format, sess.settings.LookbackDays)
	if err := formatter.Format(snap, cmd.OutOrStdout()); err != nil {
		return err
	}

	if snap.LastError != nil {
		return fmt.Errorf("refresh failed: %s", describeFailure(snap.LastError))
	}
	return nil
}

// describeFailure adds a hint for the failures a user can act on.
func describeFailure(err error) string {
	switch oura.KindOf(err) {
	case oura.KindUnauthorized:
		return err.Error() + " (the access token was rejected; run 'vitals token set')"
	case oura.KindRateLimited:
		return err.Error() + " (rate limited; try again later)"
	case oura.KindNetwork:
		return err.Error() + " (check your network connection)"
	default:
		return err.Error()
	}
}
