package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/duration"
	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/server"
)

// NewCmdRun creates the run command.
func NewCmdRun(opts *Options) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep the snapshot refreshed and serve it locally",
		Long: `Run the refresh engine in the foreground.

The engine refreshes on the configured interval (doubled while on battery)
and serves the latest snapshot over a local control API:

  GET  /api/v1/snapshot   current snapshot
  GET  /api/v1/status     refresh state without records
  POST /api/v1/refresh    run a cycle now
  GET  /api/v1/config     interval and lookback
  PUT  /api/v1/config     change interval and lookback
  GET  /api/v1/ws         snapshot stream (websocket)
  GET  /metrics           Prometheus metrics

Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts, listenAddr)
		},
	}

	cmd.Flags().IntVarP(&opts.LookbackDays, "days", "d", 0, "History window in days (7, 14, 30; default from config)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Control server address (default from config, "+constants.DefaultListenAddr+")")

	return cmd
}

func runDaemon(ctx context.Context, opts *Options, listenAddr string) error {
	stopProfiling, err := startProfiling(opts)
	defer stopProfiling()
	if err != nil {
		return err
	}

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	closeLog := initLogging(opts.Verbosity, settings.LogFile)
	defer closeLog()

	sess, err := newSession(opts)
	if err != nil {
		return err
	}
	if listenAddr == "" {
		listenAddr = sess.settings.ListenAddr
	}

	monitor, sysfs := newPowerMonitor(sess.settings)
	engine, err := sess.newEngine(monitor, nil)
	if err != nil {
		return err
	}

	handler := &sutureslog.Handler{Logger: log.Logger()}
	root := suture.New("vitals", suture.Spec{
		EventHook: handler.MustHook(),
		Timeout:   constants.ShutdownTimeout,
	})
	if sysfs != nil {
		root.Add(sysfs)
	}
	root.Add(engine)
	root.Add(server.New(engine, server.Options{Addr: listenAddr}))

	log.Info("starting",
		"interval", duration.FormatInterval(sess.settings.RefreshInterval),
		"lookback_days", sess.settings.LookbackDays,
		"power_constrained", monitor.Constrained(),
		"credential", sess.tokens.Describe())

	if err := root.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	log.Info("stopped")
	return nil
}
