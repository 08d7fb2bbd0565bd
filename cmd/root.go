package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := NewOptions()

	rootCmd := &cobra.Command{
		Use:   "vitals",
		Short: "Readiness, sleep and heart rate from your ring",
		Long: `A CLI tool that pulls readiness, sleep and heart rate records from
the ring's cloud API and shows today's values alongside recent history.

Run 'vitals fetch' for a one-off refresh, or 'vitals run' to keep a
refreshed snapshot available over a local control API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// `vitals` and `vitals fetch` behave identically
	addFetchFlags(rootCmd, opts)
	addGlobalFlags(rootCmd, opts)

	rootCmd.AddCommand(NewCmdFetch(opts))
	rootCmd.AddCommand(NewCmdRun(opts))
	rootCmd.AddCommand(NewCmdToken(opts))
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}

func addGlobalFlags(cmd *cobra.Command, opts *Options) {
	flags := cmd.PersistentFlags()
	flags.CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	flags.StringVar(&opts.Token, "token", "", "Access token (overrides $VITALS_TOKEN; the credential store takes precedence)")

	// Profiling flags
	flags.StringVar(&opts.CPUProfile, "cpuprofile", "", "Write CPU profile to file")
	flags.StringVar(&opts.MemProfile, "memprofile", "", "Write memory profile to file")
	flags.StringVar(&opts.Trace, "trace", "", "Write execution trace to file")
}
