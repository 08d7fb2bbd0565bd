package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/spiffcs/vitals/internal/auth"
	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/model"
	"github.com/spiffcs/vitals/internal/oura"
	"github.com/spiffcs/vitals/internal/secret"
)

// NewCmdToken creates the token command with subcommands.
func NewCmdToken(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored access token",
		Long: `Manage the personal access token used for API requests.

The stored token takes precedence over --token and $VITALS_TOKEN.

Subcommands:
  set       Store a token (prompts when no value is given)
  delete    Remove the stored token
  status    Show where the active token comes from`,
	}

	cmd.AddCommand(NewCmdTokenSet(opts))
	cmd.AddCommand(NewCmdTokenDelete(opts))
	cmd.AddCommand(NewCmdTokenStatus(opts))

	return cmd
}

// NewCmdTokenSet creates the token set subcommand.
func NewCmdTokenSet(opts *Options) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store an access token",
		Long: `Store an access token in the configured credential store.

Without an argument the token is read from the terminal without echo, or
from standard input when it is not a terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenSet(cmd, opts, args, verify)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", true, "Check the token against the API before storing it")

	return cmd
}

// NewCmdTokenDelete creates the token delete subcommand.
func NewCmdTokenDelete(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenDelete(cmd, opts)
		},
	}
}

// NewCmdTokenStatus creates the token status subcommand.
func NewCmdTokenStatus(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the active access token comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenStatus(cmd, opts)
		},
	}
}

func runTokenSet(cmd *cobra.Command, opts *Options, args []string, verify bool) error {
	log.Initialize(opts.Verbosity, os.Stderr)

	var value string
	if len(args) == 1 {
		value = args[0]
	} else {
		var err error
		value, err = readToken(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("token cannot be empty")
	}

	sess, err := newSession(opts)
	if err != nil {
		return err
	}
	if sess.store == nil {
		return fmt.Errorf("credential store %q is unavailable", sess.settings.CredentialStore)
	}

	if verify {
		if err := verifyToken(cmd.Context(), sess.client, value, time.Now()); err != nil {
			return err
		}
	}

	if err := sess.store.Save(value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Token %s stored in %s.\n",
		color.GreenString("✓"), auth.Mask(value), sess.settings.CredentialStore)
	return nil
}

// readToken prompts on a terminal without echo, or reads one line from a
// pipe.
func readToken(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Access token: ")
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return line, nil
}

// readinessProber is the one call token verification needs.
type readinessProber interface {
	DrainReadiness(ctx context.Context, rng model.DateRange, tok *oauth2.Token) ([]model.Readiness, error)
}

// verifyToken requests one day of readiness with the candidate token.
func verifyToken(ctx context.Context, client readinessProber, value string, now time.Time) error {
	tok, err := auth.Static(value).Token()
	if err != nil {
		return err
	}
	if _, err := client.DrainReadiness(ctx, model.Today(now), tok); err != nil {
		if oura.KindOf(err) == oura.KindUnauthorized {
			return errors.New("the API rejected this token (401 Unauthorized); nothing was stored")
		}
		return fmt.Errorf("could not verify token (use --verify=false to store it anyway): %w", err)
	}
	return nil
}

func runTokenDelete(cmd *cobra.Command, opts *Options) error {
	log.Initialize(opts.Verbosity, os.Stderr)

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}
	store, err := secret.New(settings.CredentialStore)
	if err != nil {
		return err
	}

	if err := store.Delete(); err != nil {
		if errors.Is(err, secret.ErrNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No token stored.")
			return nil
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token removed from %s.\n", settings.CredentialStore)
	return nil
}

func runTokenStatus(cmd *cobra.Command, opts *Options) error {
	log.Initialize(opts.Verbosity, os.Stderr)

	sess, err := newSession(opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Credential store: %s\n", sess.settings.CredentialStore)
	tok, err := sess.tokens.Token()
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		fmt.Fprintf(out, "Active token:     %s\n", color.YellowString("none"))
		return errNoCredential
	case err != nil:
		fmt.Fprintf(out, "Active token:     %s\n", color.RedString("error"))
		return err
	}
	fmt.Fprintf(out, "Active token:     %s (from %s)\n", auth.Mask(tok.AccessToken), sess.tokens.Describe())
	return nil
}
