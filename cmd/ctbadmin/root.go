package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"ctbadmin/internal/config"
)

type rootOptions struct {
	json    bool
	timings bool
}

// newRootCmd builds the command tree. The app is opened lazily before any
// subcommand runs and closed afterwards.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:           "ctbadmin",
		Short:         "Administration console for the Centre Bien-Être catalog and content",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err = newApp(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a == nil {
				return nil
			}
			defer a.close()
			if opts.timings {
				return printTimings(cmd.ErrOrStderr(), a)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVar(&opts.timings, "timings", false, "print request and query timings after the command")

	get := func() *app { return a }
	root.AddCommand(
		newLoginCmd(get, opts),
		newLogoutCmd(get),
		newWhoamiCmd(get, opts),
		newCatalogCmd(get, opts),
		newCapsulesCmd(get, opts),
		newQuotesCmd(get, opts),
		newNewsletterCmd(get, opts),
		newDashboardCmd(get, opts),
	)
	return root
}

// commandContext returns a context cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

// authed wraps a RunE so it only runs with a validated session.
func authed(get func() *app, run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		a := get()
		if a == nil {
			return fmt.Errorf("application not initialised")
		}
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		return run(ctx, a, cmd, args)
	}
}
