package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ctbadmin/internal/application/orchestrators"
)

func newLoginCmd(get func() *app, root *rootOptions) *cobra.Command {
	var (
		emailAddr     string
		password      string
		passwordStdin bool
		remember      bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			a := get()

			if emailAddr == "" {
				emailAddr = a.session.LastEmail(ctx)
			}
			if passwordStdin {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			user, err := orchestrators.ExecuteLogin(ctx, orchestrators.LoginInput{
				Email:    emailAddr,
				Password: password,
				Remember: remember,
			}, orchestrators.LoginDeps{Session: a.session})
			if err != nil {
				return err
			}
			if root.json {
				return printJSON(cmd.OutOrStdout(), user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connecté en tant que %s (%s)\n", user.Email, dash(user.Role))
			return nil
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "account email (defaults to the remembered one)")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().BoolVar(&remember, "remember", false, "remember the email for the next login")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	return cmd
}

// readPassword reads the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orchestrators.ExecuteLogout(cmd.Context(), orchestrators.LoginDeps{Session: get().session})
			fmt.Fprintln(cmd.OutOrStdout(), "Déconnecté.")
			return nil
		},
	}
}

func newWhoamiCmd(get func() *app, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: authed(get, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			user, _ := a.session.User()
			if root.json {
				return printJSON(cmd.OutOrStdout(), user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user.Email, dash(user.Role))
			return nil
		}),
	}
}
