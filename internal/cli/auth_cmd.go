package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"costbook/internal/auth"
)

type credentials struct {
	email    string
	password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&c.password, "password", "", "account password (default: $COSTBOOK_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
}

func (c *credentials) resolvedPassword() string {
	if c.password != "" {
		return c.password
	}
	return os.Getenv("COSTBOOK_PASSWORD")
}

func newSignupCmd(rt *runtime) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := rt.app.Auth.Signup(cmd.Context(), creds.email, creds.resolvedPassword())
			if err != nil {
				return authFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s\n", sess.Email)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an existing account",
		Long: `Login starts a session. Later commands replicate changes for this user;
run "costbook sync" to pull the account's records into the local state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := rt.app.Auth.Login(cmd.Context(), creds.email, creds.resolvedPassword())
			if err != nil {
				return authFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", sess.Email)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.Auth.Logout(cmd.Context()); err != nil {
				return authFailure(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if rt.app.Session == nil {
				fmt.Fprintln(out, "Not logged in (local profile)")
				return nil
			}
			if rt.json {
				return writeJSON(out, rt.app.Session)
			}
			fmt.Fprintf(out, "%s (%s)\n", rt.app.Session.Email, rt.app.Session.UserID)
			return nil
		},
	}
}

// authFailure surfaces the human readable part of an auth.Error.
func authFailure(err error) error {
	var ae *auth.Error
	if errors.As(err, &ae) {
		return errors.New(ae.Message)
	}
	return err
}
