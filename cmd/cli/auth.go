package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/ecoeat/internal/errs"
)

var (
	authEmail    string
	authPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.client.Register(ctx, authEmail, authPassword)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (id %s)\n", p.Email, p.ID)
			return nil
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the access token on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			tok, p, err := a.client.Login(ctx, authEmail, authPassword)
			if err != nil {
				switch {
				case errors.Is(err, errs.ErrUnauthorized):
					return errors.New("invalid email or password")
				case errors.Is(err, errs.ErrRateLimited):
					return errors.New("too many failed attempts, try again later")
				}
				return err
			}
			if err := a.session.SignIn(tok, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (token valid until %s)\n", p.Email, tok.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, a *app) error {
			if err := a.session.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if a.session.Current() == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in (guest)")
				return nil
			}
			p, err := a.client.Me(ctx)
			if err != nil {
				if errors.Is(err, errs.ErrUnauthorized) {
					return errors.New("session expired, run `ecoeat login`")
				}
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ID: %s\nEmail: %s\n", p.ID, p.Email)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}
