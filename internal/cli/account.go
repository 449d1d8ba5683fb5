package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account management commands",
	}

	cmd.AddCommand(newAccountRegisterCmd())

	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := map[string]string{
				"username": user,
				"password": pass,
			}
			var result Account

			if err := client.Post(cmd.Context(), "/api/v1/accounts", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Login token commands",
	}

	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenRevokeCmd())

	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var user, pass string
	var save bool

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Exchange a username and password for a login token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			req := map[string]string{
				"username": user,
				"password": pass,
			}
			var result Token

			if err := client.Post(cmd.Context(), "/api/v1/tokens", req, &result); err != nil {
				return err
			}

			if save {
				if err := cfg.SaveToken(result.Token); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().BoolVar(&save, "save", true, "Save the token to the token file")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newTokenRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a login token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := client.Delete(cmd.Context(), "/api/v1/tokens/"+url.PathEscape(args[0]))
			if IsAPIError(err, "TOKEN_NOT_FOUND") {
				return fmt.Errorf("token is unknown or already expired")
			}
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Token revoked")
			return nil
		},
	}
}

func newRosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "List sessions admitted into the world",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Roster

			if err := client.Get(cmd.Context(), "/api/v1/roster", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
