package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and print a bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient()
			var resp struct {
				Token string `json:"token"`
			}
			err := client.do(http.MethodPost, "/api/auth/login",
				map[string]string{"email": email, "password": password}, &resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsageCmd() *cobra.Command {
	var all bool
	var date string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show daily quota usage (--all for every user, admin only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient()
			path := "/api/gpu/usage"
			if all {
				path = "/api/admin/usage/all"
			} else if date != "" {
				path += "?date=" + date
			}
			var out any
			if err := client.do(http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show usage for all enabled users")
	cmd.Flags().StringVar(&date, "date", "", "UTC date (YYYY-MM-DD, default today)")
	return cmd
}

func newQuotaCmd() *cobra.Command {
	quotaCmd := &cobra.Command{
		Use:   "quota",
		Short: "Manage daily quotas",
	}

	var date string
	resetCmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Zero a user's consumed minutes for a day (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			body := map[string]string{"userId": args[0]}
			if date != "" {
				body["date"] = date
			}
			if err := client.do(http.MethodPost, "/api/admin/quota/reset", body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "quota reset for %s\n", args[0])
			return nil
		},
	}
	resetCmd.Flags().StringVar(&date, "date", "", "UTC date (YYYY-MM-DD, default today)")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check the authenticated user's remaining minutes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient()
			var out any
			if err := client.do(http.MethodGet, "/api/gpu/quota/check", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	quotaCmd.AddCommand(resetCmd, checkCmd)
	return quotaCmd
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	userCmd.AddCommand(
		newUserEnabledCmd("enable", true),
		newUserEnabledCmd("disable", false),
	)
	return userCmd
}

func newUserEnabledCmd(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <user-id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a user account (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient()
			var resp struct {
				UserID  string `json:"userId"`
				Enabled bool   `json:"enabled"`
			}
			path := "/api/admin/users/" + args[0] + "/toggle"
			body := map[string]bool{"enabled": enabled}
			if err := client.do(http.MethodPut, path, body, &resp); err != nil {
				return err
			}
			state := "disabled"
			if resp.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s is now %s\n", resp.UserID, state)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show simulated GPU fleet stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient()
			var out any
			if err := client.do(http.MethodGet, "/api/gpu/stats", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
