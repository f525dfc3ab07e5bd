// Package cli implements the gpuctl administrative command line client.
// Every command is a thin wrapper over the gpuhub HTTP API; nothing here
// touches the database directly.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gpuctl",
		Short:         "gpuctl: administer a gpuhub server from the terminal",
		Long:          "gpuctl talks to a running gpuhub server over its HTTP API: inspect per-user usage, reset daily quotas, enable or disable accounts, and view simulated fleet stats.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("server", "http://localhost:3001", "gpuhub server base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer token (or GPUCTL_TOKEN)")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	viper.SetEnvPrefix("gpuctl")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newLoginCmd(),
		newUsageCmd(),
		newQuotaCmd(),
		newUserCmd(),
		newStatsCmd(),
	)
	return rootCmd
}
