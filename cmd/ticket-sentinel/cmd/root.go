// Package cmd implements the CLI commands for ticket-sentinel.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ticket-sentinel",
	Short: "Database-resident alerting rules for the ticketing system",
	Long: "A rule engine that watches ticketing writes (logins, audited table " +
		"changes, job entries), derives security and follow-up alerts under a " +
		"per-user daily quota, and escalates alerts that go stale.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	viper.SetEnvPrefix("SENTINEL")
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))

	rootCmd.AddCommand(versionCommand())
}

// configPath resolves the config file path from the flag or SENTINEL_CONFIG.
func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return cfgFile
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
