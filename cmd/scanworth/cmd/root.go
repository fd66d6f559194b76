// Package cmd implements the scanworth CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "scanworth",
		Short: "Resale price estimates from marketplace data",
		Long: "scanworth aggregates current listings and sold comps across\n" +
			"marketplace sources and serves robust resale price statistics\n" +
			"over an HTTP API.",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
