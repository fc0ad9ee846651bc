package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hostkeeper",
	Short: "Hostkeeper - lightweight host maintenance agent",
	Long: `Hostkeeper watches host utilization and, when thresholds are breached,
reclaims disk space under a byte budget and trims process working sets.
It also keeps itself up to date from a signed release manifest.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
}
