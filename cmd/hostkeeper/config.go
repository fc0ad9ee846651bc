package main

import (
	"fmt"
	"os"

	"github.com/aatumaykin/hostkeeper/internal/config"
	"github.com/aatumaykin/hostkeeper/internal/constants"
	"github.com/aatumaykin/hostkeeper/internal/logger"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and manage Hostkeeper configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Initialize a minimal logger for this command
		log, err := logger.New(logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}

		configPath := constants.DefaultConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		log.Info("Validating configuration", logger.Field{Key: "path", Value: configPath})

		// Load configuration
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Error("Failed to load config", err)
			os.Exit(1)
		}

		// Validate configuration
		errors := cfg.Validate()
		if len(errors) > 0 {
			log.Error("Config validation failed", fmt.Errorf("%d errors", len(errors)))
			for _, e := range errors {
				log.Error("Validation error", e)
			}
			os.Exit(1)
		}

		log.Info("Configuration is valid")
	},
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init [config-file]",
	Short: "Write a starter configuration file",
	Long:  `Write a commented starter configuration to the given path (default: ./config.toml).`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath := constants.DefaultConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(os.Stderr, "Refusing to overwrite existing file: %s\n", configPath)
			os.Exit(1)
		}

		if err := os.WriteFile(configPath, []byte(starterConfig), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Wrote starter configuration to %s\n", configPath)
	},
}

const starterConfig = `# Hostkeeper configuration.

[thresholds]
# A maintenance pass triggers when ANY threshold is breached.
cpu_percent = 90.0
memory_percent = 90.0
disk_free_gb = 5.0

[actions]
cleanup_temp = true
cleanup_delivery_optimization = false
temp_file_older_than_days = 7
max_delete_mb_per_run = 512
trim_working_set = false
trim_process_allowlist = []
exclude_patterns = []

[self_update]
enabled = false
check_every_hours = 24
# manifest_url = "https://example.com/hostkeeper/manifest.json"

[paths]
# state_dir = ""          # defaults to the executable directory
# temp_dirs = []          # defaults to the platform temp directories
# lock_file = ""          # defaults to <state_dir>/hostkeeper.lock

[schedule]
interval_minutes = 30
# cron = "0 */2 * * *"    # takes precedence over interval_minutes

[logging]
level = "info"
format = "text"
output = "stdout"
# report_file = "hostkeeper-report.log"
report_max_size_mb = 10

[telemetry]
enabled = false
listen = ":9321"
`

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
}
