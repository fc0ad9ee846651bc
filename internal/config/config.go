package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

// Load reads and parses a TOML configuration file, applies defaults and
// expands environment variable references. A missing file is an error: the
// agent refuses to start without explicit configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []error {
	var errors []error

	if c.Thresholds.CPUPercent < 0 || c.Thresholds.CPUPercent > 100 {
		errors = append(errors, fmt.Errorf("thresholds.cpu_percent must be between 0 and 100 (got %v)", c.Thresholds.CPUPercent))
	}
	if c.Thresholds.MemoryPercent < 0 || c.Thresholds.MemoryPercent > 100 {
		errors = append(errors, fmt.Errorf("thresholds.memory_percent must be between 0 and 100 (got %v)", c.Thresholds.MemoryPercent))
	}
	if c.Thresholds.DiskFreeGB < 0 {
		errors = append(errors, fmt.Errorf("thresholds.disk_free_gb must be >= 0 (got %v)", c.Thresholds.DiskFreeGB))
	}

	if c.Actions.TempFileOlderThanDays < 0 {
		errors = append(errors, fmt.Errorf("actions.temp_file_older_than_days must be >= 0 (got %d)", c.Actions.TempFileOlderThanDays))
	}
	if c.Actions.MaxDeleteMBPerRun < 0 {
		errors = append(errors, fmt.Errorf("actions.max_delete_mb_per_run must be >= 0 (got %d)", c.Actions.MaxDeleteMBPerRun))
	}
	if c.Actions.TrimWorkingSet && len(c.Actions.TrimProcessAllowlist) == 0 {
		errors = append(errors, fmt.Errorf("actions.trim_process_allowlist cannot be empty when trim_working_set is enabled"))
	}

	if c.SelfUpdate.Enabled {
		if c.SelfUpdate.CheckEveryHours < 1 {
			errors = append(errors, fmt.Errorf("self_update.check_every_hours must be >= 1 (got %d)", c.SelfUpdate.CheckEveryHours))
		}
		if c.SelfUpdate.ManifestURL == "" {
			errors = append(errors, fmt.Errorf("self_update.manifest_url is required when self_update is enabled"))
		} else if err := validateManifestURL(c.SelfUpdate.ManifestURL); err != nil {
			errors = append(errors, err)
		}
	}

	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.ReportMaxSizeMB < 1 {
		errors = append(errors, fmt.Errorf("logging.report_max_size_mb must be >= 1 (got %d)", c.Logging.ReportMaxSizeMB))
	}

	if c.Schedule.Cron != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Schedule.Cron); err != nil {
			errors = append(errors, fmt.Errorf("invalid schedule.cron expression %q: %w", c.Schedule.Cron, err))
		}
	} else if c.Schedule.IntervalMinutes < 1 {
		errors = append(errors, fmt.Errorf("schedule.interval_minutes must be >= 1 (got %d)", c.Schedule.IntervalMinutes))
	}

	if c.Telemetry.Enabled && c.Telemetry.Listen == "" {
		errors = append(errors, fmt.Errorf("telemetry.listen is required when telemetry is enabled"))
	}

	return errors
}

func validateManifestURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid self_update.manifest_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("self_update.manifest_url must use http or https (got %q)", raw)
	}
	return nil
}

// expandEnvVars expands ${VAR} / ${VAR:default} references and leading ~ in
// the fields where they make sense.
func expandEnvVars(c *Config) {
	if strings.HasPrefix(c.SelfUpdate.ManifestURL, "${") {
		c.SelfUpdate.ManifestURL = expandEnv(c.SelfUpdate.ManifestURL)
	}

	c.Paths.StateDir = expandHome(expandEnv(c.Paths.StateDir))
	c.Paths.DeliveryOptimizationDir = expandHome(expandEnv(c.Paths.DeliveryOptimizationDir))
	c.Paths.LockFile = expandHome(expandEnv(c.Paths.LockFile))
	for i, dir := range c.Paths.TempDirs {
		c.Paths.TempDirs[i] = expandHome(expandEnv(dir))
	}

	c.Logging.Output = expandHome(c.Logging.Output)
	c.Logging.ReportFile = expandHome(c.Logging.ReportFile)
}

// expandEnv expands an environment reference of the form ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(s[2:end])
}

// expandHome expands a leading ~ in a path.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
