// Package config provides configuration loading and validation for
// hostkeeper. It supports TOML configuration files with environment variable
// expansion, default values, and comprehensive validation.
//
// Configuration structure:
//   - [thresholds]: utilization levels that trigger a reclamation pass
//   - [actions]: what a reclamation pass is allowed to do
//   - [self_update]: manifest-driven self-update settings
//   - [paths]: state directory, cleanup target overrides, lock file
//   - [schedule]: daemon-mode run cadence
//   - [logging]: logging level, format, output, per-run report file
//   - [telemetry]: prometheus endpoint
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax. For example: manifest_url = "${HOSTKEEPER_MANIFEST_URL}"
package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Actions    ActionsConfig    `toml:"actions"`
	SelfUpdate SelfUpdateConfig `toml:"self_update"`
	Paths      PathsConfig      `toml:"paths"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// ThresholdsConfig holds the breach levels that gate a reclamation pass.
// CPU and memory breach at or above their percentage; the disk threshold is
// a free-space floor and breaches at or below.
type ThresholdsConfig struct {
	CPUPercent    float64 `toml:"cpu_percent"`
	MemoryPercent float64 `toml:"memory_percent"`
	DiskFreeGB    float64 `toml:"disk_free_gb"`
}

// ActionsConfig holds what a triggered maintenance pass actually does.
type ActionsConfig struct {
	CleanupTemp                 bool     `toml:"cleanup_temp"`
	CleanupDeliveryOptimization bool     `toml:"cleanup_delivery_optimization"`
	TempFileOlderThanDays       int      `toml:"temp_file_older_than_days"`
	MaxDeleteMBPerRun           int64    `toml:"max_delete_mb_per_run"`
	TrimWorkingSet              bool     `toml:"trim_working_set"`
	TrimProcessAllowlist        []string `toml:"trim_process_allowlist"`
	ExcludePatterns             []string `toml:"exclude_patterns"`
}

// SelfUpdateConfig holds self-update settings.
type SelfUpdateConfig struct {
	Enabled         bool   `toml:"enabled"`
	CheckEveryHours int    `toml:"check_every_hours"`
	ManifestURL     string `toml:"manifest_url"`
}

// CheckEveryDuration returns the check interval as a time.Duration.
func (c SelfUpdateConfig) CheckEveryDuration() time.Duration {
	return time.Duration(c.CheckEveryHours) * time.Hour
}

// PathsConfig holds filesystem locations. Empty values are resolved to
// per-platform defaults at load time.
type PathsConfig struct {
	StateDir                string   `toml:"state_dir"`
	TempDirs                []string `toml:"temp_dirs"`
	DeliveryOptimizationDir string   `toml:"delivery_optimization_dir"`
	LockFile                string   `toml:"lock_file"`
}

// ScheduleConfig holds the daemon-mode cadence. A non-empty cron expression
// takes precedence over the interval.
type ScheduleConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	Cron            string `toml:"cron"`
}

// LoggingConfig holds logging configuration. ReportFile, when set, receives
// the pipe-delimited per-run summary lines and rotates by size keeping one
// .bak-style backup generation.
type LoggingConfig struct {
	Level           string `toml:"level"`
	Format          string `toml:"format"`
	Output          string `toml:"output"`
	ReportFile      string `toml:"report_file"`
	ReportMaxSizeMB int    `toml:"report_max_size_mb"`
}

// TelemetryConfig holds the prometheus endpoint settings.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}
