package config

import (
	"os"
	"path/filepath"
	"runtime"
)

func applyDefaults(c *Config) {
	if c.Thresholds.CPUPercent == 0 {
		c.Thresholds.CPUPercent = 90
	}
	if c.Thresholds.MemoryPercent == 0 {
		c.Thresholds.MemoryPercent = 90
	}
	if c.Thresholds.DiskFreeGB == 0 {
		c.Thresholds.DiskFreeGB = 5
	}

	if c.Actions.TempFileOlderThanDays == 0 {
		c.Actions.TempFileOlderThanDays = 7
	}
	if c.Actions.MaxDeleteMBPerRun == 0 {
		c.Actions.MaxDeleteMBPerRun = 512
	}

	if c.SelfUpdate.CheckEveryHours == 0 {
		c.SelfUpdate.CheckEveryHours = 24
	}

	if len(c.Paths.TempDirs) == 0 {
		c.Paths.TempDirs = DefaultTempDirs()
	}
	if c.Paths.DeliveryOptimizationDir == "" {
		c.Paths.DeliveryOptimizationDir = DefaultDeliveryOptimizationDir()
	}

	if c.Schedule.IntervalMinutes == 0 {
		c.Schedule.IntervalMinutes = 30
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.ReportMaxSizeMB == 0 {
		c.Logging.ReportMaxSizeMB = 10
	}

	if c.Telemetry.Listen == "" {
		c.Telemetry.Listen = ":9321"
	}
}

// DefaultTempDirs returns the platform temp directories, in cleanup priority
// order: the machine temp directory first, then the per-user one. Generic
// temp files are reclaimed before specialized caches.
func DefaultTempDirs() []string {
	if runtime.GOOS == "windows" {
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Temp"), os.TempDir()}
	}
	return []string{"/tmp", "/var/tmp"}
}

// DefaultDeliveryOptimizationDir returns the OS update-payload cache, the
// lowest-priority cleanup target.
func DefaultDeliveryOptimizationDir() string {
	if runtime.GOOS == "windows" {
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return filepath.Join(windir, "SoftwareDistribution", "DeliveryOptimization")
	}
	return "/var/cache/apt/archives"
}

// ResolveStateDir returns the configured state directory, defaulting to the
// directory of the running executable.
func (c *Config) ResolveStateDir() (string, error) {
	if c.Paths.StateDir != "" {
		return c.Paths.StateDir, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// ResolveLockFile returns the configured lock file path, defaulting to
// hostkeeper.lock inside the state directory.
func (c *Config) ResolveLockFile() (string, error) {
	if c.Paths.LockFile != "" {
		return c.Paths.LockFile, nil
	}
	stateDir, err := c.ResolveStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "hostkeeper.lock"), nil
}
