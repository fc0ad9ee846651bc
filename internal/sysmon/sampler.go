// Package sysmon samples host resource utilization and decides whether a
// maintenance run should reclaim resources.
package sysmon

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Metrics is one sample of host utilization.
type Metrics struct {
	CPUPercent    float64 // total CPU utilization, 0-100
	MemoryPercent float64 // physical memory used, 0-100
	DiskFreeGB    float64 // free space on the system drive
}

// Sampler produces utilization metrics. Implementations must treat partial
// failure as soft: return what was sampled, zero the rest, and report the
// failure through the error without aborting.
type Sampler interface {
	Sample(ctx context.Context) (Metrics, error)
}

// GopsutilSampler samples via the gopsutil library.
type GopsutilSampler struct {
	// SystemPath is the mount point or drive whose free space is reported.
	// Empty means the platform system drive.
	SystemPath string

	// CPUInterval is the window cpu utilization is measured over.
	CPUInterval time.Duration
}

// NewGopsutilSampler creates a sampler for the platform system drive.
func NewGopsutilSampler() *GopsutilSampler {
	return &GopsutilSampler{
		SystemPath:  SystemDrivePath(),
		CPUInterval: time.Second,
	}
}

// SystemDrivePath returns the root of the system drive for this platform.
func SystemDrivePath() string {
	if runtime.GOOS == "windows" {
		if drive := os.Getenv("SystemDrive"); drive != "" {
			return drive + `\`
		}
		return `C:\`
	}
	return "/"
}

// Sample collects CPU, memory and disk metrics. Each failing probe leaves
// its field at zero; all probe errors are joined into the returned error.
func (s *GopsutilSampler) Sample(ctx context.Context) (Metrics, error) {
	var m Metrics
	var errs []error

	interval := s.CPUInterval
	if interval <= 0 {
		interval = time.Second
	}

	percents, err := cpu.PercentWithContext(ctx, interval, false)
	if err != nil {
		errs = append(errs, err)
	} else if len(percents) > 0 {
		m.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		m.MemoryPercent = vm.UsedPercent
	}

	path := s.SystemPath
	if path == "" {
		path = SystemDrivePath()
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		errs = append(errs, err)
	} else {
		m.DiskFreeGB = float64(usage.Free) / (1024 * 1024 * 1024)
	}

	return m, errors.Join(errs...)
}
