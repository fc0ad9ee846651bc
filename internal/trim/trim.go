// Package trim best-effort reduces the working set of allow-listed processes.
// The OS call's effect is not observable synchronously, so the runner reports
// the count of successful invocation attempts, not bytes freed.
package trim

import (
	"context"
	"errors"
	"strings"

	"github.com/IGLOU-EU/go-wildcard"
	"github.com/aatumaykin/hostkeeper/internal/logger"
	"github.com/shirou/gopsutil/v4/process"
)

// ErrUnsupported is returned by the platform trimmer where the OS offers no
// working-set trim call.
var ErrUnsupported = errors.New("working-set trim is not supported on this platform")

// Trimmer is the platform capability of trimming one process's working set.
type Trimmer interface {
	Trim(pid int32) error
}

// ProcessInfo identifies one running process.
type ProcessInfo struct {
	PID  int32
	Name string
}

// ProcessLister enumerates running processes.
type ProcessLister interface {
	Processes(ctx context.Context) ([]ProcessInfo, error)
}

// GopsutilLister enumerates processes via gopsutil. Processes whose name
// cannot be read (typically permission denied) are omitted.
type GopsutilLister struct{}

func (GopsutilLister) Processes(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		infos = append(infos, ProcessInfo{PID: p.Pid, Name: name})
	}
	return infos, nil
}

// Runner matches processes against an allowlist and trims each match.
type Runner struct {
	lister  ProcessLister
	trimmer Trimmer
	logger  *logger.Logger
}

// NewRunner creates a trim runner.
func NewRunner(lister ProcessLister, trimmer Trimmer, log *logger.Logger) *Runner {
	return &Runner{
		lister:  lister,
		trimmer: trimmer,
		logger:  log,
	}
}

// TrimAllowed trims every running process whose name matches one of the
// allowlist patterns and returns the number of successful trim invocations.
// A process that fails to trim is silently skipped; there is no retry.
func (r *Runner) TrimAllowed(ctx context.Context, allowlist []string) int {
	if len(allowlist) == 0 {
		return 0
	}

	processes, err := r.lister.Processes(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("failed to enumerate processes for trim",
				logger.Field{Key: "error", Value: err.Error()})
		}
		return 0
	}

	trimmed := 0
	for _, p := range processes {
		if !Matches(p.Name, allowlist) {
			continue
		}
		if err := r.trimmer.Trim(p.PID); err != nil {
			if r.logger != nil {
				r.logger.Debug("working-set trim failed, skipping",
					logger.Field{Key: "process", Value: p.Name},
					logger.Field{Key: "pid", Value: p.PID},
					logger.Field{Key: "error", Value: err.Error()})
			}
			continue
		}
		trimmed++
	}

	if r.logger != nil {
		r.logger.Info("working-set trim done",
			logger.Field{Key: "trimmed", Value: trimmed})
	}
	return trimmed
}

// Matches reports whether a process name matches any allowlist pattern,
// case-insensitively. Patterns may use * and ? wildcards.
func Matches(name string, allowlist []string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range allowlist {
		if wildcard.Match(strings.ToLower(pattern), lower) {
			return true
		}
	}
	return false
}
