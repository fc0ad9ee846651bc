// Package agent orchestrates one maintenance run: sample utilization,
// evaluate thresholds, reclaim disk and trim working sets when breached, and
// always evaluate self-update. Everything executes strictly in sequence;
// local failures are logged and skipped, never escalated.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/hostkeeper/internal/config"
	"github.com/aatumaykin/hostkeeper/internal/logger"
	"github.com/aatumaykin/hostkeeper/internal/reclaim"
	"github.com/aatumaykin/hostkeeper/internal/sysmon"
	"github.com/aatumaykin/hostkeeper/internal/telemetry"
	"github.com/aatumaykin/hostkeeper/internal/update"
	"github.com/google/uuid"
)

// Updater evaluates the self-update state machine once.
type Updater interface {
	Check(ctx context.Context) update.Status
}

// TrimRunner trims allow-listed processes and reports the success count.
type TrimRunner interface {
	TrimAllowed(ctx context.Context, allowlist []string) int
}

// Deps are the collaborators of one Agent. Metrics and Report may be nil.
type Deps struct {
	Sampler sysmon.Sampler
	Engine  *reclaim.Engine
	Trim    TrimRunner
	Updater Updater
	Metrics *telemetry.Metrics
	Report  *Report
	Logger  *logger.Logger
	Clock   func() time.Time
}

// Agent runs maintenance passes.
type Agent struct {
	config *config.Config
	deps   Deps
}

// RunReport is the explicit outcome of one maintenance run.
type RunReport struct {
	RunID        string
	Metrics      sysmon.Metrics
	Breached     bool
	Reclaimed    []reclaim.Result
	FreedBytes   int64
	Trimmed      int
	UpdateStatus update.Status
	Duration     time.Duration
}

// New creates an agent.
func New(cfg *config.Config, deps Deps) *Agent {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Agent{
		config: cfg,
		deps:   deps,
	}
}

// Run executes one maintenance pass and returns its report.
func (a *Agent) Run(ctx context.Context) RunReport {
	start := a.deps.Clock()
	report := RunReport{RunID: uuid.NewString()}

	log := a.deps.Logger
	if log != nil {
		log = log.With(logger.Field{Key: "run_id", Value: report.RunID})
	}

	metrics, err := a.deps.Sampler.Sample(ctx)
	if err != nil && log != nil {
		// Partial samples are fine; failed probes stay at zero.
		log.Warn("metric sampling incomplete",
			logger.Field{Key: "error", Value: err.Error()})
	}
	report.Metrics = metrics

	if a.deps.Metrics != nil {
		a.deps.Metrics.ObserveSample(metrics.CPUPercent, metrics.MemoryPercent, metrics.DiskFreeGB)
	}
	if log != nil {
		log.Info("metrics sampled",
			logger.Field{Key: "cpu", Value: metrics.CPUPercent},
			logger.Field{Key: "mem", Value: metrics.MemoryPercent},
			logger.Field{Key: "disk_free_gb", Value: metrics.DiskFreeGB})
	}
	a.deps.Report.Line("metrics", fmt.Sprintf("cpu=%.1f mem=%.1f disk_free_gb=%.1f",
		metrics.CPUPercent, metrics.MemoryPercent, metrics.DiskFreeGB))

	report.Breached = sysmon.Evaluate(metrics, sysmon.Thresholds{
		CPUPercent:    a.config.Thresholds.CPUPercent,
		MemoryPercent: a.config.Thresholds.MemoryPercent,
		DiskFreeGB:    a.config.Thresholds.DiskFreeGB,
	})

	if report.Breached {
		a.optimize(ctx, &report, log)
	} else if log != nil {
		log.Debug("no threshold breached, skipping reclamation")
	}

	// Self-update is evaluated every run, independent of thresholds.
	report.UpdateStatus = a.deps.Updater.Check(ctx)
	if a.deps.Metrics != nil {
		a.deps.Metrics.ObserveSelfUpdate(string(report.UpdateStatus))
	}
	if log != nil {
		log.Info("self-update evaluated",
			logger.Field{Key: "status", Value: string(report.UpdateStatus)})
	}
	a.deps.Report.Line("selfupdate", fmt.Sprintf("status=%s", report.UpdateStatus))

	report.Duration = a.deps.Clock().Sub(start)
	if a.deps.Metrics != nil {
		a.deps.Metrics.ObserveRun(report.Duration)
	}

	return report
}

// optimize runs the budgeted reclamation pass followed by the working-set
// trim, in that order.
func (a *Agent) optimize(ctx context.Context, report *RunReport, log *logger.Logger) {
	targets := a.Targets()
	if len(targets) > 0 {
		budget := reclaim.NewByteBudget(reclaim.MBToBytes(a.config.Actions.MaxDeleteMBPerRun))
		report.Reclaimed, report.FreedBytes = a.deps.Engine.Run(targets, budget)

		if a.deps.Metrics != nil {
			for _, result := range report.Reclaimed {
				a.deps.Metrics.ObserveReclaim(result.Freed, result.Deleted, len(result.Skipped))
			}
		}
	}

	if a.config.Actions.TrimWorkingSet && a.deps.Trim != nil {
		report.Trimmed = a.deps.Trim.TrimAllowed(ctx, a.config.Actions.TrimProcessAllowlist)
		if a.deps.Metrics != nil {
			a.deps.Metrics.ObserveTrim(report.Trimmed)
		}
	}

	a.deps.Report.Line("optimize", fmt.Sprintf("freed_mb=%d deleted=%d trimmed=%d budget_mb=%d",
		report.FreedBytes/(1024*1024), countDeleted(report.Reclaimed), report.Trimmed,
		a.config.Actions.MaxDeleteMBPerRun))
}

// Targets builds the cleanup targets in their fixed priority order: the
// configured temp directories first, the delivery-optimization cache last.
// The order is policy and must not change.
func (a *Agent) Targets() []reclaim.Target {
	var targets []reclaim.Target

	if a.config.Actions.CleanupTemp {
		for i, dir := range a.config.Paths.TempDirs {
			targets = append(targets, reclaim.Target{
				Name:          fmt.Sprintf("temp%d", i+1),
				Path:          dir,
				OlderThanDays: a.config.Actions.TempFileOlderThanDays,
			})
		}
	}

	if a.config.Actions.CleanupDeliveryOptimization {
		targets = append(targets, reclaim.Target{
			Name:          "delivery-optimization",
			Path:          a.config.Paths.DeliveryOptimizationDir,
			OlderThanDays: a.config.Actions.TempFileOlderThanDays,
		})
	}

	return targets
}

func countDeleted(results []reclaim.Result) int {
	total := 0
	for _, r := range results {
		total += r.Deleted
	}
	return total
}
