package agent

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aatumaykin/hostkeeper/internal/config"
	"github.com/aatumaykin/hostkeeper/internal/reclaim"
	"github.com/aatumaykin/hostkeeper/internal/sysmon"
	"github.com/aatumaykin/hostkeeper/internal/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSampler struct {
	metrics sysmon.Metrics
	err     error
}

func (f fakeSampler) Sample(_ context.Context) (sysmon.Metrics, error) {
	return f.metrics, f.err
}

type fakeUpdater struct {
	status update.Status
	calls  int
}

func (f *fakeUpdater) Check(_ context.Context) update.Status {
	f.calls++
	return f.status
}

type fakeTrim struct {
	count int
	calls int
}

func (f *fakeTrim) TrimAllowed(_ context.Context, _ []string) int {
	f.calls++
	return f.count
}

func testConfig(t *testing.T, tempDir string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Thresholds = config.ThresholdsConfig{CPUPercent: 90, MemoryPercent: 90, DiskFreeGB: 5}
	cfg.Actions = config.ActionsConfig{
		CleanupTemp:           true,
		TempFileOlderThanDays: 7,
		MaxDeleteMBPerRun:     512,
	}
	cfg.Paths.TempDirs = []string{tempDir}
	return cfg
}

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestRun_NoBreachSkipsReclamation(t *testing.T) {
	dir := t.TempDir()
	aged := writeAgedFile(t, dir, "a.tmp", 10*24*time.Hour)

	updater := &fakeUpdater{status: update.StatusSkip}
	trim := &fakeTrim{}
	a := New(testConfig(t, dir), Deps{
		Sampler: fakeSampler{metrics: sysmon.Metrics{CPUPercent: 10, MemoryPercent: 20, DiskFreeGB: 100}},
		Engine:  reclaim.NewEngine(reclaim.Config{}, nil),
		Trim:    trim,
		Updater: updater,
	})

	report := a.Run(context.Background())

	assert.False(t, report.Breached)
	assert.Empty(t, report.Reclaimed)
	assert.FileExists(t, aged, "no reclamation without a breach")
	assert.Zero(t, trim.calls)
	assert.Equal(t, 1, updater.calls, "self-update is evaluated every run")
}

func TestRun_BreachTriggersReclamation(t *testing.T) {
	dir := t.TempDir()
	aged := writeAgedFile(t, dir, "a.tmp", 10*24*time.Hour)

	a := New(testConfig(t, dir), Deps{
		Sampler: fakeSampler{metrics: sysmon.Metrics{CPUPercent: 95, MemoryPercent: 20, DiskFreeGB: 100}},
		Engine:  reclaim.NewEngine(reclaim.Config{}, nil),
		Updater: &fakeUpdater{status: update.StatusNotDue},
	})

	report := a.Run(context.Background())

	assert.True(t, report.Breached)
	require.Len(t, report.Reclaimed, 1)
	assert.Equal(t, 1, report.Reclaimed[0].Deleted)
	assert.NoFileExists(t, aged)
	assert.Equal(t, update.StatusNotDue, report.UpdateStatus)
}

func TestRun_TrimOnlyWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Actions.TrimWorkingSet = true
	cfg.Actions.TrimProcessAllowlist = []string{"chrome*"}

	trim := &fakeTrim{count: 3}
	a := New(cfg, Deps{
		Sampler: fakeSampler{metrics: sysmon.Metrics{CPUPercent: 95}},
		Engine:  reclaim.NewEngine(reclaim.Config{}, nil),
		Trim:    trim,
		Updater: &fakeUpdater{status: update.StatusSkip},
	})

	report := a.Run(context.Background())

	assert.Equal(t, 1, trim.calls)
	assert.Equal(t, 3, report.Trimmed)
}

func TestRun_SamplerFailureIsSoft(t *testing.T) {
	dir := t.TempDir()
	a := New(testConfig(t, dir), Deps{
		Sampler: fakeSampler{err: assert.AnError},
		Engine:  reclaim.NewEngine(reclaim.Config{}, nil),
		Updater: &fakeUpdater{status: update.StatusSkip},
	})

	report := a.Run(context.Background())

	// Zeroed metrics: disk_free 0 <= floor, so the breach path still runs.
	assert.True(t, report.Breached)
	assert.NotEmpty(t, report.RunID)
}

func TestRun_WritesReportLines(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(t.TempDir(), "report.log")

	a := New(testConfig(t, dir), Deps{
		Sampler: fakeSampler{metrics: sysmon.Metrics{CPUPercent: 95, MemoryPercent: 40, DiskFreeGB: 50}},
		Engine:  reclaim.NewEngine(reclaim.Config{}, nil),
		Updater: &fakeUpdater{status: update.StatusUpToDate},
		Report:  NewReport(reportPath, 10),
	})

	a.Run(context.Background())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	timestamp := `\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`
	assert.Regexp(t, regexp.MustCompile(timestamp+` \| metrics \| cpu=95\.0 mem=40\.0 disk_free_gb=50\.0`), lines[0])
	assert.Regexp(t, regexp.MustCompile(timestamp+` \| optimize \| freed_mb=\d+ deleted=\d+ trimmed=\d+ budget_mb=512`), lines[1])
	assert.Regexp(t, regexp.MustCompile(timestamp+` \| selfupdate \| status=up-to-date`), lines[2])
}

func TestTargets_FixedPriorityOrder(t *testing.T) {
	cfg := testConfig(t, "/t1")
	cfg.Paths.TempDirs = []string{"/t1", "/t2"}
	cfg.Actions.CleanupDeliveryOptimization = true
	cfg.Paths.DeliveryOptimizationDir = "/do"

	a := New(cfg, Deps{})
	targets := a.Targets()

	require.Len(t, targets, 3)
	assert.Equal(t, "temp1", targets[0].Name)
	assert.Equal(t, "temp2", targets[1].Name)
	assert.Equal(t, "delivery-optimization", targets[2].Name)
}

func TestTargets_DisabledActionsProduceNoTargets(t *testing.T) {
	cfg := testConfig(t, "/t1")
	cfg.Actions.CleanupTemp = false

	a := New(cfg, Deps{})
	assert.Empty(t, a.Targets())
}
