package agent

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// reportTimeFormat matches the historical run log layout.
const reportTimeFormat = "2006-01-02 15:04:05"

// Report writes the pipe-delimited per-run summary lines:
//
//	2026-03-14 09:00:00 | metrics | cpu=12.3 mem=45.6 disk_free_gb=120.4
//
// The file rotates by size and keeps exactly one backup generation.
type Report struct {
	w     io.Writer
	clock func() time.Time
}

// NewReport creates a report writing to path. maxSizeMB bounds the file size
// before rotation.
func NewReport(path string, maxSizeMB int) *Report {
	return &Report{
		w: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: 1,
		},
		clock: time.Now,
	}
}

// Line appends one phase line. Write failures are ignored: the report is an
// operator convenience, never a reason to fail a run.
func (r *Report) Line(phase, summary string) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.w, "%s | %s | %s\n", r.clock().Format(reportTimeFormat), phase, summary)
}
