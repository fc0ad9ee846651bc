package reclaim

import "time"

// Target is one filesystem location eligible for reclamation. Targets are
// processed in the order given to Run; the order is a policy choice (generic
// temp directories before specialized caches) and must not be re-sorted.
type Target struct {
	Name          string // short label for logs and reports
	Path          string // directory walked recursively
	OlderThanDays int    // only files strictly older than now-N days are eligible
}

// SkippedFile records a file the engine attempted to delete but could not.
// Skipped sizes are never counted as freed.
type SkippedFile struct {
	Path   string
	Size   int64
	Reason string
}

// Result is the explicit outcome of reclaiming one target. Failures surface
// here instead of being swallowed, so callers can log and count them.
type Result struct {
	Target   Target
	Freed    int64         // bytes actually freed by successful deletions
	Deleted  int           // files deleted
	Examined int           // regular files seen during the walk
	Skipped  []SkippedFile // deletion attempts that failed
	Duration time.Duration
}

// FreedMB returns freed bytes as whole megabytes, for report lines.
func (r Result) FreedMB() int64 {
	return r.Freed / (1024 * 1024)
}
