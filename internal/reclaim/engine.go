// Package reclaim deletes aged files from candidate locations under a shared
// byte budget. The budget bound is approximate by contract: the engine checks
// remaining budget before each deletion, so the file in flight when the
// threshold is reached may push the total over by up to its own size.
package reclaim

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/IGLOU-EU/go-wildcard"
	"github.com/aatumaykin/hostkeeper/internal/logger"
)

// Config holds configuration for the reclamation engine.
type Config struct {
	// Exclude lists wildcard patterns (matched case-insensitively against
	// file base names) that are never deleted regardless of age.
	Exclude []string

	// Clock overrides the time source; nil means time.Now. Tests use it to
	// pin the age cutoff.
	Clock func() time.Time
}

// Engine performs budgeted reclamation passes.
type Engine struct {
	config Config
	logger *logger.Logger
}

// NewEngine creates a reclamation engine.
func NewEngine(config Config, log *logger.Logger) *Engine {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Engine{
		config: config,
		logger: log,
	}
}

type candidate struct {
	path    string
	size    int64
	modTime time.Time
}

// Reclaim deletes aged files under target.Path, largest first, until the
// budget is met. A missing path is not an error; the zero Result is returned.
// Individual deletion failures are recorded as skipped and their sizes are
// not counted toward Freed.
func (e *Engine) Reclaim(target Target, budget ByteBudget) Result {
	start := e.config.Clock()
	result := Result{Target: target}
	cutoff := start.AddDate(0, 0, -target.OlderThanDays)

	if _, err := os.Stat(target.Path); os.IsNotExist(err) {
		if e.logger != nil {
			e.logger.Debug("reclaim target does not exist, skipping",
				logger.Field{Key: "target", Value: target.Name},
				logger.Field{Key: "path", Value: target.Path})
		}
		return result
	}

	candidates := e.collect(target.Path, cutoff, &result)

	// Largest first: a constrained budget frees the most space per deletion
	// and the loop can terminate early.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].size > candidates[j].size
	})

	for _, c := range candidates {
		// Checked before the deletion, never after. Do not tighten: the
		// overshoot by up to one file size is part of the contract.
		if result.Freed >= budget.Remaining() {
			break
		}

		if err := os.Remove(c.path); err != nil {
			result.Skipped = append(result.Skipped, SkippedFile{
				Path:   c.path,
				Size:   c.size,
				Reason: err.Error(),
			})
			if e.logger != nil {
				e.logger.Debug("failed to delete file, skipping",
					logger.Field{Key: "path", Value: c.path},
					logger.Field{Key: "reason", Value: err.Error()})
			}
			continue
		}

		result.Freed += c.size
		result.Deleted++
	}

	result.Duration = e.config.Clock().Sub(start)

	if e.logger != nil {
		e.logger.Info("reclaim target done",
			logger.Field{Key: "target", Value: target.Name},
			logger.Field{Key: "freed_mb", Value: result.FreedMB()},
			logger.Field{Key: "deleted", Value: result.Deleted},
			logger.Field{Key: "skipped", Value: len(result.Skipped)},
			logger.Field{Key: "examined", Value: result.Examined})
	}

	return result
}

// collect walks the target recursively and returns regular files whose
// modification time is strictly older than the cutoff.
func (e *Engine) collect(root string, cutoff time.Time, result *Result) []candidate {
	var candidates []candidate

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped silently, same as deletion
			// failures.
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		result.Examined++

		if e.excluded(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}

		candidates = append(candidates, candidate{
			path:    path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})

	return candidates
}

func (e *Engine) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range e.config.Exclude {
		if wildcard.Match(strings.ToLower(pattern), lower) {
			return true
		}
	}
	return false
}

// Run reclaims all targets in their given priority order, threading one
// shared budget forward: each target sees the original budget minus
// everything freed before it. An exhausted budget still invokes the
// remaining targets; their pre-delete check fires immediately so they no-op.
func (e *Engine) Run(targets []Target, budget ByteBudget) ([]Result, int64) {
	results := make([]Result, 0, len(targets))
	var total int64

	for _, target := range targets {
		result := e.Reclaim(target, budget)
		budget = budget.Spend(result.Freed)
		total += result.Freed
		results = append(results, result)
	}

	return results, total
}
