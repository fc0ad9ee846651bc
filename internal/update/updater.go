// Package update implements the self-update state machine: decide whether a
// check is due, fetch and validate the manifest, download and SHA-256-verify
// the payload, and atomically install it over the running executable.
//
// Every outcome is a terminal status string consumed by logging; nothing in
// this package is surfaced to the caller as a run failure.
package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aatumaykin/hostkeeper/internal/logger"
)

// Status is the terminal outcome of one self-update evaluation.
type Status string

const (
	// StatusSkip means self-update is disabled by configuration.
	StatusSkip Status = "skip"
	// StatusNotDue means the check interval has not elapsed; no network call
	// was made and no state was mutated.
	StatusNotDue Status = "not-due"
	// StatusUpdateError covers transport failures, timeouts and any
	// unexpected failure after the check became due.
	StatusUpdateError Status = "update-error"
	// StatusBadManifest means the manifest was missing required fields.
	StatusBadManifest Status = "bad-manifest"
	// StatusUpToDate means the manifest version equals the installed one.
	StatusUpToDate Status = "up-to-date"
	// StatusHashMismatch means the downloaded payload failed verification
	// and was discarded.
	StatusHashMismatch Status = "hash-mismatch"
)

// StatusUpdated is the terminal status of a successful install.
func StatusUpdated(version string) Status {
	return Status("updated:" + version)
}

const (
	defaultManifestTimeout = 10 * time.Second
	defaultDownloadTimeout = 20 * time.Second
)

var errBadManifest = errors.New("bad manifest")

// Config holds configuration for the updater.
type Config struct {
	Enabled     bool
	CheckEvery  time.Duration // minimum interval between due checks
	ManifestURL string

	// BaselineVersion seeds the state on first run, before any install.
	BaselineVersion string

	// ExecutablePath is the artifact replaced on install. Empty means the
	// running executable.
	ExecutablePath string

	ManifestTimeout time.Duration // default 10s
	DownloadTimeout time.Duration // default 20s

	// HTTPClient overrides the client used for manifest and payload fetches.
	HTTPClient *http.Client

	// Clock overrides the time source; nil means time.Now.
	Clock func() time.Time
}

// Updater evaluates the self-update state machine once per run.
type Updater struct {
	config Config
	store  *StateStore
	client *http.Client
	logger *logger.Logger
}

// New creates an updater backed by the given state store.
func New(config Config, store *StateStore, log *logger.Logger) *Updater {
	if config.ManifestTimeout <= 0 {
		config.ManifestTimeout = defaultManifestTimeout
	}
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = defaultDownloadTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Updater{
		config: config,
		store:  store,
		client: client,
		logger: log,
	}
}

// Check runs one evaluation of the state machine and returns its terminal
// status. The installed version advances only on a verified install; the
// last-check timestamp advances exactly once per due check, success or not.
func (u *Updater) Check(ctx context.Context) Status {
	if !u.config.Enabled {
		return StatusSkip
	}

	state := u.store.Load(u.config.BaselineVersion)
	now := u.config.Clock()

	if now.Sub(state.LastUpdateCheck) < u.config.CheckEvery {
		return StatusNotDue
	}

	// The check is due: consume the interval before touching the network.
	// A failing update source is then retried once per interval, never once
	// per run.
	state.LastUpdateCheck = now
	if err := u.store.Save(state); err != nil && u.logger != nil {
		u.logger.Warn("failed to persist update check timestamp",
			logger.Field{Key: "error", Value: err.Error()})
	}

	manifest, err := u.fetchManifest(ctx)
	if err != nil {
		if errors.Is(err, errBadManifest) {
			u.logError("manifest rejected", err)
			return StatusBadManifest
		}
		u.logError("manifest fetch failed", err)
		return StatusUpdateError
	}

	if manifest.Version == state.Version {
		return StatusUpToDate
	}

	payload, err := u.download(ctx, manifest.DownloadURL)
	if err != nil {
		u.logError("payload download failed", err)
		return StatusUpdateError
	}

	sum, err := fileSHA256(payload)
	if err != nil {
		os.Remove(payload)
		u.logError("payload hash computation failed", err)
		return StatusUpdateError
	}
	if !strings.EqualFold(sum, manifest.SHA256) {
		os.Remove(payload)
		if u.logger != nil {
			// Could indicate tampering, not just corruption; keep both
			// digests visible in the log.
			u.logger.Warn("payload hash mismatch, artifact discarded",
				logger.Field{Key: "expected", Value: manifest.SHA256},
				logger.Field{Key: "actual", Value: sum})
		}
		return StatusHashMismatch
	}

	if err := u.install(payload); err != nil {
		os.Remove(payload)
		u.logError("install failed", err)
		return StatusUpdateError
	}

	state.Version = manifest.Version
	if err := u.store.Save(state); err != nil {
		u.logError("failed to persist installed version", err)
		return StatusUpdateError
	}

	if u.logger != nil {
		u.logger.Info("self-update installed",
			logger.Field{Key: "version", Value: manifest.Version})
	}
	return StatusUpdated(manifest.Version)
}

func (u *Updater) logError(msg string, err error) {
	if u.logger != nil {
		u.logger.Error(msg, err)
	}
}

// fetchManifest GETs and parses the manifest under the manifest timeout.
func (u *Updater) fetchManifest(ctx context.Context) (Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, u.config.ManifestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.config.ManifestURL, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to build manifest request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Manifest{}, fmt.Errorf("manifest request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest body: %w", err)
	}

	return parseManifest(data)
}

// download fetches the payload into a private temp file next to the target
// executable (same volume, so the final rename is atomic) and returns its
// path. The caller owns the file.
func (u *Updater) download(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.config.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download request returned status %d", resp.StatusCode)
	}

	exe, err := u.executablePath()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(exe), ".hostkeeper-update-*")
	if err != nil {
		return "", fmt.Errorf("failed to create payload temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close payload file: %w", err)
	}

	return tmpPath, nil
}

// install swaps the verified payload into the executable's place: the current
// artifact is renamed aside, the payload renamed in, and the old artifact
// removed best-effort (on Windows the running image cannot be unlinked; the
// leftover .old is cleaned up by the next successful install).
func (u *Updater) install(payload string) error {
	exe, err := u.executablePath()
	if err != nil {
		return err
	}

	mode := os.FileMode(0755)
	if info, err := os.Stat(exe); err == nil {
		mode = info.Mode()
	}
	if err := os.Chmod(payload, mode); err != nil {
		return fmt.Errorf("failed to set payload mode: %w", err)
	}

	old := exe + ".old"
	_ = os.Remove(old)

	if err := os.Rename(exe, old); err != nil {
		return fmt.Errorf("failed to move current artifact aside: %w", err)
	}
	if err := os.Rename(payload, exe); err != nil {
		// Put the original back so the host still has a working binary.
		_ = os.Rename(old, exe)
		return fmt.Errorf("failed to move payload into place: %w", err)
	}

	_ = os.Remove(old)
	return nil
}

func (u *Updater) executablePath() (string, error) {
	if u.config.ExecutablePath != "" {
		return u.config.ExecutablePath, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve running executable: %w", err)
	}
	return exe, nil
}

// fileSHA256 returns the lowercase hex SHA-256 digest of a file's contents.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
