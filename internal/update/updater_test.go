package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseline = "1.0.0"

type testServer struct {
	*httptest.Server
	manifestBody string
	manifestHits int64
	downloadHits int64
}

// newTestServer serves /manifest.json and /payload. The manifest body may be
// set after construction, so it can reference the server's own URL.
func newTestServer(t *testing.T, manifestBody string, payload []byte) *testServer {
	t.Helper()
	ts := &testServer{manifestBody: manifestBody}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/manifest.json":
			atomic.AddInt64(&ts.manifestHits, 1)
			fmt.Fprint(w, ts.manifestBody)
		case "/payload":
			atomic.AddInt64(&ts.downloadHits, 1)
			w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Server.Close)
	return ts
}

func manifestJSON(version, downloadURL, sum string) string {
	return fmt.Sprintf(`{"version":%q,"downloadUrl":%q,"sha256":%q}`, version, downloadURL, sum)
}

func payloadSum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// newTestUpdater creates an updater whose "executable" is a fake file in a
// temp dir and whose state lives in another temp dir.
func newTestUpdater(t *testing.T, cfg Config) (*Updater, *StateStore, string) {
	t.Helper()
	exeDir := t.TempDir()
	exe := filepath.Join(exeDir, "hostkeeper")
	require.NoError(t, os.WriteFile(exe, []byte("old binary"), 0755))

	store := NewStateStore(t.TempDir(), nil)

	cfg.Enabled = true
	cfg.BaselineVersion = baseline
	cfg.ExecutablePath = exe
	if cfg.CheckEvery == 0 {
		cfg.CheckEvery = 24 * time.Hour
	}
	return New(cfg, store, nil), store, exe
}

func TestCheck_DisabledIsSkip(t *testing.T) {
	store := NewStateStore(t.TempDir(), nil)
	u := New(Config{Enabled: false}, store, nil)

	assert.Equal(t, StatusSkip, u.Check(context.Background()))
	assert.NoFileExists(t, store.Path(), "skip must not create state")
}

func TestCheck_NotDueMakesNoNetworkCall(t *testing.T) {
	server := newTestServer(t, manifestJSON("2.0.0", "x", "y"), nil)
	u, store, _ := newTestUpdater(t, Config{ManifestURL: server.URL + "/manifest.json"})

	lastCheck := time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(State{LastUpdateCheck: lastCheck, Version: baseline}))

	assert.Equal(t, StatusNotDue, u.Check(context.Background()))
	assert.Zero(t, atomic.LoadInt64(&server.manifestHits))

	state := store.Load(baseline)
	assert.True(t, state.LastUpdateCheck.Equal(lastCheck), "not-due must not mutate state")
	assert.Equal(t, baseline, state.Version)
}

func TestCheck_FirstRunIsDue(t *testing.T) {
	server := newTestServer(t, manifestJSON(baseline, "x", "y"), nil)
	u, store, _ := newTestUpdater(t, Config{ManifestURL: server.URL + "/manifest.json"})

	// No state file: defaulted epoch timestamp makes the check due.
	status := u.Check(context.Background())

	assert.Equal(t, StatusUpToDate, status)
	assert.EqualValues(t, 1, atomic.LoadInt64(&server.manifestHits))
	state := store.Load(baseline)
	assert.WithinDuration(t, time.Now(), state.LastUpdateCheck, time.Minute)
}

func TestCheck_TransportErrorAdvancesLastCheck(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	u, store, _ := newTestUpdater(t, Config{ManifestURL: server.URL + "/manifest.json"})

	before := time.Now()
	assert.Equal(t, StatusUpdateError, u.Check(context.Background()))

	state := store.Load(baseline)
	assert.False(t, state.LastUpdateCheck.Before(before), "due check must consume the interval even on failure")
	assert.Equal(t, baseline, state.Version, "version must not change on update-error")
}

func TestCheck_BadManifest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing sha256", body: `{"version":"2.0.0","downloadUrl":"http://example.com/x"}`},
		{name: "empty version", body: manifestJSON("", "http://example.com/x", "abc")},
		{name: "not json", body: `<html>maintenance</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.body, nil)
			u, store, _ := newTestUpdater(t, Config{ManifestURL: server.URL + "/manifest.json"})

			assert.Equal(t, StatusBadManifest, u.Check(context.Background()))
			assert.Equal(t, baseline, store.Load(baseline).Version)
		})
	}
}

func TestCheck_UpToDateSkipsDownload(t *testing.T) {
	server := newTestServer(t, "", []byte("payload"))
	server.manifestBody = manifestJSON(baseline, server.URL+"/payload", "deadbeef")
	u, _, _ := newTestUpdater(t, Config{ManifestURL: server.URL + "/manifest.json"})

	// Manifest version equals stored version.
	status := u.Check(context.Background())

	assert.Equal(t, StatusUpToDate, status)
	assert.Zero(t, atomic.LoadInt64(&server.downloadHits), "up-to-date must not download")
}

func TestCheck_HashMismatchDiscardsPayload(t *testing.T) {
	payload := []byte("new binary")
	server := newTestServer(t, "", payload)
	server.manifestBody = manifestJSON("2.0.0", server.URL+"/payload", strings.Repeat("ab", 32))

	u, store, exe := newTestUpdater(t, Config{ManifestURL: server.URL + "/manifest.json"})

	before := time.Now()
	assert.Equal(t, StatusHashMismatch, u.Check(context.Background()))

	state := store.Load(baseline)
	assert.Equal(t, baseline, state.Version, "version must not advance on hash mismatch")
	assert.False(t, state.LastUpdateCheck.Before(before), "last check stays advanced")

	content, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Equal(t, "old binary", string(content))

	// The rejected payload temp file must be gone.
	entries, err := os.ReadDir(filepath.Dir(exe))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".hostkeeper-update-"),
			"leftover temp file %s", e.Name())
	}
}

func TestCheck_VerifiedInstallReplacesArtifact(t *testing.T) {
	payload := []byte("new binary contents")
	server := newTestServer(t, "", payload)
	// Uppercase digest: comparison is case-insensitive.
	server.manifestBody = manifestJSON("2.0.0", server.URL+"/payload", strings.ToUpper(payloadSum(payload)))

	u, store, exe := newTestUpdater(t, Config{ManifestURL: server.URL + "/manifest.json"})

	assert.Equal(t, StatusUpdated("2.0.0"), u.Check(context.Background()))

	content, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	state := store.Load(baseline)
	assert.Equal(t, "2.0.0", state.Version)
}

func TestCheck_LastCheckMonotonicAcrossRuns(t *testing.T) {
	server := newTestServer(t, manifestJSON(baseline, "x", "y"), nil)
	u, store, _ := newTestUpdater(t, Config{
		ManifestURL: server.URL + "/manifest.json",
		CheckEvery:  time.Nanosecond,
	})

	var previous time.Time
	for i := 0; i < 3; i++ {
		u.Check(context.Background())
		state := store.Load(baseline)
		assert.False(t, state.LastUpdateCheck.Before(previous), "last check must be non-decreasing")
		previous = state.LastUpdateCheck
		time.Sleep(time.Millisecond)
	}
}
