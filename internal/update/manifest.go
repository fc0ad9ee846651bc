package update

import (
	"encoding/json"
	"fmt"
)

// Manifest is the remote document describing the latest available version.
// It is untrusted input: integrity of the payload rests entirely on the
// sha256 check, the fields themselves are only validated for presence.
type Manifest struct {
	Version     string `json:"version"`
	DownloadURL string `json:"downloadUrl"`
	SHA256      string `json:"sha256"`
}

// parseManifest decodes and validates a manifest document. All three fields
// must be present and non-empty or the manifest is rejected.
func parseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", errBadManifest, err)
	}
	if m.Version == "" || m.DownloadURL == "" || m.SHA256 == "" {
		return Manifest{}, fmt.Errorf("%w: version, downloadUrl and sha256 are all required", errBadManifest)
	}
	return m, nil
}
