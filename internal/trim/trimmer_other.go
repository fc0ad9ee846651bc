//go:build !windows

package trim

// PlatformTrimmer is a stub on platforms without a working-set trim call.
type PlatformTrimmer struct{}

// NewPlatformTrimmer returns the stub trimmer.
func NewPlatformTrimmer() Trimmer {
	return PlatformTrimmer{}
}

// Trim always reports ErrUnsupported; the caller counts it as a skip.
func (PlatformTrimmer) Trim(pid int32) error {
	return ErrUnsupported
}
