//go:build windows

package trim

import "golang.org/x/sys/windows"

// PlatformTrimmer trims working sets through the Win32 API.
type PlatformTrimmer struct{}

// NewPlatformTrimmer returns the Windows trimmer.
func NewPlatformTrimmer() Trimmer {
	return PlatformTrimmer{}
}

// Trim asks the OS to empty the process working set. Passing -1 for both
// bounds is the documented "trim now" request.
func (PlatformTrimmer) Trim(pid int32) error {
	handle, err := windows.OpenProcess(
		windows.PROCESS_SET_QUOTA|windows.PROCESS_QUERY_INFORMATION,
		false,
		uint32(pid),
	)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)

	const trimAll = ^uintptr(0)
	return windows.SetProcessWorkingSetSizeEx(handle, trimAll, trimAll, 0)
}
