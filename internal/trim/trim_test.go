package trim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLister struct {
	procs []ProcessInfo
	err   error
}

func (f fakeLister) Processes(_ context.Context) ([]ProcessInfo, error) {
	return f.procs, f.err
}

type fakeTrimmer struct {
	failPIDs map[int32]bool
	calls    []int32
}

func (f *fakeTrimmer) Trim(pid int32) error {
	f.calls = append(f.calls, pid)
	if f.failPIDs[pid] {
		return errors.New("access denied")
	}
	return nil
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name      string
		process   string
		allowlist []string
		want      bool
	}{
		{name: "exact match", process: "chrome.exe", allowlist: []string{"chrome.exe"}, want: true},
		{name: "wildcard match", process: "chrome.exe", allowlist: []string{"chrome*"}, want: true},
		{name: "case insensitive", process: "Chrome.EXE", allowlist: []string{"chrome*"}, want: true},
		{name: "no match", process: "explorer.exe", allowlist: []string{"chrome*", "java*"}, want: false},
		{name: "empty allowlist", process: "chrome.exe", allowlist: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.process, tt.allowlist))
		})
	}
}

func TestTrimAllowed_CountsSuccessfulInvocations(t *testing.T) {
	lister := fakeLister{procs: []ProcessInfo{
		{PID: 1, Name: "chrome.exe"},
		{PID: 2, Name: "chrome.exe"},
		{PID: 3, Name: "explorer.exe"},
		{PID: 4, Name: "java.exe"},
	}}
	trimmer := &fakeTrimmer{failPIDs: map[int32]bool{2: true}}
	runner := NewRunner(lister, trimmer, nil)

	count := runner.TrimAllowed(context.Background(), []string{"chrome*", "java*"})

	// Three matches, one of which fails and is silently skipped.
	assert.Equal(t, 2, count)
	assert.Equal(t, []int32{1, 2, 4}, trimmer.calls)
}

func TestTrimAllowed_EmptyAllowlistDoesNothing(t *testing.T) {
	trimmer := &fakeTrimmer{}
	runner := NewRunner(fakeLister{procs: []ProcessInfo{{PID: 1, Name: "chrome.exe"}}}, trimmer, nil)

	assert.Zero(t, runner.TrimAllowed(context.Background(), nil))
	assert.Empty(t, trimmer.calls)
}

func TestTrimAllowed_ListerFailureIsSoft(t *testing.T) {
	runner := NewRunner(fakeLister{err: errors.New("boom")}, &fakeTrimmer{}, nil)

	assert.Zero(t, runner.TrimAllowed(context.Background(), []string{"*"}))
}
