//go:build windows

package tunnel

import "os"

// processExists relies on FindProcess opening a handle, which fails for
// unknown PIDs on Windows.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}
