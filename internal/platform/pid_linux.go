//go:build linux

package platform

import "syscall"

// ProcessExists reports whether pid refers to a running process. It sends
// signal 0, which performs permission and existence checks without actually
// signaling the target — the same technique gdbx's processExists and many
// process managers use. A pid of 0 ("not attached") is always reported dead.
//
// False negatives are tolerable per spec.md §4.1: a live-but-unreachable
// process degrades to the semaphore-timeout detection path. EPERM means the
// process exists but we can't signal it (different user), which we treat as
// alive; any other error (ESRCH, etc.) means dead.
func ProcessExists(pid uint64) bool {
	if pid == 0 {
		return false
	}
	err := syscall.Kill(int(pid), 0)
	return err == nil || err == syscall.EPERM
}
