// Package platform provides the OS-level primitives zerobuffer is built on:
// named shared memory, a named counting semaphore, an advisory file lock,
// and a process-liveness probe. All four are Linux-specific, mirroring the
// teacher feeder's own choice to hardcode /dev/shm rather than abstract
// over multiple operating systems.
package platform

import (
	"os"
	"path/filepath"
)

// CurrentPID returns the calling process's PID as the uint64 zerobuffer
// stores in OIEB's writer_pid/reader_pid fields.
func CurrentPID() uint64 {
	return uint64(os.Getpid())
}

// rootDir is the well-known temp directory all zerobuffer resources for a
// given buffer name are rooted under (spec.md §6: "<temp_dir>/zerobuffer/...").
func rootDir() string {
	dir := os.Getenv("ZEROBUFFER_TMPDIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "zerobuffer")
}

// LockDir returns the directory advisory lock files live in.
func LockDir() string {
	return filepath.Join(rootDir(), "locks")
}

// LockPath returns the advisory lock file path for a buffer name.
func LockPath(name string) string {
	return filepath.Join(LockDir(), name+".lock")
}

// SharedMemoryPath returns the backing file path for a buffer's shared
// memory segment, grounded on the teacher's "/dev/shm/<name>" convention
// in shm/ring.go and shm/matrix.go.
func SharedMemoryPath(name string) string {
	return filepath.Join("/dev/shm", "zerobuffer", name)
}
