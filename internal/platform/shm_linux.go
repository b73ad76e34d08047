//go:build linux

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrAlreadyExists and ErrNotFound distinguish the two failure modes
// CreateExclusive/OpenExisting must surface distinctly (spec.md §4.1).
var (
	ErrAlreadyExists = errors.New("platform: shared memory already exists")
	ErrNotFound       = errors.New("platform: shared memory not found")
)

// SharedMemory is a named shared-memory segment backed by a file under
// /dev/shm and mapped with mmap — the same mechanism as the teacher's
// shm.NewRingBuffer/shm.NewMatrix, generalized to create-exclusive vs.
// open-existing and to an explicit Flush/barrier call.
type SharedMemory struct {
	file *os.File
	data []byte
	path string
}

// CreateExclusive creates a new shared memory segment of the given size,
// failing with ErrAlreadyExists if one is already present at this name.
func CreateExclusive(name string, size int) (*SharedMemory, error) {
	path := SharedMemoryPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return &SharedMemory{file: f, data: data, path: path}, nil
}

// OpenExisting opens an already-created shared memory segment by name.
func OpenExisting(name string) (*SharedMemory, error) {
	path := SharedMemoryPath(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := int(fi.Size())
	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &SharedMemory{file: f, data: data, path: path}, nil
}

// Remove unlinks the backing file for name. It does not require the
// segment to be mapped by the caller.
func Remove(name string) error {
	err := os.Remove(SharedMemoryPath(name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Bytes returns the mapped region. Valid only while the SharedMemory is
// open; callers must not retain slices derived from it past Close.
func (s *SharedMemory) Bytes() []byte { return s.data }

// Flush issues msync so stores made by this process become visible to the
// peer process mapping the same file — the memory barrier spec.md §5
// requires before every "data-available"/"space-available" post.
func (s *SharedMemory) Flush() error {
	return unix.Msync(s.data, unix.MS_SYNC)
}

// Close unmaps the segment and closes the file handle without unlinking
// the backing file (that is Remove's job, performed by whichever side owns
// teardown per spec.md §3).
func (s *SharedMemory) Close() error {
	err := syscall.Munmap(s.data)
	closeErr := s.file.Close()
	if err == nil {
		err = closeErr
	}
	return err
}
