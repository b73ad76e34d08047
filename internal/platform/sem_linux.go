//go:build linux

package platform

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// ErrTimeout is returned by Wait when the timeout elapses before the
// semaphore is posted.
var ErrTimeout = errors.New("platform: semaphore wait timed out")

// Semaphore is a named counting semaphore backed by a SysV semaphore set
// with a single member. SysV semaphores are the cgo-free way to get a real
// blocking, timed, cross-process counting semaphore on Linux (POSIX named
// semaphores via sem_open require cgo; nothing in the retrieved pack links
// cgo for this kind of primitive). The "name" is derived from the
// (device, inode) of the buffer's advisory lock file plus a one-byte
// project id, following the classic ftok(3) key-derivation scheme.
type Semaphore struct {
	id int
}

// projID distinguishes the two semaphores sharing one buffer name: "w" for
// "data-available" (posted by the writer), "r" for "space-available"
// (posted by the reader) — matching spec.md §6's sem-w-<name>/sem-r-<name>
// naming.
type projID byte

const (
	ProjWriter projID = 'w'
	ProjReader projID = 'r'
)

func ftokKey(lockPath string, proj projID) (int32, error) {
	var st unix.Stat_t
	if err := unix.Stat(lockPath, &st); err != nil {
		return 0, err
	}
	key := (int32(proj) << 24) | (int32(st.Dev&0xff) << 16) | int32(st.Ino&0xffff)
	return key, nil
}

// CreateExclusiveSemaphore creates a new semaphore keyed off lockPath/proj
// with an initial count of 0 (both zerobuffer semaphores start at 0 per
// spec.md §3), failing if one already exists for this key.
func CreateExclusiveSemaphore(lockPath string, proj projID) (*Semaphore, error) {
	key, err := ftokKey(lockPath, proj)
	if err != nil {
		return nil, err
	}
	id, err := unix.Semget(int(key), 1, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		return nil, err
	}
	return &Semaphore{id: id}, nil
}

// OpenExistingSemaphore opens a semaphore previously created by
// CreateExclusiveSemaphore for the same lockPath/proj.
func OpenExistingSemaphore(lockPath string, proj projID) (*Semaphore, error) {
	key, err := ftokKey(lockPath, proj)
	if err != nil {
		return nil, err
	}
	id, err := unix.Semget(int(key), 1, 0o600)
	if err != nil {
		return nil, err
	}
	return &Semaphore{id: id}, nil
}

// RemoveSemaphore unlinks the semaphore set for lockPath/proj. Safe to call
// even if no such set exists.
func RemoveSemaphore(lockPath string, proj projID) error {
	key, err := ftokKey(lockPath, proj)
	if err != nil {
		return err
	}
	id, err := unix.Semget(int(key), 1, 0)
	if err != nil {
		return nil // already gone
	}
	_, err = unix.SemctlInt(id, 0, unix.IPC_RMID, 0)
	return err
}

// Wait blocks until the semaphore is posted or timeout elapses. A negative
// timeout blocks indefinitely ("infinite timeout" in spec.md §4.1); zero
// performs a non-blocking try. Returns (true, nil) if acquired, (false,
// nil) on timeout, or (false, err) on a backend failure.
func (s *Semaphore) Wait(timeout time.Duration) (bool, error) {
	op := []unix.Sembuf{{SemNum: 0, SemOp: -1, SemFlg: 0}}
	if timeout < 0 {
		if err := unix.Semop(s.id, op); err != nil {
			return false, err
		}
		return true, nil
	}
	if timeout == 0 {
		op[0].SemFlg = unix.IPC_NOWAIT
		err := unix.Semop(s.id, op)
		if err == nil {
			return true, nil
		}
		if err == unix.EAGAIN {
			return false, nil
		}
		return false, err
	}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	err := unix.Semtimedop(s.id, op, &ts)
	if err == nil {
		return true, nil
	}
	if err == unix.EAGAIN {
		return false, nil
	}
	return false, err
}

// TryWait is a non-blocking Wait(0), kept as a distinct method to mirror
// the platform contract in spec.md §4.1 ("wait(0) is non-blocking").
func (s *Semaphore) TryWait() (bool, error) { return s.Wait(0) }

// Release posts the semaphore exactly once.
func (s *Semaphore) Release() error {
	op := []unix.Sembuf{{SemNum: 0, SemOp: 1, SemFlg: 0}}
	return unix.Semop(s.id, op)
}
