package zerobuffer

import (
	"os"
	"strings"

	"github.com/alephtx/zerobuffer/internal/platform"
)

// reclaimStaleBuffers scans the lock directory for buffers left behind by
// dead processes and unlinks their shared memory and semaphores, per
// spec.md §4.3's stale-reclamation rule: a buffer may only be reclaimed by
// a process that (a) holds the advisory lock and (b) has verified both
// OIEB PIDs are zero or dead.
func reclaimStaleBuffers() {
	entries, err := os.ReadDir(platform.LockDir())
	if err != nil {
		return // no lock dir yet; nothing to reclaim
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".lock") {
			continue
		}
		name := strings.TrimSuffix(ent.Name(), ".lock")
		reclaimOne(name)
	}
}

func reclaimOne(name string) {
	path := platform.LockPath(name)
	lock, acquired, err := platform.TryRemoveStale(path)
	if err != nil || !acquired {
		return // live owner, or a transient error — leave it alone
	}
	defer lock.Release(true)

	if !bufferIsDead(name) {
		return // readable OIEB shows a live process; not actually stale
	}

	platform.Remove(name)
	platform.RemoveSemaphore(path, platform.ProjWriter)
	platform.RemoveSemaphore(path, platform.ProjReader)
}

// bufferIsDead reports true when the buffer's OIEB is unreadable (treat as
// safe to reclaim) or when both writer_pid and reader_pid are zero/dead.
func bufferIsDead(name string) bool {
	shm, err := platform.OpenExisting(name)
	if err != nil {
		return true
	}
	defer shm.Close()

	base := shm.Bytes()
	if len(base) < oiebSize {
		return true
	}
	o := castOIEB(base)
	if o.loadOiebSize() != oiebSize {
		return true
	}
	writer := o.loadWriterPID()
	reader := o.loadReaderPID()
	writerDead := writer == 0 || !platform.ProcessExists(writer)
	readerDead := reader == 0 || !platform.ProcessExists(reader)
	return writerDead && readerDead
}
