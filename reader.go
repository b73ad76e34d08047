package zerobuffer

import (
	"sync"
	"time"

	"github.com/alephtx/zerobuffer/internal/logs"
	"github.com/alephtx/zerobuffer/internal/platform"
)

type readerState int

const (
	readerDetached readerState = iota
	readerOwning
	readerDisposed
)

// Reader creates and owns a zerobuffer. NewReader performs the atomic
// create-or-fail described in spec.md §4.3, including the stale-reclamation
// scan. At most one Reader may be attached to a given buffer name at a time.
type Reader struct {
	mu    sync.Mutex
	state readerState

	seg *segment
	log *logs.Logger

	lock  *platform.AdvisoryLock
	dataAvailable  *platform.Semaphore // sem-w-<name>, posted by the writer
	spaceAvailable *platform.Semaphore // sem-r-<name>, posted by this reader
}

// NewReader creates a new buffer named name with the given sizes. It fails
// with ErrReaderAlreadyConnected if a live reader already owns this name.
func NewReader(name string, cfg BufferConfig) (*Reader, error) {
	const op = "Reader.New"
	log := logs.Default().With("buffer", name)

	reclaimStaleBuffers()

	lockPath := platform.LockPath(name)
	lock, acquired, err := platform.CreateExclusiveLock(lockPath)
	if err != nil {
		return nil, newError(op, KindBackend, err)
	}
	if !acquired {
		// First attempt collided with a possibly-stale lock. Probe the
		// existing buffer's liveness once before giving up, per spec.md
		// §4.3 step 7 ("treat as possibly stale and retry once").
		if bufferIsDead(name) {
			reclaimOne(name)
			lock, acquired, err = platform.CreateExclusiveLock(lockPath)
			if err != nil {
				return nil, newError(op, KindBackend, err)
			}
		}
		if !acquired {
			return nil, newError(op, KindReaderAlreadyConnected, nil)
		}
	}

	l := computeLayout(cfg.MetadataSize, cfg.PayloadSize)

	rollback := func(shm *platform.SharedMemory, w, r *platform.Semaphore) {
		if w != nil {
			platform.RemoveSemaphore(lockPath, platform.ProjWriter)
		}
		if r != nil {
			platform.RemoveSemaphore(lockPath, platform.ProjReader)
		}
		if shm != nil {
			shm.Close()
		}
		platform.Remove(name)
		lock.Release(true)
	}

	shm, err := platform.CreateExclusive(name, int(l.TotalSize))
	if err != nil {
		lock.Release(true)
		if err == platform.ErrAlreadyExists {
			return nil, newError(op, KindReaderAlreadyConnected, err)
		}
		return nil, newError(op, KindBackend, err)
	}

	seg := mapSegment(name, shm, l)
	initOIEB(seg.oieb, l, cfg)

	dataSem, err := platform.CreateExclusiveSemaphore(lockPath, platform.ProjWriter)
	if err != nil {
		rollback(shm, nil, nil)
		return nil, newError(op, KindBackend, err)
	}
	spaceSem, err := platform.CreateExclusiveSemaphore(lockPath, platform.ProjReader)
	if err != nil {
		rollback(shm, dataSem, nil)
		return nil, newError(op, KindBackend, err)
	}

	seg.oieb.storeReaderPID(platform.CurrentPID())
	if err := seg.flush(); err != nil {
		rollback(shm, dataSem, spaceSem)
		return nil, newError(op, KindBackend, err)
	}

	log.Info("buffer created", "metadata_size", cfg.MetadataSize, "payload_size", cfg.PayloadSize)
	return &Reader{
		state:          readerOwning,
		seg:            seg,
		log:            log,
		lock:           lock,
		dataAvailable:  dataSem,
		spaceAvailable: spaceSem,
	}, nil
}

func initOIEB(o *oieb, l layout, cfg BufferConfig) {
	o.OiebSize = oiebSize
	o.Version = encodeVersion(versionMajor, versionMinor, versionPatch)
	o.MetadataSize = l.MetadataBlock
	o.MetadataFree = l.MetadataBlock
	o.MetadataUsed = 0
	o.PayloadSize = l.PayloadBlock
	o.PayloadFree = l.PayloadBlock
	o.PayloadWritePos = 0
	o.PayloadReadPos = 0
	o.PayloadWritten = 0
	o.PayloadRead = 0
	o.WriterPID = 0
	o.ReaderPID = 0
	_ = cfg
}

// GetMetadata returns the opaque metadata payload written once by the
// writer (possibly empty if the writer hasn't called SetMetadata yet).
func (r *Reader) GetMetadata() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != readerOwning {
		return nil, newError("Reader.GetMetadata", KindBackend, errBufferNotReady)
	}
	return readMetadataBlock(r.seg.metadata), nil
}

// ReadFrame blocks up to timeout for the next logical frame. A negative
// timeout blocks indefinitely. See spec.md §4.5 for the full algorithm.
func (r *Reader) ReadFrame(timeout time.Duration) (*FrameView, error) {
	const op = "Reader.ReadFrame"
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != readerOwning {
		return InvalidFrame, newError(op, KindBackend, errBufferNotReady)
	}

	acquired, err := r.dataAvailable.Wait(timeout)
	if err != nil {
		return InvalidFrame, newError(op, KindBackend, err)
	}
	if !acquired {
		if r.writerAliveLocked() {
			return InvalidFrame, nil // Invalid: timeout, writer still alive
		}
		return InvalidFrame, newError(op, KindWriterDead, nil)
	}

	o := r.seg.oieb
	pos := o.loadPayloadReadPos()
	h := readFrameHeader(r.seg.ring, pos)

	if h.PayloadSize == 0 {
		// Wrap marker: jump to ring offset 0, crediting the wasted tail
		// bytes back to payload_free_bytes, and do NOT post
		// space-available (spec.md §4.5 step 3 / §9).
		ringSize := o.loadPayloadSize()
		wasted := ringSize - pos
		o.addPayloadFree(wasted)
		o.storePayloadReadPos(0)
		o.addPayloadRead(1)
		pos = 0
		h = readFrameHeader(r.seg.ring, pos)
	}

	ringSize := o.loadPayloadSize()
	if h.PayloadSize == 0 || h.PayloadSize > ringSize {
		return InvalidFrame, newError(op, KindInvalidFrameSize, nil)
	}

	dataStart := pos + frameHeaderSize
	view := &FrameView{
		reader:     r,
		data:       r.seg.ring[dataStart : dataStart+h.PayloadSize],
		sequence:   h.SequenceNumber,
		recordSize: frameHeaderSize + h.PayloadSize,
	}

	newPos := (pos + frameHeaderSize + h.PayloadSize) % ringSize
	o.storePayloadReadPos(newPos)
	o.addPayloadRead(1)

	return view, nil
}

// releaseFrame is the FrameView RAII hook: credit the consumed bytes back
// to payload_free_bytes and post space-available exactly once (spec.md
// §4.5 step 7). The release-once check is performed here, under r.mu,
// rather than with an atomic flag on FrameView itself, so two goroutines
// racing to Release the same *FrameView can never both win.
func (r *Reader) releaseFrame(f *FrameView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.released {
		return nil
	}
	f.released = true
	if r.state != readerOwning {
		return nil
	}
	r.seg.oieb.addPayloadFree(f.recordSize)
	if err := r.seg.flush(); err != nil {
		return newError("FrameView.Release", KindBackend, err)
	}
	if err := r.spaceAvailable.Release(); err != nil {
		return newError("FrameView.Release", KindBackend, err)
	}
	return nil
}

// IsWriterConnected polls OIEB and process liveness until a writer appears
// or timeoutMs elapses. timeoutMs of 0 performs a single immediate check.
func (r *Reader) IsWriterConnected(timeoutMs int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		if r.writerAliveLocked() {
			return true
		}
		if timeoutMs <= 0 || time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (r *Reader) writerAliveLocked() bool {
	pid := r.seg.oieb.loadWriterPID()
	return pid != 0 && platform.ProcessExists(pid)
}

// Dispose releases the reader's resources (idempotent). Per spec.md §3
// ("the reader is responsible for unlinking [shared resources] on normal
// teardown"), the reader clears its PID, closes its handles, and unlinks
// the shared memory, semaphores and lock file so the next creator doesn't
// need the stale-reclamation path.
func (r *Reader) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != readerOwning {
		return nil
	}
	r.state = readerDisposed

	r.seg.oieb.storeReaderPID(0)
	_ = r.seg.flush()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if err != nil {
			r.log.Warn("dispose: secondary failure", "err", err)
		}
	}

	record(r.seg.close())
	record(platform.RemoveSemaphore(r.lock.Path(), platform.ProjWriter))
	record(platform.RemoveSemaphore(r.lock.Path(), platform.ProjReader))
	record(platform.Remove(r.seg.name))
	record(r.lock.Release(true))

	return firstErr
}
