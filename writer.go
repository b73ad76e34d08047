package zerobuffer

import (
	"sync"
	"time"

	"github.com/alephtx/zerobuffer/internal/logs"
	"github.com/alephtx/zerobuffer/internal/platform"
)

type writerState int

const (
	writerUnattached writerState = iota
	writerMetadataPending
	writerMetadataSet
	writerDisposed
)

// DefaultWriteTimeout is the default backpressure wait gating each
// suspension in Writer.GetFrameBuffer's allocation loop (spec.md §5).
const DefaultWriteTimeout = 5 * time.Second

// Writer connects to an existing buffer created by a Reader and produces
// frames into it. At most one Writer may be attached to a given buffer name
// at a time (spec.md §4.3).
type Writer struct {
	mu    sync.Mutex
	state writerState

	seg *segment
	log *logs.Logger

	dataAvailable  *platform.Semaphore // sem-w-<name>, posted by this writer
	spaceAvailable *platform.Semaphore // sem-r-<name>, posted by the reader

	writeTimeout time.Duration
	nextSequence uint64

	// pending* track the most recent GetFrameBuffer allocation awaiting
	// CommitFrame; recordSize of 0 means no allocation is outstanding.
	pendingWritePos   uint64
	pendingRecordSize uint64
}

// NewWriter connects to the buffer named name, created ahead of time by a
// Reader. Fails with ErrBufferNotFound if no such buffer exists yet, or
// ErrWriterAlreadyConnected if another live writer already holds it.
func NewWriter(name string) (*Writer, error) {
	const op = "Writer.New"
	log := logs.Default().With("buffer", name)

	lockPath := platform.LockPath(name)

	shm, err := platform.OpenExisting(name)
	if err != nil {
		if err == platform.ErrNotFound {
			return nil, newError(op, KindBufferNotFound, err)
		}
		return nil, newError(op, KindBackend, err)
	}

	base := shm.Bytes()
	if len(base) < oiebSize {
		shm.Close()
		return nil, newError(op, KindBufferNotFound, nil)
	}
	probe := castOIEB(base)
	if probe.loadOiebSize() != oiebSize {
		shm.Close()
		return nil, newError(op, KindBackend, nil)
	}
	major, _, _ := decodeVersion(probe.loadVersion())
	if major != versionMajor {
		shm.Close()
		return nil, newError(op, KindBackend, nil)
	}

	existingWriter := probe.loadWriterPID()
	if existingWriter != 0 && platform.ProcessExists(existingWriter) {
		shm.Close()
		return nil, newError(op, KindWriterAlreadyConnected, nil)
	}

	// The writer never chooses sizes (spec.md §3): the reader already
	// aligned and stored them in OIEB, so the layout is rebuilt from those
	// rather than re-requested from the caller.
	oiebBlock := alignUp(oiebSize, blockAlignment)
	metaSize := probe.loadMetadataSize()
	payloadSize := probe.loadPayloadSize()
	l := layout{
		OIEBBlock:      oiebBlock,
		MetadataBlock:  metaSize,
		PayloadBlock:   payloadSize,
		MetadataOffset: oiebBlock,
		PayloadOffset:  oiebBlock + metaSize,
		TotalSize:      oiebBlock + metaSize + payloadSize,
	}

	seg := mapSegment(name, shm, l)

	dataSem, err := platform.OpenExistingSemaphore(lockPath, platform.ProjWriter)
	if err != nil {
		shm.Close()
		return nil, newError(op, KindBackend, err)
	}
	spaceSem, err := platform.OpenExistingSemaphore(lockPath, platform.ProjReader)
	if err != nil {
		shm.Close()
		return nil, newError(op, KindBackend, err)
	}

	seg.oieb.storeWriterPID(platform.CurrentPID())
	if err := seg.flush(); err != nil {
		shm.Close()
		return nil, newError(op, KindBackend, err)
	}

	log.Info("writer connected")
	return &Writer{
		state:          writerMetadataPending,
		seg:            seg,
		log:            log,
		dataAvailable:  dataSem,
		spaceAvailable: spaceSem,
		writeTimeout:   DefaultWriteTimeout,
		nextSequence:   1,
	}, nil
}

// WriteTimeout returns the current backpressure timeout.
func (w *Writer) WriteTimeout() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeTimeout
}

// SetWriteTimeout changes the backpressure timeout used by future
// GetFrameBuffer/WriteFrame calls.
func (w *Writer) SetWriteTimeout(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeTimeout = d
}

// SetMetadata writes the buffer's metadata exactly once; a second call
// fails with MetadataAlreadyWritten. Frame operations are legal in either
// Attached substate, so SetMetadata may be called before or after frames
// have been written.
func (w *Writer) SetMetadata(data []byte) error {
	const op = "Writer.SetMetadata"
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case writerUnattached, writerDisposed:
		return newError(op, KindBackend, errBufferNotReady)
	case writerMetadataSet:
		return newError(op, KindMetadataAlreadyWritten, nil)
	}

	need := uint64(metadataPrefixSize + len(data))
	if need > w.seg.oieb.loadMetadataSize() {
		return newError(op, KindMetadataTooLarge, nil)
	}

	writeMetadataBlock(w.seg.metadata, data)
	w.seg.oieb.storeMetadataUsed(need)
	w.seg.oieb.storeMetadataFree(w.seg.oieb.loadMetadataSize() - need)
	if err := w.seg.flush(); err != nil {
		return newError(op, KindBackend, err)
	}
	w.state = writerMetadataSet
	return nil
}

// requiredSpace computes how much payload_free_bytes must be available for
// a record of recordSize bytes starting at writePos, per spec.md §4.4 step 2.
func requiredSpace(writePos, ringSize, recordSize uint64) (required uint64, wrap bool) {
	spaceToEnd := ringSize - writePos
	if spaceToEnd >= recordSize {
		return recordSize, false
	}
	return spaceToEnd + recordSize, true
}

// GetFrameBuffer allocates a size-byte writable region in the ring and
// returns a mutable slice into it plus the sequence number that will be
// assigned on CommitFrame. The caller must fill the slice and call CommitFrame before
// calling GetFrameBuffer again.
func (w *Writer) GetFrameBuffer(size uint64) ([]byte, uint64, error) {
	const op = "Writer.GetFrameBuffer"
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != writerMetadataPending && w.state != writerMetadataSet {
		return nil, 0, newError(op, KindBackend, errBufferNotReady)
	}

	o := w.seg.oieb
	ringSize := o.loadPayloadSize()
	record := frameHeaderSize + size
	if record > ringSize {
		return nil, 0, newError(op, KindFrameTooLarge, nil)
	}

	for {
		writePos := o.loadPayloadWritePos()
		required, wrap := requiredSpace(writePos, ringSize, record)

		if o.loadPayloadFree() >= required {
			if wrap {
				w.emitWrapMarker(writePos, ringSize-writePos)
				writePos = 0
				if o.loadPayloadFree() < record {
					// Reader hadn't freed enough of the head yet; fall
					// through to the wait loop below instead of writing
					// past what's actually available.
					continue
				}
			}
			return w.placeFrame(writePos, size)
		}

		acquired, err := w.spaceAvailable.Wait(w.writeTimeout)
		if err != nil {
			return nil, 0, newError(op, KindBackend, err)
		}
		if !acquired {
			if w.readerAliveLocked() {
				return nil, 0, newError(op, KindBufferFull, nil)
			}
			return nil, 0, newError(op, KindReaderDead, nil)
		}
		// retry from the top: re-read OIEB, the reader may have freed
		// non-contiguous space (spec.md §4.4 step 4).
	}
}

func (w *Writer) emitWrapMarker(writePos, wasted uint64) {
	o := w.seg.oieb
	writeFrameHeader(w.seg.ring, writePos, frameHeader{PayloadSize: 0, SequenceNumber: 0})
	o.subPayloadFree(wasted)
	o.storePayloadWritePos(0)
	o.addPayloadWritten(1)
}

func (w *Writer) placeFrame(writePos, size uint64) ([]byte, uint64, error) {
	seq := w.nextSequence
	writeFrameHeader(w.seg.ring, writePos, frameHeader{PayloadSize: size, SequenceNumber: seq})
	dataStart := writePos + frameHeaderSize
	w.pendingWritePos = writePos
	w.pendingRecordSize = frameHeaderSize + size
	return w.seg.ring[dataStart : dataStart+size], seq, nil
}

// WriteFrame is the convenience acquire + copy + commit path.
func (w *Writer) WriteFrame(data []byte) (uint64, error) {
	buf, seq, err := w.GetFrameBuffer(uint64(len(data)))
	if err != nil {
		return 0, err
	}
	copy(buf, data)
	if err := w.CommitFrame(); err != nil {
		return 0, err
	}
	return seq, nil
}

// CommitFrame publishes the frame most recently returned by
// GetFrameBuffer: advances payload_write_pos, increments
// payload_written_count, subtracts the record size from payload_free_bytes,
// flushes, then posts data-available exactly once (spec.md §4.4).
func (w *Writer) CommitFrame() error {
	const op = "Writer.CommitFrame"
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pendingRecordSize == 0 {
		return newError(op, KindBackend, errNoPendingFrame)
	}

	o := w.seg.oieb
	ringSize := o.loadPayloadSize()
	newPos := (w.pendingWritePos + w.pendingRecordSize) % ringSize
	o.storePayloadWritePos(newPos)
	o.addPayloadWritten(1)
	o.subPayloadFree(w.pendingRecordSize)

	w.nextSequence++
	w.pendingRecordSize = 0
	w.pendingWritePos = 0

	if err := w.seg.flush(); err != nil {
		return newError(op, KindBackend, err)
	}
	if err := w.dataAvailable.Release(); err != nil {
		return newError(op, KindBackend, err)
	}
	return nil
}

// IsReaderConnected reports whether the reader PID in OIEB is non-zero and
// still a live process.
func (w *Writer) IsReaderConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readerAliveLocked()
}

func (w *Writer) readerAliveLocked() bool {
	pid := w.seg.oieb.loadReaderPID()
	return pid != 0 && platform.ProcessExists(pid)
}

// Dispose clears writer_pid and closes handles (idempotent). The writer
// never unlinks shared resources — that is the reader's responsibility
// (spec.md §3).
func (w *Writer) Dispose() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == writerUnattached || w.state == writerDisposed {
		return nil
	}
	w.state = writerDisposed

	w.seg.oieb.storeWriterPID(0)
	_ = w.seg.flush()
	return w.seg.close()
}
