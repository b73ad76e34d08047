package zerobuffer

import (
	"github.com/alephtx/zerobuffer/internal/platform"
)

// BufferConfig sizes a buffer at creation time (reader-side only; the
// writer connects to whatever sizes the reader already chose). Sizes are
// rounded up to 64 bytes per spec.md §4.2.
type BufferConfig struct {
	MetadataSize uint64
	PayloadSize  uint64
}

// segment is the shared view over one buffer's mapped memory, common to
// both Reader and Writer once attached.
type segment struct {
	name     string
	lockPath string

	shm    *platform.SharedMemory
	layout layout
	oieb   *oieb

	metadata []byte // metadataBlock bytes, including the 8-byte length prefix
	ring     []byte // payloadBlock bytes
}

func mapSegment(name string, shm *platform.SharedMemory, l layout) *segment {
	base := shm.Bytes()
	return &segment{
		name:     name,
		lockPath: platform.LockPath(name),
		shm:      shm,
		layout:   l,
		oieb:     castOIEB(base),
		metadata: base[l.MetadataOffset : l.MetadataOffset+l.MetadataBlock],
		ring:     base[l.PayloadOffset : l.PayloadOffset+l.PayloadBlock],
	}
}

func (s *segment) flush() error { return s.shm.Flush() }

func (s *segment) close() error { return s.shm.Close() }
