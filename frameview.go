package zerobuffer

// FrameView is a borrowed, non-owning view over one committed record in the
// payload ring (spec.md §4.6). It must not outlive the Reader that produced
// it. Release must be called exactly once when the caller is done reading
// the frame; the reader's free-byte accounting (and therefore the writer's
// ability to reuse this space) only advances on Release.
//
// FrameView is always handled by pointer: ReadFrame returns *FrameView, and
// the release-once guard below is checked and set under the Reader's mutex
// inside Reader.releaseFrame, so two goroutines racing to Release the same
// *FrameView can never both win.
type FrameView struct {
	reader     *Reader
	data       []byte
	sequence   uint64
	recordSize uint64 // 16 + len(data); credited back to payload_free_bytes on Release
	released   bool
}

// InvalidFrame is the sentinel "no frame" value: nil bytes, sequence 0.
var InvalidFrame = &FrameView{}

// IsValid reports whether this is a real frame as opposed to the Invalid
// sentinel returned on a read timeout.
func (f *FrameView) IsValid() bool { return f != nil && f.sequence != 0 }

// Bytes returns the frame's payload as a zero-copy slice into the shared
// ring. The slice is only safe to read until Release is called.
func (f *FrameView) Bytes() []byte { return f.data }

// Sequence returns the frame's monotonically increasing sequence number
// (starting at 1).
func (f *FrameView) Sequence() uint64 { return f.sequence }

// CopyBytes returns an owned copy of the frame's payload, for callers that
// cannot honor the view's scoped lifetime.
func (f *FrameView) CopyBytes() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// Release credits the consumed ring space back to payload_free_bytes and
// posts "space-available" exactly once. Calling Release more than once, or
// on the Invalid sentinel, is a no-op — double-release must never corrupt
// accounting.
func (f *FrameView) Release() error {
	if !f.IsValid() || f.reader == nil {
		return nil
	}
	return f.reader.releaseFrame(f)
}
