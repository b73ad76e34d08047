package zerobuffer

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testBufferName returns a unique buffer name so parallel/serial test runs
// never collide on the same /dev/shm path or advisory lock file.
func testBufferName(t *testing.T) string {
	return fmt.Sprintf("test-%d-%s", os.Getpid(), t.Name())
}

func newTestPair(t *testing.T, metaSize, payloadSize uint64) (*Reader, *Writer) {
	t.Helper()
	name := testBufferName(t)

	r, err := NewReader(name, BufferConfig{MetadataSize: metaSize, PayloadSize: payloadSize})
	require.NoError(t, err)
	t.Cleanup(func() { r.Dispose() })

	w, err := NewWriter(name)
	require.NoError(t, err)
	t.Cleanup(func() { w.Dispose() })

	return r, w
}

func patternBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((i + 1) % 256)
	}
	return b
}

// TestSimpleWriteRead covers spec.md §8 scenario 1.
func TestSimpleWriteRead(t *testing.T) {
	r, w := newTestPair(t, 1024, 10240)

	meta := make([]byte, 100)
	require.NoError(t, w.SetMetadata(meta))

	got, err := r.GetMetadata()
	require.NoError(t, err)
	require.Equal(t, meta, got)

	payload := patternBytes(1024)
	seq, err := w.WriteFrame(payload)
	require.NoError(t, err)
	require.EqualValues(t, 1, seq)

	frame, err := r.ReadFrame(5 * time.Second)
	require.NoError(t, err)
	require.True(t, frame.IsValid())
	require.EqualValues(t, 1, frame.Sequence())
	require.Equal(t, payload, frame.Bytes())
	require.NoError(t, frame.Release())
}

// TestWrapAround covers spec.md §8 scenario 2.
func TestWrapAround(t *testing.T) {
	r, w := newTestPair(t, 0, 10240)

	first := patternBytes(9200)
	seq, err := w.WriteFrame(first)
	require.NoError(t, err)
	require.EqualValues(t, 1, seq)

	frame1, err := r.ReadFrame(5 * time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 1, frame1.Sequence())
	require.Equal(t, first, frame1.Bytes())
	require.NoError(t, frame1.Release())

	second := patternBytes(9200)
	seq, err = w.WriteFrame(second)
	require.NoError(t, err)
	require.EqualValues(t, 2, seq)

	frame2, err := r.ReadFrame(5 * time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 2, frame2.Sequence())
	require.Equal(t, second, frame2.Bytes())
	require.NoError(t, frame2.Release())

	// One wrap marker plus two real frames.
	require.EqualValues(t, 3, r.seg.oieb.loadPayloadRead())
}

// TestFIFOUnderBursts covers spec.md §8's "FIFO under bursts" property: writing
// k frames without draining, then draining, yields exactly those k frames in
// order with contiguous sequences.
func TestFIFOUnderBursts(t *testing.T) {
	r, w := newTestPair(t, 0, 64*1024)

	const k = 50
	for i := 0; i < k; i++ {
		_, err := w.WriteFrame([]byte(fmt.Sprintf("frame-%d", i)))
		require.NoError(t, err)
	}

	for i := 0; i < k; i++ {
		frame, err := r.ReadFrame(5 * time.Second)
		require.NoError(t, err)
		require.EqualValues(t, i+1, frame.Sequence())
		require.Equal(t, fmt.Sprintf("frame-%d", i), string(frame.Bytes()))
		require.NoError(t, frame.Release())
	}
}

// TestBackpressure covers spec.md §8 scenario 3: a writer blocked on a full
// buffer unblocks once the reader releases enough space.
func TestBackpressure(t *testing.T) {
	r, w := newTestPair(t, 0, 1024)
	w.SetWriteTimeout(200 * time.Millisecond)

	const frames = 30
	const frameLen = 40

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			_, err := w.WriteFrame(patternBytes(frameLen))
			require.NoError(t, err)
		}
	}()

	for i := 0; i < frames; i++ {
		frame, err := r.ReadFrame(5 * time.Second)
		require.NoError(t, err)
		require.EqualValues(t, i+1, frame.Sequence())
		require.NoError(t, frame.Release())
		time.Sleep(5 * time.Millisecond)
	}

	wg.Wait()
}

// TestSecondWriterRejection covers spec.md §8's single-attacher property.
func TestSecondWriterRejection(t *testing.T) {
	r, w := newTestPair(t, 0, 4096)
	_ = r

	_, err := NewWriter(r.seg.name)
	require.Error(t, err)
	zerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindWriterAlreadyConnected, zerr.Kind)

	require.True(t, w.IsReaderConnected())
}

// TestFrameTooLarge covers the FrameTooLarge error path.
func TestFrameTooLarge(t *testing.T) {
	_, w := newTestPair(t, 0, 1024)
	_, _, err := w.GetFrameBuffer(2000)
	require.Error(t, err)
	zerr := err.(*Error)
	require.Equal(t, KindFrameTooLarge, zerr.Kind)
}

// TestMetadataAlreadyWritten covers the MetadataAlreadyWritten error path.
func TestMetadataAlreadyWritten(t *testing.T) {
	_, w := newTestPair(t, 256, 4096)
	require.NoError(t, w.SetMetadata([]byte("a")))
	err := w.SetMetadata([]byte("b"))
	require.Error(t, err)
	require.Equal(t, KindMetadataAlreadyWritten, err.(*Error).Kind)
}

// TestMetadataTooLarge covers the MetadataTooLarge error path.
func TestMetadataTooLarge(t *testing.T) {
	_, w := newTestPair(t, 64, 4096)
	err := w.SetMetadata(make([]byte, 1024))
	require.Error(t, err)
	require.Equal(t, KindMetadataTooLarge, err.(*Error).Kind)
}

// TestIdempotentDispose covers spec.md §8's idempotent-teardown property.
func TestIdempotentDispose(t *testing.T) {
	r, w := newTestPair(t, 0, 4096)
	require.NoError(t, w.Dispose())
	require.NoError(t, w.Dispose())
	require.NoError(t, r.Dispose())
	require.NoError(t, r.Dispose())
}

// TestReadTimeoutWriterAlive covers the Invalid-on-timeout path: no frame
// arrives, but the writer is still connected.
func TestReadTimeoutWriterAlive(t *testing.T) {
	r, _ := newTestPair(t, 0, 4096)
	frame, err := r.ReadFrame(50 * time.Millisecond)
	require.NoError(t, err)
	require.False(t, frame.IsValid())
}

// TestWriterDeadDetection covers spec.md §8 scenario 4: after the writer's
// PID goes stale, the reader's next ReadFrame times out and observes the
// writer is gone.
func TestWriterDeadDetection(t *testing.T) {
	r, w := newTestPair(t, 0, 4096)

	_, err := w.WriteFrame(patternBytes(16))
	require.NoError(t, err)
	frame, err := r.ReadFrame(time.Second)
	require.NoError(t, err)
	require.NoError(t, frame.Release())

	// Simulate an abnormal writer exit: clear the liveness signal without
	// the normal Dispose handshake.
	w.seg.oieb.storeWriterPID(99999999) // almost certainly not a live PID
	w.seg.flush()

	_, err = r.ReadFrame(100 * time.Millisecond)
	require.Error(t, err)
	require.Equal(t, KindWriterDead, err.(*Error).Kind)
}

// TestFrameViewDoubleReleaseIsNoop covers the release-once invariant in
// spec.md §4.6.
func TestFrameViewDoubleReleaseIsNoop(t *testing.T) {
	r, w := newTestPair(t, 0, 4096)
	_, err := w.WriteFrame(patternBytes(16))
	require.NoError(t, err)

	frame, err := r.ReadFrame(time.Second)
	require.NoError(t, err)
	require.NoError(t, frame.Release())
	require.NoError(t, frame.Release())
}
