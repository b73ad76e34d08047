package zerobuffer

import "fmt"

// Kind classifies a zerobuffer error without tying callers to a specific
// error value, per the taxonomy in spec.md §7.
type Kind int

const (
	KindUnknown Kind = iota
	KindBufferNotFound
	KindReaderAlreadyConnected
	KindWriterAlreadyConnected
	KindMetadataAlreadyWritten
	KindMetadataTooLarge
	KindFrameTooLarge
	KindBufferFull
	KindReaderDead
	KindWriterDead
	KindInvalidFrameSize
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindBufferNotFound:
		return "BufferNotFound"
	case KindReaderAlreadyConnected:
		return "ReaderAlreadyConnected"
	case KindWriterAlreadyConnected:
		return "WriterAlreadyConnected"
	case KindMetadataAlreadyWritten:
		return "MetadataAlreadyWritten"
	case KindMetadataTooLarge:
		return "MetadataTooLarge"
	case KindFrameTooLarge:
		return "FrameTooLarge"
	case KindBufferFull:
		return "BufferFull"
	case KindReaderDead:
		return "ReaderDead"
	case KindWriterDead:
		return "WriterDead"
	case KindInvalidFrameSize:
		return "InvalidFrameSize"
	case KindBackend:
		return "Backend"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every zerobuffer operation
// that fails. Op names the failing operation ("Reader.New", "Writer.CommitFrame",
// ...); Kind classifies it; Err carries the underlying cause, if any.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zerobuffer: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("zerobuffer: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target shares this error's Kind, so callers can write
// errors.Is(err, zerobuffer.ErrReaderDead) instead of type-asserting.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// errBufferNotReady marks operations attempted on a disposed or not-yet-
// attached Reader/Writer.
var errBufferNotReady = fmt.Errorf("buffer not attached")

// errNoPendingFrame marks a CommitFrame call with no prior GetFrameBuffer.
var errNoPendingFrame = fmt.Errorf("commit called without a pending frame")

// Sentinel values for errors.Is comparisons; Err is always nil on these —
// use errors.Is(err, ErrReaderDead), not ==.
var (
	ErrBufferNotFound         = &Error{Kind: KindBufferNotFound}
	ErrReaderAlreadyConnected = &Error{Kind: KindReaderAlreadyConnected}
	ErrWriterAlreadyConnected = &Error{Kind: KindWriterAlreadyConnected}
	ErrMetadataAlreadyWritten = &Error{Kind: KindMetadataAlreadyWritten}
	ErrMetadataTooLarge       = &Error{Kind: KindMetadataTooLarge}
	ErrFrameTooLarge          = &Error{Kind: KindFrameTooLarge}
	ErrBufferFull             = &Error{Kind: KindBufferFull}
	ErrReaderDead             = &Error{Kind: KindReaderDead}
	ErrWriterDead             = &Error{Kind: KindWriterDead}
	ErrInvalidFrameSize       = &Error{Kind: KindInvalidFrameSize}
	ErrBackend                = &Error{Kind: KindBackend}
)
