package zerobuffer

import (
	"encoding/binary"
	"unsafe"
)

// oiebSize is the fixed size of the Operation Info Exchange Block, normative
// for on-wire compatibility (spec.md §3, §6).
const oiebSize = 128

// frameHeaderSize is the size of a FrameHeader record: payload_size (u64) +
// sequence_number (u64).
const frameHeaderSize = 16

// metadataPrefixSize is the 8-byte length prefix preceding the opaque
// metadata payload.
const metadataPrefixSize = 8

const blockAlignment = 64

// versionMajor/versionMinor/versionPatch identify this implementation's wire
// version. Compatibility rule: same major.
const (
	versionMajor = 1
	versionMinor = 0
	versionPatch = 0
)

// oieb mirrors the 128-byte Operation Info Exchange Block exactly as laid
// out in spec.md §3: all 64-bit fields little-endian, naturally aligned,
// padded to 128 bytes. Once initOIEB has filled a freshly created segment,
// every multi-byte field is read/written through the load*/store*/add*/sub*
// helpers in oieb_atomic.go rather than Go struct field access, because the
// memory this struct is cast onto is shared with another process.
type oieb struct {
	OiebSize     uint64
	Version      uint32 // {major u8, minor u8, patch u8, reserved u8}
	_            uint32 // padding to keep 64-bit fields aligned
	MetadataSize uint64
	MetadataFree uint64
	MetadataUsed uint64

	PayloadSize     uint64
	PayloadFree     uint64
	PayloadWritePos uint64
	PayloadReadPos  uint64
	PayloadWritten  uint64
	PayloadRead     uint64

	WriterPID uint64
	ReaderPID uint64

	_ [24]byte // pad to 128 bytes total (104 bytes used above)
}

func init() {
	if unsafe.Sizeof(oieb{}) != oiebSize {
		panic("zerobuffer: oieb layout size mismatch")
	}
}

func encodeVersion(major, minor, patch uint8) uint32 {
	return uint32(major) | uint32(minor)<<8 | uint32(patch)<<16
}

func decodeVersion(v uint32) (major, minor, patch uint8) {
	return uint8(v), uint8(v >> 8), uint8(v >> 16)
}

// castOIEB returns a pointer to the OIEB living at the start of base. base
// must be at least oiebSize bytes and must stay mapped for the pointer's
// lifetime — the same unsafe-struct-over-mmap idiom as shm.Matrix in the
// teacher repo.
func castOIEB(base []byte) *oieb {
	return (*oieb)(unsafe.Pointer(&base[0]))
}

// frameHeader mirrors the 16-byte on-ring record header (spec.md §3, §6).
// payload_size == 0 is the wrap-marker sentinel.
type frameHeader struct {
	PayloadSize    uint64
	SequenceNumber uint64
}

// readFrameHeader decodes a FrameHeader from ring[pos:pos+16], little-endian.
func readFrameHeader(ring []byte, pos uint64) frameHeader {
	b := ring[pos : pos+frameHeaderSize]
	return frameHeader{
		PayloadSize:    binary.LittleEndian.Uint64(b[0:8]),
		SequenceNumber: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// writeFrameHeader encodes h into ring[pos:pos+16], little-endian.
func writeFrameHeader(ring []byte, pos uint64, h frameHeader) {
	b := ring[pos : pos+frameHeaderSize]
	binary.LittleEndian.PutUint64(b[0:8], h.PayloadSize)
	binary.LittleEndian.PutUint64(b[8:16], h.SequenceNumber)
}

// alignUp rounds n up to the next multiple of align (align must be a power
// of two, which blockAlignment and oiebSize both are).
func alignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// layout describes the three fixed-offset blocks of a zerobuffer segment,
// computed as in spec.md §4.2.
type layout struct {
	OIEBBlock     uint64
	MetadataBlock uint64
	PayloadBlock  uint64

	MetadataOffset uint64
	PayloadOffset  uint64
	TotalSize      uint64
}

func computeLayout(metadataSizeReq, payloadSizeReq uint64) layout {
	l := layout{
		OIEBBlock:     alignUp(oiebSize, blockAlignment),
		MetadataBlock: alignUp(metadataSizeReq, blockAlignment),
		PayloadBlock:  alignUp(payloadSizeReq, blockAlignment),
	}
	l.MetadataOffset = l.OIEBBlock
	l.PayloadOffset = l.OIEBBlock + l.MetadataBlock
	l.TotalSize = l.OIEBBlock + l.MetadataBlock + l.PayloadBlock
	return l
}
