package zerobuffer

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOIEBSizeIs128(t *testing.T) {
	require.EqualValues(t, 128, unsafe.Sizeof(oieb{}))
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ n, align, want uint64 }{
		{0, 64, 0},
		{1, 64, 64},
		{64, 64, 64},
		{65, 64, 128},
		{128, 64, 128},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, alignUp(c.n, c.align))
	}
}

func TestComputeLayout(t *testing.T) {
	l := computeLayout(1024, 10240)
	assert.EqualValues(t, 128, l.OIEBBlock)
	assert.EqualValues(t, 1024, l.MetadataBlock)
	assert.EqualValues(t, 10240, l.PayloadBlock)
	assert.EqualValues(t, 128, l.MetadataOffset)
	assert.EqualValues(t, 128+1024, l.PayloadOffset)
	assert.EqualValues(t, 128+1024+10240, l.TotalSize)
}

func TestComputeLayoutAlignsOddSizes(t *testing.T) {
	l := computeLayout(100, 9200)
	assert.EqualValues(t, 128, l.MetadataBlock) // align_up(100, 64) = 128
	assert.EqualValues(t, 9216, l.PayloadBlock) // align_up(9200, 64) = 9216
}

func TestFrameHeaderRoundTrip(t *testing.T) {
	ring := make([]byte, 64)
	h := frameHeader{PayloadSize: 42, SequenceNumber: 7}
	writeFrameHeader(ring, 16, h)
	got := readFrameHeader(ring, 16)
	assert.Equal(t, h, got)
}

func TestVersionEncodeDecode(t *testing.T) {
	v := encodeVersion(1, 2, 3)
	major, minor, patch := decodeVersion(v)
	assert.EqualValues(t, 1, major)
	assert.EqualValues(t, 2, minor)
	assert.EqualValues(t, 3, patch)
}
