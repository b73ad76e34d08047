package zerobuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataRoundTrip(t *testing.T) {
	block := make([]byte, 128)
	payload := []byte("hello world")
	writeMetadataBlock(block, payload)

	got := readMetadataBlock(block)
	assert.Equal(t, payload, got)
}

func TestMetadataRoundTripEmpty(t *testing.T) {
	block := make([]byte, 64)
	writeMetadataBlock(block, nil)
	assert.Nil(t, readMetadataBlock(block))
}

// TestMetadataPrefixAsymmetry checks the block-level half of the open
// question in spec.md §9: a 100-byte payload plus the 8-byte prefix comes to
// 108 bytes (the figure Writer.SetMetadata stores as written bytes), while
// the accessor returns only the 100 payload bytes.
func TestMetadataPrefixAsymmetry(t *testing.T) {
	block := make([]byte, 128)
	payload := make([]byte, 100)
	writeMetadataBlock(block, payload)

	written := uint64(metadataPrefixSize + len(payload))
	assert.EqualValues(t, 108, written)
	assert.Len(t, readMetadataBlock(block), 100)
}
