package zerobuffer

import "encoding/binary"

// writeMetadataBlock writes the 8-byte length prefix followed by data into
// block (block is at least len(data)+8 bytes, the aligned metadata block).
// Per spec.md §9, the OIEB metadata_written_bytes field that counts this
// write includes the prefix; only the accessor subtracts it.
func writeMetadataBlock(block []byte, data []byte) {
	binary.LittleEndian.PutUint64(block[0:metadataPrefixSize], uint64(len(data)))
	copy(block[metadataPrefixSize:], data)
}

// readMetadataBlock returns the opaque payload stored by writeMetadataBlock
// (the length prefix itself is never returned to callers).
func readMetadataBlock(block []byte) []byte {
	if len(block) < metadataPrefixSize {
		return nil
	}
	n := binary.LittleEndian.Uint64(block[0:metadataPrefixSize])
	if n == 0 {
		return nil
	}
	end := metadataPrefixSize + n
	if end > uint64(len(block)) {
		end = uint64(len(block))
	}
	return block[metadataPrefixSize:end]
}
