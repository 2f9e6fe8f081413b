package compress

import "github.com/klauspost/compress/s2"

// S2Compressor wraps the S2 block format, a Snappy-compatible codec tuned
// for throughput over ratio.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates an S2 block codec.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress compresses a payload as a single S2 block.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress decompresses a single S2 block.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
