package section

import (
	"math"

	"github.com/gpmaplab/epistat/format"
)

const (
	// Bit masks for the packed Options field
	ReservedBitMask  = 0x0001 // Mask for reserved bit (bit 0), must be zero
	EndiannessMask   = 0x0002 // Mask for endianness bit (bit 1)
	DatasetNamesMask = 0x0004 // Mask for dataset names payload bit (bit 2)
	ReservedBit3Mask = 0x0008 // Mask for reserved bit (bit 3), must be zero
	MagicNumberMask  = 0xFFF0 // Mask for magic number (bits 4-15)

	// Magic number (bits 4-15)
	MagicSampleV1Opt = 0xE510 // MagicSampleV1Opt is the version 1 magic number for the sample chunk format.

	// Step encodings (bits 0-3 of the encoding byte)
	StepEncodingRaw   = uint8(format.TypeRaw)   // StepEncodingRaw represents fixed-width step indices.
	StepEncodingDelta = uint8(format.TypeDelta) // StepEncodingDelta represents delta-of-delta varint step indices.

	// Value encodings (bits 4-7 of the encoding byte)
	ValueEncodingRaw     = uint8(format.TypeRaw) << 4     // ValueEncodingRaw represents raw float64 samples.
	ValueEncodingGorilla = uint8(format.TypeGorilla) << 4 // ValueEncodingGorilla represents Gorilla XOR encoded samples.

	// Step compression (bits 0-3 of the compression byte)
	StepCompressionNone = uint8(format.CompressionNone) // StepCompressionNone represents no compression for step indices.
	StepCompressionZstd = uint8(format.CompressionZstd) // StepCompressionZstd represents Zstandard compression for step indices.
	StepCompressionS2   = uint8(format.CompressionS2)   // StepCompressionS2 represents S2 compression for step indices.
	StepCompressionLZ4  = uint8(format.CompressionLZ4)  // StepCompressionLZ4 represents LZ4 compression for step indices.

	// Value compression (bits 4-7 of the compression byte)
	ValueCompressionNone = uint8(format.CompressionNone) << 4 // ValueCompressionNone represents no compression for samples.
	ValueCompressionZstd = uint8(format.CompressionZstd) << 4 // ValueCompressionZstd represents Zstandard compression for samples.
	ValueCompressionS2   = uint8(format.CompressionS2) << 4   // ValueCompressionS2 represents S2 compression for samples.
	ValueCompressionLZ4  = uint8(format.CompressionLZ4) << 4  // ValueCompressionLZ4 represents LZ4 compression for samples.
)

// offset and section sizes in the chunk
const (
	HeaderSize        = 32             // fixed header size in bytes
	IndexEntrySize    = 16             // fixed index entry size in bytes
	IndexOffsetOffset = HeaderSize     // byte offset where the index section starts
	MaxOffsetDelta    = math.MaxUint16 // maximum delta-encoded offset value in an index entry
	MaxStepCount      = math.MaxUint16 // maximum steps per dataset in one chunk
	MaxDatasetCount   = math.MaxUint16 // maximum datasets in one chunk
	MaxWalkerCount    = math.MaxUint16 // maximum walkers in one chunk
)
