// Package section defines the low-level binary structures and constants for the sample chunk format.
//
// This package provides the foundational types and constants that define the physical layout
// of sample chunks. It handles binary serialization/deserialization of headers, flags, and
// index entries, ensuring consistent byte-level representation across platforms.
//
// # Overview
//
// The section package defines three main categories of types:
//
//  1. Header: Fixed-size chunk metadata
//  2. Flag: Packed bitfields for encoding/compression configuration
//  3. IndexEntry: Fixed-size dataset descriptors
//
// These types form the structural foundation of the chunk format, providing:
//   - Fixed-size layouts for O(1) random access
//   - Efficient binary serialization with minimal overhead
//   - Platform-independent byte representation
//   - Bitfield packing for compact storage
//
// # Chunk Structure
//
// A sample chunk consists of fixed-size sections followed by variable-size payloads:
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Header (32 bytes, fixed)                                │
//	│  - Flag (4 bytes): encoding/compression/options         │
//	│  - StartStep (8 bytes)                                  │
//	│  - WalkerCount (2 bytes), DatasetCount (2 bytes)        │
//	│  - Offsets (16 bytes): index, step, value, name         │
//	├─────────────────────────────────────────────────────────┤
//	│ Index (N × 16 bytes, fixed per entry)                   │
//	│  - One entry per dataset                                │
//	│  - DatasetID, step count, width, offsets                │
//	├─────────────────────────────────────────────────────────┤
//	│ Step Payload (variable)                                 │
//	│  - Encoded + compressed chain step indices              │
//	├─────────────────────────────────────────────────────────┤
//	│ Value Payload (variable)                                │
//	│  - Encoded + compressed sample values                   │
//	├─────────────────────────────────────────────────────────┤
//	│ Name Payload (variable, optional)                       │
//	│  - Only present when collision detected or forced on    │
//	│  - Length-prefixed dataset name strings                 │
//	└─────────────────────────────────────────────────────────┘
//
// # Header Format
//
// Header (32 bytes):
//
//	Bytes  | Field              | Type   | Description
//	-------|--------------------|--------|----------------------------------
//	0-3    | Flag               | uint32 | Encoding, compression, options
//	4-11   | StartStep          | int64  | Chain step index of first sample
//	12-13  | WalkerCount        | uint16 | Ensemble walkers per step
//	14-15  | DatasetCount       | uint16 | Number of datasets in chunk
//	16-19  | IndexOffset        | uint32 | Byte offset to index section
//	20-23  | StepPayloadOffset  | uint32 | Byte offset to step index data
//	24-27  | ValuePayloadOffset | uint32 | Byte offset to value data
//	28-31  | NamePayloadOffset  | uint32 | Byte offset to dataset name data
//
// # Flag Format
//
// Flags are packed into 4 bytes (32 bits):
//
//	Byte 0-1 (Options, 16 bits):
//	  Bit 0: Reserved (must be 0)
//	  Bit 1: Endianness (0=little-endian, 1=big-endian)
//	  Bit 2: Dataset names payload (0=not present, 1=present)
//	  Bit 3: Reserved (must be 0)
//	  Bits 4-15: Magic number (0xE510 for sample chunk v1)
//
//	Byte 2 (EncodingType, 8 bits):
//	  Bits 0-3: Step index encoding (0x1=Raw, 0x2=Delta)
//	  Bits 4-7: Value encoding (0x1=Raw, 0x3=Gorilla)
//
//	Byte 3 (CompressionType, 8 bits):
//	  Bits 0-3: Step payload compression (0x1=None, 0x2=Zstd, 0x3=S2, 0x4=LZ4)
//	  Bits 4-7: Value payload compression (0x1=None, 0x2=Zstd, 0x3=S2, 0x4=LZ4)
//
// Example flag manipulation:
//
//	flag := section.NewFlag()
//	flag.SetStepEncoding(format.TypeDelta)
//	flag.SetValueEncoding(format.TypeGorilla)
//	flag.SetValueCompression(format.CompressionZstd)
//
//	if flag.HasDatasetNames() {
//	    // Decode the names payload
//	}
//	stepEnc := flag.StepEncoding() // format.TypeDelta
//
// # Index Entry Format
//
// IndexEntry (16 bytes):
//
//	Bytes  | Field       | Type   | Description
//	-------|-------------|--------|----------------------------------
//	0-7    | DatasetID   | uint64 | xxHash64 of dataset name
//	8-9    | StepCount   | uint16 | Recorded steps (max 65535)
//	10-11  | Width       | uint16 | Values per walker per step
//	12-13  | StepOffset  | uint16 | Delta offset from previous dataset
//	14-15  | ValueOffset | uint16 | Delta offset from previous dataset
//
// Note: In memory, StepCount, Width and offset fields are stored as 'int' to
// avoid type conversions. On disk, they're stored as 'uint16' to save space.
// The decoder reconstructs absolute offsets from delta offsets.
//
// # Delta Offset Encoding
//
// Chunks use delta offsets to save space. Instead of storing absolute offsets
// (which can exceed 65535), we store the difference between consecutive offsets:
//
//	Dataset 1: StepOffset = 0        (absolute: 0)
//	Dataset 2: StepOffset = 100      (absolute: 0 + 100 = 100)
//	Dataset 3: StepOffset = 50       (absolute: 100 + 50 = 150)
//
// Benefits:
//   - Most deltas fit in uint16 (0-65535)
//   - Supports chunks with >65KB payloads
//   - Minimal space overhead (2 bytes per offset)
//
// Decoder reconstruction:
//
//	absoluteOffset[0] = deltaOffset[0]  // First is absolute
//	for i := 1; i < datasetCount; i++ {
//	    absoluteOffset[i] = absoluteOffset[i-1] + deltaOffset[i]
//	}
//
// # Constants
//
// The package defines important constants:
//
//	HeaderSize        = 32              // Fixed header size
//	IndexEntrySize    = 16              // Fixed index entry size
//	IndexOffsetOffset = 32              // Index starts after header
//	MaxOffsetDelta    = math.MaxUint16  // Max delta offset value (65535)
//	MaxStepCount      = math.MaxUint16  // Max steps per dataset per chunk
//	MaxDatasetCount   = math.MaxUint16  // Max datasets per chunk
//	MaxWalkerCount    = math.MaxUint16  // Max walkers per chunk
//
// Magic number for format identification:
//
//	MagicSampleV1Opt = 0xE510  // Sample chunk format v1
//
// # Byte Order (Endianness)
//
// All multi-byte numeric values use the byte order specified in the flag:
//   - Bit 1 = 0: Little-endian (default, native on x86/x64/ARM)
//   - Bit 1 = 1: Big-endian (network byte order)
//
// The endian package provides engine implementations for each:
//
//	if flag.IsBigEndian() {
//	    engine = endian.GetBigEndianEngine()
//	} else {
//	    engine = endian.GetLittleEndianEngine()
//	}
//
// The Options field itself is always read little-endian first so the decoder
// can discover the byte order of the remaining fields.
//
// # Thread Safety
//
// All types in this package are plain value types without shared state and are
// safe for concurrent reads. Mutating methods on Flag and Header must not be
// called concurrently with readers.
//
// # Usage Examples
//
// Creating a header:
//
//	header := section.NewHeader(1000)
//	header.WalkerCount = 64
//	header.DatasetCount = 2
//	header.Flag.SetStepEncoding(format.TypeDelta)
//
// Serializing to bytes:
//
//	buf := header.Bytes()
//
// Parsing from bytes:
//
//	header, err := section.ParseHeader(data)
//
// Creating index entries:
//
//	entry := section.NewIndexEntry(datasetID, 100, 12)
//	entry.StepOffset = 0   // First dataset: absolute offset
//	entry.ValueOffset = 0  // First dataset: absolute offset
//
// # Integration with Other Packages
//
// The section package is used by:
//   - samplestore: High-level chunk encoder/decoder and file store
//   - encoding: Low-level encoding algorithms
//   - endian: Byte order handling
//
// Most users should interact with the samplestore package instead of using
// section directly. Use this package only when you need fine-grained control
// over binary format details.
package section
