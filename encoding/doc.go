// Package encoding provides the columnar codecs used by the sample chunk
// format.
//
// A sample chunk stores two columns per dataset: the chain step indices
// (int64) at which samples were recorded, and the sample values (float64)
// themselves. This package defines the generic ColumnarEncoder and
// ColumnarDecoder interfaces over those column types together with the
// concrete implementations:
//
//   - StepRawEncoder/Decoder - fixed-width 64-bit step indices, O(1) random access
//   - StepDeltaEncoder/Decoder - delta-of-delta varint step indices, ~1 byte per step for regular thinning
//   - ValueRawEncoder/Decoder - fixed-width IEEE 754 float64 values, O(1) random access
//   - ValueGorillaEncoder/Decoder - Gorilla XOR compression, 1 bit per rejected proposal
//
// # Choosing an Encoding
//
// Step indices: thinned sampler chains record every thin-th step, so the
// deltas between consecutive recorded steps are constant and the
// delta-of-delta encoding collapses each step to a single byte. Use
// StepRawEncoder only when the O(1) At() access pattern matters more than
// space.
//
// Values: Metropolis-Hastings chains repeat the previous value whenever a
// proposal is rejected; the Gorilla encoding stores each repeat as one bit
// and each accepted move as the meaningful bits of its XOR against the
// previous value. Use ValueRawEncoder when values are close to random
// (high acceptance, wide proposals) or when random access is needed.
//
// # Sequences and Reset
//
// One encoder instance encodes the payload column of an entire chunk: all
// datasets back to back in a single buffer. Reset() ends the current
// dataset's sequence and starts a new independent one without discarding
// the accumulated bytes, so each dataset's byte range can later be decoded
// on its own. Finish() returns the internal buffer to the pool; retrieve
// the data with Bytes() first.
//
//	encoder := NewStepDeltaEncoder()
//	defer encoder.Finish()
//
//	encoder.WriteSlice(dataset1Steps)
//	encoder.Reset()
//	encoder.WriteSlice(dataset2Steps)
//	payload := encoder.Bytes()
//
// Decoders are stateless; they operate on a byte range plus the expected
// value count recorded in the chunk's index entries.
//
// # Usage Guidance
//
// Most callers should use the samplestore package, which pairs these
// codecs with chunk headers, index entries, and per-payload compression.
// Use this package directly when building custom storage that reuses the
// columnar layer.
package encoding
