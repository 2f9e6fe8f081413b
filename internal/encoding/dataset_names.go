package encoding

import (
	"fmt"

	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/errs"
)

// EncodeDatasetNames encodes a list of dataset names into a length-prefixed
// binary payload.
// Format: [Count: uint16] [Len1: uint16][Name1: UTF-8] [Len2: uint16][Name2: UTF-8] ...
//
// The chunk encoder emits this payload when dataset-name collision handling
// requires the original name strings to travel with the chunk.
//
// Parameters:
//   - names: The ordered list of dataset names to encode
//   - engine: The endian engine to use for the length fields
//
// Returns:
//   - []byte: The encoded dataset names payload
//   - error: An error if encoding fails (name too long, count exceeds uint16)
func EncodeDatasetNames(names []string, engine endian.EndianEngine) ([]byte, error) {
	if len(names) > 65535 {
		return nil, fmt.Errorf("%w: dataset count %d exceeds maximum 65535", errs.ErrInvalidDatasetNamesCount, len(names))
	}

	// 2 bytes for the count plus a 2-byte length prefix per name
	totalSize := 2
	for _, name := range names {
		nameLen := len(name)
		if nameLen > 65535 {
			return nil, fmt.Errorf("%w: dataset name '%s' exceeds maximum length 65535 bytes", errs.ErrInvalidDatasetName, name)
		}
		totalSize += 2 + nameLen
	}

	buf := make([]byte, totalSize)
	offset := 0

	engine.PutUint16(buf[offset:], uint16(len(names))) //nolint: gosec
	offset += 2

	for _, name := range names {
		nameBytes := []byte(name)
		nameLen := len(nameBytes)

		engine.PutUint16(buf[offset:], uint16(nameLen)) //nolint: gosec
		offset += 2

		copy(buf[offset:], nameBytes)
		offset += nameLen
	}

	return buf, nil
}

// DecodeDatasetNames decodes a length-prefixed dataset names payload.
// Format: [Count: uint16] [Len1: uint16][Name1: UTF-8] [Len2: uint16][Name2: UTF-8] ...
//
// Parameters:
//   - data: The raw byte slice containing the payload, starting at the count field
//   - engine: The endian engine to use for the length fields
//
// Returns:
//   - []string: The decoded list of dataset names (in order)
//   - int: The total number of bytes consumed
//   - error: An error if decoding fails (truncated data, invalid length)
func DecodeDatasetNames(data []byte, engine endian.EndianEngine) ([]string, int, error) {
	offset := 0

	if len(data) < offset+2 {
		return nil, 0, fmt.Errorf("%w: cannot read dataset names count (need 2 bytes, have %d)", errs.ErrInvalidDatasetNamesPayload, len(data))
	}

	count := engine.Uint16(data[offset:])
	offset += 2

	names := make([]string, count)

	for i := 0; i < int(count); i++ {
		if len(data) < offset+2 {
			return nil, 0, fmt.Errorf("%w: cannot read length for dataset name %d (need 2 bytes at offset %d, have %d total)",
				errs.ErrInvalidDatasetNamesPayload, i, offset, len(data))
		}

		nameLen := engine.Uint16(data[offset:])
		offset += 2

		if len(data) < offset+int(nameLen) {
			return nil, 0, fmt.Errorf("%w: cannot read dataset name %d (need %d bytes at offset %d, have %d total)",
				errs.ErrInvalidDatasetNamesPayload, i, nameLen, offset, len(data))
		}

		// string() copies the bytes out of the chunk buffer
		names[i] = string(data[offset : offset+int(nameLen)])
		offset += int(nameLen)
	}

	return names, offset, nil
}

// VerifyDatasetNameHashes verifies that the provided dataset names hash to
// the expected dataset IDs.
//
// The names slice and datasetIDs slice must have the same length and the
// same order: hash(names[i]) must equal datasetIDs[i].
//
// Parameters:
//   - names: The decoded dataset names (in order)
//   - datasetIDs: The dataset IDs from the index entries (same order)
//   - hashFunc: The hash for a dataset name (typically hash.ID)
//
// Returns:
//   - error: An error on the first hash mismatch, nil if all hashes match
func VerifyDatasetNameHashes(names []string, datasetIDs []uint64, hashFunc func(string) uint64) error {
	if len(names) != len(datasetIDs) {
		return fmt.Errorf("%w: dataset names count %d does not match dataset IDs count %d",
			errs.ErrInvalidDatasetNamesCount, len(names), len(datasetIDs))
	}

	for i, name := range names {
		expectedHash := hashFunc(name)
		actualHash := datasetIDs[i]

		if expectedHash != actualHash {
			return fmt.Errorf("%w: dataset name '%s' at index %d: expected hash 0x%016x, got 0x%016x",
				errs.ErrHashMismatch, name, i, expectedHash, actualHash)
		}
	}

	return nil
}
