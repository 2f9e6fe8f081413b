package section

import (
	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/format"
)

// Flag represents the packed field for the options, encodings and
// compressions of a sample chunk header.
type Flag struct {
	// Options is a packed field for various options.
	// Bit 0 is reserved for future use, must be set to 0.
	// Bit 1 is endianness flag, 0 means little-endian, 1 means big-endian.
	// Bit 2 is dataset names payload flag, 0 means no names payload, 1 means present.
	// Bit 3 is reserved for future use, must be set to 0.
	// Bit 4-15 are magic number to identify the chunk format:
	//   - 0xE510 (0b1110_0101_0001_0000): Sample chunk format v1
	Options uint16

	// EncodingType is an enum indicating the encoding used for this chunk.
	// bit 0-3 for step index encoding, bit 4-7 for sample value encoding.
	EncodingType uint8
	// CompressionType is an enum indicating the compression used for this chunk.
	// bit 0-3 for step payload compression, bit 4-7 for value payload compression.
	CompressionType uint8
}

var (
	validStepEncodings = map[uint8]struct{}{
		uint8(format.TypeRaw):   {},
		uint8(format.TypeDelta): {},
	}

	validValueEncodings = map[uint8]struct{}{
		uint8(format.TypeRaw):     {},
		uint8(format.TypeGorilla): {},
	}

	validCompressions = map[uint8]struct{}{
		uint8(format.CompressionNone): {},
		uint8(format.CompressionZstd): {},
		uint8(format.CompressionS2):   {},
		uint8(format.CompressionLZ4):  {},
	}
)

// NewFlag creates a new Flag with default settings: little-endian,
// delta-encoded step indices and gorilla-encoded values, both payloads
// uncompressed. Thinned chain steps delta to small integers and repeated
// samples from rejected proposals collapse to single bits under gorilla,
// so the defaults already produce compact chunks.
func NewFlag() Flag {
	flag := Flag{
		Options:         MagicSampleV1Opt,
		EncodingType:    StepEncodingDelta | ValueEncodingGorilla,
		CompressionType: StepCompressionNone | ValueCompressionNone,
	}
	flag.WithLittleEndian()

	return flag
}

// HasDatasetNames returns whether the dataset names payload is enabled.
// When enabled, the chunk carries the original dataset name strings for
// collision detection and verification.
func (f Flag) HasDatasetNames() bool {
	return (f.Options & DatasetNamesMask) != 0
}

// SetHasDatasetNames enables or disables the dataset names payload.
func (f *Flag) SetHasDatasetNames(enabled bool) {
	if enabled {
		f.Options |= DatasetNamesMask
	} else {
		f.Options &^= DatasetNamesMask
	}
}

// IsLittleEndian returns whether the data is little-endian.
func (f Flag) IsLittleEndian() bool {
	return (f.Options & EndiannessMask) == 0
}

// IsBigEndian returns whether the data is big-endian.
func (f Flag) IsBigEndian() bool {
	return (f.Options & EndiannessMask) != 0
}

// WithLittleEndian sets little-endian byte order.
func (f *Flag) WithLittleEndian() {
	f.Options &= ^uint16(EndiannessMask)
}

// WithBigEndian sets big-endian byte order.
func (f *Flag) WithBigEndian() {
	f.Options |= EndiannessMask
}

// GetMagicNumber returns the magic number from the Options field.
func (f Flag) GetMagicNumber() uint16 {
	return f.Options & MagicNumberMask
}

// StepEncoding returns the step index encoding type from bits 0-3 of EncodingType.
func (f Flag) StepEncoding() format.EncodingType {
	return format.EncodingType(f.EncodingType & 0x0F)
}

// SetStepEncoding sets the step index encoding type in bits 0-3 of EncodingType.
func (f *Flag) SetStepEncoding(enc format.EncodingType) {
	f.EncodingType &^= 0x0F // Clear bits 0-3
	f.EncodingType |= (uint8(enc) & 0x0F)
}

// ValueEncoding returns the value encoding type from bits 4-7 of EncodingType.
func (f Flag) ValueEncoding() format.EncodingType {
	return format.EncodingType((f.EncodingType >> 4) & 0x0F)
}

// SetValueEncoding sets the value encoding type in bits 4-7 of EncodingType.
func (f *Flag) SetValueEncoding(enc format.EncodingType) {
	f.EncodingType &^= 0xF0 // Clear bits 4-7
	f.EncodingType |= (uint8(enc) & 0x0F) << 4
}

// StepCompression returns the step payload compression type from bits 0-3 of CompressionType.
func (f Flag) StepCompression() format.CompressionType {
	return format.CompressionType(f.CompressionType & 0x0F)
}

// SetStepCompression sets the step payload compression type in bits 0-3 of CompressionType.
func (f *Flag) SetStepCompression(compression format.CompressionType) {
	f.CompressionType &^= 0x0F // Clear bits 0-3
	f.CompressionType |= (uint8(compression) & 0x0F)
}

// ValueCompression returns the value payload compression type from bits 4-7 of CompressionType.
func (f Flag) ValueCompression() format.CompressionType {
	return format.CompressionType((f.CompressionType >> 4) & 0x0F)
}

// SetValueCompression sets the value payload compression type in bits 4-7 of CompressionType.
func (f *Flag) SetValueCompression(compression format.CompressionType) {
	f.CompressionType &^= 0xF0 // Clear bits 4-7
	f.CompressionType |= (uint8(compression) & 0x0F) << 4
}

// IsValidMagicNumber checks if the magic number is valid.
func (f Flag) IsValidMagicNumber() bool {
	return f.GetMagicNumber() == MagicSampleV1Opt
}

// IsValidEncoding checks if the encoding types are valid.
func (f Flag) IsValidEncoding() bool {
	stepEncoding := f.EncodingType & 0x0F
	valueEncoding := (f.EncodingType >> 4) & 0x0F

	_, validStep := validStepEncodings[stepEncoding]
	_, validValue := validValueEncodings[valueEncoding]

	return validStep && validValue
}

// IsValidCompression checks if the compression types are valid.
func (f Flag) IsValidCompression() bool {
	stepCompression := f.CompressionType & 0x0F
	valueCompression := (f.CompressionType >> 4) & 0x0F

	_, validStep := validCompressions[stepCompression]
	_, validValue := validCompressions[valueCompression]

	return validStep && validValue
}

// Validate checks if the flag contains valid values.
// The reserved bits must be zero so future format revisions can claim them.
func (f Flag) Validate() error {
	if !f.IsValidMagicNumber() {
		return errs.ErrInvalidMagicNumber
	}

	if (f.Options & (ReservedBitMask | ReservedBit3Mask)) != 0 {
		return errs.ErrInvalidHeaderFlags
	}

	if !f.IsValidEncoding() {
		return errs.ErrInvalidHeaderFlags
	}

	if !f.IsValidCompression() {
		return errs.ErrInvalidHeaderFlags
	}

	return nil
}

// GetEndianEngine returns the appropriate endian engine based on the flag.
func (f Flag) GetEndianEngine() endian.EndianEngine {
	if f.IsLittleEndian() {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}
