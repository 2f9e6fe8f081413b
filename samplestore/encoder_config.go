package samplestore

import (
	"fmt"

	"github.com/gpmaplab/epistat/compress"
	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/format"
	"github.com/gpmaplab/epistat/internal/options"
	"github.com/gpmaplab/epistat/section"
)

// MaxDatasetCount is the maximum number of datasets allowed in a single chunk.
const MaxDatasetCount = 65536

// Index entry capacity growth strategy constants.
const (
	// initialIndexCapacity is the initial capacity for the index entries slice.
	// A sampler chunk typically carries a handful of datasets (samples,
	// probabilities, a few diagnostics), so a small initial capacity avoids waste.
	initialIndexCapacity = 4

	// indexGrowthThreshold is the size threshold where we switch from 2x to 1.25x growth.
	indexGrowthThreshold = 256
)

// EncoderConfig handles common chunk encoder configuration and state management.
//
// This struct follows the composition over inheritance principle, allowing the
// Encoder to focus on its encoding logic while reusing common configuration
// and state management.
type EncoderConfig struct {
	header       *section.Header
	indexEntries []section.IndexEntry
	stepCodec    compress.Codec
	valCodec     compress.Codec
	engine       endian.EndianEngine
	forceNames   bool
}

// NewEncoderConfig creates a new EncoderConfig with the given start step.
// The encoder will grow dynamically as datasets are added, up to MaxDatasetCount.
func NewEncoderConfig(startStep int64) *EncoderConfig {
	header := section.NewHeader(startStep)

	config := &EncoderConfig{
		header:       header,
		indexEntries: make([]section.IndexEntry, 0, initialIndexCapacity),
		engine:       header.Flag.GetEndianEngine(),
	}

	return config
}

// setStepEncoding sets the step index encoding type.
func (c *EncoderConfig) setStepEncoding(enc format.EncodingType) error {
	switch enc {
	case format.TypeRaw, format.TypeDelta:
		c.header.Flag.SetStepEncoding(enc)
		return nil
	case format.TypeGorilla:
		return fmt.Errorf("gorilla encoding is not supported for step indices")
	default:
		return fmt.Errorf("invalid step encoding: %v", enc)
	}
}

// setValueEncoding sets the sample value encoding type.
func (c *EncoderConfig) setValueEncoding(enc format.EncodingType) error {
	switch enc { //nolint: exhaustive
	case format.TypeRaw, format.TypeGorilla:
		c.header.Flag.SetValueEncoding(enc)
		return nil
	default:
		return fmt.Errorf("invalid value encoding: %v", enc)
	}
}

// setStepCompression sets the step payload compression type.
func (c *EncoderConfig) setStepCompression(comp format.CompressionType) error {
	switch comp {
	case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
		c.header.Flag.SetStepCompression(comp)
		return nil
	default:
		return fmt.Errorf("invalid step compression: %v", comp)
	}
}

// setValueCompression sets the value payload compression type.
func (c *EncoderConfig) setValueCompression(comp format.CompressionType) error {
	switch comp {
	case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
		c.header.Flag.SetValueCompression(comp)
		return nil
	default:
		return fmt.Errorf("invalid value compression: %v", comp)
	}
}

// setEndianess sets the endianness option.
func (c *EncoderConfig) setEndianess(endiness endianness) {
	switch endiness {
	case littleEndianOpt:
		c.header.Flag.WithLittleEndian()
	case bigEndianOpt:
		c.header.Flag.WithBigEndian()
	default:
		c.header.Flag.WithLittleEndian()
	}

	// Update the engine after changing endianness
	c.engine = c.header.Flag.GetEndianEngine()
}

// Header returns the header for this encoder configuration.
func (c *EncoderConfig) Header() *section.Header {
	return c.header
}

// DatasetCount returns the current number of datasets added to the encoder.
func (c *EncoderConfig) DatasetCount() int {
	return len(c.indexEntries)
}

// StepCodec returns the step payload compression codec.
func (c *EncoderConfig) StepCodec() compress.Codec {
	return c.stepCodec
}

// ValueCodec returns the value payload compression codec.
func (c *EncoderConfig) ValueCodec() compress.Codec {
	return c.valCodec
}

// addIndexEntry adds a new index entry for a completed dataset.
// Uses amortized growth strategy to minimize allocations:
// - 2x growth up to 256 entries
// - 1.25x growth beyond 256
func (c *EncoderConfig) addIndexEntry(entry section.IndexEntry) {
	if len(c.indexEntries) == cap(c.indexEntries) {
		oldCap := cap(c.indexEntries)
		var newCap int
		if oldCap < indexGrowthThreshold {
			newCap = oldCap * 2
		} else {
			newCap = oldCap + oldCap/4
		}

		if newCap > MaxDatasetCount {
			newCap = MaxDatasetCount
		}

		// Manually grow the slice to avoid append's internal reallocation
		newEntries := make([]section.IndexEntry, len(c.indexEntries), newCap)
		copy(newEntries, c.indexEntries)
		c.indexEntries = newEntries
	}

	c.indexEntries = append(c.indexEntries, entry)
}

// setCodecs sets the compression codecs based on the header settings.
func (c *EncoderConfig) setCodecs(header section.Header) error {
	stepCodec, err := compress.CreateCodec(header.Flag.StepCompression(), "steps")
	if err != nil {
		return err
	}

	valCodec, err := compress.CreateCodec(header.Flag.ValueCompression(), "values")
	if err != nil {
		return err
	}

	c.stepCodec = stepCodec
	c.valCodec = valCodec

	return nil
}

// endianness represents the byte order configuration option.
type endianness uint8

const (
	littleEndianOpt endianness = iota
	bigEndianOpt    endianness = iota
)

// EncoderOption represents a functional option for configuring the EncoderConfig.
// This is a type alias for the generic Option interface specialized for EncoderConfig.
type EncoderOption = options.Option[*EncoderConfig]

// WithLittleEndian sets the encoder to use little-endian byte order.
// It is the default option.
func WithLittleEndian() EncoderOption {
	return options.NoError(func(c *EncoderConfig) {
		c.setEndianess(littleEndianOpt)
	})
}

// WithBigEndian sets the encoder to use big-endian byte order.
// It rarely needs to be used unless interoperability with big-endian systems is required.
func WithBigEndian() EncoderOption {
	return options.NoError(func(c *EncoderConfig) {
		c.setEndianess(bigEndianOpt)
	})
}

// WithStepEncoding sets the step index encoding type for the encoder.
func WithStepEncoding(enc format.EncodingType) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		return c.setStepEncoding(enc)
	})
}

// WithValueEncoding sets the sample value encoding type for the encoder.
func WithValueEncoding(enc format.EncodingType) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		return c.setValueEncoding(enc)
	})
}

// WithStepCompression sets the step payload compression type for the encoder.
func WithStepCompression(comp format.CompressionType) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		return c.setStepCompression(comp)
	})
}

// WithValueCompression sets the value payload compression type for the encoder.
func WithValueCompression(comp format.CompressionType) EncoderOption {
	return options.New(func(c *EncoderConfig) error {
		return c.setValueCompression(comp)
	})
}

// WithDatasetNames forces the dataset names payload on even when no hash
// collision was detected. The Store relies on this so that reopening a store
// file can rebuild its dataset registry from the chunks alone.
func WithDatasetNames(enabled bool) EncoderOption {
	return options.NoError(func(c *EncoderConfig) {
		c.forceNames = enabled
	})
}
