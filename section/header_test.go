package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/errs"
	"github.com/gpmaplab/epistat/format"
)

func TestNewHeader(t *testing.T) {
	header := NewHeader(1000)

	require.NotNil(t, header)
	require.Equal(t, int64(1000), header.StartStep)
	require.Equal(t, uint32(IndexOffsetOffset), header.IndexOffset)
	require.Equal(t, uint16(0), header.DatasetCount)
	require.Equal(t, uint16(0), header.WalkerCount)
	require.Equal(t, uint32(0), header.StepPayloadOffset)
	require.True(t, header.Flag.IsValidMagicNumber())
	require.True(t, header.Flag.IsLittleEndian())
}

func TestHeader_Parse(t *testing.T) {
	t.Run("Valid header", func(t *testing.T) {
		original := NewHeader(42)
		original.WalkerCount = 64
		original.DatasetCount = 2
		original.StepPayloadOffset = 100
		original.ValuePayloadOffset = 200
		original.NamePayloadOffset = 300

		data := original.Bytes()

		parsed := &Header{}
		err := parsed.Parse(data)

		require.NoError(t, err)
		require.Equal(t, original.StartStep, parsed.StartStep)
		require.Equal(t, original.WalkerCount, parsed.WalkerCount)
		require.Equal(t, original.DatasetCount, parsed.DatasetCount)
		require.Equal(t, original.IndexOffset, parsed.IndexOffset)
		require.Equal(t, original.StepPayloadOffset, parsed.StepPayloadOffset)
		require.Equal(t, original.ValuePayloadOffset, parsed.ValuePayloadOffset)
		require.Equal(t, original.NamePayloadOffset, parsed.NamePayloadOffset)
	})

	t.Run("Negative start step", func(t *testing.T) {
		original := NewHeader(-500)
		data := original.Bytes()

		parsed := &Header{}
		err := parsed.Parse(data)

		require.NoError(t, err)
		require.Equal(t, int64(-500), parsed.StartStep)
	})

	t.Run("Invalid size", func(t *testing.T) {
		header := &Header{}
		err := header.Parse([]byte{1, 2, 3}) // Too short

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Invalid magic number", func(t *testing.T) {
		data := make([]byte, HeaderSize)
		// Set invalid magic number (not 0xE510)
		data[0] = 0x00
		data[1] = 0x00

		header := &Header{}
		err := header.Parse(data)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidMagicNumber)
	})
}

func TestHeader_Bytes(t *testing.T) {
	header := NewHeader(7)
	header.WalkerCount = 32
	header.DatasetCount = 3
	header.StepPayloadOffset = 1000
	header.ValuePayloadOffset = 2000
	header.NamePayloadOffset = 3000

	data := header.Bytes()

	require.Len(t, data, HeaderSize)

	parsed := &Header{}
	err := parsed.Parse(data)
	require.NoError(t, err)
	require.Equal(t, header.StartStep, parsed.StartStep)
	require.Equal(t, header.WalkerCount, parsed.WalkerCount)
	require.Equal(t, header.DatasetCount, parsed.DatasetCount)
}

func TestHeader_Endianness(t *testing.T) {
	t.Run("Little endian", func(t *testing.T) {
		header := NewHeader(0)
		header.Flag.WithLittleEndian()

		engine := header.Flag.GetEndianEngine()
		require.Equal(t, endian.GetLittleEndianEngine(), engine)
	})

	t.Run("Big endian", func(t *testing.T) {
		header := NewHeader(0)
		header.Flag.WithBigEndian()

		engine := header.Flag.GetEndianEngine()
		require.Equal(t, endian.GetBigEndianEngine(), engine)
	})

	t.Run("Big endian round trip", func(t *testing.T) {
		original := NewHeader(123456789)
		original.Flag.WithBigEndian()
		original.WalkerCount = 10
		original.DatasetCount = 1
		original.StepPayloadOffset = 48

		parsed, err := ParseHeader(original.Bytes())
		require.NoError(t, err)
		require.True(t, parsed.Flag.IsBigEndian())
		require.Equal(t, original.StartStep, parsed.StartStep)
		require.Equal(t, original.WalkerCount, parsed.WalkerCount)
		require.Equal(t, original.StepPayloadOffset, parsed.StepPayloadOffset)
	})

	t.Run("Options word is endianness invariant", func(t *testing.T) {
		// The Options word holds the endianness bit, so its own byte order
		// is fixed: the magic high byte sits at offset 1 either way
		little := NewHeader(0)
		little.Flag.WithLittleEndian()
		big := NewHeader(0)
		big.Flag.WithBigEndian()

		littleBytes := little.Bytes()
		bigBytes := big.Bytes()

		require.Equal(t, byte(MagicSampleV1Opt>>8), littleBytes[1])
		require.Equal(t, byte(MagicSampleV1Opt>>8), bigBytes[1])
		require.Equal(t, littleBytes[0]|EndiannessMask, bigBytes[0])
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("Valid header", func(t *testing.T) {
		original := NewHeader(99)
		original.DatasetCount = 5
		data := original.Bytes()

		parsed, err := ParseHeader(data)

		require.NoError(t, err)
		require.Equal(t, original.StartStep, parsed.StartStep)
		require.Equal(t, original.DatasetCount, parsed.DatasetCount)
	})

	t.Run("Too short", func(t *testing.T) {
		data := make([]byte, HeaderSize-1)

		_, err := ParseHeader(data)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Extra data ignored", func(t *testing.T) {
		original := NewHeader(0)
		data := append(original.Bytes(), []byte{1, 2, 3, 4, 5}...)

		parsed, err := ParseHeader(data)

		require.NoError(t, err)
		require.Equal(t, original.StartStep, parsed.StartStep)
	})

	t.Run("Reserved bits rejected", func(t *testing.T) {
		original := NewHeader(0)
		original.Flag.Options |= ReservedBitMask
		data := original.Bytes()

		_, err := ParseHeader(data)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)
	})

	t.Run("Invalid encoding rejected", func(t *testing.T) {
		original := NewHeader(0)
		original.Flag.EncodingType = 0xFF
		data := original.Bytes()

		_, err := ParseHeader(data)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidHeaderFlags)
	})
}

func TestHeader_EncodingRoundTrip(t *testing.T) {
	original := NewHeader(0)
	original.Flag.SetStepEncoding(format.TypeRaw)
	original.Flag.SetValueEncoding(format.TypeRaw)
	original.Flag.SetStepCompression(format.CompressionS2)
	original.Flag.SetValueCompression(format.CompressionLZ4)

	parsed, err := ParseHeader(original.Bytes())

	require.NoError(t, err)
	require.Equal(t, format.TypeRaw, parsed.Flag.StepEncoding())
	require.Equal(t, format.TypeRaw, parsed.Flag.ValueEncoding())
	require.Equal(t, format.CompressionS2, parsed.Flag.StepCompression())
	require.Equal(t, format.CompressionLZ4, parsed.Flag.ValueCompression())
}
