package compress

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpmaplab/epistat/encoding"
	"github.com/gpmaplab/epistat/endian"
	"github.com/gpmaplab/epistat/format"
)

var errPayloadMismatch = errors.New("payload length mismatch")

// thinnedStepPayload builds a delta-encoded step payload the way a chunk
// encoder does for a thinned chain: a start step followed by near-regular
// increments.
func thinnedStepPayload(t testing.TB, startStep int64, count int, thin int64) []byte {
	t.Helper()

	encoder := encoding.NewStepDeltaEncoder()
	defer encoder.Finish()

	rng := rand.New(rand.NewPCG(7, 0))
	step := startStep
	for i := 0; i < count; i++ {
		encoder.Write(step)
		step += thin
		if rng.Float64() < 0.05 {
			step++ // occasional adaptive-thinning jitter
		}
	}

	payload := make([]byte, len(encoder.Bytes()))
	copy(payload, encoder.Bytes())

	return payload
}

// chainValues generates Metropolis-style samples for a walker ensemble:
// small random-walk moves with rejected proposals repeating the previous
// position, which is the value pattern the codecs see in practice.
func chainValues(seed uint64, walkers, steps, width int) []float64 {
	rng := rand.New(rand.NewPCG(seed, 1))

	values := make([]float64, 0, walkers*steps*width)
	current := make([]float64, walkers*width)
	for i := range current {
		current[i] = rng.NormFloat64()
	}

	for s := 0; s < steps; s++ {
		for w := 0; w < walkers; w++ {
			if rng.Float64() < 0.4 {
				// rejected proposal, walker stays put
				values = append(values, current[w*width:(w+1)*width]...)
				continue
			}
			for k := 0; k < width; k++ {
				current[w*width+k] += 0.05 * rng.NormFloat64()
				values = append(values, current[w*width+k])
			}
		}
	}

	return values
}

func gorillaValuePayload(t testing.TB, values []float64) []byte {
	t.Helper()

	encoder := encoding.NewValueGorillaEncoder()
	defer encoder.Finish()

	encoder.WriteSlice(values)

	payload := make([]byte, len(encoder.Bytes()))
	copy(payload, encoder.Bytes())

	return payload
}

func rawValuePayload(t testing.TB, values []float64) []byte {
	t.Helper()

	encoder := encoding.NewValueRawEncoder(endian.GetLittleEndianEngine())
	defer encoder.Finish()

	encoder.WriteSlice(values)

	payload := make([]byte, len(encoder.Bytes()))
	copy(payload, encoder.Bytes())

	return payload
}

func allCodecs() map[format.CompressionType]Codec {
	return map[format.CompressionType]Codec{
		format.CompressionNone: NewNoOpCompressor(),
		format.CompressionZstd: NewZstdCompressor(),
		format.CompressionS2:   NewS2Compressor(),
		format.CompressionLZ4:  NewLZ4Compressor(),
	}
}

func TestCreateCodec(t *testing.T) {
	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		codec, err := CreateCodec(typ, "steps")
		require.NoError(t, err, "compression type %s", typ)
		require.NotNil(t, codec)
	}

	_, err := CreateCodec(format.CompressionType(0xF), "values")
	require.Error(t, err)
	require.Contains(t, err.Error(), "values")
}

func TestGetCodec(t *testing.T) {
	for typ := range allCodecs() {
		codec, err := GetCodec(typ)
		require.NoError(t, err)
		require.NotNil(t, codec)
	}

	_, err := GetCodec(format.CompressionType(0xF))
	require.Error(t, err)
}

func TestCodecs_StepPayloadRoundTrip(t *testing.T) {
	// 256 recorded steps is the batch size a streaming sampler run flushes
	const count = 256

	payload := thinnedStepPayload(t, 1000, count, 10)

	for typ, codec := range allCodecs() {
		t.Run(typ.String(), func(t *testing.T) {
			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)

			// The restored payload must still decode as a step sequence.
			decoder := encoding.NewStepDeltaDecoder()
			decoded := 0
			var last int64
			for step := range decoder.All(restored, count) {
				if decoded > 0 {
					require.Greater(t, step, last)
				}
				last = step
				decoded++
			}
			require.Equal(t, count, decoded)
		})
	}
}

func TestCodecs_GorillaValueRoundTrip(t *testing.T) {
	// 8 walkers, 256 steps, 3 model coefficients per sample
	values := chainValues(42, 8, 256, 3)
	payload := gorillaValuePayload(t, values)

	for typ, codec := range allCodecs() {
		t.Run(typ.String(), func(t *testing.T) {
			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)

			decoder := encoding.NewValueGorillaDecoder()
			i := 0
			for val := range decoder.All(restored, len(values)) {
				require.Equal(t, values[i], val)
				i++
			}
			require.Equal(t, len(values), i)
		})
	}
}

func TestCodecs_RawValueRoundTrip(t *testing.T) {
	values := chainValues(99, 16, 256, 3)
	payload := rawValuePayload(t, values)

	for typ, codec := range allCodecs() {
		t.Run(typ.String(), func(t *testing.T) {
			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)
		})
	}
}

func TestCodecs_RawChainDataCompresses(t *testing.T) {
	// Raw float64 payloads with repeated walker positions (rejected moves)
	// should shrink under every real codec. This is the case where raw
	// value encoding plus compression is chosen over Gorilla.
	values := chainValues(7, 16, 256, 3)
	payload := rawValuePayload(t, values)

	for typ, codec := range allCodecs() {
		if typ == format.CompressionNone {
			continue
		}
		t.Run(typ.String(), func(t *testing.T) {
			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			require.Less(t, len(compressed), len(payload))
		})
	}
}

func TestCodecs_EmptyPayload(t *testing.T) {
	for typ, codec := range allCodecs() {
		t.Run(typ.String(), func(t *testing.T) {
			compressed, err := codec.Compress([]byte{})
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, restored)
		})
	}
}

func TestCodecs_CorruptPayload(t *testing.T) {
	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}

	for typ, codec := range allCodecs() {
		if typ == format.CompressionNone {
			// NoOp passes data through unchanged
			continue
		}
		t.Run(typ.String(), func(t *testing.T) {
			_, err := codec.Decompress(garbage)
			require.Error(t, err)
		})
	}
}

func TestCodecs_ConcurrentUse(t *testing.T) {
	// Readers decompress chunk payloads concurrently while a sampler keeps
	// appending, so every codec must be safe for concurrent use.
	stepPayload := thinnedStepPayload(t, 0, 256, 5)
	valuePayload := gorillaValuePayload(t, chainValues(3, 8, 128, 2))

	for typ, codec := range allCodecs() {
		t.Run(typ.String(), func(t *testing.T) {
			var wg sync.WaitGroup
			errCh := make(chan error, 32)

			for i := 0; i < 16; i++ {
				payload := stepPayload
				if i%2 == 1 {
					payload = valuePayload
				}

				wg.Add(1)
				go func(data []byte) {
					defer wg.Done()

					compressed, err := codec.Compress(data)
					if err != nil {
						errCh <- err
						return
					}
					restored, err := codec.Decompress(compressed)
					if err != nil {
						errCh <- err
						return
					}
					if len(restored) != len(data) {
						errCh <- errPayloadMismatch
					}
				}(payload)
			}

			wg.Wait()
			close(errCh)
			for err := range errCh {
				require.NoError(t, err)
			}
		})
	}
}

func TestNoOpCompressor_PassThrough(t *testing.T) {
	codec := NewNoOpCompressor()
	payload := thinnedStepPayload(t, 500, 64, 10)

	compressed, err := codec.Compress(payload)
	require.NoError(t, err)
	require.Equal(t, payload, compressed)

	restored, err := codec.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, restored)
}

func TestCompressionStats(t *testing.T) {
	t.Run("Ratio and savings", func(t *testing.T) {
		stats := CompressionStats{
			Algorithm:      format.CompressionZstd,
			OriginalSize:   1000,
			CompressedSize: 250,
		}

		require.InDelta(t, 0.25, stats.CompressionRatio(), 1e-9)
		require.InDelta(t, 75.0, stats.SpaceSavings(), 1e-9)
	})

	t.Run("Zero original size", func(t *testing.T) {
		stats := CompressionStats{}

		require.Equal(t, 0.0, stats.CompressionRatio())
		require.Equal(t, 100.0, stats.SpaceSavings())
	})

	t.Run("Incompressible payload", func(t *testing.T) {
		stats := CompressionStats{
			OriginalSize:   100,
			CompressedSize: 110,
		}

		require.Greater(t, stats.CompressionRatio(), 1.0)
		require.Less(t, stats.SpaceSavings(), 0.0)
	})
}
