package compress

import (
	"fmt"
	"testing"

	"github.com/gpmaplab/epistat/format"
)

// benchPayloads builds the payload shapes a chunk encoder actually hands to
// the codecs: a delta-encoded step batch, a Gorilla-encoded value stream,
// and a raw value stream.
func benchPayloads(b *testing.B) map[string][]byte {
	b.Helper()

	return map[string][]byte{
		"steps/delta-256":     thinnedStepPayload(b, 1000, 256, 10),
		"values/gorilla-8x3":  gorillaValuePayload(b, chainValues(42, 8, 256, 3)),
		"values/gorilla-64x3": gorillaValuePayload(b, chainValues(42, 64, 256, 3)),
		"values/raw-16x3":     rawValuePayload(b, chainValues(99, 16, 256, 3)),
	}
}

// benchCodecs lists the compression settings a chunk encoder can be
// configured with; NoOp is the baseline.
func benchCodecs() []struct {
	typ   format.CompressionType
	codec Codec
} {
	return []struct {
		typ   format.CompressionType
		codec Codec
	}{
		{format.CompressionNone, NewNoOpCompressor()},
		{format.CompressionZstd, NewZstdCompressor()},
		{format.CompressionS2, NewS2Compressor()},
		{format.CompressionLZ4, NewLZ4Compressor()},
	}
}

func BenchmarkCodec_Compress(b *testing.B) {
	payloads := benchPayloads(b)

	for _, c := range benchCodecs() {
		for name, payload := range payloads {
			b.Run(fmt.Sprintf("%s/%s", c.typ, name), func(b *testing.B) {
				b.SetBytes(int64(len(payload)))
				b.ReportAllocs()

				for b.Loop() {
					if _, err := c.codec.Compress(payload); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkCodec_Decompress(b *testing.B) {
	payloads := benchPayloads(b)

	for _, c := range benchCodecs() {
		for name, payload := range payloads {
			compressed, err := c.codec.Compress(payload)
			if err != nil {
				b.Fatal(err)
			}

			b.Run(fmt.Sprintf("%s/%s", c.typ, name), func(b *testing.B) {
				b.SetBytes(int64(len(payload)))
				b.ReportAllocs()

				for b.Loop() {
					if _, err := c.codec.Decompress(compressed); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkCodec_Ratio reports the compression ratio each codec achieves on
// the chunk payload shapes, so ratio and speed can be compared side by side
// when choosing an encoder configuration.
func BenchmarkCodec_Ratio(b *testing.B) {
	payloads := benchPayloads(b)

	for _, c := range benchCodecs() {
		for name, payload := range payloads {
			b.Run(fmt.Sprintf("%s/%s", c.typ, name), func(b *testing.B) {
				var compressed []byte
				var err error

				for b.Loop() {
					compressed, err = c.codec.Compress(payload)
					if err != nil {
						b.Fatal(err)
					}
				}

				stats := CompressionStats{
					Algorithm:      c.typ,
					OriginalSize:   int64(len(payload)),
					CompressedSize: int64(len(compressed)),
				}
				b.ReportMetric(stats.CompressionRatio(), "ratio")
			})
		}
	}
}

func BenchmarkCodec_RoundTrip(b *testing.B) {
	payload := gorillaValuePayload(b, chainValues(7, 8, 256, 3))

	for _, c := range benchCodecs() {
		b.Run(c.typ.String(), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()

			for b.Loop() {
				compressed, err := c.codec.Compress(payload)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := c.codec.Decompress(compressed); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
