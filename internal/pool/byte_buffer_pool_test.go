package pool

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildChunkFrame assembles a length-prefixed frame into bb the way the
// store appends an encoded chunk: reserve the prefix, append the payload,
// then backfill the length.
func buildChunkFrame(bb *ByteBuffer, payload []byte) {
	start := bb.Len()
	bb.ExtendOrGrow(4)
	bb.MustWrite(payload)
	binary.LittleEndian.PutUint32(bb.Slice(start, start+4), uint32(len(payload)))
}

func TestByteBuffer_AppendAndReset(t *testing.T) {
	bb := NewByteBuffer(ChunkBufferDefaultSize)

	require.Equal(t, 0, bb.Len())
	require.Equal(t, ChunkBufferDefaultSize, bb.Cap())

	payload := bytes.Repeat([]byte{0x5A}, 100)
	bb.MustWrite(payload)
	require.Equal(t, 100, bb.Len())
	require.Equal(t, payload, bb.Bytes())

	n, err := bb.Write(payload)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.Equal(t, 200, bb.Len())

	capBefore := bb.Cap()
	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.Equal(t, capBefore, bb.Cap(), "Reset must keep the allocation")
}

func TestByteBuffer_ChunkFrameAssembly(t *testing.T) {
	bb := NewByteBuffer(64)

	first := []byte("step payload")
	second := []byte("value payload, somewhat longer")
	buildChunkFrame(bb, first)
	buildChunkFrame(bb, second)

	data := bb.Bytes()
	require.Len(t, data, 4+len(first)+4+len(second))

	length := binary.LittleEndian.Uint32(data[:4])
	require.Equal(t, uint32(len(first)), length)
	require.Equal(t, first, data[4:4+length])

	offset := 4 + int(length)
	length = binary.LittleEndian.Uint32(data[offset : offset+4])
	require.Equal(t, uint32(len(second)), length)
	require.Equal(t, second, data[offset+4:offset+4+int(length)])
}

func TestByteBuffer_SetLength(t *testing.T) {
	bb := NewByteBuffer(32)

	bb.SetLength(16)
	require.Equal(t, 16, bb.Len())

	bb.SetLength(0)
	require.Equal(t, 0, bb.Len())

	require.Panics(t, func() { bb.SetLength(-1) })
	require.Panics(t, func() { bb.SetLength(bb.Cap() + 1) })
}

func TestByteBuffer_Slice(t *testing.T) {
	bb := NewByteBuffer(32)
	bb.MustWrite([]byte{0, 1, 2, 3, 4, 5, 6, 7})

	s := bb.Slice(2, 6)
	require.Equal(t, []byte{2, 3, 4, 5}, s)

	// The slice aliases the buffer, writes through it are visible.
	s[0] = 0xFF
	require.Equal(t, byte(0xFF), bb.Bytes()[2])

	require.Panics(t, func() { bb.Slice(-1, 4) })
	require.Panics(t, func() { bb.Slice(6, 2) })
	require.Panics(t, func() { bb.Slice(0, bb.Cap()+1) })
}

func TestByteBuffer_Extend(t *testing.T) {
	bb := NewByteBuffer(16)

	require.True(t, bb.Extend(10))
	require.Equal(t, 10, bb.Len())

	// Not enough capacity left, length unchanged.
	require.False(t, bb.Extend(10))
	require.Equal(t, 10, bb.Len())

	require.True(t, bb.Extend(6))
	require.Equal(t, 16, bb.Len())
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("0123456789"))

	// Larger than the remaining capacity, must reallocate and keep content.
	bb.ExtendOrGrow(100)
	require.Equal(t, 110, bb.Len())
	require.Equal(t, []byte("0123456789"), bb.Bytes()[:10])
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("No-op when capacity suffices", func(t *testing.T) {
		bb := NewByteBuffer(1024)
		capBefore := bb.Cap()

		bb.Grow(512)
		require.Equal(t, capBefore, bb.Cap())
	})

	t.Run("Small buffer grows by at least the default size", func(t *testing.T) {
		bb := NewByteBuffer(64)
		bb.SetLength(64)

		bb.Grow(1)
		require.GreaterOrEqual(t, bb.Cap(), 64+ChunkBufferDefaultSize)
		require.Equal(t, 64, bb.Len())
	})

	t.Run("Large buffer grows by a quarter", func(t *testing.T) {
		size := 8 * ChunkBufferDefaultSize
		bb := NewByteBuffer(size)
		bb.SetLength(size)

		bb.Grow(1)
		require.GreaterOrEqual(t, bb.Cap(), size+size/4)
	})

	t.Run("Grow preserves content", func(t *testing.T) {
		bb := NewByteBuffer(8)
		bb.MustWrite([]byte("chunk001"))

		bb.Grow(1024)
		require.Equal(t, []byte("chunk001"), bb.Bytes())
	})
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(64)
	buildChunkFrame(bb, []byte("persisted chunk"))

	var sink bytes.Buffer
	n, err := bb.WriteTo(&sink)

	require.NoError(t, err)
	require.Equal(t, int64(bb.Len()), n)
	require.Equal(t, bb.Bytes(), sink.Bytes())
}

func TestByteBufferPool_Reuse(t *testing.T) {
	p := NewByteBufferPool(256, 1024)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("leftover chunk bytes"))
	p.Put(bb)

	// A recycled buffer must come back empty.
	bb2 := p.Get()
	require.Equal(t, 0, bb2.Len())
	p.Put(bb2)
}

func TestByteBufferPool_PutNil(t *testing.T) {
	p := NewByteBufferPool(256, 1024)

	require.NotPanics(t, func() { p.Put(nil) })
}

func TestByteBufferPool_ThresholdDiscard(t *testing.T) {
	const threshold = 512
	p := NewByteBufferPool(64, threshold)

	// A buffer grown past the threshold is dropped instead of pooled,
	// so an oversized read does not pin its allocation forever.
	big := p.Get()
	big.ExtendOrGrow(threshold * 4)
	require.Greater(t, big.Cap(), threshold)
	p.Put(big)

	small := p.Get()
	require.LessOrEqual(t, small.Cap(), threshold)
	p.Put(small)
}

func TestByteBufferPool_NoThreshold(t *testing.T) {
	p := NewByteBufferPool(64, 0)

	bb := p.Get()
	bb.ExtendOrGrow(1 << 20)
	require.NotPanics(t, func() { p.Put(bb) })
}

func TestDefaultPools(t *testing.T) {
	t.Run("Chunk pool", func(t *testing.T) {
		bb := GetChunkBuffer()
		require.NotNil(t, bb)
		require.Equal(t, 0, bb.Len())
		require.GreaterOrEqual(t, bb.Cap(), ChunkBufferDefaultSize)

		bb.MustWrite([]byte("encoded chunk"))
		PutChunkBuffer(bb)
	})

	t.Run("Store pool", func(t *testing.T) {
		bb := GetStoreBuffer()
		require.NotNil(t, bb)
		require.Equal(t, 0, bb.Len())
		require.GreaterOrEqual(t, bb.Cap(), StoreBufferDefaultSize)

		// Typical store read: size the buffer for one chunk frame.
		bb.Reset()
		bb.ExtendOrGrow(4096)
		require.Equal(t, 4096, bb.Len())
		PutStoreBuffer(bb)
	})

	t.Run("Put nil is safe", func(t *testing.T) {
		require.NotPanics(t, func() { PutChunkBuffer(nil) })
		require.NotPanics(t, func() { PutStoreBuffer(nil) })
	})
}

func TestByteBufferPool_Concurrent(t *testing.T) {
	p := NewByteBufferPool(256, 4096)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			for j := 0; j < 20; j++ {
				bb := p.Get()
				if bb.Len() != 0 {
					t.Errorf("goroutine %d: pooled buffer not reset, len=%d", id, bb.Len())
				}
				buildChunkFrame(bb, bytes.Repeat([]byte{byte(id)}, 32))
				p.Put(bb)
			}
		}(i)
	}
	wg.Wait()
}
