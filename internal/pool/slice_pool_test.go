package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInt64Slice(t *testing.T) {
	slice, cleanup := GetInt64Slice(100)
	require.Len(t, slice, 100)
	require.GreaterOrEqual(t, cap(slice), 100)
	ptr := &slice[0]
	cleanup()

	// A second request within capacity reuses the pooled array
	reused, cleanup2 := GetInt64Slice(50)
	defer cleanup2()
	require.Len(t, reused, 50)
	require.Equal(t, ptr, &reused[0])
}

func TestGetInt64Slice_Grows(t *testing.T) {
	_, cleanup := GetInt64Slice(10)
	cleanup()

	slice, cleanup2 := GetInt64Slice(1000)
	defer cleanup2()

	require.Len(t, slice, 1000)
	require.GreaterOrEqual(t, cap(slice), 1000)
}

func TestGetFloat64Slice(t *testing.T) {
	slice, cleanup := GetFloat64Slice(100)
	require.Len(t, slice, 100)
	require.GreaterOrEqual(t, cap(slice), 100)
	ptr := &slice[0]
	cleanup()

	reused, cleanup2 := GetFloat64Slice(50)
	defer cleanup2()
	require.Len(t, reused, 50)
	require.Equal(t, ptr, &reused[0])
}

func TestGetFloat64Slice_Grows(t *testing.T) {
	_, cleanup := GetFloat64Slice(10)
	cleanup()

	slice, cleanup2 := GetFloat64Slice(1000)
	defer cleanup2()

	require.Len(t, slice, 1000)
	require.GreaterOrEqual(t, cap(slice), 1000)
}

func TestSlicePoolConcurrency(t *testing.T) {
	const goroutines = 100
	done := make(chan struct{}, goroutines)

	for range goroutines {
		go func() {
			defer func() { done <- struct{}{} }()

			steps, stepsCleanup := GetInt64Slice(50)
			defer stepsCleanup()
			values, valuesCleanup := GetFloat64Slice(50)
			defer valuesCleanup()

			for i := range steps {
				steps[i] = int64(i)
				values[i] = float64(i)
			}
		}()
	}

	for range goroutines {
		<-done
	}
}
