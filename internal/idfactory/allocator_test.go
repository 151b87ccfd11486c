package idfactory

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryReserve(t *testing.T) {
	ctx := context.Background()
	allocator := NewInMemory(0)

	first, err := allocator.Reserve(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first)

	second, err := allocator.Reserve(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(20), second)
}

func TestInMemoryReserveFromBaseline(t *testing.T) {
	allocator := NewInMemory(1000)

	first, err := allocator.Reserve(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first)
}

func TestSequencerHandsOutSequentialIDs(t *testing.T) {
	ctx := context.Background()
	counting := &countingAllocator{Allocator: NewInMemory(0)}
	seq := NewSequencer(counting, 3)

	for i := 0; i < 7; i++ {
		id, err := seq.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(i), id)
	}
	// 7 IDs from blocks of 3 means exactly 3 reservations.
	assert.Equal(t, 3, counting.calls)
}

func TestSequencerConcurrentIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	seq := NewSequencer(NewInMemory(0), DefaultBlockSize)

	const goroutines = 8
	const perGoroutine = 50

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id, err := seq.NextID(ctx)
				assert.NoError(t, err)
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

type countingAllocator struct {
	Allocator
	calls int
}

func (c *countingAllocator) Reserve(ctx context.Context, blockSize int64) (int64, error) {
	c.calls++
	return c.Allocator.Reserve(ctx, blockSize)
}
