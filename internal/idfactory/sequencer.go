package idfactory

import (
	"context"
	"strconv"
	"sync"
)

// Sequencer hands out single IDs from reserved blocks. It holds at most one
// block; a fresh block is reserved only when the current one is exhausted.
type Sequencer struct {
	allocator Allocator
	blockSize int64

	mu        sync.Mutex
	next      int64
	remaining int64
}

// NewSequencer creates a Sequencer drawing blocks of blockSize from the
// allocator. A non-positive blockSize falls back to DefaultBlockSize.
func NewSequencer(allocator Allocator, blockSize int64) *Sequencer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Sequencer{allocator: allocator, blockSize: blockSize}
}

// NextID returns the next surrogate ID in decimal string form.
func (s *Sequencer) NextID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining == 0 {
		first, err := s.allocator.Reserve(ctx, s.blockSize)
		if err != nil {
			return "", err
		}
		s.next = first
		s.remaining = s.blockSize
	}
	id := s.next
	s.next++
	s.remaining--
	return strconv.FormatInt(id, 10), nil
}
