// Package idfactory hands out surrogate IDs from a persisted counter. IDs
// are reserved in blocks to amortize the storage round trip: one reservation
// covers blockSize sequential allocations.
package idfactory

import (
	"context"
	"sync"
)

// SettingsKey is the settings row holding the counter.
const SettingsKey = "latest-id"

// DefaultBlockSize is how many IDs one reservation covers.
const DefaultBlockSize = 20

// Allocator reserves a block of sequential surrogate IDs. Reserve returns
// the first ID of the block; the caller owns [firstID, firstID+blockSize).
// Concurrent reservations never overlap.
type Allocator interface {
	Reserve(ctx context.Context, blockSize int64) (int64, error)
}

// InMemory is a mutex-guarded Allocator for tests and single-node use.
type InMemory struct {
	mu   sync.Mutex
	next int64
}

// NewInMemory creates an allocator counting from the given baseline.
func NewInMemory(baseline int64) *InMemory {
	return &InMemory{next: baseline}
}

func (a *InMemory) Reserve(_ context.Context, blockSize int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	first := a.next
	a.next += blockSize
	return first, nil
}
