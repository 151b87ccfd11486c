// Package cache holds the identifier cache protecting the hot lookup path.
//
// Entries expire a fixed interval after insertion; a read never extends the
// TTL. The manager invalidates entries explicitly on every successful
// mutation, so the cache is only eventually consistent with out-of-band store
// writes from other processes.
package cache

import (
	"context"
	"sync"
	"time"

	"smpd/internal/servicegroup/models"
	"smpd/pkg/domain"
)

// DefaultTTL is the fixed time-to-live from insertion.
const DefaultTTL = 60 * time.Second

// Cache maps a participant identifier to its registration record.
type Cache interface {
	// Get returns the cached record and whether it was present and fresh.
	Get(ctx context.Context, participantID domain.ParticipantIdentifier) (*models.ServiceGroup, bool)
	// Put inserts the record with a fresh TTL.
	Put(ctx context.Context, sg *models.ServiceGroup)
	// Invalidate removes the entry for the participant, if any.
	Invalidate(ctx context.Context, participantID domain.ParticipantIdentifier)
}

type entry struct {
	group      models.ServiceGroup
	insertedAt time.Time
}

// InMemory is a process-wide concurrent TTL map. Safe for multithreaded
// read/write without external locking.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemory creates a cache with the given TTL; ttl <= 0 uses DefaultTTL.
func NewInMemory(ttl time.Duration) *InMemory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *InMemory) Get(_ context.Context, participantID domain.ParticipantIdentifier) (*models.ServiceGroup, bool) {
	key := participantID.URIEncoded()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		// Expired. Collect lazily so reads stay lock-light.
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	group := e.group
	return &group, true
}

func (c *InMemory) Put(_ context.Context, sg *models.ServiceGroup) {
	if sg == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sg.ParticipantID.URIEncoded()] = entry{group: *sg, insertedAt: c.now()}
}

func (c *InMemory) Invalidate(_ context.Context, participantID domain.ParticipantIdentifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, participantID.URIEncoded())
}
