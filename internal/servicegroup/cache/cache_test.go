package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"smpd/internal/servicegroup/models"
	"smpd/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPID(t *testing.T, value string) domain.ParticipantIdentifier {
	t.Helper()
	pid, err := domain.NewParticipantIdentifier("iso6523-actorid-upis", value)
	require.NoError(t, err)
	return pid
}

// fakeClock drives the cache's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(ttl time.Duration) (*InMemory, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	c := NewInMemory(ttl)
	c.now = clock.Now
	return c, clock
}

func TestGetReturnsFreshEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(DefaultTTL)
	pid := testPID(t, "9915:cache")

	c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "alice"})

	sg, ok := c.Get(ctx, pid)
	require.True(t, ok)
	assert.Equal(t, "alice", sg.OwnerID)
}

func TestEntryExpiresFromInsertion(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(60 * time.Second)
	pid := testPID(t, "9915:expiry")

	c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "alice"})

	clock.Advance(59 * time.Second)
	_, ok := c.Get(ctx, pid)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, pid)
	assert.False(t, ok)
}

func TestReadDoesNotExtendTTL(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(60 * time.Second)
	pid := testPID(t, "9915:no-extend")

	c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "alice"})

	// Repeated hits must not push expiry out.
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		_, ok := c.Get(ctx, pid)
		require.True(t, ok, "entry should still be fresh at %ds", (i+1)*10)
	}
	clock.Advance(10 * time.Second)
	_, ok := c.Get(ctx, pid)
	assert.False(t, ok)
}

func TestReinsertionRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(60 * time.Second)
	pid := testPID(t, "9915:reinsert")

	c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "alice"})
	clock.Advance(50 * time.Second)
	c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "bob"})
	clock.Advance(50 * time.Second)

	sg, ok := c.Get(ctx, pid)
	require.True(t, ok)
	assert.Equal(t, "bob", sg.OwnerID)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(DefaultTTL)
	pid := testPID(t, "9915:invalidate")

	c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "alice"})
	c.Invalidate(ctx, pid)

	_, ok := c.Get(ctx, pid)
	assert.False(t, ok)
}

func TestGetReturnsACopy(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(DefaultTTL)
	pid := testPID(t, "9915:copy")

	c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "alice"})

	first, ok := c.Get(ctx, pid)
	require.True(t, ok)
	first.OwnerID = "mutated"

	second, ok := c.Get(ctx, pid)
	require.True(t, ok)
	assert.Equal(t, "alice", second.OwnerID)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(DefaultTTL)
	pid := testPID(t, "9915:concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put(ctx, &models.ServiceGroup{ParticipantID: pid, OwnerID: "alice"})
				c.Get(ctx, pid)
				c.Invalidate(ctx, pid)
			}
		}()
	}
	wg.Wait()
}
