//go:build integration

package idfactory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"smpd/pkg/testutil/containers"
)

type PostgresAllocatorSuite struct {
	suite.Suite
	pg *containers.PostgresContainer
}

func TestPostgresAllocatorSuite(t *testing.T) {
	suite.Run(t, new(PostgresAllocatorSuite))
}

func (s *PostgresAllocatorSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
}

func (s *PostgresAllocatorSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "smp_settings"))
}

func (s *PostgresAllocatorSuite) TestReserveSeedsAndAdvances() {
	ctx := context.Background()
	alloc := NewPostgres(s.pg.DB, 0)

	first, err := alloc.Reserve(ctx, DefaultBlockSize)
	s.Require().NoError(err)
	s.Equal(int64(0), first)

	second, err := alloc.Reserve(ctx, DefaultBlockSize)
	s.Require().NoError(err)
	s.Equal(int64(DefaultBlockSize), second)

	var stored string
	s.Require().NoError(s.pg.DB.QueryRowContext(ctx,
		`SELECT value FROM smp_settings WHERE key=$1`, SettingsKey).Scan(&stored))
	s.Equal("40", stored)
}

func (s *PostgresAllocatorSuite) TestBaseline() {
	ctx := context.Background()
	alloc := NewPostgres(s.pg.DB, 5000)

	first, err := alloc.Reserve(ctx, 10)
	s.Require().NoError(err)
	s.Equal(int64(5000), first)
}

func (s *PostgresAllocatorSuite) TestConcurrentReservesAreDisjoint() {
	ctx := context.Background()
	alloc := NewPostgres(s.pg.DB, 0)

	const workers = 8
	starts := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start, err := alloc.Reserve(ctx, DefaultBlockSize)
			s.NoError(err)
			starts[i] = start
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, workers)
	for _, start := range starts {
		s.False(seen[start], "block start %d handed out twice", start)
		seen[start] = true
		s.Zero(start % DefaultBlockSize)
	}
}

func (s *PostgresAllocatorSuite) TestSequencerOverPostgres() {
	ctx := context.Background()
	seq := NewSequencer(NewPostgres(s.pg.DB, 0), 3)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := seq.NextID(ctx)
		s.Require().NoError(err)
		s.False(seen[id], "id %q repeated", id)
		seen[id] = true
	}
}
