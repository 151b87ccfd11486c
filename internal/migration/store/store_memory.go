package store

import (
	"context"
	"sort"
	"sync"

	"smpd/internal/migration/models"
	"smpd/pkg/domain"
	"smpd/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded Store for tests and single-node use.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]models.ParticipantMigration
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]models.ParticipantMigration)}
}

func (s *InMemory) Create(_ context.Context, m *models.ParticipantMigration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[m.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.records[m.ID] = *m
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.ParticipantMigration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

func (s *InMemory) FindOutboundInProgress(_ context.Context, pid domain.ParticipantIdentifier) (*models.ParticipantMigration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.records {
		if m.Direction == models.DirectionOutbound && m.State == models.StateInProgress && m.ParticipantID == pid {
			m := m
			return &m, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ExistsOutboundInProgress(ctx context.Context, pid domain.ParticipantIdentifier) (bool, error) {
	_, err := s.FindOutboundInProgress(ctx, pid)
	if err == sentinel.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *InMemory) SetState(_ context.Context, id string, from, to models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if m.State != from {
		return sentinel.ErrInvalidState
	}
	m.State = to
	s.records[id] = m
	return nil
}

func (s *InMemory) List(_ context.Context, direction models.Direction, state models.State) ([]*models.ParticipantMigration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ParticipantMigration
	for _, m := range s.records {
		if m.Direction == direction && m.State == state {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.After(out[j].InitiatedAt) })
	return out, nil
}
