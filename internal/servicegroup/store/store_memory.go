package store

import (
	"context"
	"sync"

	"smpd/internal/servicegroup/models"
	"smpd/pkg/domain"
	"smpd/pkg/platform/sentinel"
)

// InMemory keeps registrations in a map keyed by the URI-encoded identifier.
// It favors clarity over performance and backs unit tests and single-node
// deployments without a database.
type InMemory struct {
	mu     sync.RWMutex
	groups map[string]models.ServiceGroup
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{groups: make(map[string]models.ServiceGroup)}
}

func (s *InMemory) Create(_ context.Context, sg *models.ServiceGroup) error {
	key := sg.ParticipantID.URIEncoded()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.groups[key] = *sg
	return nil
}

func (s *InMemory) Update(_ context.Context, sg *models.ServiceGroup, _ models.Diff) error {
	key := sg.ParticipantID.URIEncoded()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[key]; !ok {
		return sentinel.ErrNotFound
	}
	s.groups[key] = *sg
	return nil
}

func (s *InMemory) Delete(_ context.Context, participantID domain.ParticipantIdentifier) error {
	key := participantID.URIEncoded()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.groups, key)
	return nil
}

func (s *InMemory) Find(_ context.Context, participantID domain.ParticipantIdentifier) (*models.ServiceGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sg, ok := s.groups[participantID.URIEncoded()]; ok {
		return &sg, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Exists(_ context.Context, participantID domain.ParticipantIdentifier) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groups[participantID.URIEncoded()]
	return ok, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups), nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID string) ([]*models.ServiceGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ServiceGroup
	for _, sg := range s.groups {
		if sg.OwnerID == ownerID {
			copied := sg
			out = append(out, &copied)
		}
	}
	return out, nil
}
