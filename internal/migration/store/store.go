// Package store persists participant migration records.
package store

import (
	"context"

	"smpd/internal/migration/models"
	"smpd/pkg/domain"
)

// Store is the migration record persistence contract. Implementations return
// sentinel.ErrNotFound for missing records, sentinel.ErrAlreadyUsed for a
// duplicate ID, and sentinel.ErrInvalidState when a guarded transition finds
// the record in a different state than expected.
type Store interface {
	// Create persists a new migration record.
	Create(ctx context.Context, m *models.ParticipantMigration) error
	// FindByID returns the record with the given surrogate ID.
	FindByID(ctx context.Context, id string) (*models.ParticipantMigration, error)
	// FindOutboundInProgress returns the unique OUTBOUND record in
	// IN_PROGRESS for the participant.
	FindOutboundInProgress(ctx context.Context, pid domain.ParticipantIdentifier) (*models.ParticipantMigration, error)
	// ExistsOutboundInProgress reports whether an OUTBOUND IN_PROGRESS
	// record exists for the participant.
	ExistsOutboundInProgress(ctx context.Context, pid domain.ParticipantIdentifier) (bool, error)
	// SetState transitions the record from one state to another. The from
	// state guards against lost updates.
	SetState(ctx context.Context, id string, from, to models.State) error
	// List returns records matching direction and state, newest first.
	List(ctx context.Context, direction models.Direction, state models.State) ([]*models.ParticipantMigration, error)
}
