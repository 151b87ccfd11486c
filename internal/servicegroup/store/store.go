// Package store persists service group registrations and their ownership.
//
// Implementations return pkg/platform/sentinel errors; the service layer
// translates them into coded domain errors. The unique key on the participant
// identifier is the authoritative duplicate guard: a lost create race surfaces
// as sentinel.ErrAlreadyUsed, never as silent corruption.
package store

import (
	"context"

	"smpd/internal/servicegroup/models"
	"smpd/pkg/domain"
)

// Store is the persistence boundary for service groups.
type Store interface {
	// Create inserts the service group and its ownership row. Returns
	// sentinel.ErrAlreadyUsed if the participant is already registered.
	Create(ctx context.Context, sg *models.ServiceGroup) error

	// Update rewrites owner and extension per the diff. Returns
	// sentinel.ErrNotFound if the participant is not registered.
	Update(ctx context.Context, sg *models.ServiceGroup, diff models.Diff) error

	// Delete removes the service group and its ownership row. Returns
	// sentinel.ErrNotFound if the participant is not registered.
	Delete(ctx context.Context, participantID domain.ParticipantIdentifier) error

	// Find returns the registration, or sentinel.ErrNotFound.
	Find(ctx context.Context, participantID domain.ParticipantIdentifier) (*models.ServiceGroup, error)

	// Exists reports whether the participant is registered locally.
	Exists(ctx context.Context, participantID domain.ParticipantIdentifier) (bool, error)

	// Count returns the number of local registrations.
	Count(ctx context.Context) (int, error)

	// ListByOwner returns all registrations owned by the given user.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.ServiceGroup, error)
}
