// Package sml talks to the network-wide directory (SML) that resolves a
// participant identifier to the SMP responsible for it.
//
// The RegistrationHook is the remote leg of the service group saga; the
// MigrationClient is the remote leg of participant migration. Both are
// stateless and safe for concurrent use.
package sml

import (
	"context"

	"smpd/pkg/domain"
)

// RegistrationHook mirrors one participant's local registration into the
// directory. Undo methods are the compensating actions of the saga and are
// called best-effort after a local failure.
type RegistrationHook interface {
	CreateServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error
	UndoCreateServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error
	DeleteServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error
	UndoDeleteServiceGroup(ctx context.Context, participantID domain.ParticipantIdentifier) error
}

// MigrationClient drives the directory side of a participant migration.
type MigrationClient interface {
	// PrepareToMigrate announces the outbound migration and returns the
	// migration key correlating source and destination SMP.
	PrepareToMigrate(ctx context.Context, participantID domain.ParticipantIdentifier, smpID string) (string, error)
	// Migrate points the participant at this SMP using the key obtained from
	// the source SMP.
	Migrate(ctx context.Context, participantID domain.ParticipantIdentifier, migrationKey, smpID string) error
}

// NoOpHook is used when directory integration is disabled. Every call
// succeeds without side effects.
type NoOpHook struct{}

func (NoOpHook) CreateServiceGroup(context.Context, domain.ParticipantIdentifier) error {
	return nil
}

func (NoOpHook) UndoCreateServiceGroup(context.Context, domain.ParticipantIdentifier) error {
	return nil
}

func (NoOpHook) DeleteServiceGroup(context.Context, domain.ParticipantIdentifier) error {
	return nil
}

func (NoOpHook) UndoDeleteServiceGroup(context.Context, domain.ParticipantIdentifier) error {
	return nil
}
