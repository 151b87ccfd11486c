// Package models defines the participant migration record and its state
// machine vocabulary.
package models

import (
	"time"

	"smpd/pkg/domain"
)

// Direction tells which side of a migration this SMP is on.
type Direction string

const (
	// DirectionOutbound marks a participant leaving this SMP.
	DirectionOutbound Direction = "OUTBOUND"
	// DirectionInbound marks a participant arriving at this SMP.
	DirectionInbound Direction = "INBOUND"
)

// State of a migration record. Outbound records move IN_PROGRESS →
// {CANCELLED, MIGRATED}; inbound records are created directly in MIGRATED.
type State string

const (
	StateInProgress State = "IN_PROGRESS"
	StateMigrated   State = "MIGRATED"
	StateCancelled  State = "CANCELLED"
)

// IsTerminal reports whether no further transition leaves this state.
func (s State) IsTerminal() bool {
	return s == StateMigrated || s == StateCancelled
}

// ParticipantMigration is one migration record. MigrationKey is the shared
// secret correlating the source and destination SMP.
type ParticipantMigration struct {
	ID            string
	Direction     Direction
	ParticipantID domain.ParticipantIdentifier
	MigrationKey  string
	State         State
	InitiatedAt   time.Time
}
