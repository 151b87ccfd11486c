// Package audit captures append-only records of every state change. Events
// are for compliance, never for control flow: a consumer cannot veto the
// mutation that produced one.
package audit

import "time"

// Outcome states whether the audited operation succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Action names for every audited state change.
type Action string

const (
	ActionServiceGroupCreated Action = "service_group_created"
	ActionServiceGroupUpdated Action = "service_group_updated"
	ActionServiceGroupDeleted Action = "service_group_deleted"

	ActionMigrationStarted        Action = "migration_started"
	ActionMigrationCancelled      Action = "migration_cancelled"
	ActionMigrationFinalized      Action = "migration_finalized"
	ActionMigrationReverted       Action = "migration_reverted"
	ActionMigrationInboundCreated Action = "migration_inbound_created"
)

// Entity types referenced by audit events.
const (
	EntityServiceGroup = "service_group"
	EntityMigration    = "participant_migration"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	// EntityType is one of the Entity constants.
	EntityType string
	// EntityID is the URI-encoded participant identifier or migration ID.
	EntityID string
	Action   Action
	Outcome  Outcome
	// ChangedFields lists the fields a mutation touched, empty on failures.
	ChangedFields []string
	// User is the authenticated caller, when known.
	User string
	// RequestID correlates the event with the HTTP request.
	RequestID string
	// Reason carries the error text on failure outcomes.
	Reason string
}
