// Package service implements the participant migration state machine.
// Outbound records move IN_PROGRESS → {CANCELLED, MIGRATED}; inbound records
// are created directly in MIGRATED once the directory confirmed the handover.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"smpd/internal/migration/metrics"
	"smpd/internal/migration/models"
	"smpd/internal/migration/store"
	sgmodels "smpd/internal/servicegroup/models"
	"smpd/internal/sml"
	"smpd/pkg/domain"
	dErrors "smpd/pkg/domain-errors"
	"smpd/pkg/platform/audit"
	"smpd/pkg/platform/sentinel"
	"smpd/pkg/platform/tx"
	"smpd/pkg/requestcontext"

	"github.com/google/uuid"
)

// ServiceGroups is the slice of the service group manager the coordinator
// drives: it owns the registration lifecycle, the coordinator only sequences
// it against migration state.
type ServiceGroups interface {
	Exists(ctx context.Context, pid domain.ParticipantIdentifier) (bool, error)
	Create(ctx context.Context, ownerID string, pid domain.ParticipantIdentifier, extension *string, createInRemote bool) (*sgmodels.ServiceGroup, error)
	Delete(ctx context.Context, pid domain.ParticipantIdentifier, deleteInRemote bool) (sgmodels.Change, error)
}

// AuditPublisher is the slice of the audit pipeline the coordinator emits to.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// IDSource supplies surrogate IDs for migration records.
type IDSource interface {
	NextID(ctx context.Context) (string, error)
}

// InboundResult reports the two local steps of an inbound migration
// independently: the directory handover already happened, so a failed local
// step must stay observable instead of pretending the migration never took
// place. Either pointer may be nil when its step failed.
type InboundResult struct {
	Migration    *models.ParticipantMigration
	ServiceGroup *sgmodels.ServiceGroup
	// GroupErr is set when the local ServiceGroup creation failed.
	GroupErr error
	// RecordErr is set when persisting the MIGRATED record failed.
	RecordErr error
}

// Partial reports whether exactly one of the two local steps failed.
func (r *InboundResult) Partial() bool {
	return (r.GroupErr == nil) != (r.RecordErr == nil)
}

// Coordinator orchestrates migrations between this SMP and its peers. A nil
// migration client or empty SMP ID marks directory integration as disabled
// and rejects every operation with InvalidState.
type Coordinator struct {
	store   store.Store
	client  sml.MigrationClient
	groups  ServiceGroups
	smpID   string
	ids     IDSource
	tx      tx.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = mx }
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *Coordinator) { c.audit = p }
}

// WithTxRunner sets the transaction boundary for local mutations.
func WithTxRunner(r tx.Runner) Option {
	return func(c *Coordinator) { c.tx = r }
}

// WithIDSource sets the surrogate ID source for new migration records.
func WithIDSource(ids IDSource) Option {
	return func(c *Coordinator) { c.ids = ids }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(st store.Store, client sml.MigrationClient, groups ServiceGroups, smpID string, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  st,
		client: client,
		groups: groups,
		smpID:  smpID,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tx == nil {
		c.tx = tx.NopRunner{}
	}
	if c.ids == nil {
		c.ids = uuidSource{}
	}
	return c
}

// StartOutbound begins handing a participant over to another SMP. The remote
// prepare call obtains the migration key; nothing is persisted until it
// succeeded, so an aborted start leaves no record.
func (c *Coordinator) StartOutbound(ctx context.Context, pid domain.ParticipantIdentifier) (*models.ParticipantMigration, error) {
	if err := c.guardEnabled(); err != nil {
		return nil, err
	}
	exists, err := c.groups.Exists(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "service group %s does not exist", pid)
	}
	inProgress, err := c.store.ExistsOutboundInProgress(ctx, pid)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "migration pre-check failed")
	}
	if inProgress {
		return nil, dErrors.Newf(dErrors.CodeConflict, "outbound migration for %s is already in progress", pid)
	}

	key, err := c.client.PrepareToMigrate(ctx, pid, c.smpID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRemoteCoordination, "prepare-to-migrate failed in SML")
	}

	id, err := c.ids.NextID(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "migration id allocation failed")
	}
	m := &models.ParticipantMigration{
		ID:            id,
		Direction:     models.DirectionOutbound,
		ParticipantID: pid,
		MigrationKey:  key,
		State:         models.StateInProgress,
		InitiatedAt:   requestcontext.Now(ctx),
	}
	err = c.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := c.store.Create(txCtx, m); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Newf(dErrors.CodeConflict, "outbound migration for %s is already in progress", pid)
			}
			return dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to persist migration")
		}
		return c.emit(txCtx, m, audit.ActionMigrationStarted)
	})
	if err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.OutboundStarted.Inc()
	}
	c.logger.InfoContext(ctx, "outbound migration started",
		"migration_id", m.ID, "participant", pid.URIEncoded())
	return m, nil
}

// CancelOutbound transitions the participant's unique in-progress outbound
// migration to CANCELLED. Cancel is not idempotent: with no in-progress
// record, including after a previous cancel, it fails with NotFound.
func (c *Coordinator) CancelOutbound(ctx context.Context, pid domain.ParticipantIdentifier) error {
	m, err := c.findInProgress(ctx, pid)
	if err != nil {
		return err
	}
	err = c.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := c.transition(txCtx, m.ID, models.StateInProgress, models.StateCancelled); err != nil {
			return err
		}
		return c.emit(txCtx, m, audit.ActionMigrationCancelled)
	})
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.OutboundCancelled.Inc()
	}
	c.logger.InfoContext(ctx, "outbound migration cancelled",
		"migration_id", m.ID, "participant", pid.URIEncoded())
	return nil
}

// FinalizeOutbound completes the handover: the record flips to MIGRATED,
// then the local registration is deleted (local-only, the directory already
// points at the destination SMP). A failed deletion reverts the record to
// IN_PROGRESS so the caller can retry, and the deletion error propagates.
func (c *Coordinator) FinalizeOutbound(ctx context.Context, pid domain.ParticipantIdentifier) error {
	m, err := c.findInProgress(ctx, pid)
	if err != nil {
		return err
	}
	err = c.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := c.transition(txCtx, m.ID, models.StateInProgress, models.StateMigrated); err != nil {
			return err
		}
		return c.emit(txCtx, m, audit.ActionMigrationFinalized)
	})
	if err != nil {
		return err
	}

	if _, err := c.groups.Delete(ctx, pid, false); err != nil {
		if revertErr := c.store.SetState(ctx, m.ID, models.StateMigrated, models.StateInProgress); revertErr != nil {
			c.logger.ErrorContext(ctx, "failed to revert migration state after deletion failure",
				"migration_id", m.ID, "participant", pid.URIEncoded(), "error", revertErr)
		} else {
			_ = c.emit(ctx, m, audit.ActionMigrationReverted)
			if c.metrics != nil {
				c.metrics.OutboundReverted.Inc()
			}
		}
		return err
	}

	if c.metrics != nil {
		c.metrics.OutboundFinalized.Inc()
	}
	c.logger.InfoContext(ctx, "outbound migration finalized",
		"migration_id", m.ID, "participant", pid.URIEncoded())
	return nil
}

// CreateInbound takes over a participant from another SMP. The directory
// handover (the migrate call) is the point of no return; afterwards both the
// local registration and the MIGRATED record are attempted regardless of each
// other's outcome and reported independently in the result.
func (c *Coordinator) CreateInbound(ctx context.Context, ownerID string, pid domain.ParticipantIdentifier, migrationKey string) (*InboundResult, error) {
	if err := c.guardEnabled(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "owner is required")
	}
	if !sml.IsValidMigrationKey(migrationKey) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "malformed migration key")
	}
	exists, err := c.groups.Exists(ctx, pid)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, dErrors.Newf(dErrors.CodeConflict, "service group %s already exists", pid)
	}

	if err := c.client.Migrate(ctx, pid, migrationKey, c.smpID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRemoteCoordination, "migrate failed in SML")
	}

	result := &InboundResult{}
	sg, groupErr := c.groups.Create(ctx, ownerID, pid, nil, false)
	if groupErr != nil {
		c.logger.ErrorContext(ctx, "inbound migration: service group creation failed after directory handover",
			"participant", pid.URIEncoded(), "error", groupErr)
		result.GroupErr = groupErr
	} else {
		result.ServiceGroup = sg
	}

	id, err := c.ids.NextID(ctx)
	if err != nil {
		result.RecordErr = dErrors.Wrap(err, dErrors.CodeLocalPersistence, "migration id allocation failed")
	} else {
		m := &models.ParticipantMigration{
			ID:            id,
			Direction:     models.DirectionInbound,
			ParticipantID: pid,
			MigrationKey:  migrationKey,
			State:         models.StateMigrated,
			InitiatedAt:   requestcontext.Now(ctx),
		}
		recordErr := c.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := c.store.Create(txCtx, m); err != nil {
				return dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to persist migration")
			}
			return c.emit(txCtx, m, audit.ActionMigrationInboundCreated)
		})
		if recordErr != nil {
			c.logger.ErrorContext(ctx, "inbound migration: record persistence failed after directory handover",
				"participant", pid.URIEncoded(), "error", recordErr)
			result.RecordErr = recordErr
		} else {
			result.Migration = m
		}
	}

	if result.GroupErr == nil && result.RecordErr == nil {
		if c.metrics != nil {
			c.metrics.InboundCreated.Inc()
		}
		c.logger.InfoContext(ctx, "inbound migration created",
			"migration_id", result.Migration.ID, "participant", pid.URIEncoded())
	}
	return result, nil
}

// FindByID returns a migration record for inspection.
func (c *Coordinator) FindByID(ctx context.Context, id string) (*models.ParticipantMigration, error) {
	m, err := c.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "migration %s does not exist", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to load migration")
	}
	return m, nil
}

// List returns migration records by direction and state, newest first.
func (c *Coordinator) List(ctx context.Context, direction models.Direction, state models.State) ([]*models.ParticipantMigration, error) {
	out, err := c.store.List(ctx, direction, state)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to list migrations")
	}
	return out, nil
}

func (c *Coordinator) guardEnabled() error {
	if c.client == nil || c.smpID == "" {
		return dErrors.New(dErrors.CodeInvalidState, "SML integration is disabled")
	}
	return nil
}

func (c *Coordinator) findInProgress(ctx context.Context, pid domain.ParticipantIdentifier) (*models.ParticipantMigration, error) {
	m, err := c.store.FindOutboundInProgress(ctx, pid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no outbound migration in progress for %s", pid)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to load migration")
	}
	return m, nil
}

func (c *Coordinator) transition(ctx context.Context, id string, from, to models.State) error {
	if err := c.store.SetState(ctx, id, from, to); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrInvalidState):
			// Lost a race with a concurrent transition.
			return dErrors.Wrap(err, dErrors.CodeNotFound, "migration is no longer in progress")
		default:
			return dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to update migration state")
		}
	}
	return nil
}

func (c *Coordinator) emit(ctx context.Context, m *models.ParticipantMigration, action audit.Action) error {
	if c.audit == nil {
		return nil
	}
	return c.audit.Emit(ctx, audit.Event{
		EntityType: audit.EntityMigration,
		EntityID:   m.ID,
		Action:     action,
		Outcome:    audit.OutcomeSuccess,
		User:       requestcontext.User(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	})
}

// uuidSource is the fallback when no block allocator is wired.
type uuidSource struct{}

func (uuidSource) NextID(context.Context) (string, error) {
	return uuid.NewString(), nil
}
