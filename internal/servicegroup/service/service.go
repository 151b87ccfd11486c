// Package service orchestrates the service group lifecycle across the local
// store, the directory hook and the identifier cache. It is the consistency
// boundary between this SMP and the network directory: remote and local legs
// are coordinated with a saga, not a shared transaction, and a bounded
// inconsistency window after a failed compensation is accepted, detected and
// logged rather than eliminated.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"smpd/internal/servicegroup/cache"
	"smpd/internal/servicegroup/metrics"
	"smpd/internal/servicegroup/models"
	"smpd/internal/servicegroup/store"
	"smpd/internal/sml"
	"smpd/pkg/domain"
	dErrors "smpd/pkg/domain-errors"
	"smpd/pkg/platform/audit"
	"smpd/pkg/platform/sentinel"
	"smpd/pkg/platform/tx"
	"smpd/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit pipeline this service emits to.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Callback observes committed service group mutations. Callbacks run
// synchronously, post-commit, in registration order; a failing callback is
// logged and does not stop the remaining ones, and can never veto the
// committed mutation.
type Callback interface {
	OnServiceGroupCreated(sg *models.ServiceGroup) error
	OnServiceGroupUpdated(sg *models.ServiceGroup) error
	OnServiceGroupDeleted(sg *models.ServiceGroup) error
}

// Manager orchestrates Store + RegistrationHook + Cache.
type Manager struct {
	store     store.Store
	hook      sml.RegistrationHook
	cache     cache.Cache
	tx        tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     AuditPublisher
	callbacks []Callback
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithAuditPublisher sets the audit sink.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(m *Manager) { m.audit = p }
}

// WithTxRunner sets the transaction boundary for local mutations.
func WithTxRunner(r tx.Runner) Option {
	return func(m *Manager) { m.tx = r }
}

// WithCache sets the identifier cache protecting the lookup path.
func WithCache(c cache.Cache) Option {
	return func(m *Manager) { m.cache = c }
}

// NewManager creates a Manager. The hook must not be nil; pass sml.NoOpHook
// when directory integration is disabled.
func NewManager(st store.Store, hook sml.RegistrationHook, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		hook:  hook,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.tx == nil {
		m.tx = tx.NopRunner{}
	}
	if m.cache == nil {
		m.cache = cache.NewInMemory(cache.DefaultTTL)
	}
	return m
}

// RegisterCallback appends an observer. Callbacks are invoked in
// registration order.
func (m *Manager) RegisterCallback(cb Callback) {
	m.callbacks = append(m.callbacks, cb)
}

// Create registers a participant locally and, when createInRemote is set, in
// the directory first. A remote failure aborts with no local state touched; a
// local failure after a successful remote leg triggers exactly one
// best-effort remote undo.
func (m *Manager) Create(ctx context.Context, ownerID string, participantID domain.ParticipantIdentifier, extension *string, createInRemote bool) (*models.ServiceGroup, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "owner is required")
	}
	if participantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "participant identifier is required")
	}

	// Fast path only: the store's unique key is the authoritative guard.
	exists, err := m.store.Exists(ctx, participantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "service group existence check failed")
	}
	if exists {
		return nil, dErrors.Newf(dErrors.CodeConflict, "service group %s already exists", participantID)
	}

	sg := &models.ServiceGroup{ParticipantID: participantID, OwnerID: ownerID, Extension: extension}

	var remote func(ctx context.Context) error
	var compensate func(ctx context.Context) error
	if createInRemote {
		remote = func(ctx context.Context) error {
			return m.hook.CreateServiceGroup(ctx, participantID)
		}
		compensate = func(ctx context.Context) error {
			return m.hook.UndoCreateServiceGroup(ctx, participantID)
		}
	}

	err = saga{
		forwardRemote: remote,
		forwardLocal: func(ctx context.Context) error {
			return m.tx.RunInTx(ctx, func(txCtx context.Context) error {
				if err := m.store.Create(txCtx, sg); err != nil {
					return err
				}
				return m.emit(txCtx, audit.Event{
					EntityType:    audit.EntityServiceGroup,
					EntityID:      participantID.URIEncoded(),
					Action:        audit.ActionServiceGroupCreated,
					Outcome:       audit.OutcomeSuccess,
					ChangedFields: []string{"owner", "extension"},
					User:          requestcontext.User(txCtx),
					RequestID:     requestcontext.RequestID(txCtx),
				})
			})
		},
		compensateRemote: compensate,
	}.run(ctx, m.logger, m, "participant", participantID.URIEncoded(), "operation", "create")
	if err != nil {
		m.emitFailure(ctx, audit.EntityServiceGroup, participantID.URIEncoded(), audit.ActionServiceGroupCreated, err)
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "service group already exists")
		}
		return nil, m.classify(err, "failed to create service group")
	}

	m.cache.Put(ctx, sg)
	m.notify(ctx, "created", func(cb Callback) error { return cb.OnServiceGroupCreated(sg) })
	if m.metrics != nil {
		m.metrics.Created.Inc()
	}
	m.logger.InfoContext(ctx, "service group created",
		"participant", participantID.URIEncoded(), "owner", ownerID, "in_sml", createInRemote)
	return sg, nil
}

// Update rewrites owner and extension. Local-only: the directory does not
// carry either field. Returns Unchanged when nothing differs.
func (m *Manager) Update(ctx context.Context, participantID domain.ParticipantIdentifier, newOwnerID string, newExtension *string) (models.Change, error) {
	if strings.TrimSpace(newOwnerID) == "" {
		return models.Unchanged, dErrors.New(dErrors.CodeBadRequest, "owner is required")
	}

	var (
		updated *models.ServiceGroup
		diff    models.Diff
	)
	err := m.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := m.store.Find(txCtx, participantID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "service group %s does not exist", participantID)
			}
			return dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to load service group")
		}
		diff = current.DiffAgainst(newOwnerID, newExtension)
		if !diff.Any() {
			return nil
		}
		current.OwnerID = newOwnerID
		current.Extension = newExtension
		if err := m.store.Update(txCtx, current, diff); err != nil {
			return dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to update service group")
		}
		updated = current
		return m.emit(txCtx, audit.Event{
			EntityType:    audit.EntityServiceGroup,
			EntityID:      participantID.URIEncoded(),
			Action:        audit.ActionServiceGroupUpdated,
			Outcome:       audit.OutcomeSuccess,
			ChangedFields: changedFields(diff),
			User:          requestcontext.User(txCtx),
			RequestID:     requestcontext.RequestID(txCtx),
		})
	})
	if err != nil {
		m.emitFailure(ctx, audit.EntityServiceGroup, participantID.URIEncoded(), audit.ActionServiceGroupUpdated, err)
		return models.Unchanged, err
	}
	if updated == nil {
		return models.Unchanged, nil
	}

	m.cache.Put(ctx, updated)
	m.notify(ctx, "updated", func(cb Callback) error { return cb.OnServiceGroupUpdated(updated) })
	return models.Changed, nil
}

// Delete unregisters a participant, directory first when deleteInRemote is
// set. An unknown participant returns Unchanged and triggers no hook call.
// The cache entry is evicted only after the local delete committed.
func (m *Manager) Delete(ctx context.Context, participantID domain.ParticipantIdentifier, deleteInRemote bool) (models.Change, error) {
	current, err := m.store.Find(ctx, participantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Unchanged, nil
		}
		return models.Unchanged, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to load service group")
	}

	var remote func(ctx context.Context) error
	var compensate func(ctx context.Context) error
	if deleteInRemote {
		remote = func(ctx context.Context) error {
			return m.hook.DeleteServiceGroup(ctx, participantID)
		}
		compensate = func(ctx context.Context) error {
			return m.hook.UndoDeleteServiceGroup(ctx, participantID)
		}
	}

	change := models.Changed
	err = saga{
		forwardRemote: remote,
		forwardLocal: func(ctx context.Context) error {
			return m.tx.RunInTx(ctx, func(txCtx context.Context) error {
				if err := m.store.Delete(txCtx, participantID); err != nil {
					if errors.Is(err, sentinel.ErrNotFound) {
						// Lost a race with a concurrent delete; both sides are
						// gone, which is the end state this call wanted.
						change = models.Unchanged
						return nil
					}
					return err
				}
				return m.emit(txCtx, audit.Event{
					EntityType:    audit.EntityServiceGroup,
					EntityID:      participantID.URIEncoded(),
					Action:        audit.ActionServiceGroupDeleted,
					Outcome:       audit.OutcomeSuccess,
					ChangedFields: []string{"owner", "extension"},
					User:          requestcontext.User(txCtx),
					RequestID:     requestcontext.RequestID(txCtx),
				})
			})
		},
		compensateRemote: compensate,
	}.run(ctx, m.logger, m, "participant", participantID.URIEncoded(), "operation", "delete")
	if err != nil {
		m.emitFailure(ctx, audit.EntityServiceGroup, participantID.URIEncoded(), audit.ActionServiceGroupDeleted, err)
		return models.Unchanged, m.classify(err, "failed to delete service group")
	}
	if !change.IsChanged() {
		return models.Unchanged, nil
	}

	m.cache.Invalidate(ctx, participantID)
	m.notify(ctx, "deleted", func(cb Callback) error { return cb.OnServiceGroupDeleted(current) })
	if m.metrics != nil {
		m.metrics.Deleted.Inc()
	}
	m.logger.InfoContext(ctx, "service group deleted",
		"participant", participantID.URIEncoded(), "in_sml", deleteInRemote)
	return models.Changed, nil
}

// Lookup resolves a participant, read-through: cache first, store on a miss,
// and the store result is inserted with a fresh TTL.
func (m *Manager) Lookup(ctx context.Context, participantID domain.ParticipantIdentifier) (*models.ServiceGroup, error) {
	start := time.Now()
	if sg, ok := m.cache.Get(ctx, participantID); ok {
		if m.metrics != nil {
			m.metrics.CacheHits.Inc()
			m.metrics.ObserveLookup(start)
		}
		return sg, nil
	}
	if m.metrics != nil {
		m.metrics.CacheMisses.Inc()
	}

	sg, err := m.store.Find(ctx, participantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "service group %s does not exist", participantID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to load service group")
	}
	m.cache.Put(ctx, sg)
	if m.metrics != nil {
		m.metrics.ObserveLookup(start)
	}
	return sg, nil
}

// Exists reports whether the participant is registered locally.
func (m *Manager) Exists(ctx context.Context, participantID domain.ParticipantIdentifier) (bool, error) {
	exists, err := m.store.Exists(ctx, participantID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "service group existence check failed")
	}
	return exists, nil
}

// Count returns the number of local registrations.
func (m *Manager) Count(ctx context.Context) (int, error) {
	count, err := m.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "service group count failed")
	}
	return count, nil
}

// ListByOwner returns all registrations owned by the given user.
func (m *Manager) ListByOwner(ctx context.Context, ownerID string) ([]*models.ServiceGroup, error) {
	groups, err := m.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLocalPersistence, "failed to list service groups")
	}
	return groups, nil
}

// classify translates a saga error into its domain code. Remote faults keep
// the original fault reachable for diagnostics.
func (m *Manager) classify(err error, msg string) error {
	var smlErr *sml.Error
	if errors.As(err, &smlErr) {
		return dErrors.Wrap(err, dErrors.CodeRemoteCoordination, msg+" in SML")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeLocalPersistence, msg)
}

func (m *Manager) notify(ctx context.Context, what string, call func(Callback) error) {
	for _, cb := range m.callbacks {
		if err := call(cb); err != nil {
			m.logger.ErrorContext(ctx, "service group callback failed", "event", what, "error", err)
		}
	}
}

func (m *Manager) emit(ctx context.Context, event audit.Event) error {
	if m.audit == nil {
		return nil
	}
	return m.audit.Emit(ctx, event)
}

// emitFailure records a failed operation best-effort; audit problems must not
// mask the original failure.
func (m *Manager) emitFailure(ctx context.Context, entityType, entityID string, action audit.Action, cause error) {
	if m.audit == nil {
		return
	}
	_ = m.audit.Emit(ctx, audit.Event{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Outcome:    audit.OutcomeFailure,
		User:       requestcontext.User(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Reason:     cause.Error(),
	})
}

// onCompensationFailure implements the saga's observer.
func (m *Manager) onCompensationFailure() {
	if m.metrics != nil {
		m.metrics.CompensationFailures.Inc()
	}
}

func changedFields(diff models.Diff) []string {
	var fields []string
	if diff.OwnerChanged {
		fields = append(fields, "owner")
	}
	if diff.ExtensionChanged {
		fields = append(fields, "extension")
	}
	return fields
}
