// Package httptransport is the thin HTTP layer. Handlers delegate to the
// domain services and keep transport concerns (routing, auth, encoding) out
// of them.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	migmodels "smpd/internal/migration/models"
	migservice "smpd/internal/migration/service"
	"smpd/internal/platform/middleware"
	sgmodels "smpd/internal/servicegroup/models"
	"smpd/pkg/domain"
	dErrors "smpd/pkg/domain-errors"
)

// ServiceGroups is the service group surface the handlers call.
type ServiceGroups interface {
	Create(ctx context.Context, ownerID string, pid domain.ParticipantIdentifier, extension *string, createInRemote bool) (*sgmodels.ServiceGroup, error)
	Update(ctx context.Context, pid domain.ParticipantIdentifier, newOwnerID string, newExtension *string) (sgmodels.Change, error)
	Delete(ctx context.Context, pid domain.ParticipantIdentifier, deleteInRemote bool) (sgmodels.Change, error)
	Lookup(ctx context.Context, pid domain.ParticipantIdentifier) (*sgmodels.ServiceGroup, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*sgmodels.ServiceGroup, error)
	Count(ctx context.Context) (int, error)
}

// Migrations is the migration surface the handlers call.
type Migrations interface {
	StartOutbound(ctx context.Context, pid domain.ParticipantIdentifier) (*migmodels.ParticipantMigration, error)
	CancelOutbound(ctx context.Context, pid domain.ParticipantIdentifier) error
	FinalizeOutbound(ctx context.Context, pid domain.ParticipantIdentifier) error
	CreateInbound(ctx context.Context, ownerID string, pid domain.ParticipantIdentifier, migrationKey string) (*migservice.InboundResult, error)
	List(ctx context.Context, direction migmodels.Direction, state migmodels.State) ([]*migmodels.ParticipantMigration, error)
}

// HealthChecker reports one subsystem's availability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler wires the domain services to HTTP routes.
type Handler struct {
	logger     *slog.Logger
	groups     ServiceGroups
	migrations Migrations
	validator  middleware.JWTValidator
	checks     map[string]HealthChecker
	smlEnabled bool
}

// Option configures the Handler.
type Option func(*Handler)

// WithHealthCheck registers a named subsystem for the health endpoint.
func WithHealthCheck(name string, check HealthChecker) Option {
	return func(h *Handler) { h.checks[name] = check }
}

// WithSMLEnabled marks directory integration as active in the health report.
func WithSMLEnabled(enabled bool) Option {
	return func(h *Handler) { h.smlEnabled = enabled }
}

// NewHandler creates the HTTP handler.
func NewHandler(groups ServiceGroups, migrations Migrations, validator middleware.JWTValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:     logger,
		groups:     groups,
		migrations: migrations,
		validator:  validator,
		checks:     make(map[string]HealthChecker),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter wires all endpoints. Reads are public, the participant lookup
// being the resolution hot path; every mutation sits behind bearer auth.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/participants/{participant}", h.handleLookup)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Get("/participants", h.handleListByOwner)
		r.Post("/participants", h.handleCreate)
		r.Put("/participants/{participant}", h.handleUpdate)
		r.Delete("/participants/{participant}", h.handleDelete)

		r.Get("/migrations", h.handleListMigrations)
		r.Post("/migrations/outbound/{participant}", h.handleStartOutbound)
		r.Delete("/migrations/outbound/{participant}", h.handleCancelOutbound)
		r.Put("/migrations/outbound/{participant}/finalize", h.handleFinalizeOutbound)
		r.Post("/migrations/inbound/{participant}", h.handleCreateInbound)
	})

	return r
}

// participantFromPath parses the percent-encoded scheme::value path segment.
func participantFromPath(r *http.Request) (domain.ParticipantIdentifier, error) {
	raw := chi.URLParam(r, "participant")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return domain.ParticipantIdentifier{}, dErrors.New(dErrors.CodeBadRequest, "malformed participant identifier")
	}
	pid, err := domain.ParseParticipantIdentifier(decoded)
	if err != nil {
		return domain.ParticipantIdentifier{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed participant identifier")
	}
	return pid, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError centralizes domain error translation so every handler produces
// the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}
