package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	migmodels "smpd/internal/migration/models"
	dErrors "smpd/pkg/domain-errors"
	"smpd/pkg/requestcontext"
)

type migrationResponse struct {
	ID            string `json:"id"`
	Direction     string `json:"direction"`
	ParticipantID string `json:"participant_id"`
	State         string `json:"state"`
	InitiatedAt   string `json:"initiated_at"`
}

func toMigrationResponse(m *migmodels.ParticipantMigration) migrationResponse {
	return migrationResponse{
		ID:            m.ID,
		Direction:     string(m.Direction),
		ParticipantID: m.ParticipantID.URIEncoded(),
		State:         string(m.State),
		InitiatedAt:   m.InitiatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) handleStartOutbound(w http.ResponseWriter, r *http.Request) {
	pid, err := participantFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.migrations.StartOutbound(r.Context(), pid)
	if err != nil {
		writeError(w, err)
		return
	}
	// The migration key is returned exactly once, to be handed to the
	// destination SMP out of band.
	writeJSON(w, http.StatusCreated, struct {
		migrationResponse
		MigrationKey string `json:"migration_key"`
	}{toMigrationResponse(m), m.MigrationKey})
}

func (h *Handler) handleCancelOutbound(w http.ResponseWriter, r *http.Request) {
	pid, err := participantFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.migrations.CancelOutbound(r.Context(), pid); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFinalizeOutbound(w http.ResponseWriter, r *http.Request) {
	pid, err := participantFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.migrations.FinalizeOutbound(r.Context(), pid); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createInboundRequest struct {
	MigrationKey string `json:"migration_key"`
}

func (h *Handler) handleCreateInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pid, err := participantFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createInboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.migrations.CreateInbound(ctx, requestcontext.User(ctx), pid, req.MigrationKey)
	if err != nil {
		writeError(w, err)
		return
	}

	// The directory handover succeeded; report the two local steps
	// individually so a partial failure stays visible to the source SMP.
	resp := map[string]any{
		"service_group_created": result.GroupErr == nil,
		"migration_recorded":    result.RecordErr == nil,
	}
	if result.Migration != nil {
		resp["migration"] = toMigrationResponse(result.Migration)
	}
	if result.GroupErr != nil {
		resp["service_group_error"] = result.GroupErr.Error()
	}
	if result.RecordErr != nil {
		resp["migration_error"] = result.RecordErr.Error()
	}
	status := http.StatusCreated
	if result.GroupErr != nil || result.RecordErr != nil {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleListMigrations(w http.ResponseWriter, r *http.Request) {
	direction := migmodels.Direction(r.URL.Query().Get("direction"))
	state := migmodels.State(r.URL.Query().Get("state"))
	if direction == "" {
		direction = migmodels.DirectionOutbound
	}
	if state == "" {
		state = migmodels.StateInProgress
	}

	out, err := h.migrations.List(r.Context(), direction, state)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]migrationResponse, 0, len(out))
	for _, m := range out {
		resp = append(resp, toMigrationResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"migrations": resp})
}
