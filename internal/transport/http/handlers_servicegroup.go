package httptransport

import (
	"encoding/json"
	"net/http"

	sgmodels "smpd/internal/servicegroup/models"
	"smpd/pkg/domain"
	dErrors "smpd/pkg/domain-errors"
	"smpd/pkg/requestcontext"
)

type serviceGroupResponse struct {
	ParticipantID string  `json:"participant_id"`
	Owner         string  `json:"owner"`
	Extension     *string `json:"extension"`
}

func toServiceGroupResponse(sg *sgmodels.ServiceGroup) serviceGroupResponse {
	return serviceGroupResponse{
		ParticipantID: sg.ParticipantID.URIEncoded(),
		Owner:         sg.OwnerID,
		Extension:     sg.Extension,
	}
}

type createServiceGroupRequest struct {
	ParticipantID string  `json:"participant_id"`
	Extension     *string `json:"extension"`
	CreateInSML   bool    `json:"create_in_sml"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createServiceGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	pid, err := domain.ParseParticipantIdentifier(req.ParticipantID)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed participant identifier"))
		return
	}

	sg, err := h.groups.Create(ctx, requestcontext.User(ctx), pid, req.Extension, req.CreateInSML)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceGroupResponse(sg))
}

type updateServiceGroupRequest struct {
	Owner     string  `json:"owner"`
	Extension *string `json:"extension"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pid, err := participantFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateServiceGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = requestcontext.User(ctx)
	}

	change, err := h.groups.Update(ctx, pid, owner, req.Extension)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": change.IsChanged()})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pid, err := participantFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	deleteInSML := r.URL.Query().Get("delete_in_sml") == "true"

	change, err := h.groups.Delete(ctx, pid, deleteInSML)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": change.IsChanged()})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	pid, err := participantFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sg, err := h.groups.Lookup(r.Context(), pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceGroupResponse(sg))
}

func (h *Handler) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = requestcontext.User(ctx)
	}

	groups, err := h.groups.ListByOwner(ctx, owner)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]serviceGroupResponse, 0, len(groups))
	for _, sg := range groups {
		out = append(out, toServiceGroupResponse(sg))
	}
	writeJSON(w, http.StatusOK, map[string]any{"service_groups": out})
}
