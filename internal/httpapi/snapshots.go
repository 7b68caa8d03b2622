package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"spatialdoc/core-go/internal/document"
	"spatialdoc/core-go/internal/store"
	"spatialdoc/core-go/internal/workspace"
)

type saveSnapshotRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeValidation(w, "limit must be a positive integer", err)
			return
		}
		limit = n
	}
	recs, err := h.ws.Snapshots(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list snapshots failed")
		h.writeError(w, http.StatusInternalServerError, "store_error", "failed to list snapshots", nil)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	h.writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req saveSnapshotRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	rec, err := h.ws.Save(r.Context(), strings.TrimSpace(req.Name))
	if errors.Is(err, workspace.ErrBusy) {
		h.writeBusy(w, err)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("save snapshot failed")
		h.writeError(w, http.StatusInternalServerError, "store_error", "failed to save snapshot", nil)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DeleteSnapshot(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeSnapshotError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ws.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeSnapshotError(w, "load", err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) writeSnapshotError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "snapshot not found", nil)
	case errors.Is(err, workspace.ErrBusy):
		h.writeBusy(w, err)
	case errors.Is(err, document.ErrBadSnapshot):
		h.writeError(w, http.StatusUnprocessableEntity, "invalid_snapshot", "snapshot is not a consistent document", map[string]any{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("op", op).Msg("snapshot store failed")
		h.writeError(w, http.StatusInternalServerError, "store_error", "snapshot store failed", nil)
	}
}
