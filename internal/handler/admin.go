package handler

import (
	"errors"
	"net/http"

	"github.com/captolab/gpuhub/internal/model"
	"github.com/captolab/gpuhub/internal/service"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	auth  *service.AuthService
	quota *service.QuotaLedger
}

func NewAdminHandler(auth *service.AuthService, quota *service.QuotaLedger) *AdminHandler {
	return &AdminHandler{auth: auth, quota: quota}
}

// GET /api/admin/usage/all
func (h *AdminHandler) AllUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.quota.AllUsage(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	if usage == nil {
		usage = []model.UserUsage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": usage})
}

// POST /api/admin/quota/reset
func (h *AdminHandler) ResetQuota(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Date   string `json:"date"`
	}
	if err := decodeBody(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "userId is required")
		return
	}
	if err := h.quota.Reset(r.Context(), req.UserID, req.Date); err != nil {
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// PUT /api/admin/users/{userID}/toggle
func (h *AdminHandler) ToggleUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req struct {
		// Pointer so an absent or mistyped field is distinguishable
		// from an explicit false.
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "enabled must be a boolean")
		return
	}
	if err := h.auth.SetUserEnabled(r.Context(), userID, *req.Enabled); err != nil {
		var nerr *model.NotFoundError
		if errors.As(err, &nerr) {
			writeError(w, http.StatusNotFound, "E_NOT_FOUND", nerr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"enabled": *req.Enabled,
	})
}
