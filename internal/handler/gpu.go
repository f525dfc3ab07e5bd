package handler

import (
	"errors"
	"net/http"

	"github.com/captolab/gpuhub/internal/middleware"
	"github.com/captolab/gpuhub/internal/model"
	"github.com/captolab/gpuhub/internal/service"
)

type GPUHandler struct {
	coord *service.Coordinator
	quota *service.QuotaLedger
}

func NewGPUHandler(coord *service.Coordinator, quota *service.QuotaLedger) *GPUHandler {
	return &GPUHandler{coord: coord, quota: quota}
}

// POST /api/gpu/execute/start
func (h *GPUHandler) StartExecution(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "E_UNAUTHORIZED", "not authenticated")
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "sessionId is required")
		return
	}
	info, err := h.coord.StartSession(r.Context(), user.UserID, req.SessionID)
	if err != nil {
		var qerr *model.QuotaExceededError
		if errors.As(err, &qerr) {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error": map[string]any{
					"code":    "E_QUOTA_EXCEEDED",
					"message": qerr.Error(),
				},
				"quotaExceeded": true,
				"usedMinutes":   qerr.UsedMinutes,
				"quotaMinutes":  qerr.QuotaMinutes,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// POST /api/gpu/execute/stop
func (h *GPUHandler) StopExecution(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "E_UNAUTHORIZED", "not authenticated")
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "sessionId is required")
		return
	}
	info, err := h.coord.StopSession(r.Context(), user.UserID, req.SessionID)
	if err != nil {
		var nerr *model.NoActiveSessionError
		if errors.As(err, &nerr) {
			writeError(w, http.StatusNotFound, "E_NO_ACTIVE_SESSION", nerr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// POST /api/gpu/execute/code
func (h *GPUHandler) ExecuteCode(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "E_UNAUTHORIZED", "not authenticated")
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
		Code      string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "sessionId and code are required")
		return
	}
	res, err := h.coord.Submit(r.Context(), user.UserID, req.SessionID, req.Code)
	h.writeExecResult(w, res, err)
}

// POST /api/gpu/execute/input
func (h *GPUHandler) ProvideInput(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "E_UNAUTHORIZED", "not authenticated")
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
		// Pointer so an omitted input is a 400, not a silent "".
		Input *string `json:"input"`
	}
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" || req.Input == nil {
		writeError(w, http.StatusBadRequest, "E_BAD_REQUEST", "sessionId and input are required")
		return
	}
	res, err := h.coord.ProvideInput(r.Context(), user.UserID, req.SessionID, *req.Input)
	h.writeExecResult(w, res, err)
}

func (h *GPUHandler) writeExecResult(w http.ResponseWriter, res *model.ExecResult, err error) {
	if err != nil {
		var qerr *model.QuotaExceededError
		if errors.As(err, &qerr) {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error": map[string]any{
					"code":    "E_QUOTA_EXCEEDED",
					"message": qerr.Error(),
				},
				"quotaExceeded": true,
				"usedMinutes":   qerr.UsedMinutes,
				"quotaMinutes":  qerr.QuotaMinutes,
			})
			return
		}
		var perr *model.NoPendingSessionError
		if errors.As(err, &perr) {
			writeError(w, http.StatusNotFound, "E_NO_PENDING_SESSION", perr.Error())
			return
		}
		var lerr *model.ExecutorLaunchError
		if errors.As(err, &lerr) {
			writeError(w, http.StatusInternalServerError, "E_EXECUTOR", lerr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/gpu/usage
func (h *GPUHandler) Usage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "E_UNAUTHORIZED", "not authenticated")
		return
	}
	usage, err := h.quota.GetUsage(r.Context(), user.UserID, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// GET /api/gpu/quota/check
func (h *GPUHandler) QuotaCheck(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "E_UNAUTHORIZED", "not authenticated")
		return
	}
	usage, err := h.quota.GetUsage(r.Context(), user.UserID, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "E_INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hasQuota":         usage.RemainingMinutes > 0,
		"usedMinutes":      usage.UsedMinutes,
		"quotaMinutes":     usage.QuotaMinutes,
		"remainingMinutes": usage.RemainingMinutes,
	})
}

// GET /api/gpu/stats
func (h *GPUHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, service.SimulatedFleetStats(h.coord.ActiveSessionCount()))
}
