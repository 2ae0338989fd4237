// Package admin provides the back-office HTTP handlers: today's usage
// listings, per-user limit overrides, daily resets, and the audit trail.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gentools-platform/gentools/internal/api"
	"github.com/gentools-platform/gentools/internal/audit"
	"github.com/gentools-platform/gentools/internal/quota"
)

type Handler struct {
	quotaSvc  *quota.Service
	auditRepo *audit.Repository
	validate  *validator.Validate
}

func NewHandler(quotaSvc *quota.Service, auditRepo *audit.Repository) *Handler {
	return &Handler{
		quotaSvc:  quotaSvc,
		auditRepo: auditRepo,
		validate:  validator.New(),
	}
}

type UpsertLimitRequest struct {
	DailyLimit  int  `json:"daily_limit" validate:"omitempty,min=1"`
	IsUnlimited bool `json:"is_unlimited"`
}

// ListUsage returns today's usage rows for one API type, with effective
// limits derived from override-or-default.
func (h *Handler) ListUsage(w http.ResponseWriter, r *http.Request) {
	apiType, err := quota.ParseAPIType(r.URL.Query().Get("api_type"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError(err.Error()))
		return
	}

	params := quota.DefaultListParams()
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	entries, total, err := h.quotaSvc.ListTodayUsage(r.Context(), apiType, params)
	if err != nil {
		slog.Error("listing usage", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, entries, total, params.Page, params.PageSize)
}

// GetUserLimit reports the effective limit for one (user, api_type) pair.
func (h *Handler) GetUserLimit(w http.ResponseWriter, r *http.Request) {
	userID, apiType, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	eff, err := h.quotaSvc.EffectiveLimit(r.Context(), userID, apiType)
	if err != nil {
		slog.Error("getting effective limit", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, eff)
}

// UpsertUserLimit creates or replaces a per-user override.
func (h *Handler) UpsertUserLimit(w http.ResponseWriter, r *http.Request) {
	userID, apiType, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	var req UpsertLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	limit, err := h.quotaSvc.UpsertUserLimit(r.Context(), userID, apiType, req.DailyLimit, req.IsUnlimited)
	if err != nil {
		if errors.Is(err, quota.ErrInvalidLimit) {
			api.HandleError(w, api.NewBadRequestError(err.Error()))
			return
		}
		slog.Error("upserting user limit", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, limit)
}

// DeleteUserLimit removes an override, restoring the global default.
func (h *Handler) DeleteUserLimit(w http.ResponseWriter, r *http.Request) {
	userID, apiType, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	if err := h.quotaSvc.DeleteUserLimit(r.Context(), userID, apiType); err != nil {
		if errors.Is(err, quota.ErrOverrideNotFound) {
			api.HandleError(w, api.NewNotFoundError(err.Error()))
			return
		}
		slog.Error("deleting user limit", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "limit override deleted")
}

// ResetDailyUsage zeroes today's counter for one (user, api_type) pair.
func (h *Handler) ResetDailyUsage(w http.ResponseWriter, r *http.Request) {
	userID, apiType, ok := h.pathParams(w, r)
	if !ok {
		return
	}

	if err := h.quotaSvc.ResetDailyUsage(r.Context(), userID, apiType); err != nil {
		slog.Error("resetting daily usage", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "daily usage reset")
}

// ListAuditLogs returns the paginated audit trail with optional filters.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	params := parseAuditParams(r)

	logs, total, err := h.auditRepo.List(r.Context(), params)
	if err != nil {
		slog.Error("listing audit logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func (h *Handler) pathParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, quota.APIType, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid user ID"))
		return uuid.Nil, "", false
	}

	apiType, err := quota.ParseAPIType(chi.URLParam(r, "apiType"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError(err.Error()))
		return uuid.Nil, "", false
	}

	return userID, apiType, true
}

func parseAuditParams(r *http.Request) audit.ListParams {
	params := audit.DefaultListParams()

	if u := r.URL.Query().Get("user_id"); u != "" {
		if id, err := uuid.Parse(u); err == nil {
			params.UserID = &id
		}
	}
	if et := r.URL.Query().Get("event_type"); et != "" {
		params.EventType = et
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		params.Severity = sev
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}

	return params
}
