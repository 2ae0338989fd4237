// Package generators exposes the HTTP surface of the generator tools.
// Every endpoint runs the daily quota check before doing any work: a denied
// call returns 429 and produces nothing.
package generators

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gentools-platform/gentools/internal/api"
	"github.com/gentools-platform/gentools/internal/auth"
	"github.com/gentools-platform/gentools/internal/events"
	"github.com/gentools-platform/gentools/internal/generators/address"
	"github.com/gentools-platform/gentools/internal/generators/email2name"
	"github.com/gentools-platform/gentools/internal/generators/useragent"
	"github.com/gentools-platform/gentools/internal/metrics"
	"github.com/gentools-platform/gentools/internal/quota"
)

// UsagePublisher receives an event for every admitted generator call.
type UsagePublisher interface {
	PublishUsageEvent(ctx context.Context, event events.UsageEvent) error
}

type Handler struct {
	quotaSvc   *quota.Service
	addresses  *address.Generator
	userAgents *useragent.Generator
	names      *email2name.Converter
	publisher  UsagePublisher
	validate   *validator.Validate
}

func NewHandler(quotaSvc *quota.Service, publisher UsagePublisher) *Handler {
	return &Handler{
		quotaSvc:   quotaSvc,
		addresses:  address.New(),
		userAgents: useragent.New(),
		names:      email2name.New(),
		publisher:  publisher,
		validate:   validator.New(),
	}
}

type AddressRequest struct {
	Country string `json:"country" validate:"omitempty,len=2,alpha"`
	Count   int    `json:"count" validate:"omitempty,min=1,max=50"`
}

type AddressResponse struct {
	Addresses []address.Address     `json:"addresses"`
	Quota     quota.RateLimitResult `json:"quota"`
}

type UserAgentRequest struct {
	Browser string `json:"browser" validate:"omitempty,alpha"`
	OS      string `json:"os" validate:"omitempty,alpha"`
	Count   int    `json:"count" validate:"omitempty,min=1,max=50"`
}

type UserAgentResponse struct {
	UserAgents []string              `json:"user_agents"`
	Quota      quota.RateLimitResult `json:"quota"`
}

type Email2NameRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type Email2NameResponse struct {
	Name  *email2name.Name      `json:"name"`
	Quota quota.RateLimitResult `json:"quota"`
}

func (h *Handler) GenerateAddresses(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, userID, ok := h.consume(w, r, quota.APITypeAddressGenerator)
	if !ok {
		return
	}

	addresses, err := h.addresses.Generate(req.Country, req.Count)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError(err.Error()))
		return
	}

	h.recordUsage(r.Context(), userID, quota.APITypeAddressGenerator, result)
	api.JSON(w, http.StatusOK, AddressResponse{Addresses: addresses, Quota: *result})
}

func (h *Handler) GenerateUserAgents(w http.ResponseWriter, r *http.Request) {
	var req UserAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, userID, ok := h.consume(w, r, quota.APITypeUserAgent)
	if !ok {
		return
	}

	agents, err := h.userAgents.Generate(req.Browser, req.OS, req.Count)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError(err.Error()))
		return
	}

	h.recordUsage(r.Context(), userID, quota.APITypeUserAgent, result)
	api.JSON(w, http.StatusOK, UserAgentResponse{UserAgents: agents, Quota: *result})
}

func (h *Handler) ConvertEmail(w http.ResponseWriter, r *http.Request) {
	var req Email2NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, userID, ok := h.consume(w, r, quota.APITypeEmail2Name)
	if !ok {
		return
	}

	name, err := h.names.Convert(req.Email)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError(err.Error()))
		return
	}

	h.recordUsage(r.Context(), userID, quota.APITypeEmail2Name, result)
	api.JSON(w, http.StatusOK, Email2NameResponse{Name: name, Quota: *result})
}

// GetQuota returns today's usage for the authenticated user across all
// generator APIs.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	statuses, err := h.quotaSvc.UserStatus(r.Context(), userID)
	if err != nil {
		slog.Error("getting quota status", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, statuses)
}

// consume runs the quota gate. On any failure it writes the response and
// returns ok=false; persistence errors fail closed as 500.
func (h *Handler) consume(w http.ResponseWriter, r *http.Request, apiType quota.APIType) (*quota.RateLimitResult, uuid.UUID, bool) {
	userID, err := callerID(r)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return nil, uuid.Nil, false
	}

	result, err := h.quotaSvc.CheckAndConsume(r.Context(), userID, apiType)
	if err != nil {
		if errors.Is(err, quota.ErrUnknownAPIType) || errors.Is(err, quota.ErrMissingUser) {
			api.HandleError(w, api.ErrBadRequest)
			return nil, uuid.Nil, false
		}
		slog.Error("quota check failed, denying request", "error", err, "api_type", apiType)
		api.HandleError(w, api.ErrInternalServer)
		return nil, uuid.Nil, false
	}
	if !result.Success {
		api.HandleError(w, api.ErrLimitExceeded)
		return nil, uuid.Nil, false
	}
	return result, userID, true
}

func (h *Handler) recordUsage(ctx context.Context, userID uuid.UUID, apiType quota.APIType, result *quota.RateLimitResult) {
	metrics.GenerationsTotal.WithLabelValues(string(apiType)).Inc()
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishUsageEvent(ctx, events.UsageEvent{
		UserID:     userID,
		APIType:    string(apiType),
		DailyCount: result.DailyCount,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		slog.Warn("publishing usage event", "error", err)
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		return uuid.Nil, errors.New("no claims in context")
	}
	return uuid.Parse(claims.UserID)
}
