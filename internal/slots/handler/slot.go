package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"atelier/internal/slots/events"
	"atelier/internal/slots/service"
	apperrors "atelier/pkg/errors"
	httputil "atelier/pkg/http"
	"atelier/pkg/logger"
	"atelier/pkg/middleware"
	"atelier/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

type ConflictResponse struct {
	ProviderUID string    `json:"provider_uid"`
	At          time.Time `json:"at"`
	Conflict    bool      `json:"conflict"`
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.SlotCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}

	slot, err := h.service.Create(requestContext(r), middleware.CallerFromContext(r.Context()), &input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, slot)
}

func (h *SlotHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.GetByID(r.Context(), middleware.CallerFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, slot)
}

func (h *SlotHandler) CheckAccess(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	decision, err := h.service.CheckAccess(r.Context(), middleware.CallerFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, decision)
}

func (h *SlotHandler) Claim(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.Claim(requestContext(r), middleware.CallerFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, slot)
}

func (h *SlotHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.Cancel(requestContext(r), middleware.CallerFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, slot)
}

func (h *SlotHandler) ListAvailable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	window, err := parseWindow(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	slots, err := h.service.ListAvailable(r.Context(), ps.ByName("uid"), middleware.CallerFromContext(r.Context()), window)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteList(w, slots, len(slots))
}

// ListAll is the provider's own management view.
func (h *SlotHandler) ListAll(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	providerUID := ps.ByName("uid")
	caller := middleware.CallerFromContext(r.Context())
	if caller.IsAnonymous() {
		httputil.WriteError(w, apperrors.Unauthorized("Sign in to manage slots"))
		return
	}
	if caller.UID != providerUID {
		httputil.WriteError(w, apperrors.Forbidden("Only the provider can list all of their slots"))
		return
	}

	slots, err := h.service.ListAll(r.Context(), providerUID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteList(w, slots, len(slots))
}

func (h *SlotHandler) CheckConflict(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		httputil.WriteError(w, apperrors.InvalidInput("'at' query parameter is required"))
		return
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("invalid 'at' format, must be RFC3339"))
		return
	}

	providerUID := ps.ByName("uid")
	taken, err := h.service.CheckConflict(r.Context(), providerUID, at)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, ConflictResponse{ProviderUID: providerUID, At: at.UTC(), Conflict: taken})
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots", h.Create)
	router.GET("/api/v1/slots/id/:id", h.GetByID)
	router.GET("/api/v1/slots/id/:id/access", h.CheckAccess)
	router.POST("/api/v1/slots/id/:id/claim", h.Claim)
	router.POST("/api/v1/slots/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/providers/:uid/slots", h.ListAvailable)
	router.GET("/api/v1/providers/:uid/slots/all", h.ListAll)
	router.GET("/api/v1/providers/:uid/conflicts", h.CheckConflict)
}

func parseWindow(r *http.Request) (*model.DateRange, error) {
	query := r.URL.Query()
	window := &model.DateRange{}

	for _, p := range []struct {
		name   string
		target **time.Time
	}{
		{"start", &window.Start},
		{"end", &window.End},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid " + p.name + " format, must be RFC3339")
		}
		*p.target = &parsed
	}

	if window.Start == nil && window.End == nil {
		return nil, nil
	}
	return window, nil
}

// requestContext carries the request id into published events.
func requestContext(r *http.Request) context.Context {
	return events.WithRequestID(r.Context(), middleware.RequestIDFromContext(r.Context()))
}
