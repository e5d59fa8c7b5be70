package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campus-push/internal/application/device"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/transport/http/middleware"
)

// DeviceHandler handles push token endpoints.
type DeviceHandler struct {
	svc device.Service
}

func NewDeviceHandler(svc device.Service) *DeviceHandler { return &DeviceHandler{svc: svc} }

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RegisterTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Register(r.Context(), p.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tokens, err := h.svc.List(r.Context(), p.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(tokens))
}

func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Unregister(r.Context(), p.UserID, chi.URLParam(r, "token")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "token removed"})
}
