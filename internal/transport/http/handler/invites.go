package handler

import (
	"net/http"

	"github.com/campus-push/internal/application/invite"
	"github.com/campus-push/internal/domain"
)

// InviteHandler handles faculty invite endpoints.
type InviteHandler struct {
	svc invite.Service
}

func NewInviteHandler(svc invite.Service) *InviteHandler { return &InviteHandler{svc: svc} }

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Create(r.Context(), req, "external-service")
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *InviteHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
