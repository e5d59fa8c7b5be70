package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campus-push/internal/application/admin"
)

// AdminHandler exposes the super-admin maintenance operations.
type AdminHandler struct {
	svc admin.Service
}

func NewAdminHandler(svc admin.Service) *AdminHandler { return &AdminHandler{svc: svc} }

func (h *AdminHandler) AddSuperAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.AddSuperAdmin(r.Context(), body.UserID, body.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "super admin added"})
}

func (h *AdminHandler) AddUniversityAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.AddUniversityAdmin(r.Context(), chi.URLParam(r, "id"), body.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "university admin added"})
}

func (h *AdminHandler) AddDomain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domain string `json:"domain"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	added, err := h.svc.AddDomain(r.Context(), chi.URLParam(r, "id"), body.Domain)
	if err != nil {
		httpError(w, err)
		return
	}
	msg := "domain added"
	if !added {
		msg = "domain already present"
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

func (h *AdminHandler) ApproveRecruiters(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ApproveRecruiters(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	uni, err := h.svc.Seed(r.Context(), r.URL.Query().Get("super_admin_uid"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uni)
}

func (h *AdminHandler) MigrateImages(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.MigrateImages(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in admin.CreateUserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, created, err := h.svc.CreateUser(r.Context(), in)
	if err != nil {
		httpError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, u)
}
