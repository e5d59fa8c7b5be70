package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campus-push/internal/application/dispatch"
	"github.com/campus-push/internal/application/notification"
	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/transport/http/middleware"
)

// AnnouncementSender is the custom-send entry point of the event driver.
type AnnouncementSender interface {
	OnAnnouncement(ctx context.Context, e trigger.AnnouncementEvent) (*domain.Notification, error)
}

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc    notification.Service
	sender AnnouncementSender
}

func NewNotificationHandler(svc notification.Service, sender AnnouncementSender) *NotificationHandler {
	return &NotificationHandler{svc: svc, sender: sender}
}

func limitParam(r *http.Request) int32 {
	n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	out, err := h.svc.ListForUser(r.Context(), p, limitParam(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(out))
}

func (h *NotificationHandler) ListForUniversity(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	out, err := h.svc.ListForUniversity(r.Context(), p, chi.URLParam(r, "id"), limitParam(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(out))
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.MarkAsRead(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// SendCustom stores an operator's custom notification and pushes it once.
// A failed push still answers 201 with the stored record; the poller retries it.
func (h *NotificationHandler) SendCustom(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var e trigger.AnnouncementEvent
	if !decodeJSON(w, r, &e) {
		return
	}
	if !mayTarget(p, e.UniversityID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	n, err := h.sender.OnAnnouncement(r.Context(), e)
	if n == nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      err == nil,
		"notification": n,
	})
}

// Create composes a notification for a business module; ?send=true dispatches it right away.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in notification.ComposeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if !mayTarget(p, in.UniversityID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	send, _ := strconv.ParseBool(r.URL.Query().Get("send"))
	n, res, err := h.svc.Create(r.Context(), in, send)
	if n == nil {
		httpError(w, err)
		return
	}
	body := map[string]interface{}{"notification": n}
	if res != nil {
		body["dispatch"] = dispatchEnvelope(*res, err)
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *NotificationHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Dispatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !res.Skipped && res.Update.AttemptedAt.IsZero() {
		// The record could not be loaded, so nothing was attempted.
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dispatchEnvelope(res, err))
}

func dispatchEnvelope(res dispatch.Result, err error) DispatchEnvelope {
	env := DispatchEnvelope{
		NotificationID:   res.NotificationID,
		Skipped:          res.Skipped,
		Sent:             res.Update.Sent,
		PermanentFailure: res.Update.PermanentFailure,
		DeliveredTargets: res.Update.DeliveredTargets,
		FailedTargets:    res.Update.FailedTargets,
	}
	if res.Target.Kind != dispatch.TargetUnresolvable {
		env.Target = res.Target.String()
	}
	if err != nil {
		env.Error = err.Error()
	}
	return env
}

// mayTarget reports whether p may send to universityID. Direct user sends are open to any operator.
func mayTarget(p *domain.Principal, universityID string) bool {
	return p.Role == domain.RoleSuperAdmin || universityID == "" || universityID == p.UniversityID
}
