package handler

import (
	"context"
	"net/http"

	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/transport/http/middleware"
)

// EventTrigger is the event-triggered dispatch driver.
type EventTrigger interface {
	OnTimetableUpdated(ctx context.Context, e trigger.TimetableEvent) (*domain.Notification, error)
	OnLostFoundPosted(ctx context.Context, e trigger.LostFoundEvent) (*domain.Notification, error)
	OnMarketplaceItemCreated(ctx context.Context, e trigger.MarketplaceEvent) (*domain.Notification, error)
}

// EventHandler exposes business events to services that cannot reach the queue.
type EventHandler struct {
	trg EventTrigger
}

func NewEventHandler(trg EventTrigger) *EventHandler { return &EventHandler{trg: trg} }

func (h *EventHandler) Timetable(w http.ResponseWriter, r *http.Request) {
	var e trigger.TimetableEvent
	if !decodeJSON(w, r, &e) {
		return
	}
	handleEvent(w, r, e.UniversityID, func(ctx context.Context) (*domain.Notification, error) {
		return h.trg.OnTimetableUpdated(ctx, e)
	})
}

func (h *EventHandler) LostFound(w http.ResponseWriter, r *http.Request) {
	var e trigger.LostFoundEvent
	if !decodeJSON(w, r, &e) {
		return
	}
	handleEvent(w, r, e.UniversityID, func(ctx context.Context) (*domain.Notification, error) {
		return h.trg.OnLostFoundPosted(ctx, e)
	})
}

func (h *EventHandler) Marketplace(w http.ResponseWriter, r *http.Request) {
	var e trigger.MarketplaceEvent
	if !decodeJSON(w, r, &e) {
		return
	}
	handleEvent(w, r, e.UniversityID, func(ctx context.Context) (*domain.Notification, error) {
		return h.trg.OnMarketplaceItemCreated(ctx, e)
	})
}

// handleEvent answers 202 once the record exists, whether or not the push went out.
func handleEvent(w http.ResponseWriter, r *http.Request, universityID string, fn func(context.Context) (*domain.Notification, error)) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !mayTarget(p, universityID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	n, err := fn(r.Context())
	if n == nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"sent":         n.Sent,
		"notification": n,
	})
}
