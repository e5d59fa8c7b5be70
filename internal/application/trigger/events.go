package trigger

import (
	"encoding/json"
	"fmt"

	"github.com/campus-push/internal/domain"
)

// EventType names a business event that implies a notification.
type EventType string

const (
	EventAnnouncement    EventType = "announcement.created"
	EventTimetable       EventType = "timetable.updated"
	EventLostFound       EventType = "lost_found.posted"
	EventMarketplaceItem EventType = "marketplace.item_created"
	EventTokenRegistered EventType = "device_token.registered"
)

// Envelope is the wire shape of an event on the message queue.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload under the given type.
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// AnnouncementEvent is an operator's custom send.
type AnnouncementEvent struct {
	Title        string         `json:"title" validate:"max=200"`
	Body         string         `json:"body" validate:"max=2000"`
	Image        string         `json:"image"`
	UniversityID string         `json:"universityId" validate:"required_without=UserID"`
	UserID       string         `json:"userId" validate:"required_without=UniversityID"`
	Priority     string         `json:"priority" validate:"omitempty,oneof=normal high"`
	Data         map[string]any `json:"data"`
}

type TimetableEvent struct {
	TimetableID  string `json:"timetableId"`
	UniversityID string `json:"universityId" validate:"required"`
	CourseName   string `json:"courseName"`
}

type LostFoundEvent struct {
	PostID       string `json:"postId"`
	UniversityID string `json:"universityId" validate:"required"`
	ItemName     string `json:"itemName"`
	// Kind is "lost" or "found".
	Kind string `json:"type" validate:"omitempty,oneof=lost found"`
}

// MarketplaceEvent carries Price as published by clients, number or string.
type MarketplaceEvent struct {
	ItemID       string `json:"itemId" validate:"required"`
	UniversityID string `json:"universityId" validate:"required"`
	Title        string `json:"title"`
	Price        any    `json:"price"`
}

type TokenRegisteredEvent struct {
	UserID string `json:"userId" validate:"required"`
	Token  string `json:"token" validate:"required"`
}

func (e AnnouncementEvent) notification() *domain.Notification {
	n := &domain.Notification{
		Title:        or(e.Title, "New Announcement"),
		Body:         or(e.Body, "Check the app for details."),
		Category:     domain.CategoryCustom,
		Priority:     or(e.Priority, domain.PriorityHigh),
		UniversityID: domain.StrPtr(e.UniversityID),
		UserID:       domain.StrPtr(e.UserID),
		ImageRef:     domain.StrPtr(e.Image),
		Data:         map[string]any{},
	}
	for k, v := range e.Data {
		n.Data[k] = v
	}
	return n
}

func (e TimetableEvent) notification() *domain.Notification {
	data := map[string]any{}
	if e.TimetableID != "" {
		data["timetableId"] = e.TimetableID
	}
	return &domain.Notification{
		Title:        "Timetable Updated",
		Body:         fmt.Sprintf("The schedule for %s has changed.", or(e.CourseName, "Class")),
		Category:     domain.CategoryTimetable,
		Priority:     domain.PriorityHigh,
		UniversityID: domain.StrPtr(e.UniversityID),
		Data:         data,
	}
}

func (e LostFoundEvent) notification() *domain.Notification {
	title := "Item Found! 🎉"
	if e.Kind == "lost" {
		title = "Lost Item Reported 🔍"
	}
	data := map[string]any{"isLost": e.Kind == "lost"}
	if e.PostID != "" {
		data["postId"] = e.PostID
	}
	return &domain.Notification{
		Title:        title,
		Body:         fmt.Sprintf("Someone posted about: %s.", or(e.ItemName, "an item")),
		Category:     domain.CategoryLostAndFound,
		Priority:     domain.PriorityHigh,
		UniversityID: domain.StrPtr(e.UniversityID),
		Data:         data,
	}
}

func (e MarketplaceEvent) notification() *domain.Notification {
	body := or(e.Title, "New Item Listed")
	if e.Price != nil {
		if p := fmt.Sprint(e.Price); p != "" {
			body += " for " + p
		}
	}
	return &domain.Notification{
		Title:        "New Item Listed",
		Body:         body,
		Category:     domain.CategoryMarketplace,
		Priority:     domain.PriorityHigh,
		UniversityID: domain.StrPtr(e.UniversityID),
		Data:         map[string]any{"postId": e.ItemID},
	}
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
