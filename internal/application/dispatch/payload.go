package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campus-push/internal/domain"
)

const (
	DefaultTitle = "New Announcement"
	DefaultBody  = "Check the app for details."

	// NotificationIDKey is always present in the data map so clients can open the record.
	NotificationIDKey = "notificationId"
)

// BuildPayload converts a record into a transport-ready message. Every data value
// becomes text; non-string values are JSON-encoded. Only http(s) image refs are
// attached here, embedded images are handled by the pipeline.
func BuildPayload(n *domain.Notification) *domain.Payload {
	p := &domain.Payload{
		Title:    n.Title,
		Body:     n.Body,
		Priority: n.Priority,
		Data:     make(map[string]string, len(n.Data)+1),
	}
	if strings.TrimSpace(p.Title) == "" {
		p.Title = DefaultTitle
	}
	if strings.TrimSpace(p.Body) == "" {
		p.Body = DefaultBody
	}
	if p.Priority == "" {
		p.Priority = domain.PriorityHigh
	}
	for k, v := range n.Data {
		p.Data[k] = stringify(v)
	}
	p.Data[NotificationIDKey] = n.NotificationID

	if n.ImageRef != nil && isRemoteImage(*n.ImageRef) {
		p.ImageURL = *n.ImageRef
	}
	return p
}

// stringify keeps strings as they are and JSON-encodes everything else, so a
// nil value becomes "null".
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func isRemoteImage(ref string) bool {
	ref = strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}
