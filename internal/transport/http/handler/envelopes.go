package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campus-push/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// ListEnvelope wraps list responses.
type ListEnvelope[T any] struct {
	Count int `json:"count"`
	Data  []T `json:"data"`
}

func newList[T any](items []T) ListEnvelope[T] {
	if items == nil {
		items = []T{}
	}
	return ListEnvelope[T]{Count: len(items), Data: items}
}

// DispatchEnvelope reports the outcome of one delivery attempt.
type DispatchEnvelope struct {
	NotificationID   string `json:"notification_id"`
	Target           string `json:"target,omitempty"`
	Skipped          bool   `json:"skipped,omitempty"`
	Sent             bool   `json:"sent"`
	PermanentFailure bool   `json:"permanent_failure,omitempty"`
	DeliveredTargets int    `json:"delivered_targets"`
	FailedTargets    int    `json:"failed_targets"`
	Error            string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrUnresolvableTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func httpError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// decodeJSON reads the body into v and answers 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
