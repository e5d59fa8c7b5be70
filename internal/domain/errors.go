package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers and CLI tools can map them to HTTP status codes
// or exit codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrConfiguration marks missing credentials or targeting input. Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnresolvableTarget marks a notification with neither a user nor a university target.
	ErrUnresolvableTarget = errors.New("notification has no delivery target")
	// ErrTransport marks a push send call that could not be made (network, auth, quota).
	ErrTransport = errors.New("push transport call failed")
	// ErrAlreadySent marks a failed attempt that lost the race to a successful one.
	ErrAlreadySent = errors.New("notification already sent")
)
