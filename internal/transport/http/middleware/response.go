package middleware

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// rejection is the body middleware writes when it stops a request. It matches
// the handlers' error envelope and adds the request id for log correlation.
type rejection struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejection{Error: msg, RequestID: chimiddleware.GetReqID(r.Context())})
}
