package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// errAdmissionTimeout marks an admission wait that exceeded the
// configured bound. Distinct from synthesis failure: the request never
// reached a worker.
var errAdmissionTimeout = errors.New("timed out waiting for a synthesis worker")

// ValidationError rejects a request before any resource is touched.
// Field names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OpenAI-compatible error body.
type errorDetails struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorBody struct {
	Error errorDetails `json:"error"`
}

func writeAPIError(w http.ResponseWriter, status int, errType, message, param string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetails{
		Message: message,
		Type:    errType,
		Param:   param,
	}})
}

// writeMappedError converts an internal failure into the external
// taxonomy. Internal detail (engine messages, file paths) never
// reaches the body; callers log the full cause under the request id.
func writeMappedError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", verr.Reason, verr.Field)
	case errors.Is(err, errAdmissionTimeout):
		writeAPIError(w, http.StatusServiceUnavailable, "api_error",
			"All synthesis workers are busy; retry later", "")
	default:
		writeAPIError(w, http.StatusInternalServerError, "api_error",
			"Backend processing error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
