package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Paths reachable without a bearer token even when auth is configured.
// Voices and health are intentionally open so clients can discover
// capability before authenticating.
func authExempt(path string) bool {
	return path == "/" ||
		path == "/health" ||
		path == "/metrics" ||
		strings.HasPrefix(path, "/v1/audio/voices")
}

// requireBearer wraps next with a bearer-token check. An empty
// expected key disables the check entirely.
func requireBearer(expected string, next http.Handler) http.Handler {
	if expected == "" {
		return next
	}

	expectedSum := sha256.Sum256([]byte(expected))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeAPIError(w, http.StatusUnauthorized, "authentication_error", "Unauthorized", "")
			return
		}

		// Hash both sides so the comparison is constant-time
		// regardless of token length.
		tokenSum := sha256.Sum256([]byte(token))
		if subtle.ConstantTimeCompare(tokenSum[:], expectedSum[:]) != 1 {
			writeAPIError(w, http.StatusUnauthorized, "authentication_error", "Unauthorized", "")
			return
		}

		next.ServeHTTP(w, r)
	})
}
