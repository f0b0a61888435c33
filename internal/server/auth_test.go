package server

import (
	"net/http"
	"strings"
	"testing"
)

func doAuthed(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	var body *strings.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{"model":"tts-1","input":"hi"}`)
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestAuth_MissingTokenRejected(t *testing.T) {
	srv := newTestServer(t, newTestPool(t, 1, &echoEngine{}), WithAPIKey("sekrit"))

	resp := doAuthed(t, http.MethodPost, srv.URL+"/v1/audio/speech", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	apiErr := decodeAPIError(t, resp)
	if apiErr.Error.Type != "authentication_error" {
		t.Errorf("error type = %q, want authentication_error", apiErr.Error.Type)
	}
}

func TestAuth_WrongTokenRejected(t *testing.T) {
	srv := newTestServer(t, newTestPool(t, 1, &echoEngine{}), WithAPIKey("sekrit"))

	resp := doAuthed(t, http.MethodPost, srv.URL+"/v1/audio/speech", "wrong")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuth_CorrectTokenAccepted(t *testing.T) {
	srv := newTestServer(t, newTestPool(t, 1, &echoEngine{}), WithAPIKey("sekrit"))

	resp := doAuthed(t, http.MethodPost, srv.URL+"/v1/audio/speech", "sekrit")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuth_ExemptPathsStayOpen(t *testing.T) {
	srv := newTestServer(t, newTestPool(t, 1, &echoEngine{}), WithAPIKey("sekrit"))

	for _, path := range []string{"/", "/health", "/v1/audio/voices"} {
		resp := doAuthed(t, http.MethodGet, srv.URL+path, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 without a token", path, resp.StatusCode)
		}
	}
}

func TestAuth_DisabledWhenNoKeyConfigured(t *testing.T) {
	srv := newTestServer(t, newTestPool(t, 1, &echoEngine{}))

	resp := doAuthed(t, http.MethodPost, srv.URL+"/v1/audio/speech", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 when auth is disabled", resp.StatusCode)
	}
}
