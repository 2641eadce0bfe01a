package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"modchat/internal/history"
	"modchat/internal/moderation"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(newTestCoordinator(t, history.NewMemoryStore()), zerolog.Nop())
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCreateRoomEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.CreateRoom, `{"roomId":"room-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"roomId":"room-1"`) {
		t.Fatalf("expected room in response, got %s", rec.Body)
	}

	rec = postJSON(t, h.CreateRoom, `{"roomId":"room-1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate room, got %d", rec.Code)
	}

	rec = postJSON(t, h.CreateRoom, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing roomId, got %d", rec.Code)
	}
}

func TestSubmitImageEndpointErrors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "missing url", body: `{"roomId":"room-1","sender":"a"}`, code: http.StatusBadRequest},
		{name: "missing room", body: `{"roomId":"ghost","sender":"a","imageUrl":"http://x/p.png"}`, code: http.StatusNotFound},
		{name: "malformed body", body: `{{{`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.SubmitImage, tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body)
			}
		})
	}
}

func TestPipelineStatusModerationDisabled(t *testing.T) {
	if got := pipelineStatus(moderation.ErrModerationDisabled); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when no classifier is configured, got %d", got)
	}
}

func TestSubmitImageEndpointSuccess(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.CreateRoom, `{"roomId":"room-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room: %d", rec.Code)
	}

	rec = postJSON(t, h.SubmitImage, `{"roomId":"room-1","sender":"a","imageUrl":"http://cdn.example.com/cat.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"predictions"`) || !strings.Contains(body, `"imageLink"`) {
		t.Fatalf("expected predictions and image link in response, got %s", body)
	}
}
