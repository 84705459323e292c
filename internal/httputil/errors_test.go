package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteNoModelsError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoModelsError(rec, "req_123", "all candidates exhausted")

	if rec.Code != 503 {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req_123" {
		t.Errorf("expected request id header, got %q", got)
	}

	var apiErr APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if apiErr.Error.Code != "no_models_available" {
		t.Errorf("expected code no_models_available, got %q", apiErr.Error.Code)
	}
	if apiErr.Error.RequestID != "req_123" {
		t.Errorf("expected request id in body, got %q", apiErr.Error.RequestID)
	}
}

func TestWriteBadRequestError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBadRequestError(rec, "req_456", "messages is required")

	if rec.Code != 400 {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	var apiErr APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if apiErr.Error.Type != "invalid_request_error" {
		t.Errorf("unexpected error type %q", apiErr.Error.Type)
	}
}
