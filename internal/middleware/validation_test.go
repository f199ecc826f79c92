package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"careercoach/ai/internal/models"
)

func answerRoute(t *testing.T, called *bool) http.Handler {
	return ValidateRequest[*models.SubmitAnswerRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		req := GetValidatedRequest[*models.SubmitAnswerRequest](r)
		if req == nil {
			t.Fatal("validated request missing from context")
		}
		w.Header().Set("X-Language", req.Language)
		w.WriteHeader(http.StatusAccepted)
	}))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("error body is not an ErrorResponse: %v", err)
	}
	return body.Code
}

func TestValidateRequestPassesNormalizedAnswer(t *testing.T) {
	var called bool
	rec := httptest.NewRecorder()
	answerRoute(t, &called).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interviews/iv-1/answer",
		strings.NewReader(`{"code":"print(1)","language":"PY"}`)))

	if !called || rec.Code != http.StatusAccepted {
		t.Fatalf("expected handler to run, called=%v status=%d", called, rec.Code)
	}
	if got := rec.Header().Get("X-Language"); got != "python" {
		t.Fatalf("Validate should normalize the language, got %q", got)
	}
}

func TestValidateRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"text":`, "invalid_json"},
		{"blank answer", `{"text":"   ","code":""}`, "empty_response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			rec := httptest.NewRecorder()
			answerRoute(t, &called).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(tt.body)))

			if called {
				t.Fatal("handler must not run for a rejected body")
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Fatalf("expected code %s, got %s", tt.code, got)
			}
		})
	}
}

func TestValidateRequestTickBounds(t *testing.T) {
	handler := ValidateRequest[*models.TickRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetValidatedRequest[*models.TickRequest](r).ElapsedSeconds != 30 {
			t.Error("unexpected elapsed seconds")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tick", strings.NewReader(`{"elapsed_seconds":30}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tick", strings.NewReader(`{"elapsed_seconds":-5}`)))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_elapsed" {
		t.Fatalf("expected 400 invalid_elapsed, got %d", rec.Code)
	}
}

func TestValidateRequestBodyTooLarge(t *testing.T) {
	var called bool
	body := `{"text":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	answerRoute(t, &called).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(body)))

	if called {
		t.Fatal("handler must not run for an oversize body")
	}
	if rec.Code != http.StatusRequestEntityTooLarge || errorCode(t, rec) != "payload_too_large" {
		t.Fatalf("expected 413 payload_too_large, got %d", rec.Code)
	}
}
