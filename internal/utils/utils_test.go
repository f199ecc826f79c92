package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeHelpers(t *testing.T) {
	if got := NormalizeLanguage("  Python "); got != "python" {
		t.Fatalf("NormalizeLanguage: expected python, got %s", got)
	}

	if got := NormalizeLevel(" Culture-Fit"); got != "culture-fit" {
		t.Fatalf("NormalizeLevel: expected culture-fit, got %s", got)
	}

	for in, want := range map[string]string{"PY": "python", "golang": "go", "C++": "cpp", "rust": "rust"} {
		if got := NormalizeLanguage(in); got != want {
			t.Fatalf("NormalizeLanguage(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestStripFences(t *testing.T) {
	input := "```json\n{\"a\":1}\n```\n"
	want := `{"a":1}`

	if got := StripFences(input); got != want {
		t.Fatalf("StripFences: expected %q, got %q", want, got)
	}

	raw := "  print('hi')  "
	if got := StripFences(raw); got != "print('hi')" {
		t.Fatalf("StripFences (no fences): expected trimmed string, got %q", got)
	}

	if got := StripFences("```"); got != "" {
		t.Fatalf("StripFences (bare fence): expected empty, got %q", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	if got := ExtractJSONObject(`Sure! {"a":{"b":1}} hope this helps`); got != `{"a":{"b":1}}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
	if got := ExtractJSONObject("no json"); got != "no json" {
		t.Fatalf("expected input back, got %q", got)
	}
}

func TestAddLineNumbers(t *testing.T) {
	code := "line1\nline2"
	want := "1: line1\n2: line2"

	if got := AddLineNumbers(code); got != want {
		t.Fatalf("AddLineNumbers: expected %q, got %q", want, got)
	}

	if got := AddLineNumbers(""); got != "" {
		t.Fatalf("AddLineNumbers empty: expected empty string, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("unexpected truncation: %s", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Fatalf("short string changed: %s", got)
	}
}

func TestJSONHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	payload := map[string]string{"hello": "world"}

	JSON(rec, http.StatusCreated, payload)

	if rec.Code != http.StatusCreated {
		t.Fatalf("JSON: expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("JSON: expected content-type application/json, got %s", contentType)
	}

	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("JSON decode failed: %v", err)
	}
	if got["hello"] != "world" {
		t.Fatalf("JSON body mismatch: %+v", got)
	}

	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("JSON: expected no-store, got %s", rec.Header().Get("Cache-Control"))
	}

	empty := httptest.NewRecorder()
	JSON(empty, http.StatusNoContent, nil)
	if empty.Code != http.StatusNoContent || empty.Body.Len() != 0 {
		t.Fatalf("JSON: expected empty 204, got %d %q", empty.Code, empty.Body.String())
	}

	file := httptest.NewRecorder()
	Attachment(file, "application/jsonl", "ratings.jsonl", []byte("{\"a\":1}\n"))
	if file.Header().Get("Content-Type") != "application/jsonl" {
		t.Fatalf("Attachment: unexpected content-type %s", file.Header().Get("Content-Type"))
	}
	if !strings.Contains(file.Header().Get("Content-Disposition"), `filename="ratings.jsonl"`) {
		t.Fatalf("Attachment: unexpected disposition %s", file.Header().Get("Content-Disposition"))
	}
	if file.Body.String() != "{\"a\":1}\n" {
		t.Fatalf("Attachment: body mismatch %q", file.Body.String())
	}
}

func TestGetLogger(t *testing.T) {
	Logger = nil
	if GetLogger() == nil {
		t.Fatal("expected logger to be initialized lazily")
	}
}
