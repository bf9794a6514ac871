package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"enrollment/pkg/platform/sentinel"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("course_key is required: %w", sentinel.ErrInvalidInput))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if !strings.Contains(body["error_description"], "course_key is required") {
			t.Fatalf("expected error_description to be returned for bad request, got %q", body["error_description"])
		}
	})

	t.Run("unavailable hides the cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("reserve seat: %w: %w", sentinel.ErrUnavailable, errors.New("dial tcp 10.0.0.1:5432")))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
		if strings.Contains(w.Body.String(), "10.0.0.1") {
			t.Fatalf("expected infrastructure detail to be hidden, got %s", w.Body.String())
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		CourseKey string `json:"course_key"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"course_key":"c1"}`))
	if err := DecodeJSON(r, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.CourseKey != "c1" {
		t.Fatalf("expected c1, got %q", dst.CourseKey)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	if err := DecodeJSON(r, &dst); !errors.Is(err, sentinel.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
