package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
	"fintrack/internal/state"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"count": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q, want value", got)
	}
	if got := w.Body.String(); got != "{\"count\":2}\n" {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d with body %q", w.Code, w.Body.String())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Attachment("export.json").JSON(struct{}{}).Write(w)

	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="export.json"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"request error", badRequest("invalid JSON body", errors.New("eof")), http.StatusBadRequest},
		{"validation inside request error", badRequest("invalid JSON body", core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("invalid goal: %w", core.ErrMissingName), http.StatusUnprocessableEntity},
		{"missing id", ledger.ErrMissingID, http.StatusUnprocessableEntity},
		{"state not found", fmt.Errorf("goal x: %w", state.ErrNotFound), http.StatusNotFound},
		{"ledger not found", ledger.ErrNotFound, http.StatusNotFound},
		{"duplicate", ledger.ErrDuplicateID, http.StatusConflict},
		{"not loaded", services.ErrNotLoaded, http.StatusServiceUnavailable},
		{"no rate source", services.ErrNoRateSource, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := classify(tt.err); got != tt.status {
				t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.status)
			}
		})
	}
}

func TestFromError_HidesInternalErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)

	w := httptest.NewRecorder()
	FromError(r, errors.New("open /data/fintrack.db: permission denied")).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Status code = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "permission denied") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	FromError(r, fmt.Errorf("invalid transaction: %w", core.ErrMissingCategory)).Write(w)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "missing category") {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}
