package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chainbets/chainbet/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubReconciler returns a fixed outcome or error.
type stubReconciler struct {
	outcome domain.ReconcileOutcome
	err     error
}

func (s *stubReconciler) ReconcileNext(context.Context) (domain.ReconcileOutcome, error) {
	return s.outcome, s.err
}

func TestReconcileHandler_Trigger(t *testing.T) {
	tests := []struct {
		name       string
		reconciler *stubReconciler
		wantStatus int
		wantBody   string
	}{
		{
			name: "verified outcome",
			reconciler: &stubReconciler{outcome: domain.ReconcileOutcome{
				Status:   domain.ReconcileVerified,
				Identity: "42",
				Written:  true,
			}},
			wantStatus: http.StatusOK,
			wantBody:   `"status":"verified"`,
		},
		{
			name: "no pending outcome",
			reconciler: &stubReconciler{outcome: domain.ReconcileOutcome{
				Status: domain.ReconcileNoPending,
			}},
			wantStatus: http.StatusOK,
			wantBody:   `"status":"no_pending"`,
		},
		{
			name:       "chain unavailable",
			reconciler: &stubReconciler{err: fmt.Errorf("reconcile: %w", domain.ErrChainUnavailable)},
			wantStatus: http.StatusBadGateway,
			wantBody:   "chain unavailable",
		},
		{
			name:       "lock held",
			reconciler: &stubReconciler{err: fmt.Errorf("reconcile: %w", domain.ErrLockHeld)},
			wantStatus: http.StatusConflict,
			wantBody:   "already in progress",
		},
		{
			name:       "storage failure",
			reconciler: &stubReconciler{err: errors.New("pq: connection reset")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "reconciliation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReconcileHandler(tt.reconciler, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/reconcile", nil)
			rec := httptest.NewRecorder()
			h.Trigger(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if body := rec.Body.String(); !strings.Contains(body, tt.wantBody) {
				t.Errorf("body %q does not contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestReconcileHandler_OutcomeShape(t *testing.T) {
	h := NewReconcileHandler(&stubReconciler{outcome: domain.ReconcileOutcome{
		Status:   domain.ReconcileUnmatched,
		Identity: "8",
		Written:  false,
	}}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", nil)
	rec := httptest.NewRecorder()
	h.Trigger(rec, req)

	var out domain.ReconcileOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.Status != domain.ReconcileUnmatched || out.Identity != "8" || out.Written {
		t.Errorf("outcome = %+v, want unmatched/8/unwritten", out)
	}
}
