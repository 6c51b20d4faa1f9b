package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chainbets/chainbet/internal/domain"
)

// Reconciler defines the single operation the reconcile handler requires.
type Reconciler interface {
	ReconcileNext(ctx context.Context) (domain.ReconcileOutcome, error)
}

// ReconcileHandler exposes manual reconciliation triggering.
type ReconcileHandler struct {
	reconciler Reconciler
	logger     *slog.Logger
}

// NewReconcileHandler creates a ReconcileHandler with the given reconciler
// and logger.
func NewReconcileHandler(reconciler Reconciler, logger *slog.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Trigger runs one reconciliation pass and reports its outcome. A chain
// outage maps to 502; a pass already running elsewhere maps to 409.
// POST /api/reconcile
func (h *ReconcileHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.reconciler.ReconcileNext(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrChainUnavailable):
			writeError(w, http.StatusBadGateway, "chain unavailable")
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusConflict, "reconciliation already in progress")
		default:
			h.logger.ErrorContext(r.Context(), "handler: reconcile failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "reconciliation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
