package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"daftar/internal/ledger"
	"daftar/internal/log"
)

type errorResponse struct {
	Error    string `json:"error"`
	SourceID string `json:"source_id,omitempty"`
	Category string `json:"category,omitempty"`
}

// respondJSON writes v as a JSON body with the given status code.
func respondJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Response encoding failed", "error", err)
	}
}

// respondError maps domain errors onto HTTP status codes.
//
// Rejected inputs surface as 422 so the client can fix the row, upstream
// fetch failures as 502 because the ledger is unavailable rather than
// wrong, and broken invariants as 500.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		respondJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Error:    verr.Reason,
			SourceID: verr.SourceID,
		})
		return
	}

	var ferr *ledger.UpstreamFetchError
	if errors.As(err, &ferr) {
		log.FromContext(ctx).ErrorContext(ctx, "Upstream fetch failed", "error", err, "category", ferr.Category)
		respondJSON(ctx, w, http.StatusBadGateway, errorResponse{
			Error:    "ledger unavailable",
			Category: ferr.Category,
		})
		return
	}

	var ierr *ledger.InvariantViolation
	if errors.As(err, &ierr) {
		log.FromContext(ctx).ErrorContext(ctx, "Ledger invariant violated", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	log.FromContext(ctx).ErrorContext(ctx, "Request failed", "error", err)
	respondJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// badRequest writes a 400 with a short reason.
func badRequest(ctx context.Context, w http.ResponseWriter, reason string) {
	respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: reason})
}
