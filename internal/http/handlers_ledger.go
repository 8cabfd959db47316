package http

import (
	"net/http"
	"strings"

	"daftar/internal/ledger"
	"daftar/internal/services"
)

// handleGetLedger serves a single reconciled day.
//
//	GET /api/ledger?project_id=<id>&date=YYYY-MM-DD
func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		badRequest(r.Context(), w, "project_id is required")
		return
	}

	date, err := ledger.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		badRequest(r.Context(), w, "date must be in YYYY-MM-DD format")
		return
	}

	report, err := s.ledgers.LedgerFor(r.Context(), projectID, date)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, report)
}

// handleGetLedgerRange serves a contiguous run of reconciled days.
//
//	GET /api/ledger/range?project_id=<id>&from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleGetLedgerRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	if projectID == "" {
		badRequest(r.Context(), w, "project_id is required")
		return
	}

	from, err := ledger.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		badRequest(r.Context(), w, "from must be in YYYY-MM-DD format")
		return
	}
	to, err := ledger.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		badRequest(r.Context(), w, "to must be in YYYY-MM-DD format")
		return
	}

	reports, err := s.ledgers.LedgerRange(r.Context(), projectID, from, to)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, struct {
		ProjectID string               `json:"project_id"`
		Days      []services.DayReport `json:"days"`
	}{ProjectID: projectID, Days: reports})
}
