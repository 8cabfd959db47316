package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"daftar/internal/ledger"
)

// Transaction write endpoints. Each accepts a JSON body, records the row
// through the service layer, and answers 201 with the generated row id.
// Amounts travel as strings so clients never round them through floats.

type transactionCreated struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Date      string `json:"date"`
}

// rowEnvelope carries the fields every transaction request shares.
type rowEnvelope struct {
	ProjectID string `json:"project_id"`
	Date      string `json:"date"`
	Notes     string `json:"notes"`
}

// decodeBody parses the JSON request body into dst, limiting its size.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseEnvelope validates the shared project/date fields.
func parseEnvelope(env rowEnvelope) (string, ledger.Date, string, bool) {
	projectID := strings.TrimSpace(env.ProjectID)
	if projectID == "" {
		return "", ledger.Date{}, "project_id is required", false
	}
	date, err := ledger.ParseDate(env.Date)
	if err != nil {
		return "", ledger.Date{}, "date must be in YYYY-MM-DD format", false
	}
	return projectID, date, "", true
}

// parseAmount parses a decimal amount from its JSON string form.
func parseAmount(raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleCreateFundTransfer(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		rowEnvelope
		Sender string `json:"sender"`
		Amount string `json:"amount"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(r.Context(), w, "invalid request body")
		return
	}
	projectID, date, reason, ok := parseEnvelope(req.rowEnvelope)
	if !ok {
		badRequest(r.Context(), w, reason)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		badRequest(r.Context(), w, "amount must be a decimal number")
		return
	}

	id, err := s.ledgers.RecordFundTransfer(r.Context(), projectID, date, ledger.FundTransferRow{
		Sender: sanitizeInput(req.Sender),
		Amount: amount,
		Notes:  sanitizeInput(req.Notes),
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	s.requestLog.LogTransactionRecorded(r.Context(), projectID, date.String(), id, string(ledger.KindFundTransfer), amount.String())
	respondJSON(r.Context(), w, http.StatusCreated, transactionCreated{ID: id, ProjectID: projectID, Date: date.String()})
}

func (s *Server) handleCreateAttendance(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		rowEnvelope
		WorkerName string `json:"worker_name"`
		WorkDays   string `json:"work_days"`
		PaidAmount string `json:"paid_amount"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(r.Context(), w, "invalid request body")
		return
	}
	projectID, date, reason, ok := parseEnvelope(req.rowEnvelope)
	if !ok {
		badRequest(r.Context(), w, reason)
		return
	}
	workDays, ok := parseAmount(req.WorkDays)
	if !ok {
		badRequest(r.Context(), w, "work_days must be a decimal number")
		return
	}
	// Attendance may be unpaid; an absent paid_amount means zero.
	paid := decimal.Zero
	if strings.TrimSpace(req.PaidAmount) != "" {
		if paid, ok = parseAmount(req.PaidAmount); !ok {
			badRequest(r.Context(), w, "paid_amount must be a decimal number")
			return
		}
	}

	id, err := s.ledgers.RecordAttendance(r.Context(), projectID, date, ledger.AttendanceRow{
		WorkerName: sanitizeInput(req.WorkerName),
		WorkDays:   workDays,
		PaidAmount: paid,
		Notes:      sanitizeInput(req.Notes),
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	s.requestLog.LogTransactionRecorded(r.Context(), projectID, date.String(), id, string(ledger.KindWorkerWage), paid.String())
	respondJSON(r.Context(), w, http.StatusCreated, transactionCreated{ID: id, ProjectID: projectID, Date: date.String()})
}

func (s *Server) handleCreateTransportExpense(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		rowEnvelope
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(r.Context(), w, "invalid request body")
		return
	}
	projectID, date, reason, ok := parseEnvelope(req.rowEnvelope)
	if !ok {
		badRequest(r.Context(), w, reason)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		badRequest(r.Context(), w, "amount must be a decimal number")
		return
	}

	id, err := s.ledgers.RecordTransportExpense(r.Context(), projectID, date, ledger.TransportRow{
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Notes:       sanitizeInput(req.Notes),
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	s.requestLog.LogTransactionRecorded(r.Context(), projectID, date.String(), id, string(ledger.KindTransport), amount.String())
	respondJSON(r.Context(), w, http.StatusCreated, transactionCreated{ID: id, ProjectID: projectID, Date: date.String()})
}

func (s *Server) handleCreateWorkerTransfer(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		rowEnvelope
		WorkerName string `json:"worker_name"`
		Recipient  string `json:"recipient"`
		Amount     string `json:"amount"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(r.Context(), w, "invalid request body")
		return
	}
	projectID, date, reason, ok := parseEnvelope(req.rowEnvelope)
	if !ok {
		badRequest(r.Context(), w, reason)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		badRequest(r.Context(), w, "amount must be a decimal number")
		return
	}

	id, err := s.ledgers.RecordWorkerTransfer(r.Context(), projectID, date, ledger.WorkerTransferRow{
		WorkerName: sanitizeInput(req.WorkerName),
		Recipient:  sanitizeInput(req.Recipient),
		Amount:     amount,
		Notes:      sanitizeInput(req.Notes),
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	s.requestLog.LogTransactionRecorded(r.Context(), projectID, date.String(), id, string(ledger.KindWorkerTransfer), amount.String())
	respondJSON(r.Context(), w, http.StatusCreated, transactionCreated{ID: id, ProjectID: projectID, Date: date.String()})
}

func (s *Server) handleCreateMaterialPurchase(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		rowEnvelope
		MaterialName string `json:"material_name"`
		PurchaseType string `json:"purchase_type"`
		TotalAmount  string `json:"total_amount"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(r.Context(), w, "invalid request body")
		return
	}
	projectID, date, reason, ok := parseEnvelope(req.rowEnvelope)
	if !ok {
		badRequest(r.Context(), w, reason)
		return
	}
	amount, ok := parseAmount(req.TotalAmount)
	if !ok {
		badRequest(r.Context(), w, "total_amount must be a decimal number")
		return
	}

	id, err := s.ledgers.RecordMaterialPurchase(r.Context(), projectID, date, ledger.MaterialPurchaseRow{
		MaterialName: sanitizeInput(req.MaterialName),
		PurchaseType: ledger.PurchaseType(strings.TrimSpace(req.PurchaseType)),
		TotalAmount:  amount,
		Notes:        sanitizeInput(req.Notes),
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	kind := ledger.KindMaterialPurchaseCash
	if ledger.PurchaseType(strings.TrimSpace(req.PurchaseType)) == ledger.PurchaseDeferred {
		kind = ledger.KindMaterialPurchaseDeferred
	}
	s.requestLog.LogTransactionRecorded(r.Context(), projectID, date.String(), id, string(kind), amount.String())
	respondJSON(r.Context(), w, http.StatusCreated, transactionCreated{ID: id, ProjectID: projectID, Date: date.String()})
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
