package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"daftar/internal/services"
	"daftar/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	svc := services.NewLedgerService(store, nil, nil, 0)
	return NewServer(":0", svc), store
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.rateLimiter.stop()

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestCreateFundTransferAndGetLedger(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.rateLimiter.stop()

	body := `{"project_id":"villa","date":"2024-03-01","sender":"Owner","amount":"1000.00"}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/fund-transfers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201, body %s", rr.Code, rr.Body.String())
	}

	var created transactionCreated
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("create response missing id")
	}
	if created.Date != "2024-03-01" {
		t.Fatalf("create response date = %q, want 2024-03-01", created.Date)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/ledger?project_id=villa&date=2024-03-01", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get ledger status = %d, want 200, body %s", rr.Code, rr.Body.String())
	}

	var report services.DayReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode ledger response: %v", err)
	}
	if got := report.Ledger.ClosingBalance.String(); got != "1000" {
		t.Fatalf("closing balance = %s, want 1000", got)
	}
	if len(report.Ledger.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(report.Ledger.Entries))
	}
}

func TestCreateRejectsInvalidAmount(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.rateLimiter.stop()

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "non-numeric amount",
			body: `{"project_id":"villa","date":"2024-03-01","sender":"Owner","amount":"abc"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "negative amount",
			body: `{"project_id":"villa","date":"2024-03-01","sender":"Owner","amount":"-5"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "zero amount",
			body: `{"project_id":"villa","date":"2024-03-01","sender":"Owner","amount":"0"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "missing project",
			body: `{"date":"2024-03-01","sender":"Owner","amount":"5"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "bad date",
			body: `{"project_id":"villa","date":"03/01/2024","sender":"Owner","amount":"5"}`,
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/fund-transfers", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			srv.Handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestCreateMaterialPurchaseRejectsUnknownType(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.rateLimiter.stop()

	body := `{"project_id":"villa","date":"2024-03-01","material_name":"cement","purchase_type":"installments","total_amount":"100"}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/material-purchases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rr.Code, rr.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("error response missing reason")
	}
}

func TestGetLedgerValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.rateLimiter.stop()

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "missing project", target: "/api/ledger?date=2024-03-01", want: http.StatusBadRequest},
		{name: "missing date", target: "/api/ledger?project_id=villa", want: http.StatusBadRequest},
		{name: "bad date", target: "/api/ledger?project_id=villa&date=yesterday", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			srv.Handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestGetLedgerRange(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.rateLimiter.stop()

	post := func(path, body string) {
		t.Helper()
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
		}
	}

	post("/api/fund-transfers", `{"project_id":"villa","date":"2024-03-01","sender":"Owner","amount":"1000"}`)
	post("/api/attendance", `{"project_id":"villa","date":"2024-03-03","worker_name":"Ali","work_days":"1","paid_amount":"300"}`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ledger/range?project_id=villa&from=2024-03-01&to=2024-03-03", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("range status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ProjectID string               `json:"project_id"`
		Days      []services.DayReport `json:"days"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode range response: %v", err)
	}
	if len(resp.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(resp.Days))
	}
	// The empty middle day still carries the balance forward.
	if got := resp.Days[1].Ledger.ClosingBalance.String(); got != "1000" {
		t.Fatalf("middle day closing = %s, want 1000", got)
	}
	if got := resp.Days[2].Ledger.ClosingBalance.String(); got != "700" {
		t.Fatalf("last day closing = %s, want 700", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.rateLimiter.stop()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ledger?project_id=villa&date=2024-03-01", nil)
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	metrics := &securityMetrics{}
	for i := 0; i < 60; i++ {
		if !rl.allow("10.1.2.3", metrics) {
			t.Fatalf("request %d unexpectedly blocked", i+1)
		}
	}
	if rl.allow("10.1.2.3", metrics) {
		t.Fatal("request 61 should have been blocked")
	}
	// Other clients are unaffected.
	if !rl.allow("10.4.5.6", metrics) {
		t.Fatal("separate client should be allowed")
	}
}
