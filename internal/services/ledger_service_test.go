package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"daftar/internal/cache"
	"daftar/internal/ledger"
	"daftar/internal/storage"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(store storage.Store) *LedgerService {
	balances := cache.NewLRUCache[decimal.Decimal](128, time.Minute)
	return NewLedgerService(store, balances, nil, 5*time.Second)
}

func seedDay(t *testing.T, store storage.Store, projectID string, date ledger.Date, transferAmount, wageAmount string) {
	t.Helper()
	ctx := context.Background()
	if transferAmount != "" {
		if _, err := store.AddFundTransfer(ctx, projectID, date, ledger.FundTransferRow{Amount: dec(transferAmount)}); err != nil {
			t.Fatalf("AddFundTransfer() error = %v", err)
		}
	}
	if wageAmount != "" {
		if _, err := store.AddAttendance(ctx, projectID, date, ledger.AttendanceRow{
			WorkerName: "Ahmad", WorkDays: dec("1"), PaidAmount: dec(wageAmount),
		}); err != nil {
			t.Fatalf("AddAttendance() error = %v", err)
		}
	}
}

func TestLedgerService_LedgerFor(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()
	day1 := ledger.NewDate(2024, 3, 10)

	seedDay(t, store, "p1", day1, "1000", "300")

	report, err := svc.LedgerFor(ctx, "p1", day1)
	if err != nil {
		t.Fatalf("LedgerFor() error = %v", err)
	}
	if !report.Ledger.OpeningBalance.IsZero() {
		t.Errorf("opening balance = %s, want 0", report.Ledger.OpeningBalance)
	}
	if !report.Ledger.ClosingBalance.Equal(dec("700")) {
		t.Errorf("closing balance = %s, want 700", report.Ledger.ClosingBalance)
	}
	if !report.Summary.TotalIncome.Equal(dec("1000")) {
		t.Errorf("total income = %s, want 1000", report.Summary.TotalIncome)
	}
	if !report.Summary.TotalExpense.Equal(dec("300")) {
		t.Errorf("total expense = %s, want 300", report.Summary.TotalExpense)
	}
}

func TestLedgerService_CarryForwardAcrossEmptyDay(t *testing.T) {
	// Day 1 closes at 750; day 2 has no transactions. Day 2 must still be a
	// ledger: opening 750, a single carried-forward row, closing 750.
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()
	day1 := ledger.NewDate(2024, 3, 10)
	day2 := day1.Next()

	seedDay(t, store, "p1", day1, "1000", "250")

	report, err := svc.LedgerFor(ctx, "p1", day2)
	if err != nil {
		t.Fatalf("LedgerFor() error = %v", err)
	}
	if !report.Ledger.OpeningBalance.Equal(dec("750")) {
		t.Errorf("day 2 opening = %s, want 750", report.Ledger.OpeningBalance)
	}
	if !report.Ledger.ClosingBalance.Equal(dec("750")) {
		t.Errorf("day 2 closing = %s, want 750", report.Ledger.ClosingBalance)
	}
	if len(report.Ledger.Entries) != 1 || report.Ledger.Entries[0].Kind != ledger.KindCarriedForward {
		t.Errorf("day 2 entries = %+v, want single carried-forward row", report.Ledger.Entries)
	}
}

func TestLedgerService_ChainOverGap(t *testing.T) {
	// Activity on day 1 and day 4 with two silent days between them: the
	// chain must walk every day, not skip the gap.
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()
	day1 := ledger.NewDate(2024, 3, 1)
	day4 := day1.AddDays(3)

	seedDay(t, store, "p1", day1, "500", "")
	seedDay(t, store, "p1", day4, "", "200")

	balance, err := svc.ClosingBalanceOf(ctx, "p1", day4)
	if err != nil {
		t.Fatalf("ClosingBalanceOf() error = %v", err)
	}
	if !balance.Equal(dec("300")) {
		t.Errorf("closing balance = %s, want 300", balance)
	}

	// Interior day of the gap is just the carried balance.
	mid, err := svc.ClosingBalanceOf(ctx, "p1", day1.AddDays(1))
	if err != nil {
		t.Fatalf("ClosingBalanceOf() error = %v", err)
	}
	if !mid.Equal(dec("500")) {
		t.Errorf("gap day balance = %s, want 500", mid)
	}
}

func TestLedgerService_CarryForwardChainingProperty(t *testing.T) {
	// closingBalanceOf(p, d) == build(closingBalanceOf(p, d-1), rows(p, d)).closing
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()
	start := ledger.NewDate(2024, 3, 1)

	seedDay(t, store, "p1", start, "1000", "100")
	seedDay(t, store, "p1", start.AddDays(1), "", "400")
	seedDay(t, store, "p1", start.AddDays(2), "250", "")

	for i := 0; i < 3; i++ {
		d := start.AddDays(i)
		prev, err := svc.ClosingBalanceOf(ctx, "p1", d.Prev())
		if err != nil {
			t.Fatalf("ClosingBalanceOf(%s) error = %v", d.Prev(), err)
		}
		report, err := svc.LedgerFor(ctx, "p1", d)
		if err != nil {
			t.Fatalf("LedgerFor(%s) error = %v", d, err)
		}
		chained, err := svc.ClosingBalanceOf(ctx, "p1", d)
		if err != nil {
			t.Fatalf("ClosingBalanceOf(%s) error = %v", d, err)
		}
		if !report.Ledger.OpeningBalance.Equal(prev) {
			t.Errorf("day %s opening = %s, want %s", d, report.Ledger.OpeningBalance, prev)
		}
		if !chained.Equal(report.Ledger.ClosingBalance) {
			t.Errorf("day %s chained closing = %s, built closing = %s",
				d, chained, report.Ledger.ClosingBalance)
		}
	}
}

func TestLedgerService_BeforeFirstActivity(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	seedDay(t, store, "p1", ledger.NewDate(2024, 3, 10), "500", "")

	balance, err := svc.ClosingBalanceOf(ctx, "p1", ledger.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("ClosingBalanceOf() error = %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance before first activity = %s, want 0", balance)
	}
}

func TestLedgerService_LedgerRange(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()
	start := ledger.NewDate(2024, 3, 1)

	seedDay(t, store, "p1", start, "1000", "")
	seedDay(t, store, "p1", start.AddDays(2), "", "300")

	reports, err := svc.LedgerRange(ctx, "p1", start, start.AddDays(2))
	if err != nil {
		t.Fatalf("LedgerRange() error = %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("LedgerRange() days = %d, want 3", len(reports))
	}

	wantClosing := []string{"1000", "1000", "700"}
	for i, want := range wantClosing {
		if !reports[i].Ledger.ClosingBalance.Equal(dec(want)) {
			t.Errorf("day %d closing = %s, want %s", i, reports[i].Ledger.ClosingBalance, want)
		}
	}

	// Each day's opening must equal the prior day's closing.
	for i := 1; i < len(reports); i++ {
		if !reports[i].Ledger.OpeningBalance.Equal(reports[i-1].Ledger.ClosingBalance) {
			t.Errorf("day %d opening = %s, prior closing = %s",
				i, reports[i].Ledger.OpeningBalance, reports[i-1].Ledger.ClosingBalance)
		}
	}
}

func TestLedgerService_LedgerRange_Validation(t *testing.T) {
	svc := newTestService(storage.NewMemoryStore())
	from := ledger.NewDate(2024, 3, 10)

	_, err := svc.LedgerRange(context.Background(), "p1", from, from.Prev())
	var verr *ledger.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("LedgerRange() error = %v, want ValidationError", err)
	}
}

func TestLedgerService_InvalidationRecomputes(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()
	day1 := ledger.NewDate(2024, 3, 10)
	day2 := day1.Next()

	seedDay(t, store, "p1", day1, "1000", "")
	if _, err := svc.ClosingBalanceOf(ctx, "p1", day2); err != nil {
		t.Fatalf("ClosingBalanceOf() error = %v", err)
	}

	// A late wage payment lands on day 1 through the service write path,
	// which invalidates day 1 onward.
	if _, err := svc.RecordAttendance(ctx, "p1", day1, ledger.AttendanceRow{
		WorkerName: "Samir", WorkDays: dec("1"), PaidAmount: dec("400"),
	}); err != nil {
		t.Fatalf("RecordAttendance() error = %v", err)
	}

	balance, err := svc.ClosingBalanceOf(ctx, "p1", day2)
	if err != nil {
		t.Fatalf("ClosingBalanceOf() error = %v", err)
	}
	if !balance.Equal(dec("600")) {
		t.Errorf("balance after invalidation = %s, want 600", balance)
	}
}

func TestLedgerService_WriteValidation(t *testing.T) {
	svc := newTestService(storage.NewMemoryStore())
	ctx := context.Background()
	date := ledger.NewDate(2024, 3, 10)

	tests := []struct {
		name string
		call func() (string, error)
	}{
		{
			name: "negative fund transfer",
			call: func() (string, error) {
				return svc.RecordFundTransfer(ctx, "p1", date, ledger.FundTransferRow{ID: "ft-bad", Amount: dec("-50")})
			},
		},
		{
			name: "zero transport expense",
			call: func() (string, error) {
				return svc.RecordTransportExpense(ctx, "p1", date, ledger.TransportRow{ID: "tr-bad", Amount: decimal.Zero})
			},
		},
		{
			name: "negative worker transfer",
			call: func() (string, error) {
				return svc.RecordWorkerTransfer(ctx, "p1", date, ledger.WorkerTransferRow{ID: "wt-bad", Amount: dec("-1")})
			},
		},
		{
			name: "unknown purchase type",
			call: func() (string, error) {
				return svc.RecordMaterialPurchase(ctx, "p1", date, ledger.MaterialPurchaseRow{
					ID: "mp-bad", PurchaseType: "installments", TotalAmount: dec("10"),
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call()
			var verr *ledger.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

// failingStore breaks one category fetch to prove the build is all-or-nothing.
type failingStore struct {
	*storage.MemoryStore
}

func (f *failingStore) Attendance(context.Context, string, ledger.Date) ([]ledger.AttendanceRow, error) {
	return nil, errors.New("storage offline")
}

func TestLedgerService_FetchFailureAbortsDay(t *testing.T) {
	mem := storage.NewMemoryStore()
	svc := newTestService(&failingStore{MemoryStore: mem})
	ctx := context.Background()
	date := ledger.NewDate(2024, 3, 10)

	seedDay(t, mem, "p1", date, "1000", "")

	_, err := svc.LedgerFor(ctx, "p1", date)
	var ferr *ledger.UpstreamFetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("LedgerFor() error = %v, want UpstreamFetchError", err)
	}
	if ferr.Category != "attendance" {
		t.Errorf("failed category = %s, want attendance", ferr.Category)
	}

	// The chain aborts too instead of substituting zero.
	if _, err := svc.ClosingBalanceOf(ctx, "p1", date); !errors.As(err, &ferr) {
		t.Errorf("ClosingBalanceOf() error = %v, want UpstreamFetchError", err)
	}
}
