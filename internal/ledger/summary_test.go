package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSummarize(t *testing.T) {
	date := NewDate(2024, 3, 10)

	tests := []struct {
		name         string
		opening      decimal.Decimal
		entries      []LedgerEntry
		wantIncome   string
		wantExpense  string
		wantDeferred string
		wantRemain   string
	}{
		{
			name:    "mixed day",
			opening: dec("1000"),
			entries: []LedgerEntry{
				{Kind: KindFundTransfer, Amount: dec("500"), SourceID: "ft-1"},
				{Kind: KindWorkerWage, Amount: dec("300"), SourceID: "att-1"},
				{Kind: KindTransport, Amount: dec("50"), SourceID: "tr-1"},
				{Kind: KindMaterialPurchaseDeferred, Amount: dec("2000"), SourceID: "mp-1"},
			},
			wantIncome:   "500",
			wantExpense:  "350",
			wantDeferred: "2000",
			wantRemain:   "1150",
		},
		{
			name:         "carried forward is not income",
			opening:      dec("750"),
			entries:      nil,
			wantIncome:   "0",
			wantExpense:  "0",
			wantDeferred: "0",
			wantRemain:   "750",
		},
		{
			name:    "deferred only day",
			opening: decimal.Zero,
			entries: []LedgerEntry{
				{Kind: KindMaterialPurchaseDeferred, Amount: dec("2000"), SourceID: "mp-1"},
			},
			wantIncome:   "0",
			wantExpense:  "0",
			wantDeferred: "2000",
			wantRemain:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := Build("p1", date, tt.opening, tt.entries)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			got := Summarize(day)

			if !got.CarriedForward.Equal(tt.opening) {
				t.Errorf("carried forward = %s, want %s", got.CarriedForward, tt.opening)
			}
			if !got.TotalIncome.Equal(dec(tt.wantIncome)) {
				t.Errorf("total income = %s, want %s", got.TotalIncome, tt.wantIncome)
			}
			if !got.TotalExpense.Equal(dec(tt.wantExpense)) {
				t.Errorf("total expense = %s, want %s", got.TotalExpense, tt.wantExpense)
			}
			if !got.TotalDeferredPurchases.Equal(dec(tt.wantDeferred)) {
				t.Errorf("total deferred = %s, want %s", got.TotalDeferredPurchases, tt.wantDeferred)
			}
			if !got.RemainingBalance.Equal(dec(tt.wantRemain)) {
				t.Errorf("remaining = %s, want %s", got.RemainingBalance, tt.wantRemain)
			}
		})
	}
}

func TestSummarize_DeferredNeutrality(t *testing.T) {
	// Adding or removing deferred purchases never changes the closing balance.
	date := NewDate(2024, 3, 10)
	base := []LedgerEntry{
		{Kind: KindFundTransfer, Amount: dec("800"), SourceID: "ft-1"},
		{Kind: KindWorkerWage, Amount: dec("200"), SourceID: "att-1"},
	}
	withDeferred := append(append([]LedgerEntry{}, base...), LedgerEntry{
		Kind: KindMaterialPurchaseDeferred, Amount: dec("9999"), SourceID: "mp-1",
	})

	a, err := Build("p1", date, dec("100"), base)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, err := Build("p1", date, dec("100"), withDeferred)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !a.ClosingBalance.Equal(b.ClosingBalance) {
		t.Errorf("closing balance changed by deferred purchase: %s vs %s",
			a.ClosingBalance, b.ClosingBalance)
	}
}
