package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PurchaseType distinguishes material purchases paid immediately from those
// bought on credit.
type PurchaseType string

const (
	PurchaseCash     PurchaseType = "cash"
	PurchaseDeferred PurchaseType = "deferred"
)

// Raw row shapes as the storage layer hands them over, one type per source
// table. Amounts are magnitudes; negative values are rejected, never flipped.
type (
	FundTransferRow struct {
		ID     string
		Sender string
		Amount decimal.Decimal
		Notes  string
	}

	AttendanceRow struct {
		ID         string
		WorkerName string
		WorkDays   decimal.Decimal
		PaidAmount decimal.Decimal
		Notes      string
	}

	TransportRow struct {
		ID          string
		Description string
		Amount      decimal.Decimal
		Notes       string
	}

	WorkerTransferRow struct {
		ID         string
		WorkerName string
		Recipient  string
		Amount     decimal.Decimal
		Notes      string
	}

	MaterialPurchaseRow struct {
		ID           string
		MaterialName string
		PurchaseType PurchaseType
		TotalAmount  decimal.Decimal
		Notes        string
	}
)

// RawTransactionSet groups the five raw category collections for exactly one
// project and one date, as returned by the storage layer's category fetches.
type RawTransactionSet struct {
	ProjectID         string
	Date              Date
	FundTransfers     []FundTransferRow
	Attendance        []AttendanceRow
	TransportExpenses []TransportRow
	WorkerTransfers   []WorkerTransferRow
	MaterialPurchases []MaterialPurchaseRow
}

// Normalize converts the raw category rows into uniform ledger entries.
//
// It is all-or-nothing: a single negative amount fails the whole call with a
// ValidationError carrying the offending source id, and no entries are
// returned. Attendance rows are emitted only when something was actually paid
// that day. The result preserves per-category input order; ordering across
// categories is the builder's job.
func Normalize(rows RawTransactionSet) ([]LedgerEntry, error) {
	entries := make([]LedgerEntry, 0,
		len(rows.FundTransfers)+len(rows.Attendance)+len(rows.TransportExpenses)+
			len(rows.WorkerTransfers)+len(rows.MaterialPurchases))

	for _, r := range rows.FundTransfers {
		if err := checkAmount(r.ID, "fund transfer amount", r.Amount); err != nil {
			return nil, err
		}
		entries = append(entries, LedgerEntry{
			Kind:       KindFundTransfer,
			Amount:     r.Amount,
			OccurredOn: rows.Date,
			Label:      r.Sender,
			Notes:      r.Notes,
			SourceID:   r.ID,
		})
	}

	for _, r := range rows.Attendance {
		if r.PaidAmount.IsNegative() {
			return nil, &ValidationError{SourceID: r.ID, Reason: "negative paid amount"}
		}
		// Attendance without payment is a presence record, not a ledger event.
		if !r.PaidAmount.IsPositive() {
			continue
		}
		entries = append(entries, LedgerEntry{
			Kind:       KindWorkerWage,
			Amount:     r.PaidAmount,
			OccurredOn: rows.Date,
			Label:      r.WorkerName,
			Notes:      r.Notes,
			SourceID:   r.ID,
		})
	}

	for _, r := range rows.TransportExpenses {
		if err := checkAmount(r.ID, "transport amount", r.Amount); err != nil {
			return nil, err
		}
		entries = append(entries, LedgerEntry{
			Kind:       KindTransport,
			Amount:     r.Amount,
			OccurredOn: rows.Date,
			Label:      r.Description,
			Notes:      r.Notes,
			SourceID:   r.ID,
		})
	}

	for _, r := range rows.WorkerTransfers {
		if err := checkAmount(r.ID, "worker transfer amount", r.Amount); err != nil {
			return nil, err
		}
		label := r.WorkerName
		if r.Recipient != "" {
			label = r.WorkerName + " / " + r.Recipient
		}
		entries = append(entries, LedgerEntry{
			Kind:       KindWorkerTransfer,
			Amount:     r.Amount,
			OccurredOn: rows.Date,
			Label:      label,
			Notes:      r.Notes,
			SourceID:   r.ID,
		})
	}

	for _, r := range rows.MaterialPurchases {
		if err := checkAmount(r.ID, "purchase total", r.TotalAmount); err != nil {
			return nil, err
		}
		var kind Kind
		switch r.PurchaseType {
		case PurchaseCash:
			kind = KindMaterialPurchaseCash
		case PurchaseDeferred:
			kind = KindMaterialPurchaseDeferred
		default:
			return nil, &ValidationError{
				SourceID: r.ID,
				Reason:   fmt.Sprintf("unknown purchase type %q", r.PurchaseType),
			}
		}
		entries = append(entries, LedgerEntry{
			Kind:       kind,
			Amount:     r.TotalAmount,
			OccurredOn: rows.Date,
			Label:      r.MaterialName,
			Notes:      r.Notes,
			SourceID:   r.ID,
		})
	}

	return entries, nil
}

func checkAmount(sourceID, what string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &ValidationError{SourceID: sourceID, Reason: "negative " + what}
	}
	return nil
}
