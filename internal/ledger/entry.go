// Package ledger implements the daily ledger reconciliation engine: it merges
// the raw per-category transaction rows of a construction project into a
// single ordered, running-balance ledger per day, and chains balances across
// days through the carry-forward services built on top of it.
//
// Everything in this package is a pure computation over values fetched by the
// caller; storage and transport live elsewhere.
package ledger

import (
	"github.com/shopspring/decimal"
)

// Kind tags the origin of a ledger entry. The kind alone determines how an
// entry contributes to the running balance.
type Kind string

const (
	KindCarriedForward           Kind = "carried_forward"
	KindFundTransfer             Kind = "fund_transfer"
	KindWorkerWage               Kind = "worker_wage"
	KindTransport                Kind = "transport"
	KindWorkerTransfer           Kind = "worker_transfer"
	KindMaterialPurchaseCash     Kind = "material_purchase_cash"
	KindMaterialPurchaseDeferred Kind = "material_purchase_deferred"
)

// bucketOrder fixes the display order of a daily ledger. Adding a new kind is
// a one-line edit here; the builder sorts by this table only, never by amount
// or label. Cash and deferred purchases share a bucket so they interleave in
// their original input order.
var bucketOrder = map[Kind]int{
	KindCarriedForward:           0,
	KindFundTransfer:             1,
	KindWorkerWage:               2,
	KindTransport:                3,
	KindWorkerTransfer:           4,
	KindMaterialPurchaseCash:     5,
	KindMaterialPurchaseDeferred: 5,
}

// signs maps a kind to its balance contribution sign. Deferred purchases are
// recorded for visibility but never touch the cash balance.
var signs = map[Kind]int{
	KindCarriedForward:           1,
	KindFundTransfer:             1,
	KindWorkerWage:               -1,
	KindTransport:                -1,
	KindWorkerTransfer:           -1,
	KindMaterialPurchaseCash:     -1,
	KindMaterialPurchaseDeferred: 0,
}

// IsValid reports whether the kind is one of the known variants.
func (k Kind) IsValid() bool {
	_, ok := bucketOrder[k]
	return ok
}

// Sign returns +1, -1 or 0 depending on how entries of this kind contribute
// to the running balance.
func (k Kind) Sign() int {
	return signs[k]
}

// LedgerEntry is one financial event on one project day. Entries are
// immutable; amounts are always stored positive with the sign carried by the
// kind. The only exception is the synthesized carried-forward row, whose
// amount mirrors the prior day's closing balance and may be negative.
type LedgerEntry struct {
	Kind       Kind            `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredOn Date            `json:"occurred_on"`
	Label      string          `json:"label"`
	Notes      string          `json:"notes,omitempty"`
	SourceID   string          `json:"source_id"`
}

// Contribution returns the signed amount this entry adds to the running
// balance.
func (e LedgerEntry) Contribution() decimal.Decimal {
	switch e.Kind.Sign() {
	case 1:
		return e.Amount
	case -1:
		return e.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// BalancedEntry pairs a ledger entry with the running balance after it.
type BalancedEntry struct {
	LedgerEntry
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// DailyLedger is the ordered, balance-annotated list of financial events for
// one project on one day. It is derived on demand and never mutated; a change
// to the underlying rows means the ledger is recomputed, not patched.
type DailyLedger struct {
	ProjectID      string          `json:"project_id"`
	Date           Date            `json:"date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Entries        []BalancedEntry `json:"entries"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}
