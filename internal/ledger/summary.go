package ledger

import "github.com/shopspring/decimal"

// LedgerSummary reduces a daily ledger to the totals consumed by report
// exporters and dashboards. Deferred purchases are reported on their own line;
// they are part of neither income nor expense because they never moved cash.
type LedgerSummary struct {
	CarriedForward         decimal.Decimal `json:"carried_forward"`
	TotalIncome            decimal.Decimal `json:"total_income"`
	TotalExpense           decimal.Decimal `json:"total_expense"`
	TotalDeferredPurchases decimal.Decimal `json:"total_deferred_purchases"`
	RemainingBalance       decimal.Decimal `json:"remaining_balance"`
}

// Summarize computes the day's totals. Income excludes the synthesized
// carried-forward row; expense is the absolute sum of negative contributions.
func Summarize(day DailyLedger) LedgerSummary {
	s := LedgerSummary{
		CarriedForward:         day.OpeningBalance,
		TotalIncome:            decimal.Zero,
		TotalExpense:           decimal.Zero,
		TotalDeferredPurchases: decimal.Zero,
		RemainingBalance:       day.ClosingBalance,
	}
	for _, e := range day.Entries {
		switch {
		case e.Kind == KindCarriedForward:
			// Already reported as CarriedForward.
		case e.Kind == KindMaterialPurchaseDeferred:
			s.TotalDeferredPurchases = s.TotalDeferredPurchases.Add(e.Amount)
		case e.Kind.Sign() > 0:
			s.TotalIncome = s.TotalIncome.Add(e.Amount)
		case e.Kind.Sign() < 0:
			s.TotalExpense = s.TotalExpense.Add(e.Amount)
		}
	}
	return s
}
