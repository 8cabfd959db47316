package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Build orders the normalized entries deterministically, computes the running
// balance and produces the day's ledger.
//
// Ordering is a stable sort on the bucket table alone: carried-forward, fund
// transfers, wages, transport, worker transfers, then purchases (cash and
// deferred interleaved in input order). Input order within a bucket is
// preserved regardless of the order the entries arrive in, so two calls with
// the same inputs yield identical ledgers.
//
// When the opening balance is non-zero a carried-forward row is synthesized
// as the first entry; a zero opening balance adds no row.
func Build(projectID string, date Date, opening decimal.Decimal, entries []LedgerEntry) (DailyLedger, error) {
	for _, e := range entries {
		if !e.Kind.IsValid() {
			return DailyLedger{}, &InvariantViolation{
				Reason: fmt.Sprintf("unknown entry kind %q (source %s)", e.Kind, e.SourceID),
			}
		}
		if e.Kind == KindCarriedForward {
			return DailyLedger{}, &InvariantViolation{
				Reason: "carried-forward entries are synthesized, not supplied",
			}
		}
		if e.Amount.IsNegative() {
			return DailyLedger{}, &InvariantViolation{
				Reason: fmt.Sprintf("negative amount %s (source %s)", e.Amount, e.SourceID),
			}
		}
	}

	ordered := make([]LedgerEntry, 0, len(entries)+1)
	if !opening.IsZero() {
		// The synthesized row mirrors the prior day's closing balance, which
		// may legitimately be negative.
		ordered = append(ordered, LedgerEntry{
			Kind:       KindCarriedForward,
			Amount:     opening,
			OccurredOn: date,
			Label:      "carried forward",
		})
	}
	ordered = append(ordered, entries...)

	sort.SliceStable(ordered, func(i, j int) bool {
		return bucketOrder[ordered[i].Kind] < bucketOrder[ordered[j].Kind]
	})

	day := DailyLedger{
		ProjectID:      projectID,
		Date:           date,
		OpeningBalance: opening,
		Entries:        make([]BalancedEntry, 0, len(ordered)),
	}

	// Single pass. The walk starts at zero: when a carried-forward row is
	// present it contributes the whole opening balance as the first entry,
	// and when it is absent the opening balance is zero anyway.
	running := decimal.Zero
	for _, e := range ordered {
		running = running.Add(e.Contribution())
		day.Entries = append(day.Entries, BalancedEntry{LedgerEntry: e, BalanceAfter: running})
	}
	day.ClosingBalance = running
	return day, nil
}
