// Package services orchestrates the ledger engine over storage, cache and
// messaging: it fetches a day's raw rows, chains opening balances across
// days, and fans out change notifications on writes.
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"daftar/internal/cache"
	"daftar/internal/ledger"
	"daftar/internal/storage"
)

// ChangePublisher notifies other processes that a project's transactions
// changed on a given date. Implementations may be nil-free no-ops; the AMQP
// client is the production one.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, projectID string, date ledger.Date, sourceID string) error
}

// DayReport bundles a built ledger with its summary, the unit consumed by
// report endpoints.
type DayReport struct {
	Ledger  ledger.DailyLedger   `json:"ledger"`
	Summary ledger.LedgerSummary `json:"summary"`
}

// LedgerService builds daily ledgers on demand. Ledgers are pure recomputed
// views; the only shared mutable state is the closing-balance memo, which is
// keyed by project and date and invalidated at-or-after any changed date.
type LedgerService struct {
	store        storage.Store
	balances     *cache.LRUCache[decimal.Decimal]
	publisher    ChangePublisher
	fetchTimeout time.Duration
}

func NewLedgerService(store storage.Store, balances *cache.LRUCache[decimal.Decimal], publisher ChangePublisher, fetchTimeout time.Duration) *LedgerService {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	if balances == nil {
		balances = cache.NewLRUCache[decimal.Decimal](1024, 10*time.Minute)
	}
	return &LedgerService{
		store:        store,
		balances:     balances,
		publisher:    publisher,
		fetchTimeout: fetchTimeout,
	}
}

func balanceKey(projectID string, date ledger.Date) string {
	return projectID + "|" + date.String()
}

// fetchDay gathers all five category fetches concurrently. It is a join, not
// a race: any failure or cancellation aborts the whole set, so the builder is
// never invoked with partial data.
func (s *LedgerService) fetchDay(ctx context.Context, projectID string, date ledger.Date) (ledger.RawTransactionSet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	rows := ledger.RawTransactionSet{ProjectID: projectID, Date: date}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.store.FundTransfers(gctx, projectID, date)
		if err != nil {
			return &ledger.UpstreamFetchError{Category: "fund transfers", Err: err}
		}
		rows.FundTransfers = out
		return nil
	})
	g.Go(func() error {
		out, err := s.store.Attendance(gctx, projectID, date)
		if err != nil {
			return &ledger.UpstreamFetchError{Category: "attendance", Err: err}
		}
		rows.Attendance = out
		return nil
	})
	g.Go(func() error {
		out, err := s.store.TransportExpenses(gctx, projectID, date)
		if err != nil {
			return &ledger.UpstreamFetchError{Category: "transportation expenses", Err: err}
		}
		rows.TransportExpenses = out
		return nil
	})
	g.Go(func() error {
		out, err := s.store.WorkerTransfers(gctx, projectID, date)
		if err != nil {
			return &ledger.UpstreamFetchError{Category: "worker transfers", Err: err}
		}
		rows.WorkerTransfers = out
		return nil
	})
	g.Go(func() error {
		out, err := s.store.MaterialPurchases(gctx, projectID, date)
		if err != nil {
			return &ledger.UpstreamFetchError{Category: "material purchases", Err: err}
		}
		rows.MaterialPurchases = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return ledger.RawTransactionSet{}, err
	}
	return rows, nil
}

// buildDay recomputes one day's ledger from scratch: fetch, normalize, build.
func (s *LedgerService) buildDay(ctx context.Context, projectID string, date ledger.Date, opening decimal.Decimal) (ledger.DailyLedger, error) {
	rows, err := s.fetchDay(ctx, projectID, date)
	if err != nil {
		return ledger.DailyLedger{}, err
	}
	entries, err := ledger.Normalize(rows)
	if err != nil {
		return ledger.DailyLedger{}, err
	}
	return ledger.Build(projectID, date, opening, entries)
}

// cachedClosing consults the in-process LRU first, then the persisted
// snapshots, promoting snapshot hits into the LRU.
func (s *LedgerService) cachedClosing(ctx context.Context, projectID string, date ledger.Date) (decimal.Decimal, bool) {
	key := balanceKey(projectID, date)
	if balance, found := s.balances.Get(key); found {
		return balance, true
	}
	balance, found, err := s.store.ClosingBalance(ctx, projectID, date)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot lookup failed, recomputing",
			"project_id", projectID, "date", date.String(), "error", err)
		return decimal.Zero, false
	}
	if found {
		s.balances.Set(key, balance)
	}
	return balance, found
}

func (s *LedgerService) memoize(ctx context.Context, projectID string, date ledger.Date, balance decimal.Decimal) {
	s.balances.Set(balanceKey(projectID, date), balance)
	// Snapshot persistence is an optimization; a failed save only costs a
	// future recompute.
	if err := s.store.SaveClosingBalance(ctx, projectID, date, balance); err != nil {
		slog.WarnContext(ctx, "Failed to persist closing balance snapshot",
			"project_id", projectID, "date", date.String(), "error", err)
	}
}

// ClosingBalanceOf resolves the project's closing balance for a date by
// chaining day ledgers forward from the nearest memoized balance (or from
// the day before the project's first recorded transaction, where the chain
// bottoms out at zero). Days without transactions are still built: their
// ledgers are empty and closing equals opening, but skipping them would break
// the chain.
func (s *LedgerService) ClosingBalanceOf(ctx context.Context, projectID string, date ledger.Date) (decimal.Decimal, error) {
	if balance, found := s.cachedClosing(ctx, projectID, date); found {
		return balance, nil
	}

	first, active, err := s.store.FirstTransactionDate(ctx, projectID)
	if err != nil {
		return decimal.Zero, &ledger.UpstreamFetchError{Category: "activity bounds", Err: err}
	}
	if !active || date.Before(first) {
		return decimal.Zero, nil
	}

	// Walk back to the nearest anchor, then replay forward.
	var pending []ledger.Date
	opening := decimal.Zero
	for d := date; !d.Before(first); d = d.Prev() {
		if balance, found := s.cachedClosing(ctx, projectID, d); found {
			opening = balance
			break
		}
		pending = append(pending, d)
	}

	for i := len(pending) - 1; i >= 0; i-- {
		day, err := s.buildDay(ctx, projectID, pending[i], opening)
		if err != nil {
			// A missing link must not silently appear as "no debt".
			return decimal.Zero, err
		}
		opening = day.ClosingBalance
		s.memoize(ctx, projectID, pending[i], opening)
	}
	return opening, nil
}

// LedgerFor builds the full daily ledger and its summary for one project day.
// The requested day is always recomputed; only the chain behind it is served
// from the memo.
func (s *LedgerService) LedgerFor(ctx context.Context, projectID string, date ledger.Date) (DayReport, error) {
	opening, err := s.ClosingBalanceOf(ctx, projectID, date.Prev())
	if err != nil {
		return DayReport{}, err
	}
	day, err := s.buildDay(ctx, projectID, date, opening)
	if err != nil {
		return DayReport{}, err
	}
	s.memoize(ctx, projectID, date, day.ClosingBalance)
	return DayReport{Ledger: day, Summary: ledger.Summarize(day)}, nil
}

// maxRangeDays caps range reports at roughly one year per request.
const maxRangeDays = 366

// LedgerRange builds every day from from to to inclusive, chaining balances
// across the whole span.
func (s *LedgerService) LedgerRange(ctx context.Context, projectID string, from, to ledger.Date) ([]DayReport, error) {
	if to.Before(from) {
		return nil, &ledger.ValidationError{Reason: "range end precedes start"}
	}

	opening, err := s.ClosingBalanceOf(ctx, projectID, from.Prev())
	if err != nil {
		return nil, err
	}

	var reports []DayReport
	for d, n := from, 0; !d.After(to); d, n = d.Next(), n+1 {
		if n >= maxRangeDays {
			return nil, &ledger.ValidationError{Reason: "range exceeds one year"}
		}
		day, err := s.buildDay(ctx, projectID, d, opening)
		if err != nil {
			return nil, err
		}
		s.memoize(ctx, projectID, d, day.ClosingBalance)
		reports = append(reports, DayReport{Ledger: day, Summary: ledger.Summarize(day)})
		opening = day.ClosingBalance
	}
	return reports, nil
}

// Invalidate drops every memoized closing balance for the project at or after
// the date, in both the in-process cache and the persisted snapshots.
func (s *LedgerService) Invalidate(ctx context.Context, projectID string, from ledger.Date) error {
	prefix := projectID + "|"
	cutoff := from.String()
	removed := s.balances.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix) && key[len(prefix):] >= cutoff
	})
	if removed > 0 {
		slog.DebugContext(ctx, "Balance cache invalidated",
			"project_id", projectID, "from", cutoff, "removed", removed)
	}
	return s.store.DeleteClosingBalancesFrom(ctx, projectID, from)
}

// Write paths. Each saves the raw row, invalidates the chain from that date
// on, and publishes a change event. Publishing is best effort: the row is
// already durable, so a broker hiccup must not fail the request.

func (s *LedgerService) RecordFundTransfer(ctx context.Context, projectID string, date ledger.Date, row ledger.FundTransferRow) (string, error) {
	if err := requirePositive(row.ID, "amount", row.Amount); err != nil {
		return "", err
	}
	id, err := s.store.AddFundTransfer(ctx, projectID, date, row)
	if err != nil {
		return "", err
	}
	s.afterWrite(ctx, projectID, date, id)
	return id, nil
}

func (s *LedgerService) RecordAttendance(ctx context.Context, projectID string, date ledger.Date, row ledger.AttendanceRow) (string, error) {
	if row.PaidAmount.IsNegative() {
		return "", &ledger.ValidationError{SourceID: row.ID, Reason: "negative paid amount"}
	}
	if row.WorkDays.IsNegative() {
		return "", &ledger.ValidationError{SourceID: row.ID, Reason: "negative work days"}
	}
	id, err := s.store.AddAttendance(ctx, projectID, date, row)
	if err != nil {
		return "", err
	}
	s.afterWrite(ctx, projectID, date, id)
	return id, nil
}

func (s *LedgerService) RecordTransportExpense(ctx context.Context, projectID string, date ledger.Date, row ledger.TransportRow) (string, error) {
	if err := requirePositive(row.ID, "amount", row.Amount); err != nil {
		return "", err
	}
	id, err := s.store.AddTransportExpense(ctx, projectID, date, row)
	if err != nil {
		return "", err
	}
	s.afterWrite(ctx, projectID, date, id)
	return id, nil
}

func (s *LedgerService) RecordWorkerTransfer(ctx context.Context, projectID string, date ledger.Date, row ledger.WorkerTransferRow) (string, error) {
	if err := requirePositive(row.ID, "amount", row.Amount); err != nil {
		return "", err
	}
	id, err := s.store.AddWorkerTransfer(ctx, projectID, date, row)
	if err != nil {
		return "", err
	}
	s.afterWrite(ctx, projectID, date, id)
	return id, nil
}

func (s *LedgerService) RecordMaterialPurchase(ctx context.Context, projectID string, date ledger.Date, row ledger.MaterialPurchaseRow) (string, error) {
	if row.PurchaseType != ledger.PurchaseCash && row.PurchaseType != ledger.PurchaseDeferred {
		return "", &ledger.ValidationError{SourceID: row.ID, Reason: "unknown purchase type"}
	}
	if err := requirePositive(row.ID, "total amount", row.TotalAmount); err != nil {
		return "", err
	}
	id, err := s.store.AddMaterialPurchase(ctx, projectID, date, row)
	if err != nil {
		return "", err
	}
	s.afterWrite(ctx, projectID, date, id)
	return id, nil
}

func (s *LedgerService) afterWrite(ctx context.Context, projectID string, date ledger.Date, sourceID string) {
	if err := s.Invalidate(ctx, projectID, date); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate balances after write",
			"project_id", projectID, "date", date.String(), "error", err)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, projectID, date, sourceID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"project_id", projectID, "date", date.String(), "source_id", sourceID, "error", err)
	}
}

func requirePositive(sourceID, what string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ledger.ValidationError{SourceID: sourceID, Reason: what + " must be positive"}
	}
	return nil
}
