package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daftar/internal/ledger"
)

// MemoryStore is an in-memory Store used by tests and the memory backend.
// All rows are keyed by "projectID|date" and copied on the way out.
type MemoryStore struct {
	mu sync.RWMutex

	fundTransfers     map[string][]ledger.FundTransferRow
	attendance        map[string][]ledger.AttendanceRow
	transportExpenses map[string][]ledger.TransportRow
	workerTransfers   map[string][]ledger.WorkerTransferRow
	materialPurchases map[string][]ledger.MaterialPurchaseRow

	// activity tracks which dates have rows, per project.
	activity map[string]map[string]bool

	balances map[string]decimal.Decimal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fundTransfers:     make(map[string][]ledger.FundTransferRow),
		attendance:        make(map[string][]ledger.AttendanceRow),
		transportExpenses: make(map[string][]ledger.TransportRow),
		workerTransfers:   make(map[string][]ledger.WorkerTransferRow),
		materialPurchases: make(map[string][]ledger.MaterialPurchaseRow),
		activity:          make(map[string]map[string]bool),
		balances:          make(map[string]decimal.Decimal),
	}
}

func (s *MemoryStore) Close() error { return nil }

func key(projectID string, date ledger.Date) string {
	return projectID + "|" + date.String()
}

func (s *MemoryStore) FundTransfers(_ context.Context, projectID string, date ledger.Date) ([]ledger.FundTransferRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.fundTransfers[key(projectID, date)]), nil
}

func (s *MemoryStore) Attendance(_ context.Context, projectID string, date ledger.Date) ([]ledger.AttendanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.attendance[key(projectID, date)]), nil
}

func (s *MemoryStore) TransportExpenses(_ context.Context, projectID string, date ledger.Date) ([]ledger.TransportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.transportExpenses[key(projectID, date)]), nil
}

func (s *MemoryStore) WorkerTransfers(_ context.Context, projectID string, date ledger.Date) ([]ledger.WorkerTransferRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.workerTransfers[key(projectID, date)]), nil
}

func (s *MemoryStore) MaterialPurchases(_ context.Context, projectID string, date ledger.Date) ([]ledger.MaterialPurchaseRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRows(s.materialPurchases[key(projectID, date)]), nil
}

func (s *MemoryStore) FirstTransactionDate(_ context.Context, projectID string) (ledger.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activityBound(projectID, func(candidate, best string) bool { return candidate < best })
}

func (s *MemoryStore) LastTransactionDate(_ context.Context, projectID string) (ledger.Date, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activityBound(projectID, func(candidate, best string) bool { return candidate > best })
}

func (s *MemoryStore) activityBound(projectID string, better func(candidate, best string) bool) (ledger.Date, bool, error) {
	dates := s.activity[projectID]
	if len(dates) == 0 {
		return ledger.Date{}, false, nil
	}
	var best string
	for d := range dates {
		if best == "" || better(d, best) {
			best = d
		}
	}
	date, err := ledger.ParseDate(best)
	if err != nil {
		return ledger.Date{}, false, err
	}
	return date, true, nil
}

func (s *MemoryStore) AddFundTransfer(_ context.Context, projectID string, date ledger.Date, row ledger.FundTransferRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = memRowID(row.ID)
	s.fundTransfers[key(projectID, date)] = append(s.fundTransfers[key(projectID, date)], row)
	s.markActivity(projectID, date)
	return row.ID, nil
}

func (s *MemoryStore) AddAttendance(_ context.Context, projectID string, date ledger.Date, row ledger.AttendanceRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = memRowID(row.ID)
	s.attendance[key(projectID, date)] = append(s.attendance[key(projectID, date)], row)
	s.markActivity(projectID, date)
	return row.ID, nil
}

func (s *MemoryStore) AddTransportExpense(_ context.Context, projectID string, date ledger.Date, row ledger.TransportRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = memRowID(row.ID)
	s.transportExpenses[key(projectID, date)] = append(s.transportExpenses[key(projectID, date)], row)
	s.markActivity(projectID, date)
	return row.ID, nil
}

func (s *MemoryStore) AddWorkerTransfer(_ context.Context, projectID string, date ledger.Date, row ledger.WorkerTransferRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = memRowID(row.ID)
	s.workerTransfers[key(projectID, date)] = append(s.workerTransfers[key(projectID, date)], row)
	s.markActivity(projectID, date)
	return row.ID, nil
}

func (s *MemoryStore) AddMaterialPurchase(_ context.Context, projectID string, date ledger.Date, row ledger.MaterialPurchaseRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = memRowID(row.ID)
	s.materialPurchases[key(projectID, date)] = append(s.materialPurchases[key(projectID, date)], row)
	s.markActivity(projectID, date)
	return row.ID, nil
}

func (s *MemoryStore) ClosingBalance(_ context.Context, projectID string, date ledger.Date) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[key(projectID, date)]
	return balance, ok, nil
}

func (s *MemoryStore) SaveClosingBalance(_ context.Context, projectID string, date ledger.Date, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[key(projectID, date)] = balance
	return nil
}

func (s *MemoryStore) DeleteClosingBalancesFrom(_ context.Context, projectID string, from ledger.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := projectID + "|"
	cutoff := from.String()
	for k := range s.balances {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix && k[len(prefix):] >= cutoff {
			delete(s.balances, k)
		}
	}
	return nil
}

func (s *MemoryStore) markActivity(projectID string, date ledger.Date) {
	if s.activity[projectID] == nil {
		s.activity[projectID] = make(map[string]bool)
	}
	s.activity[projectID][date.String()] = true
}

func memRowID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func copyRows[T any](rows []T) []T {
	if rows == nil {
		return nil
	}
	out := make([]T, len(rows))
	copy(out, rows)
	return out
}
