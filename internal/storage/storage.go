// Package storage is the upstream collaborator of the ledger engine: it holds
// the raw per-category transaction rows and the persisted closing-balance
// snapshots the carry-forward chain anchors on.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"daftar/internal/ledger"
)

var ErrNotFound = errors.New("not found")

// TransactionSource exposes the five per-project per-date category fetches
// plus the activity bounds the carry-forward chain needs.
type TransactionSource interface {
	FundTransfers(ctx context.Context, projectID string, date ledger.Date) ([]ledger.FundTransferRow, error)
	Attendance(ctx context.Context, projectID string, date ledger.Date) ([]ledger.AttendanceRow, error)
	TransportExpenses(ctx context.Context, projectID string, date ledger.Date) ([]ledger.TransportRow, error)
	WorkerTransfers(ctx context.Context, projectID string, date ledger.Date) ([]ledger.WorkerTransferRow, error)
	MaterialPurchases(ctx context.Context, projectID string, date ledger.Date) ([]ledger.MaterialPurchaseRow, error)

	// FirstTransactionDate returns the earliest date with any activity for
	// the project; ok is false when the project has no transactions at all.
	FirstTransactionDate(ctx context.Context, projectID string) (date ledger.Date, ok bool, err error)

	// LastTransactionDate returns the latest date with any activity.
	LastTransactionDate(ctx context.Context, projectID string) (date ledger.Date, ok bool, err error)
}

// TransactionWriter appends raw rows. Row IDs are assigned by the store when
// empty; the assigned id is returned.
type TransactionWriter interface {
	AddFundTransfer(ctx context.Context, projectID string, date ledger.Date, row ledger.FundTransferRow) (string, error)
	AddAttendance(ctx context.Context, projectID string, date ledger.Date, row ledger.AttendanceRow) (string, error)
	AddTransportExpense(ctx context.Context, projectID string, date ledger.Date, row ledger.TransportRow) (string, error)
	AddWorkerTransfer(ctx context.Context, projectID string, date ledger.Date, row ledger.WorkerTransferRow) (string, error)
	AddMaterialPurchase(ctx context.Context, projectID string, date ledger.Date, row ledger.MaterialPurchaseRow) (string, error)
}

// SnapshotStore persists computed closing balances so a cold process can
// anchor the carry-forward chain without replaying a project's full history.
type SnapshotStore interface {
	ClosingBalance(ctx context.Context, projectID string, date ledger.Date) (balance decimal.Decimal, ok bool, err error)
	SaveClosingBalance(ctx context.Context, projectID string, date ledger.Date, balance decimal.Decimal) error

	// DeleteClosingBalancesFrom drops every snapshot at or after the date;
	// called whenever an underlying transaction on or before a cached day
	// changes.
	DeleteClosingBalancesFrom(ctx context.Context, projectID string, from ledger.Date) error
}

// Store is the full storage surface the service and worker run against.
type Store interface {
	TransactionSource
	TransactionWriter
	SnapshotStore
	Close() error
}
