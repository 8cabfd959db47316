package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"daftar/internal/ledger"
)

// SQLiteRepository implements Store on a local SQLite database. Amounts are
// stored as decimal strings and parsed on the way out, so no value ever
// passes through a float.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) FundTransfers(ctx context.Context, projectID string, date ledger.Date) ([]ledger.FundTransferRow, error) {
	const query = `SELECT id, sender, amount, notes FROM fund_transfers
		WHERE project_id = ? AND entry_date = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, projectID, date.String())
	if err != nil {
		return nil, fmt.Errorf("query fund transfers: %w", err)
	}
	defer rows.Close()

	var out []ledger.FundTransferRow
	for rows.Next() {
		var row ledger.FundTransferRow
		var amount string
		if err := rows.Scan(&row.ID, &row.Sender, &amount, &row.Notes); err != nil {
			return nil, fmt.Errorf("scan fund transfer: %w", err)
		}
		if row.Amount, err = parseAmount(row.ID, amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Attendance(ctx context.Context, projectID string, date ledger.Date) ([]ledger.AttendanceRow, error) {
	const query = `SELECT id, worker_name, work_days, paid_amount, notes FROM attendance
		WHERE project_id = ? AND entry_date = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, projectID, date.String())
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var out []ledger.AttendanceRow
	for rows.Next() {
		var row ledger.AttendanceRow
		var workDays, paid string
		if err := rows.Scan(&row.ID, &row.WorkerName, &workDays, &paid, &row.Notes); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		if row.WorkDays, err = parseAmount(row.ID, workDays); err != nil {
			return nil, err
		}
		if row.PaidAmount, err = parseAmount(row.ID, paid); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TransportExpenses(ctx context.Context, projectID string, date ledger.Date) ([]ledger.TransportRow, error) {
	const query = `SELECT id, description, amount, notes FROM transportation_expenses
		WHERE project_id = ? AND entry_date = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, projectID, date.String())
	if err != nil {
		return nil, fmt.Errorf("query transportation expenses: %w", err)
	}
	defer rows.Close()

	var out []ledger.TransportRow
	for rows.Next() {
		var row ledger.TransportRow
		var amount string
		if err := rows.Scan(&row.ID, &row.Description, &amount, &row.Notes); err != nil {
			return nil, fmt.Errorf("scan transportation expense: %w", err)
		}
		if row.Amount, err = parseAmount(row.ID, amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) WorkerTransfers(ctx context.Context, projectID string, date ledger.Date) ([]ledger.WorkerTransferRow, error) {
	const query = `SELECT id, worker_name, recipient, amount, notes FROM worker_transfers
		WHERE project_id = ? AND entry_date = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, projectID, date.String())
	if err != nil {
		return nil, fmt.Errorf("query worker transfers: %w", err)
	}
	defer rows.Close()

	var out []ledger.WorkerTransferRow
	for rows.Next() {
		var row ledger.WorkerTransferRow
		var amount string
		if err := rows.Scan(&row.ID, &row.WorkerName, &row.Recipient, &amount, &row.Notes); err != nil {
			return nil, fmt.Errorf("scan worker transfer: %w", err)
		}
		if row.Amount, err = parseAmount(row.ID, amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MaterialPurchases(ctx context.Context, projectID string, date ledger.Date) ([]ledger.MaterialPurchaseRow, error) {
	const query = `SELECT id, material_name, purchase_type, total_amount, notes FROM material_purchases
		WHERE project_id = ? AND entry_date = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, projectID, date.String())
	if err != nil {
		return nil, fmt.Errorf("query material purchases: %w", err)
	}
	defer rows.Close()

	var out []ledger.MaterialPurchaseRow
	for rows.Next() {
		var row ledger.MaterialPurchaseRow
		var purchaseType, total string
		if err := rows.Scan(&row.ID, &row.MaterialName, &purchaseType, &total, &row.Notes); err != nil {
			return nil, fmt.Errorf("scan material purchase: %w", err)
		}
		row.PurchaseType = ledger.PurchaseType(purchaseType)
		if row.TotalAmount, err = parseAmount(row.ID, total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Dates are stored as YYYY-MM-DD text, so MIN/MAX compare correctly.
const activityBoundsQuery = `SELECT %s(entry_date) FROM (
	SELECT entry_date FROM fund_transfers WHERE project_id = ?
	UNION ALL SELECT entry_date FROM attendance WHERE project_id = ?
	UNION ALL SELECT entry_date FROM transportation_expenses WHERE project_id = ?
	UNION ALL SELECT entry_date FROM worker_transfers WHERE project_id = ?
	UNION ALL SELECT entry_date FROM material_purchases WHERE project_id = ?
)`

func (r *SQLiteRepository) FirstTransactionDate(ctx context.Context, projectID string) (ledger.Date, bool, error) {
	return r.activityBound(ctx, projectID, "MIN")
}

func (r *SQLiteRepository) LastTransactionDate(ctx context.Context, projectID string) (ledger.Date, bool, error) {
	return r.activityBound(ctx, projectID, "MAX")
}

func (r *SQLiteRepository) activityBound(ctx context.Context, projectID, fn string) (ledger.Date, bool, error) {
	query := fmt.Sprintf(activityBoundsQuery, fn)

	var bound sql.NullString
	err := r.db.QueryRowContext(ctx, query, projectID, projectID, projectID, projectID, projectID).Scan(&bound)
	if err != nil {
		return ledger.Date{}, false, fmt.Errorf("query activity bound: %w", err)
	}
	if !bound.Valid || bound.String == "" {
		return ledger.Date{}, false, nil
	}
	date, err := ledger.ParseDate(bound.String)
	if err != nil {
		return ledger.Date{}, false, fmt.Errorf("parse activity bound: %w", err)
	}
	return date, true, nil
}

func (r *SQLiteRepository) AddFundTransfer(ctx context.Context, projectID string, date ledger.Date, row ledger.FundTransferRow) (string, error) {
	const query = `INSERT INTO fund_transfers (id, project_id, entry_date, sender, amount, notes)
		VALUES (?, ?, ?, ?, ?, ?)`

	id := rowID(row.ID)
	_, err := r.db.ExecContext(ctx, query, id, projectID, date.String(), row.Sender, row.Amount.String(), row.Notes)
	if err != nil {
		return "", fmt.Errorf("insert fund transfer: %w", err)
	}

	slog.InfoContext(ctx, "Fund transfer saved",
		"id", id, "project_id", projectID, "date", date.String(), "amount", row.Amount.String())
	return id, nil
}

func (r *SQLiteRepository) AddAttendance(ctx context.Context, projectID string, date ledger.Date, row ledger.AttendanceRow) (string, error) {
	const query = `INSERT INTO attendance (id, project_id, entry_date, worker_name, work_days, paid_amount, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	id := rowID(row.ID)
	_, err := r.db.ExecContext(ctx, query, id, projectID, date.String(),
		row.WorkerName, row.WorkDays.String(), row.PaidAmount.String(), row.Notes)
	if err != nil {
		return "", fmt.Errorf("insert attendance: %w", err)
	}

	slog.InfoContext(ctx, "Attendance saved",
		"id", id, "project_id", projectID, "date", date.String(),
		"worker", row.WorkerName, "paid_amount", row.PaidAmount.String())
	return id, nil
}

func (r *SQLiteRepository) AddTransportExpense(ctx context.Context, projectID string, date ledger.Date, row ledger.TransportRow) (string, error) {
	const query = `INSERT INTO transportation_expenses (id, project_id, entry_date, description, amount, notes)
		VALUES (?, ?, ?, ?, ?, ?)`

	id := rowID(row.ID)
	_, err := r.db.ExecContext(ctx, query, id, projectID, date.String(), row.Description, row.Amount.String(), row.Notes)
	if err != nil {
		return "", fmt.Errorf("insert transportation expense: %w", err)
	}

	slog.InfoContext(ctx, "Transportation expense saved",
		"id", id, "project_id", projectID, "date", date.String(), "amount", row.Amount.String())
	return id, nil
}

func (r *SQLiteRepository) AddWorkerTransfer(ctx context.Context, projectID string, date ledger.Date, row ledger.WorkerTransferRow) (string, error) {
	const query = `INSERT INTO worker_transfers (id, project_id, entry_date, worker_name, recipient, amount, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	id := rowID(row.ID)
	_, err := r.db.ExecContext(ctx, query, id, projectID, date.String(),
		row.WorkerName, row.Recipient, row.Amount.String(), row.Notes)
	if err != nil {
		return "", fmt.Errorf("insert worker transfer: %w", err)
	}

	slog.InfoContext(ctx, "Worker transfer saved",
		"id", id, "project_id", projectID, "date", date.String(), "amount", row.Amount.String())
	return id, nil
}

func (r *SQLiteRepository) AddMaterialPurchase(ctx context.Context, projectID string, date ledger.Date, row ledger.MaterialPurchaseRow) (string, error) {
	const query = `INSERT INTO material_purchases (id, project_id, entry_date, material_name, purchase_type, total_amount, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	id := rowID(row.ID)
	_, err := r.db.ExecContext(ctx, query, id, projectID, date.String(),
		row.MaterialName, string(row.PurchaseType), row.TotalAmount.String(), row.Notes)
	if err != nil {
		return "", fmt.Errorf("insert material purchase: %w", err)
	}

	slog.InfoContext(ctx, "Material purchase saved",
		"id", id, "project_id", projectID, "date", date.String(),
		"purchase_type", string(row.PurchaseType), "total_amount", row.TotalAmount.String())
	return id, nil
}

func (r *SQLiteRepository) ClosingBalance(ctx context.Context, projectID string, date ledger.Date) (decimal.Decimal, bool, error) {
	const query = `SELECT balance FROM closing_balances WHERE project_id = ? AND entry_date = ?`

	var balance string
	err := r.db.QueryRowContext(ctx, query, projectID, date.String()).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("query closing balance: %w", err)
	}

	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse closing balance %q: %w", balance, err)
	}
	return parsed, true, nil
}

func (r *SQLiteRepository) SaveClosingBalance(ctx context.Context, projectID string, date ledger.Date, balance decimal.Decimal) error {
	const query = `INSERT INTO closing_balances (project_id, entry_date, balance, computed_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (project_id, entry_date) DO UPDATE SET balance = excluded.balance, computed_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, projectID, date.String(), balance.String()); err != nil {
		return fmt.Errorf("save closing balance: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteClosingBalancesFrom(ctx context.Context, projectID string, from ledger.Date) error {
	const query = `DELETE FROM closing_balances WHERE project_id = ? AND entry_date >= ?`

	res, err := r.db.ExecContext(ctx, query, projectID, from.String())
	if err != nil {
		return fmt.Errorf("delete closing balances: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.InfoContext(ctx, "Closing balance snapshots invalidated",
			"project_id", projectID, "from", from.String(), "removed", n)
	}
	return nil
}

func rowID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func parseAmount(sourceID, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q (source %s): %w", raw, sourceID, err)
	}
	return d, nil
}
