// Package storage persists the engine's immutable records (cash-flow
// transactions and receipts) to SQLite for audit and for the reporting sync
// worker. The engine itself is the in-memory source of truth; rows carry a
// sync status so the worker can find what still needs exporting.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scrapops/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states for persisted records.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// Record kinds used in sync messages and by the worker.
const (
	KindTransaction = "transaction"
	KindReceipt     = "receipt"
)

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

// SaveTransaction persists one cash-flow transaction in pending sync state.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.CashFlowTransaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cashflow_transactions
			(id, account_id, date, type, debit_cents, credit_cents, balance_cents,
			 transfer_ref, paid_to, received_from, document_no, description, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Date, string(t.Type),
		t.Debit.Cents, t.Credit.Cents, t.Balance.Cents,
		t.TransferRef, t.Reference.PaidTo, t.Reference.ReceivedFrom,
		t.Reference.DocumentNo, t.Reference.Description, SyncPending)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"account_id", t.AccountID,
		"type", t.Type,
		"balance_cents", t.Balance.Cents)
	return nil
}

// GetTransaction loads one persisted transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.CashFlowTransaction, error) {
	var t core.CashFlowTransaction
	var txType string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, date, type, debit_cents, credit_cents, balance_cents,
		       transfer_ref, paid_to, received_from, document_no, description
		FROM cashflow_transactions WHERE id = ?`, id).Scan(
		&t.ID, &t.AccountID, &t.Date, &txType,
		&t.Debit.Cents, &t.Credit.Cents, &t.Balance.Cents,
		&t.TransferRef, &t.Reference.PaidTo, &t.Reference.ReceivedFrom,
		&t.Reference.DocumentNo, &t.Reference.Description)
	if err != nil {
		return core.CashFlowTransaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	t.Type = core.TransactionType(txType)
	return t, nil
}

// SaveReceipt persists a receipt and its lines in one database transaction.
func (r *SQLiteRepository) SaveReceipt(ctx context.Context, rec core.Receipt) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts
			(receipt_type, receipt_number, date, payment_method,
			 subtotal_cents, vat_cents, total_cents, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Type), rec.Number, rec.Date, rec.PaymentMethod,
		rec.Subtotal.Cents, rec.TotalVAT.Cents, rec.Total.Cents, SyncPending)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	for _, line := range rec.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO receipt_lines
				(receipt_type, receipt_number, description, quantity,
				 unit_price_cents, amount_cents, vat_rate_bps, vat_amount_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(rec.Type), rec.Number, line.Description, line.Quantity,
			line.UnitPrice.Cents, line.Amount.Cents, line.VATRateBps, line.VATAmount.Cents)
		if err != nil {
			return fmt.Errorf("insert receipt line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receipt insert: %w", err)
	}

	slog.InfoContext(ctx, "Receipt saved",
		"type", rec.Type,
		"number", rec.Number,
		"total_cents", rec.Total.Cents,
		"lines", len(rec.Lines))
	return nil
}

// GetReceipt loads a receipt and its lines.
func (r *SQLiteRepository) GetReceipt(ctx context.Context, receiptType core.ReceiptType, number int64) (core.Receipt, error) {
	var rec core.Receipt
	var typ string
	err := r.db.QueryRowContext(ctx, `
		SELECT receipt_type, receipt_number, date, payment_method,
		       subtotal_cents, vat_cents, total_cents
		FROM receipts WHERE receipt_type = ? AND receipt_number = ?`,
		string(receiptType), number).Scan(
		&typ, &rec.Number, &rec.Date, &rec.PaymentMethod,
		&rec.Subtotal.Cents, &rec.TotalVAT.Cents, &rec.Total.Cents)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt %s/%d: %w", receiptType, number, err)
	}
	rec.Type = core.ReceiptType(typ)

	rows, err := r.db.QueryContext(ctx, `
		SELECT description, quantity, unit_price_cents, amount_cents, vat_rate_bps, vat_amount_cents
		FROM receipt_lines
		WHERE receipt_type = ? AND receipt_number = ?
		ORDER BY id`, string(receiptType), number)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt lines %s/%d: %w", receiptType, number, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line core.ReceiptLine
		if err := rows.Scan(&line.Description, &line.Quantity, &line.UnitPrice.Cents,
			&line.Amount.Cents, &line.VATRateBps, &line.VATAmount.Cents); err != nil {
			return core.Receipt{}, fmt.Errorf("scan receipt line: %w", err)
		}
		rec.Lines = append(rec.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return core.Receipt{}, fmt.Errorf("iterate receipt lines: %w", err)
	}
	return rec, nil
}

// LastReceiptNumber returns the highest issued number for a receipt type, or
// zero when none exist. Used to seed the generator counters on restart.
func (r *SQLiteRepository) LastReceiptNumber(ctx context.Context, receiptType core.ReceiptType) (int64, error) {
	var last sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(receipt_number) FROM receipts WHERE receipt_type = ?`,
		string(receiptType)).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("last receipt number for %s: %w", receiptType, err)
	}
	return last.Int64, nil
}

// PendingRecord identifies one persisted record awaiting export.
type PendingRecord struct {
	Kind      string // KindTransaction or KindReceipt
	ID        string // transaction id, or "<type>/<number>" for receipts
	CreatedAt time.Time
}

// GetPendingSync returns up to limit records still in pending state, oldest
// first. This feeds both the AMQP-driven path and the periodic catch-up scan.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, id, created_at FROM (
			SELECT ? AS kind, id, created_at FROM cashflow_transactions WHERE sync_status = ?
			UNION ALL
			SELECT ? AS kind, receipt_type || '/' || receipt_number AS id, created_at
			FROM receipts WHERE sync_status = ?
		) ORDER BY created_at LIMIT ?`,
		KindTransaction, SyncPending, KindReceipt, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending records: %w", err)
	}
	defer rows.Close()

	var out []PendingRecord
	for rows.Next() {
		var p PendingRecord
		if err := rows.Scan(&p.Kind, &p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending records: %w", err)
	}
	return out, nil
}

// MarkSynced marks one record as exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind, id string) error {
	if err := r.setSyncStatus(ctx, kind, id, SyncDone); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Record marked as synced", "kind", kind, "id", id)
	return nil
}

// MarkSyncError marks one record as failed so operators can spot it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind, id string) error {
	if err := r.setSyncStatus(ctx, kind, id, SyncError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Record marked with sync error", "kind", kind, "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, kind, id, status string) error {
	switch kind {
	case KindTransaction:
		_, err := r.db.ExecContext(ctx,
			`UPDATE cashflow_transactions SET sync_status = ? WHERE id = ?`, status, id)
		if err != nil {
			return fmt.Errorf("update transaction sync status: %w", err)
		}
		return nil
	case KindReceipt:
		receiptType, number, err := SplitReceiptID(id)
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx,
			`UPDATE receipts SET sync_status = ? WHERE receipt_type = ? AND receipt_number = ?`,
			status, receiptType, number)
		if err != nil {
			return fmt.Errorf("update receipt sync status: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported record kind: %s", kind)
	}
}

// ReceiptID builds the composite sync id for a receipt.
func ReceiptID(receiptType core.ReceiptType, number int64) string {
	return fmt.Sprintf("%s/%d", receiptType, number)
}

// SplitReceiptID parses a composite receipt sync id.
func SplitReceiptID(id string) (string, int64, error) {
	receiptType, numberStr, ok := strings.Cut(id, "/")
	if !ok || receiptType == "" {
		return "", 0, fmt.Errorf("invalid receipt id %q", id)
	}
	number, err := strconv.ParseInt(numberStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid receipt id %q", id)
	}
	return receiptType, number, nil
}
