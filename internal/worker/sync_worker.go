// Package worker exports persisted records (transactions and receipts) to the
// configured reporting backend. It consumes AMQP sync messages and also scans
// for pending rows so nothing is lost when messages are dropped.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"scrapops/internal/amqp"
	"scrapops/internal/core"
	"scrapops/internal/export"
	"scrapops/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	records   export.RecordExporter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, records export.RecordExporter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		records:   records,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single record sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"kind", msg.Kind,
		"id", msg.ID)

	if err := w.exportRecord(ctx, msg.Kind, msg.ID); err != nil {
		return fmt.Errorf("export %s %s: %w", msg.Kind, msg.ID, err)
	}
	return nil
}

// ProcessPendingRecords exports any records that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingRecords(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending records: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, p := range pending {
		if err := w.exportRecord(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync record",
				"kind", p.Kind, "id", p.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupSyncCheck exports any pending records at worker startup. This
// recovers from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending records for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.exportRecord(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync record during startup",
				"kind", p.Kind, "id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

// exportRecord loads one record from storage, appends it to the reporting
// backend, and advances its sync status.
func (w *SyncWorker) exportRecord(ctx context.Context, kind, id string) error {
	var exportErr error

	switch kind {
	case storage.KindTransaction:
		txn, err := w.storage.GetTransaction(ctx, id)
		if err != nil {
			w.markError(ctx, kind, id)
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		exportErr = w.records.AppendTransaction(ctx, txn)
	case storage.KindReceipt:
		receiptType, number, err := storage.SplitReceiptID(id)
		if err != nil {
			return err
		}
		rec, err := w.storage.GetReceipt(ctx, core.ReceiptType(receiptType), number)
		if err != nil {
			w.markError(ctx, kind, id)
			return fmt.Errorf("get receipt from storage: %w", err)
		}
		exportErr = w.records.AppendReceipt(ctx, rec)
	default:
		return fmt.Errorf("unsupported record kind: %s", kind)
	}

	if exportErr != nil {
		w.markError(ctx, kind, id)
		return exportErr
	}

	if err := w.storage.MarkSynced(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"kind", kind, "id", id, "error", err)
		// Don't return error here - the export actually worked
	}
	return nil
}

func (w *SyncWorker) markError(ctx context.Context, kind, id string) {
	if err := w.storage.MarkSyncError(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error",
			"kind", kind, "id", id, "error", err)
	}
}
