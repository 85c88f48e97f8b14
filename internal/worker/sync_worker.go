package worker

import (
	"context"
	"fmt"
	"log/slog"

	"renda/internal/amqp"
	"renda/internal/core"
	"renda/internal/sheets"
	"renda/internal/storage"
)

// Storage is the slice of the repository the worker needs: load a
// verification, find unexported ones and record export outcomes.
type Storage interface {
	Get(ctx context.Context, id string) (core.IncomeVerification, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker exports verifications from SQLite to the spreadsheet. It is
// driven by AMQP messages, with a periodic pending scan as backup for lost
// messages.
type SyncWorker struct {
	storage   Storage
	exporter  sheets.VerificationExporter
	batchSize int
}

func NewSyncWorker(storage Storage, exporter sheets.VerificationExporter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches a single AMQP message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.VerificationSyncMessage) error {
	switch msg.Action {
	case amqp.ActionSync:
		return w.syncVerification(ctx, msg.ID)
	case amqp.ActionDelete:
		return w.handleDelete(ctx, msg.ID)
	default:
		return fmt.Errorf("unknown message action %q", msg.Action)
	}
}

func (w *SyncWorker) syncVerification(ctx context.Context, id string) error {
	v, err := w.storage.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get verification from storage: %w", err)
	}
	return w.export(ctx, v)
}

func (w *SyncWorker) handleDelete(ctx context.Context, id string) error {
	slog.InfoContext(ctx, "Removing verification from spreadsheet", "id", id)
	if err := w.exporter.RemoveVerification(ctx, id); err != nil {
		return fmt.Errorf("remove verification from spreadsheet: %w", err)
	}
	return nil
}

// ProcessPending exports verifications that never got a message through,
// up to the configured batch size.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize)
}

// StartupSyncCheck recovers from missed messages or worker downtime with a
// larger batch than the periodic pass.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPendingBatch(ctx context.Context, limit int) error {
	pending, err := w.storage.GetPendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending verifications: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending verifications", "count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		v, err := w.storage.Get(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending verification", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			failed++
			continue
		}
		if err := w.export(ctx, v); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending verification", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sync pass completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) export(ctx context.Context, v core.IncomeVerification) error {
	summary := core.Summary(v)
	rows := core.ValidRows(v)

	if err := w.exporter.ExportVerification(ctx, summary, rows); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, v.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", v.ID, "error", markErr)
		}
		return fmt.Errorf("export verification: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, v.ID); err != nil {
		// The export itself worked, so the message should not be requeued.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", v.ID, "error", err)
	}

	slog.InfoContext(ctx, "Verification exported",
		"id", v.ID,
		"client", v.ClientName,
		"rows", len(rows),
		"total_cents", v.TotalIncome.Cents)
	return nil
}
