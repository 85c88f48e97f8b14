package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"renda/internal/core"
	"renda/internal/store"

	_ "modernc.org/sqlite"
)

// Sync states for the spreadsheet export pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// SQLiteRepository persists verifications across three tables: the header,
// the resolved window months and the transactions. Totals are never stored;
// Get recomputes them after reassembly.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.VerificationStore = (*SQLiteRepository)(nil)

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
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
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

func (r *SQLiteRepository) Save(ctx context.Context, v core.IncomeVerification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO verifications (id, client_name, father_name, mother_name, created_at, period_start, period_end, raw_input, version, sync_status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		v.ID, v.ClientName, v.FatherName, v.MotherName, v.CreatedAt.UTC(),
		v.PeriodStart, v.PeriodEnd, v.RawInput, SyncPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}

	if err := insertContent(ctx, tx, v); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.InfoContext(ctx, "Verification saved",
		"id", v.ID,
		"client", v.ClientName,
		"months", len(v.MonthlyData),
		"total_cents", v.TotalIncome.Cents)
	return nil
}

// Update replaces the verification content and bumps the version. The header
// identity and created_at stay untouched.
func (r *SQLiteRepository) Update(ctx context.Context, v core.IncomeVerification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE verifications
		SET period_start = ?, period_end = ?, raw_input = ?, version = version + 1, sync_status = ?, updated_at = ?
		WHERE id = ?`,
		v.PeriodStart, v.PeriodEnd, v.RawInput, SyncPending, time.Now().UTC(), v.ID)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM verification_months WHERE verification_id = ?`, v.ID); err != nil {
		return fmt.Errorf("clear months: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM verification_transactions WHERE verification_id = ?`, v.ID); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if err := insertContent(ctx, tx, v); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func insertContent(ctx context.Context, tx *sql.Tx, v core.IncomeVerification) error {
	for pos, b := range v.MonthlyData {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO verification_months (verification_id, position, year, month)
			VALUES (?, ?, ?, ?)`,
			v.ID, pos, b.Month.Year, int(b.Month.Month))
		if err != nil {
			return fmt.Errorf("insert month %d: %w", pos, err)
		}
		for i, t := range b.Transactions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO verification_transactions (id, verification_id, month_position, position, tx_date, description, amount_cents, bank, sender, is_valid, exclusion_reason)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, v.ID, pos, i, t.Date.UTC(), t.Description, t.Amount.Cents,
				t.Bank, t.Sender, boolToInt(t.IsValid), string(t.ExclusionReason))
			if err != nil {
				return fmt.Errorf("insert transaction %s: %w", t.ID, err)
			}
		}
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.IncomeVerification, error) {
	var v core.IncomeVerification
	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_name, father_name, mother_name, created_at, period_start, period_end, raw_input
		FROM verifications WHERE id = ?`, id).
		Scan(&v.ID, &v.ClientName, &v.FatherName, &v.MotherName, &v.CreatedAt,
			&v.PeriodStart, &v.PeriodEnd, &v.RawInput)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IncomeVerification{}, store.ErrNotFound
	}
	if err != nil {
		return core.IncomeVerification{}, fmt.Errorf("select verification: %w", err)
	}

	if err := r.loadContent(ctx, &v); err != nil {
		return core.IncomeVerification{}, err
	}
	// Totals are derived state; the database is not trusted for them.
	core.Recompute(&v)
	return v, nil
}

func (r *SQLiteRepository) loadContent(ctx context.Context, v *core.IncomeVerification) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT position, year, month FROM verification_months
		WHERE verification_id = ? ORDER BY position`, v.ID)
	if err != nil {
		return fmt.Errorf("select months: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos, year, month int
		if err := rows.Scan(&pos, &year, &month); err != nil {
			return fmt.Errorf("scan month: %w", err)
		}
		m := core.Month{Year: year, Month: time.Month(month)}
		v.MonthlyData = append(v.MonthlyData, core.MonthBucket{
			Month:        m,
			Label:        m.Label(),
			Transactions: []core.Transaction{},
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate months: %w", err)
	}

	txRows, err := r.db.QueryContext(ctx, `
		SELECT id, month_position, tx_date, description, amount_cents, bank, sender, is_valid, exclusion_reason
		FROM verification_transactions
		WHERE verification_id = ? ORDER BY month_position, position`, v.ID)
	if err != nil {
		return fmt.Errorf("select transactions: %w", err)
	}
	defer txRows.Close()

	for txRows.Next() {
		var (
			t        core.Transaction
			monthPos int
			isValid  int
			reason   string
		)
		if err := txRows.Scan(&t.ID, &monthPos, &t.Date, &t.Description, &t.Amount.Cents,
			&t.Bank, &t.Sender, &isValid, &reason); err != nil {
			return fmt.Errorf("scan transaction: %w", err)
		}
		t.IsValid = isValid != 0
		t.ExclusionReason = core.ExclusionReason(reason)
		if monthPos < 0 || monthPos >= len(v.MonthlyData) {
			return fmt.Errorf("transaction %s references month position %d out of %d", t.ID, monthPos, len(v.MonthlyData))
		}
		v.MonthlyData[monthPos].Transactions = append(v.MonthlyData[monthPos].Transactions, t)
	}
	return txRows.Err()
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.IncomeVerification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM verifications ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}

	out := make([]core.IncomeVerification, 0, len(ids))
	for _, id := range ids {
		v, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Verification deleted", "id", id)
	return nil
}

// PendingSync is the minimal row the export worker needs to pick up work.
type PendingSync struct {
	ID      string
	Version int64
}

// GetPendingSync returns verifications not yet exported, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version FROM verifications
		WHERE sync_status = ? ORDER BY updated_at LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var p PendingSync
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records a successful spreadsheet export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncDone)
}

// MarkSyncError records a failed export attempt; the row stays visible for
// operators and is retried by the periodic pass once reset.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verifications SET sync_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
