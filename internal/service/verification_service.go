package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"renda/internal/core"
	"renda/internal/segmenter"
	"renda/internal/sheets"
	"renda/internal/store"
)

// SyncPublisher is the outbound port for async export notifications.
// *amqp.Client satisfies it.
type SyncPublisher interface {
	PublishVerificationSync(ctx context.Context, id string, version int64) error
	PublishVerificationDelete(ctx context.Context, id string) error
}

// AnalyzeRequest is the input for a full statement analysis.
type AnalyzeRequest struct {
	ClientName    string
	FatherName    string
	MotherName    string
	RawInput      string
	ReferenceDate time.Time // zero means "now"
}

// VerificationService orchestrates analysis, persistence and the async
// spreadsheet sync across the segmenter, the store and AMQP.
type VerificationService struct {
	segmenter segmenter.Segmenter
	store     store.VerificationStore
	publisher SyncPublisher
	cfg       core.ClassifierConfig
	now       func() time.Time

	// Ledger edits on the same verification are serialized so concurrent
	// PATCHes cannot interleave their load-modify-store cycles.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewVerificationService(seg segmenter.Segmenter, st store.VerificationStore, pub SyncPublisher, cfg core.ClassifierConfig) *VerificationService {
	return &VerificationService{
		segmenter: seg,
		store:     st,
		publisher: pub,
		cfg:       cfg,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Analyze runs the whole pipeline: segment the raw statement text, classify
// and aggregate into the six-month window, persist, then notify the worker.
func (s *VerificationService) Analyze(ctx context.Context, req AnalyzeRequest) (core.IncomeVerification, error) {
	cc := core.CaseContext{
		ClientName: req.ClientName,
		FatherName: req.FatherName,
		MotherName: req.MotherName,
	}

	candidates, err := s.segmenter.Segment(ctx, req.RawInput, cc)
	if err != nil {
		return core.IncomeVerification{}, fmt.Errorf("segment statement: %w", err)
	}
	if err := segmenter.ValidateCandidates(candidates); err != nil {
		return core.IncomeVerification{}, err
	}

	ref := req.ReferenceDate
	if ref.IsZero() {
		ref = s.now()
	}

	v, err := core.BuildVerification(cc, ref, req.RawInput, candidates, s.cfg)
	if err != nil {
		return core.IncomeVerification{}, err
	}

	if err := s.store.Save(ctx, v); err != nil {
		return core.IncomeVerification{}, fmt.Errorf("save verification: %w", err)
	}

	s.publishSync(ctx, v.ID, 1)

	slog.InfoContext(ctx, "Verification analyzed",
		"id", v.ID,
		"client", v.ClientName,
		"candidates", len(candidates),
		"total_cents", v.TotalIncome.Cents,
		"average_cents", v.AverageIncome.Cents)
	return v, nil
}

func (s *VerificationService) Get(ctx context.Context, id string) (core.IncomeVerification, error) {
	return s.store.Get(ctx, id)
}

func (s *VerificationService) List(ctx context.Context) ([]core.IncomeVerification, error) {
	return s.store.List(ctx)
}

func (s *VerificationService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publishDelete(ctx, id)
	return nil
}

// SetValidity toggles a transaction's manual validity and returns the
// verification with totals recomputed.
func (s *VerificationService) SetValidity(ctx context.Context, id string, monthIndex int, txID string, isValid bool) (core.IncomeVerification, error) {
	return s.edit(ctx, id, func(v *core.IncomeVerification) error {
		return v.SetValidity(monthIndex, txID, isValid)
	})
}

// SetAmount corrects a transaction amount and returns the verification with
// totals recomputed.
func (s *VerificationService) SetAmount(ctx context.Context, id string, monthIndex int, txID string, amount core.Money) (core.IncomeVerification, error) {
	return s.edit(ctx, id, func(v *core.IncomeVerification) error {
		return v.SetAmount(monthIndex, txID, amount)
	})
}

func (s *VerificationService) edit(ctx context.Context, id string, mutate func(*core.IncomeVerification) error) (core.IncomeVerification, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	v, err := s.store.Get(ctx, id)
	if err != nil {
		return core.IncomeVerification{}, err
	}
	if err := mutate(&v); err != nil {
		return core.IncomeVerification{}, err
	}
	if err := s.store.Update(ctx, v); err != nil {
		return core.IncomeVerification{}, fmt.Errorf("update verification: %w", err)
	}

	// The worker loads the latest state from the store, so the version here
	// is informational only.
	s.publishSync(ctx, id, 0)
	return v, nil
}

func (s *VerificationService) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Export derives the spreadsheet-shaped summary and valid rows for one
// verification without touching any exporter.
func (s *VerificationService) Export(ctx context.Context, id string) (core.SummaryRecord, []core.ExportRow, error) {
	v, err := s.store.Get(ctx, id)
	if err != nil {
		return core.SummaryRecord{}, nil, err
	}
	return core.Summary(v), core.ValidRows(v), nil
}

// ExportAll pushes every stored verification through the exporter, a few at a
// time. The exporter must tolerate concurrent calls.
func (s *VerificationService) ExportAll(ctx context.Context, exporter sheets.VerificationExporter) error {
	list, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list verifications: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, v := range list {
		g.Go(func() error {
			if err := exporter.ExportVerification(ctx, core.Summary(v), core.ValidRows(v)); err != nil {
				return fmt.Errorf("export %s: %w", v.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *VerificationService) publishSync(ctx context.Context, id string, version int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping sync message", "id", id)
		return
	}
	if err := s.publisher.PublishVerificationSync(ctx, id, version); err != nil {
		// The verification is already persisted; the pending scan will
		// pick it up later.
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}

func (s *VerificationService) publishDelete(ctx context.Context, id string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping delete message", "id", id)
		return
	}
	if err := s.publisher.PublishVerificationDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
}
