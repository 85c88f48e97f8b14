// Package memory provides an in-memory exporter for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"sync"

	"renda/internal/core"
	ports "renda/internal/sheets"
)

type Exporter struct {
	mu        sync.Mutex
	summaries map[string]core.SummaryRecord
	rows      map[string][]core.ExportRow
}

var _ ports.VerificationExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{
		summaries: make(map[string]core.SummaryRecord),
		rows:      make(map[string][]core.ExportRow),
	}
}

func (e *Exporter) ExportVerification(_ context.Context, summary core.SummaryRecord, rows []core.ExportRow) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.summaries[summary.VerificationID] = summary
	e.rows[summary.VerificationID] = append([]core.ExportRow(nil), rows...)
	return nil
}

func (e *Exporter) RemoveVerification(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.summaries, id)
	delete(e.rows, id)
	return nil
}

// Summary returns the stored summary for id, if any.
func (e *Exporter) Summary(id string) (core.SummaryRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.summaries[id]
	return s, ok
}

// Rows returns the stored export rows for id.
func (e *Exporter) Rows(id string) []core.ExportRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.ExportRow(nil), e.rows[id]...)
}
