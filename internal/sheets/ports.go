package sheets

import (
	"context"

	"renda/internal/core"
)

// VerificationExporter is the outbound port for spreadsheet export. Export is
// idempotent per verification ID so a retried message does not duplicate rows.
type VerificationExporter interface {
	ExportVerification(ctx context.Context, summary core.SummaryRecord, rows []core.ExportRow) error
	RemoveVerification(ctx context.Context, id string) error
}
