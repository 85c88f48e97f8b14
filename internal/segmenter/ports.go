// Package segmenter defines the boundary to the statement segmentation
// collaborator: the component that turns raw statement text into discrete
// candidate transactions. The production segmenter lives outside this module;
// this package holds its port and the validation the engine applies to
// whatever comes back.
package segmenter

import (
	"context"
	"fmt"

	"renda/internal/core"
)

// Segmenter produces an ordered sequence of candidate transactions from raw
// statement text. Implementations may attach a provisional validity hint to
// each candidate; the classifier is the authority of record and re-decides
// regardless.
//
// Returning zero candidates is a valid outcome (empty statement). Transport
// or upstream failures must wrap core.ErrSegmenterUnavailable.
type Segmenter interface {
	Segment(ctx context.Context, raw string, cc core.CaseContext) ([]core.Candidate, error)
}

// ValidateCandidates rejects batches containing records without the required
// fields. A single bad record fails the whole batch: no partial verification
// is built from malformed segmenter output.
func ValidateCandidates(cands []core.Candidate) error {
	for i, c := range cands {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("candidate %d: %v: %w", i, err, core.ErrMalformedInput)
		}
	}
	return nil
}
