// Package store declares the persistence port for income verifications.
// Adapters live in subpackages (memory) and in internal/storage (SQLite);
// callers receive the interface, never a concrete store.
package store

import (
	"context"
	"errors"

	"renda/internal/core"
)

// ErrNotFound reports an unknown verification id.
var ErrNotFound = errors.New("verification not found")

// VerificationStore is the unit of persistence for verifications. List order
// is most-recently-created first. Implementations must round-trip a
// verification without losing the aggregate invariants; readers are expected
// to recompute totals on load rather than trust stored figures.
type VerificationStore interface {
	Save(ctx context.Context, v core.IncomeVerification) error
	Get(ctx context.Context, id string) (core.IncomeVerification, error)
	List(ctx context.Context) ([]core.IncomeVerification, error)
	Update(ctx context.Context, v core.IncomeVerification) error
	Delete(ctx context.Context, id string) error
}
