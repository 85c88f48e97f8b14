// Package memory provides an in-memory verification store for tests and the
// development backend.
package memory

import (
	"context"
	"sync"

	"renda/internal/core"
	"renda/internal/store"
)

type Store struct {
	mu    sync.Mutex
	items map[string]core.IncomeVerification
	order []string // most recent first
}

func New() *Store {
	return &Store{items: make(map[string]core.IncomeVerification)}
}

func (s *Store) Save(_ context.Context, v core.IncomeVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[v.ID]; !exists {
		s.order = append([]string{v.ID}, s.order...)
	}
	s.items[v.ID] = clone(v)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.IncomeVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[id]
	if !ok {
		return core.IncomeVerification{}, store.ErrNotFound
	}
	return clone(v), nil
}

func (s *Store) List(_ context.Context) ([]core.IncomeVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.IncomeVerification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.items[id]))
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, v core.IncomeVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[v.ID]; !ok {
		return store.ErrNotFound
	}
	s.items[v.ID] = clone(v)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// clone deep-copies the bucket and transaction slices so callers can never
// alias the stored state.
func clone(v core.IncomeVerification) core.IncomeVerification {
	buckets := make([]core.MonthBucket, len(v.MonthlyData))
	for i, b := range v.MonthlyData {
		txs := make([]core.Transaction, len(b.Transactions))
		copy(txs, b.Transactions)
		b.Transactions = txs
		buckets[i] = b
	}
	v.MonthlyData = buckets
	return v
}
