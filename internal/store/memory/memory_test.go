package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"renda/internal/core"
	"renda/internal/store"
)

func fixture(id string, createdAt time.Time) core.IncomeVerification {
	return core.IncomeVerification{
		ID:         id,
		ClientName: "Ana Silva",
		CreatedAt:  createdAt,
		MonthlyData: []core.MonthBucket{{
			Label: "Janeiro/2026",
			Transactions: []core.Transaction{{
				ID:      "tx-1",
				Amount:  core.Money{Cents: 150000},
				IsValid: true,
			}},
			Total: core.Money{Cents: 150000},
		}},
		TotalIncome: core.Money{Cents: 150000},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	v := fixture("v-1", time.Now())
	if err := s.Save(ctx, v); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalIncome.Cents != 150000 || len(got.MonthlyData) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.MonthlyData[0].Transactions[0].IsValid = false
	again, _ := s.Get(ctx, "v-1")
	if !again.MonthlyData[0].Transactions[0].IsValid {
		t.Fatalf("store state aliased by caller mutation")
	}
}

func TestStoreListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()
	for i, id := range []string{"v-1", "v-2", "v-3"} {
		if err := s.Save(ctx, fixture(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3, got %d", len(list))
	}
	if list[0].ID != "v-3" || list[2].ID != "v-1" {
		t.Fatalf("expected most recent first, got %s .. %s", list[0].ID, list[2].ID)
	}
}

func TestStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	v := fixture("v-1", time.Now())
	if err := s.Save(ctx, v); err != nil {
		t.Fatalf("save: %v", err)
	}

	v.TotalIncome = core.Money{Cents: 99}
	if err := s.Update(ctx, v); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Get(ctx, "v-1")
	if got.TotalIncome.Cents != 99 {
		t.Fatalf("update not applied")
	}

	if err := s.Delete(ctx, "v-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "v-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "v-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
	if err := s.Update(ctx, v); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating deleted, got %v", err)
	}
}
