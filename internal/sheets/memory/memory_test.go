package memory

import (
	"context"
	"testing"

	"renda/internal/core"
)

func TestExportAndRemove(t *testing.T) {
	ctx := context.Background()
	e := New()

	summary := core.SummaryRecord{VerificationID: "v-1", ClientName: "Ana Silva"}
	rows := []core.ExportRow{{Description: "PIX recebido", Amount: core.Money{Cents: 150000}}}

	if err := e.ExportVerification(ctx, summary, rows); err != nil {
		t.Fatalf("export: %v", err)
	}
	if got, ok := e.Summary("v-1"); !ok || got.ClientName != "Ana Silva" {
		t.Fatalf("summary not stored: %+v ok=%v", got, ok)
	}
	if got := e.Rows("v-1"); len(got) != 1 || got[0].Amount.Cents != 150000 {
		t.Fatalf("rows not stored: %+v", got)
	}

	if err := e.RemoveVerification(ctx, "v-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := e.Summary("v-1"); ok {
		t.Fatal("summary still present after remove")
	}
}

func TestReExportReplacesRows(t *testing.T) {
	ctx := context.Background()
	e := New()
	summary := core.SummaryRecord{VerificationID: "v-1"}

	e.ExportVerification(ctx, summary, []core.ExportRow{{Description: "a"}, {Description: "b"}})
	e.ExportVerification(ctx, summary, []core.ExportRow{{Description: "c"}})

	if got := e.Rows("v-1"); len(got) != 1 || got[0].Description != "c" {
		t.Fatalf("expected replacement, got %+v", got)
	}
}
