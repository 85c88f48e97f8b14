package core

import (
	"testing"
	"time"
)

func checkInvariants(t *testing.T, v IncomeVerification) {
	t.Helper()
	var total int64
	for i, b := range v.MonthlyData {
		var monthTotal int64
		for _, tx := range b.Transactions {
			if tx.IsValid {
				monthTotal += tx.Amount.Cents
			}
		}
		if b.Total.Cents != monthTotal {
			t.Fatalf("month %d (%s): total %d, valid sum %d", i, b.Label, b.Total.Cents, monthTotal)
		}
		total += monthTotal
	}
	if v.TotalIncome.Cents != total {
		t.Fatalf("totalIncome %d, month sum %d", v.TotalIncome.Cents, total)
	}
	if n := int64(len(v.MonthlyData)); n > 0 {
		if want := (total + n/2) / n; v.AverageIncome.Cents != want {
			t.Fatalf("averageIncome %d, expected %d", v.AverageIncome.Cents, want)
		}
	} else if v.AverageIncome.Cents != 0 {
		t.Fatalf("averageIncome %d for empty verification", v.AverageIncome.Cents)
	}
}

func TestBuildVerificationEndToEnd(t *testing.T) {
	ref := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	cc := CaseContext{ClientName: "Ana Silva"}
	cands := []Candidate{
		{
			Date:        time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			Description: "Pix recebido",
			Amount:      Money{Cents: 150000},
			Bank:        "Banco Azul",
			Sender:      "Empresa XYZ",
		},
		{
			Date:        time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
			Description: "Pix recebido",
			Amount:      Money{Cents: 2500},
			Bank:        "Banco Azul",
			Sender:      "Empresa XYZ",
		},
	}

	v, err := BuildVerification(cc, ref, "raw statement", cands, DefaultClassifierConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(v.MonthlyData) != 6 {
		t.Fatalf("expected 6 months, got %d", len(v.MonthlyData))
	}
	if v.PeriodStart != "Setembro/2025" || v.PeriodEnd != "Fevereiro/2026" {
		t.Fatalf("unexpected period %q .. %q", v.PeriodStart, v.PeriodEnd)
	}

	var jan *MonthBucket
	for i := range v.MonthlyData {
		if v.MonthlyData[i].Label == "Janeiro/2026" {
			jan = &v.MonthlyData[i]
		}
	}
	if jan == nil {
		t.Fatalf("Janeiro/2026 missing from monthlyData")
	}
	if len(jan.Transactions) != 2 {
		t.Fatalf("expected both transactions bucketed in January, got %d", len(jan.Transactions))
	}
	if jan.Total.Cents != 150000 {
		t.Fatalf("January total: expected 150000, got %d", jan.Total.Cents)
	}
	if jan.Transactions[1].ExclusionReason != ReasonBelowMinimum {
		t.Fatalf("expected below_minimum on the R$ 25 inflow, got %q", jan.Transactions[1].ExclusionReason)
	}
	if v.TotalIncome.Cents != 150000 {
		t.Fatalf("totalIncome: expected 150000, got %d", v.TotalIncome.Cents)
	}
	if v.AverageIncome.Cents != 25000 {
		t.Fatalf("averageIncome: expected 25000, got %d", v.AverageIncome.Cents)
	}
	if v.RawInput != "raw statement" {
		t.Fatalf("rawInput not retained")
	}
	checkInvariants(t, v)
}

func TestBuildVerificationEmptyMonthsPreserved(t *testing.T) {
	ref := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	v, err := BuildVerification(CaseContext{ClientName: "Ana Silva"}, ref, "", nil, DefaultClassifierConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(v.MonthlyData) != 6 {
		t.Fatalf("expected 6 empty buckets, got %d", len(v.MonthlyData))
	}
	for _, b := range v.MonthlyData {
		if len(b.Transactions) != 0 || b.Total.Cents != 0 {
			t.Fatalf("bucket %s not empty: %d transactions, total %d", b.Label, len(b.Transactions), b.Total.Cents)
		}
	}
	if v.TotalIncome.Cents != 0 || v.AverageIncome.Cents != 0 {
		t.Fatalf("expected zero totals, got %d / %d", v.TotalIncome.Cents, v.AverageIncome.Cents)
	}
	checkInvariants(t, v)
}

func TestBuildVerificationDropsOutOfWindow(t *testing.T) {
	ref := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	cands := []Candidate{{
		Date:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Description: "Pix recebido",
		Amount:      Money{Cents: 100000},
		Sender:      "Empresa XYZ",
	}}
	v, err := BuildVerification(CaseContext{ClientName: "Ana Silva"}, ref, "", cands, DefaultClassifierConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, b := range v.MonthlyData {
		if len(b.Transactions) != 0 {
			t.Fatalf("out-of-window transaction landed in %s", b.Label)
		}
	}
}

func TestBuildVerificationRequiresClientName(t *testing.T) {
	_, err := BuildVerification(CaseContext{}, time.Now(), "", nil, DefaultClassifierConfig())
	if err == nil {
		t.Fatalf("expected error for empty client name")
	}
}
