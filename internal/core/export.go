package core

import "time"

type (
	// MonthTotal is one per-month line of the export summary.
	MonthTotal struct {
		Month string `json:"month"`
		Total Money  `json:"total"`
	}

	// SummaryRecord is the export header: client identity, analysis
	// timestamp and the derived totals.
	SummaryRecord struct {
		VerificationID string       `json:"verificationId"`
		ClientName     string       `json:"clientName"`
		CreatedAt      time.Time    `json:"createdAt"`
		PeriodStart    string       `json:"periodStart"`
		PeriodEnd      string       `json:"periodEnd"`
		TotalIncome    Money        `json:"totalIncome"`
		AverageIncome  Money        `json:"averageIncome"`
		Months         []MonthTotal `json:"months"`
	}

	// ExportRow is one valid transaction in the flat export listing.
	ExportRow struct {
		Date        time.Time `json:"date"`
		Description string    `json:"description"`
		Sender      string    `json:"sender"`
		Bank        string    `json:"bank"`
		Amount      Money     `json:"amount"`
		Month       string    `json:"month"`
	}
)

// Summary derives the export summary record. Pure: no mutation, totals taken
// as already recomputed by the ledger.
func Summary(v IncomeVerification) SummaryRecord {
	months := make([]MonthTotal, len(v.MonthlyData))
	for i, b := range v.MonthlyData {
		months[i] = MonthTotal{Month: b.Label, Total: b.Total}
	}
	return SummaryRecord{
		VerificationID: v.ID,
		ClientName:     v.ClientName,
		CreatedAt:      v.CreatedAt,
		PeriodStart:    v.PeriodStart,
		PeriodEnd:      v.PeriodEnd,
		TotalIncome:    v.TotalIncome,
		AverageIncome:  v.AverageIncome,
		Months:         months,
	}
}

// ValidRows flattens the valid transactions across all months, in bucket and
// classification order. Invalid transactions are excluded by construction.
func ValidRows(v IncomeVerification) []ExportRow {
	rows := make([]ExportRow, 0)
	for _, b := range v.MonthlyData {
		for _, t := range b.Transactions {
			if !t.IsValid {
				continue
			}
			rows = append(rows, ExportRow{
				Date:        t.Date,
				Description: t.Description,
				Sender:      t.Sender,
				Bank:        t.Bank,
				Amount:      t.Amount,
				Month:       b.Label,
			})
		}
	}
	return rows
}
