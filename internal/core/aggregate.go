package core

import "time"

// BuildVerification runs the deterministic pipeline over segmented candidates:
// resolve the window, classify every inflow, bucket by month and derive the
// aggregates. Months with no transactions stay in MonthlyData as empty
// buckets. Inflows outside the window are dropped: no bucket exists for them.
func BuildVerification(cc CaseContext, ref time.Time, rawInput string, cands []Candidate, cfg ClassifierConfig) (IncomeVerification, error) {
	if err := cc.Validate(); err != nil {
		return IncomeVerification{}, err
	}

	window := ResolveWindow(ref)
	txs := NewClassifier(cc, window, cfg).Classify(cands)

	buckets := make([]MonthBucket, len(window))
	index := make(map[Month]int, len(window))
	for i, m := range window {
		buckets[i] = MonthBucket{Month: m, Label: m.Label(), Transactions: []Transaction{}}
		index[m] = i
	}
	for _, tx := range txs {
		i, ok := index[MonthOf(tx.Date)]
		if !ok {
			continue
		}
		buckets[i].Transactions = append(buckets[i].Transactions, tx)
	}

	v := IncomeVerification{
		ID:          NewVerificationID(),
		ClientName:  cc.ClientName,
		FatherName:  cc.FatherName,
		MotherName:  cc.MotherName,
		CreatedAt:   time.Now().UTC(),
		MonthlyData: buckets,
		RawInput:    rawInput,
	}
	if len(window) > 0 {
		v.PeriodStart = window[0].Label()
		v.PeriodEnd = window[len(window)-1].Label()
	}
	Recompute(&v)
	return v, nil
}

// Recompute re-derives every aggregate from the transactions: each bucket
// total from its valid transactions, the overall total from the buckets, and
// the average from the total. Stored figures are never trusted.
func Recompute(v *IncomeVerification) {
	var total int64
	for i := range v.MonthlyData {
		var monthTotal int64
		for _, t := range v.MonthlyData[i].Transactions {
			if t.IsValid {
				monthTotal += t.Amount.Cents
			}
		}
		v.MonthlyData[i].Total = Money{Cents: monthTotal}
		total += monthTotal
	}
	v.TotalIncome = Money{Cents: total}
	if n := int64(len(v.MonthlyData)); n > 0 {
		// Half-up rounding on the centavo.
		v.AverageIncome = Money{Cents: (total + n/2) / n}
	} else {
		v.AverageIncome = Money{}
	}
}
