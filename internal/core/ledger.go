package core

import "fmt"

// SetValidity flips a transaction's validity flag and re-derives all
// aggregates. Together with SetAmount it is the only sanctioned mutation of a
// verification after creation; any other write path risks stale totals.
// Repeating the call with the same arguments is a no-op.
//
// The exclusion reason is kept as evidence of the automatic decision even when
// an operator restores validity; it carries no authority afterwards.
func (v *IncomeVerification) SetValidity(monthIndex int, transactionID string, valid bool) error {
	tx, err := v.find(monthIndex, transactionID)
	if err != nil {
		return err
	}
	tx.IsValid = valid
	Recompute(v)
	return nil
}

// SetAmount overwrites a transaction's amount, correcting extraction errors,
// and re-derives all aggregates. Idempotent under repetition.
func (v *IncomeVerification) SetAmount(monthIndex int, transactionID string, amount Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	tx, err := v.find(monthIndex, transactionID)
	if err != nil {
		return err
	}
	tx.Amount = amount
	Recompute(v)
	return nil
}

func (v *IncomeVerification) find(monthIndex int, transactionID string) (*Transaction, error) {
	if monthIndex < 0 || monthIndex >= len(v.MonthlyData) {
		return nil, fmt.Errorf("month index %d: %w", monthIndex, ErrNotFound)
	}
	b := &v.MonthlyData[monthIndex]
	for i := range b.Transactions {
		if b.Transactions[i].ID == transactionID {
			return &b.Transactions[i], nil
		}
	}
	return nil, fmt.Errorf("transaction %q in month %d: %w", transactionID, monthIndex, ErrNotFound)
}
