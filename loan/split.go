package loan

import (
	"fmt"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

// Split is the outcome of dividing one payment between accrued interest and
// principal. Surplus is the part of an over-payment that exceeded the
// outstanding capital; it is reported as data, never an error, and never
// recorded against the loan.
type Split struct {
	InterestPortion ledger.Amount
	CapitalPortion  ledger.Amount
	Surplus         ledger.Amount
	// PaidPeriodIDs are the interest periods fully covered by this payment,
	// oldest first.
	PaidPeriodIDs []string
}

// SplitPayment divides a payment between interest and capital:
//
// Unpaid periods are cleared oldest first, each in full. Partial coverage of
// a period is undefined, so a payment that cannot cover the next period's
// interest in full is rejected. Whatever remains after interest goes to
// capital, capped at the outstanding capital; the excess is surplus.
//
// Pure function; the atomic application of the result is the store's job.
func SplitPayment(amount ledger.Amount, currentCapital ledger.Amount, unpaidPeriods []*InterestPeriod) (*Split, error) {
	if !amount.IsPositive() {
		return nil, &ledger.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if amount.Currency != currentCapital.Currency {
		return nil, &ledger.ValidationError{Field: "amount", Reason: "currency mismatch with loan"}
	}

	interest := ledger.NewAmount(0, amount.Currency)
	remaining := amount
	paidPeriods := make([]string, 0, len(unpaidPeriods))
	for _, p := range unpaidPeriods {
		if p.Status != PeriodUnpaid {
			return nil, &ledger.ValidationError{Field: "periods", Reason: fmt.Sprintf("period %s is not unpaid", p.ID)}
		}
		if remaining.IsZero() {
			break
		}

		periodInterest := p.InterestMoney()
		if remaining.Value < periodInterest.Value {
			// Splitting a single period's interest is undefined; surface
			// the short payment instead of silently distributing it.
			return nil, &ledger.ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("payment of %s cannot cover interest period %s of %s in full", remaining, p.ID, periodInterest),
			}
		}

		var err error
		remaining, err = remaining.Sub(periodInterest)
		if err != nil {
			return nil, err
		}
		interest, err = interest.Add(periodInterest)
		if err != nil {
			return nil, err
		}
		paidPeriods = append(paidPeriods, p.ID)
	}

	capital := remaining
	surplus := ledger.NewAmount(0, amount.Currency)
	if capital.Value > currentCapital.Value {
		var err error
		surplus, err = capital.Sub(currentCapital)
		if err != nil {
			return nil, err
		}
		capital = currentCapital
	}

	return &Split{
		InterestPortion: interest,
		CapitalPortion:  capital,
		Surplus:         surplus,
		PaidPeriodIDs:   paidPeriods,
	}, nil
}
