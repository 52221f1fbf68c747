package debt

import (
	"sort"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

// Allocation records how much of a payment landed on one pending debt.
type Allocation struct {
	Debt            PendingDebt   `json:"debt"`
	Allocated       ledger.Amount `json:"allocated"`
	RemainingOnDebt ledger.Amount `json:"remaining_on_debt"`
	FullyPaid       bool          `json:"fully_paid"`
}

// AllocationResult is the outcome of walking a payment across a debt list.
// Surplus is whatever was left after every debt was exhausted; it is never
// attached to a debt and must be persisted as a standalone credit.
type AllocationResult struct {
	Allocations []Allocation  `json:"allocations"`
	Surplus     ledger.Amount `json:"surplus"`
}

// Allocate distributes a lump-sum payment across pending debts in strict
// chronological order: the oldest debt is paid in full before any later one
// receives a single unit. It is a pure function; the same code path serves
// both the live preview and the commit step so the two can never drift.
//
// Invariant: sum of allocated amounts plus surplus equals the payment.
func Allocate(payment ledger.Amount, debts []PendingDebt) (*AllocationResult, error) {
	if !payment.IsPositive() {
		return nil, &ledger.ValidationError{Field: "payment", Reason: "must be positive"}
	}
	for _, d := range debts {
		if d.Amount.Currency != payment.Currency {
			return nil, &ledger.ValidationError{Field: "debts", Reason: "currency mismatch with payment"}
		}
		if !d.Amount.IsPositive() {
			return nil, &ledger.ValidationError{Field: "debts", Reason: "debt amount must be positive"}
		}
	}

	ordered := make([]PendingDebt, len(debts))
	copy(ordered, debts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].RequestID < ordered[j].RequestID
	})

	result := &AllocationResult{
		Allocations: make([]Allocation, 0, len(ordered)),
		Surplus:     ledger.NewAmount(0, payment.Currency),
	}

	remaining := payment
	for _, d := range ordered {
		if remaining.IsZero() {
			break
		}

		allocated, err := remaining.Min(d.Amount)
		if err != nil {
			return nil, err
		}
		remainingOnDebt, err := d.Amount.Sub(allocated)
		if err != nil {
			return nil, err
		}

		result.Allocations = append(result.Allocations, Allocation{
			Debt:            d,
			Allocated:       allocated,
			RemainingOnDebt: remainingOnDebt,
			FullyPaid:       remainingOnDebt.IsZero(),
		})

		remaining, err = remaining.Sub(allocated)
		if err != nil {
			return nil, err
		}
	}

	result.Surplus = remaining
	return result, nil
}
