package loan

import (
	"context"
	"time"
)

// RepaymentCommit is the atomic unit applied after splitting a payment:
// flip the covered interest periods to paid, decrement the capital under a
// compare-and-set guard, append the repayment row. A guard miss means a
// concurrent payment won the race; the whole commit must fail so the caller
// can recompute against fresh state.
type RepaymentCommit struct {
	Repayment     *Repayment
	PaidPeriodIDs []string
	// ExpectedCapital is the capital the split was computed against; the
	// store must reject the commit if the loan moved past it.
	ExpectedCapital int64
	NewCapital      int64
	NewStatus       Status
	// IdempotencyKey, when non-empty, guards against blind client retries.
	IdempotencyKey string
}

type Store interface {
	CreateLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, id string) (*Loan, error)
	// AddInterestPeriod opens an accrual window, freezing the loan's
	// current capital at the moment of the call. Overlapping or
	// out-of-order windows are rejected.
	AddInterestPeriod(ctx context.Context, loanID string, periodStart, periodEnd time.Time) (*InterestPeriod, error)
	// UnpaidInterestPeriods returns unpaid windows ordered ascending by
	// period start. Oldest-first ordering is what the repayment split
	// relies on.
	UnpaidInterestPeriods(ctx context.Context, loanID string) ([]*InterestPeriod, error)
	ListInterestPeriods(ctx context.Context, loanID string) ([]*InterestPeriod, error)
	// ApplyRepayment applies the commit as one transaction.
	ApplyRepayment(ctx context.Context, commit RepaymentCommit) error
	// ListRepayments returns the append-only history ordered ascending by
	// payment date, then by ID.
	ListRepayments(ctx context.Context, loanID string) ([]*Repayment, error)
}
