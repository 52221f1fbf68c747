package loan

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

type PeriodStatus string

const (
	PeriodUnpaid PeriodStatus = "unpaid"
	PeriodPaid   PeriodStatus = "paid"
	// PeriodCapitalized is reserved for folding unpaid interest into the
	// principal. Nothing produces it yet; the trigger is unclarified.
	PeriodCapitalized PeriodStatus = "capitalized"
)

// InterestPeriod is one accrual window for a loan. CapitalAtStart is frozen
// when the period opens and never recomputed; the interest owed for the
// window is CapitalAtStart times the loan's per-period rate.
type InterestPeriod struct {
	ID             string       `db:"id"`
	LoanID         string       `db:"loan_id"`
	PeriodStart    time.Time    `db:"period_start"`
	PeriodEnd      time.Time    `db:"period_end"`
	CapitalAtStart int64        `db:"capital_at_start"`
	InterestAmount int64        `db:"interest_amount"`
	Currency       string       `db:"currency"`
	Status         PeriodStatus `db:"status"`
	CreatedAt      time.Time    `db:"created_at"`
}

// NewInterestPeriod opens an accrual window on the loan, freezing the
// current capital as the interest base.
func NewInterestPeriod(l *Loan, periodStart, periodEnd time.Time) (*InterestPeriod, error) {
	if !periodStart.Before(periodEnd) {
		return nil, &ledger.ValidationError{Field: "period", Reason: "start must be before end"}
	}

	interest := ledger.InterestOn(l.CapitalMoney(), l.InterestRate)
	return &InterestPeriod{
		ID:             uuid.NewString(),
		LoanID:         l.ID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		CapitalAtStart: l.CurrentCapital,
		InterestAmount: interest.Value,
		Currency:       l.Currency,
		Status:         PeriodUnpaid,
		CreatedAt:      time.Now(),
	}, nil
}

func (p *InterestPeriod) InterestMoney() ledger.Amount {
	return ledger.NewAmount(p.InterestAmount, p.Currency)
}

// Overlaps reports whether two accrual windows share any span of time.
func (p *InterestPeriod) Overlaps(start, end time.Time) bool {
	return p.PeriodStart.Before(end) && start.Before(p.PeriodEnd)
}
