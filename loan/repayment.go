package loan

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

// Repayment is one immutable entry in a loan's append-only payment history.
// It is the source of truth for everything repaid; derived totals are always
// recomputed from these rows, never cached.
//
// Invariant: InterestPortion + CapitalPortion == AmountPaid.
type Repayment struct {
	ID                  string    `db:"id"`
	LoanID              string    `db:"loan_id"`
	LinkedTransactionID string    `db:"linked_transaction_id"`
	AmountPaid          int64     `db:"amount_paid"`
	InterestPortion     int64     `db:"interest_portion"`
	CapitalPortion      int64     `db:"capital_portion"`
	Currency            string    `db:"currency"`
	PaymentDate         time.Time `db:"payment_date"`
	Notes               string    `db:"notes"`
	CreatedAt           time.Time `db:"created_at"`
}

func NewRepayment(loanID string, split *Split, paymentDate time.Time, notes, linkedTransactionID string) *Repayment {
	return &Repayment{
		ID:                  uuid.NewString(),
		LoanID:              loanID,
		LinkedTransactionID: linkedTransactionID,
		AmountPaid:          split.InterestPortion.Value + split.CapitalPortion.Value,
		InterestPortion:     split.InterestPortion.Value,
		CapitalPortion:      split.CapitalPortion.Value,
		Currency:            split.InterestPortion.Currency,
		PaymentDate:         paymentDate,
		Notes:               notes,
		CreatedAt:           time.Now(),
	}
}

func (r *Repayment) PaidMoney() ledger.Amount {
	return ledger.NewAmount(r.AmountPaid, r.Currency)
}
