// Package debt holds the reimbursement-request ledger: one debtor owes one
// creditor a fixed amount for one shared expense. Requests move pending ->
// settled or pending -> cancelled, both terminal.
package debt

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
)

type Request struct {
	ID              string     `db:"id"`
	SharedExpenseID string     `db:"shared_expense_id"`
	FromMemberID    string     `db:"from_member_id"` // debtor
	ToMemberID      string     `db:"to_member_id"`   // creditor
	Amount          int64      `db:"amount"`
	Currency        string     `db:"currency"`
	Status          Status     `db:"status"`
	Note            string     `db:"note"`
	CreatedAt       time.Time  `db:"created_at"`
	SettledAt       *time.Time `db:"settled_at"`
	SettledBy       string     `db:"settled_by"`
}

func NewRequest(debtorID, creditorID string, amount ledger.Amount, sharedExpenseID, note string) (*Request, error) {
	if debtorID == "" {
		return nil, &ledger.ValidationError{Field: "debtorID", Reason: "required"}
	}
	if creditorID == "" {
		return nil, &ledger.ValidationError{Field: "creditorID", Reason: "required"}
	}
	if debtorID == creditorID {
		return nil, &ledger.ValidationError{Field: "debtorID", Reason: "debtor and creditor must differ"}
	}
	if !amount.IsPositive() {
		return nil, &ledger.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if sharedExpenseID == "" {
		return nil, &ledger.ValidationError{Field: "sharedExpenseID", Reason: "required"}
	}

	return &Request{
		ID:              uuid.NewString(),
		SharedExpenseID: sharedExpenseID,
		FromMemberID:    debtorID,
		ToMemberID:      creditorID,
		Amount:          amount.Value,
		Currency:        amount.Currency,
		Status:          StatusPending,
		Note:            note,
		CreatedAt:       time.Now(),
	}, nil
}

func (r *Request) Money() ledger.Amount {
	return ledger.NewAmount(r.Amount, r.Currency)
}

// Terminal reports whether the request reached a final state. Settled and
// cancelled requests are immutable.
func (r *Request) Terminal() bool {
	return r.Status == StatusSettled || r.Status == StatusCancelled
}

// PendingDebt is the read model consumed by the payment allocator: a pending
// request projected onto the (debtor, creditor) pair. It is derived from the
// ledger on demand, never stored.
type PendingDebt struct {
	RequestID   string        `json:"request_id"`
	DebtorID    string        `json:"debtor_id"`
	CreditorID  string        `json:"creditor_id"`
	Amount      ledger.Amount `json:"amount"`
	Date        time.Time     `json:"date"`
	Description string        `json:"description"`
}
