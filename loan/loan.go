// Package loan holds the interest-bearing peer-loan ledger: a bilateral loan
// with frozen-capital interest periods and an append-only repayment history.
package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusLate    Status = "late"
	StatusClosed  Status = "closed"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Loan is a bilateral loan from a lender (always a family member) to a
// borrower, who may be a member or an external party known only by name and
// phone. CurrentCapital only decreases through repayments; it is set to
// AmountInitial exactly once, at creation.
type Loan struct {
	ID                          string          `db:"id"`
	LenderMemberID              string          `db:"lender_member_id"`
	BorrowerMemberID            string          `db:"borrower_member_id"`
	BorrowerName                string          `db:"borrower_name"`
	BorrowerPhone               string          `db:"borrower_phone"`
	AmountInitial               int64           `db:"amount_initial"`
	Currency                    string          `db:"currency"`
	InterestRate                decimal.Decimal `db:"interest_rate"` // percent per period
	InterestFrequency           Frequency       `db:"interest_frequency"`
	CurrentCapital              int64           `db:"current_capital"`
	DueDate                     *time.Time      `db:"due_date"`
	Status                      Status          `db:"status"`
	LinkedCreationTransactionID string          `db:"linked_creation_transaction_id"`
	CreatedAt                   time.Time       `db:"created_at"`
}

type CreateInput struct {
	LenderMemberID   string
	BorrowerMemberID string
	BorrowerName     string
	BorrowerPhone    string
	Amount           ledger.Amount
	InterestRate     decimal.Decimal
	Frequency        Frequency
	DueDate          *time.Time
}

func New(input CreateInput) (*Loan, error) {
	if input.LenderMemberID == "" {
		return nil, &ledger.ValidationError{Field: "lenderMemberID", Reason: "required"}
	}
	if input.BorrowerMemberID == "" && (input.BorrowerName == "" || input.BorrowerPhone == "") {
		return nil, &ledger.ValidationError{Field: "borrower", Reason: "either a member reference or a name and phone pair is required"}
	}
	if !input.Amount.IsPositive() {
		return nil, &ledger.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if input.InterestRate.IsNegative() {
		return nil, &ledger.ValidationError{Field: "interestRate", Reason: "must not be negative"}
	}
	if !input.Frequency.valid() {
		return nil, &ledger.ValidationError{Field: "interestFrequency", Reason: "must be daily, weekly or monthly"}
	}

	return &Loan{
		ID:                uuid.NewString(),
		LenderMemberID:    input.LenderMemberID,
		BorrowerMemberID:  input.BorrowerMemberID,
		BorrowerName:      input.BorrowerName,
		BorrowerPhone:     input.BorrowerPhone,
		AmountInitial:     input.Amount.Value,
		Currency:          input.Amount.Currency,
		InterestRate:      input.InterestRate,
		InterestFrequency: input.Frequency,
		CurrentCapital:    input.Amount.Value,
		DueDate:           input.DueDate,
		Status:            StatusPending,
		CreatedAt:         time.Now(),
	}, nil
}

func (l *Loan) InitialMoney() ledger.Amount {
	return ledger.NewAmount(l.AmountInitial, l.Currency)
}

func (l *Loan) CapitalMoney() ledger.Amount {
	return ledger.NewAmount(l.CurrentCapital, l.Currency)
}

// EffectiveStatus derives the display status at a point in time: closed once
// the capital reached zero, late when the due date has passed, otherwise the
// stored status.
func (l *Loan) EffectiveStatus(now time.Time) Status {
	if l.CurrentCapital == 0 {
		return StatusClosed
	}
	if l.DueDate != nil && now.After(*l.DueDate) {
		return StatusLate
	}
	return l.Status
}
