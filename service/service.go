// Package service exposes the family debt and loan ledger operations: the
// reimbursement-request lifecycle, FIFO payment allocation, loan repayment
// processing and the derived balance views.
package service

import (
	"context"
	"time"

	"github.com/cyberkelysoatra/bazarkely-sub000/debt"
	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
	"github.com/cyberkelysoatra/bazarkely-sub000/loan"
)

// MemberDirectory resolves family-group membership. Group CRUD lives in an
// external collaborator; the ledger only ever asks who belongs to a group.
type MemberDirectory interface {
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
}

// TransactionEntry is the linked entry the external transaction log may be
// asked to create when a loan is created or repaid. The returned ID is kept
// as a foreign reference only.
type TransactionEntry struct {
	Kind        string
	LoanID      string
	MemberID    string
	Amount      ledger.Amount
	Date        time.Time
	Description string
}

const (
	TransactionKindLoanCreated = "loan_created"
	TransactionKindLoanRepaid  = "loan_repaid"
)

// TransactionLog records linked entries in the external transaction store.
type TransactionLog interface {
	RecordEntry(ctx context.Context, entry TransactionEntry) (string, error)
}

type Config struct {
	// LateGrace delays the derived late status past the due date.
	LateGrace time.Duration `env:"LOAN_LATE_GRACE" envDefault:"0s"`
}

type Service struct {
	cfg       Config
	debtStore debt.Store
	loanStore loan.Store
	members   MemberDirectory
	txLog     TransactionLog
	now       func() time.Time
}

func New(cfg Config, debtStore debt.Store, loanStore loan.Store, members MemberDirectory, txLog TransactionLog) (*Service, error) {
	return &Service{
		cfg:       cfg,
		debtStore: debtStore,
		loanStore: loanStore,
		members:   members,
		txLog:     txLog,
		now:       time.Now,
	}, nil
}
