package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
	"github.com/cyberkelysoatra/bazarkely-sub000/loan"
)

func (h *Service) CreateLoan(ctx context.Context, input loan.CreateInput) (*loan.Loan, error) {
	l, err := loan.New(input)
	if err != nil {
		return nil, err
	}

	if h.txLog != nil {
		txID, err := h.txLog.RecordEntry(ctx, TransactionEntry{
			Kind:        TransactionKindLoanCreated,
			LoanID:      l.ID,
			MemberID:    l.LenderMemberID,
			Amount:      l.InitialMoney(),
			Date:        l.CreatedAt,
			Description: "loan created",
		})
		if err != nil {
			// The linked entry is a foreign reference only; the loan is
			// still valid without it.
			log.Printf("Error recording loan creation transaction: %v\n", err)
		} else {
			l.LinkedCreationTransactionID = txID
		}
	}

	if err := h.loanStore.CreateLoan(ctx, l); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}
	return l, nil
}

// GetLoan returns the loan with its derived status: late once the due date
// plus the configured grace has passed, closed once the capital reached zero.
func (h *Service) GetLoan(ctx context.Context, loanID string) (*loan.Loan, error) {
	l, err := h.loanStore.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	l.Status = l.EffectiveStatus(h.now().Add(-h.cfg.LateGrace))
	return l, nil
}

// GenerateInterestPeriod opens the next accrual window. It is invoked by an
// external scheduler whenever a frequency boundary elapses; the store
// freezes the capital and rejects overlapping or out-of-order windows.
func (h *Service) GenerateInterestPeriod(ctx context.Context, loanID string, periodStart, periodEnd time.Time) (*loan.InterestPeriod, error) {
	period, err := h.loanStore.AddInterestPeriod(ctx, loanID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("add interest period: %w", err)
	}
	return period, nil
}

func (h *Service) UnpaidInterestPeriods(ctx context.Context, loanID string) ([]*loan.InterestPeriod, error) {
	periods, err := h.loanStore.UnpaidInterestPeriods(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("unpaid interest periods: %w", err)
	}
	return periods, nil
}

type RecordPaymentInput struct {
	LoanID              string
	Amount              ledger.Amount
	Date                time.Time
	Notes               string
	LinkedTransactionID string
	IdempotencyKey      string
}

// RecordPaymentResult carries the persisted repayment plus the surplus of an
// over-payment. The surplus is data for the caller to bank, not an error.
type RecordPaymentResult struct {
	Repayment *loan.Repayment
	Surplus   ledger.Amount
}

// RecordPayment splits a payment between accrued interest and principal and
// applies the result as one atomic unit: unpaid periods are cleared oldest
// first and in full, the remainder reduces the capital (capped at the
// outstanding amount), and the immutable repayment row is appended. A
// concurrent payment on the same loan trips the store's capital guard and
// the whole operation is rejected.
func (h *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*RecordPaymentResult, error) {
	l, err := h.loanStore.GetLoan(ctx, input.LoanID)
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}

	periods, err := h.loanStore.UnpaidInterestPeriods(ctx, input.LoanID)
	if err != nil {
		return nil, fmt.Errorf("unpaid interest periods: %w", err)
	}

	split, err := loan.SplitPayment(input.Amount, l.CapitalMoney(), periods)
	if err != nil {
		return nil, err
	}

	if split.InterestPortion.IsZero() && split.CapitalPortion.IsZero() {
		return nil, &ledger.ValidationError{Field: "loanID", Reason: "loan has no outstanding interest or capital"}
	}

	linkedTransactionID := input.LinkedTransactionID
	if linkedTransactionID == "" && h.txLog != nil {
		txID, err := h.txLog.RecordEntry(ctx, TransactionEntry{
			Kind:        TransactionKindLoanRepaid,
			LoanID:      l.ID,
			MemberID:    l.LenderMemberID,
			Amount:      input.Amount,
			Date:        input.Date,
			Description: input.Notes,
		})
		if err != nil {
			log.Printf("Error recording loan repayment transaction: %v\n", err)
		} else {
			linkedTransactionID = txID
		}
	}

	rep := loan.NewRepayment(l.ID, split, input.Date, input.Notes, linkedTransactionID)

	newCapital := l.CurrentCapital - split.CapitalPortion.Value
	newStatus := l.Status
	if newCapital == 0 {
		newStatus = loan.StatusClosed
	}

	commit := loan.RepaymentCommit{
		Repayment:       rep,
		PaidPeriodIDs:   split.PaidPeriodIDs,
		ExpectedCapital: l.CurrentCapital,
		NewCapital:      newCapital,
		NewStatus:       newStatus,
		IdempotencyKey:  input.IdempotencyKey,
	}
	if err := h.loanStore.ApplyRepayment(ctx, commit); err != nil {
		return nil, fmt.Errorf("apply repayment: %w", err)
	}

	if split.Surplus.IsPositive() {
		log.Printf("Loan %s over-payment: %s returned to caller as surplus\n", l.ID, split.Surplus)
	}

	return &RecordPaymentResult{Repayment: rep, Surplus: split.Surplus}, nil
}

// RepaymentIndex returns the 1-based position of a repayment within the
// loan's history ordered by payment date, for display ("1st repayment").
func (h *Service) RepaymentIndex(ctx context.Context, loanID, repaymentID string) (int, error) {
	repayments, err := h.loanStore.ListRepayments(ctx, loanID)
	if err != nil {
		return 0, fmt.Errorf("list repayments: %w", err)
	}

	for i, rep := range repayments {
		if rep.ID == repaymentID {
			return i + 1, nil
		}
	}
	return 0, &ledger.NotFoundError{Entity: "loan repayment", ID: repaymentID}
}

func (h *Service) RepaymentHistory(ctx context.Context, loanID string) ([]*loan.Repayment, error) {
	repayments, err := h.loanStore.ListRepayments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("list repayments: %w", err)
	}
	return repayments, nil
}
