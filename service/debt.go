package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cyberkelysoatra/bazarkely-sub000/debt"
	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

type CreateRequestInput struct {
	DebtorID        string
	CreditorID      string
	Amount          ledger.Amount
	SharedExpenseID string
	Note            string
}

func (h *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (*debt.Request, error) {
	req, err := debt.NewRequest(input.DebtorID, input.CreditorID, input.Amount, input.SharedExpenseID, input.Note)
	if err != nil {
		return nil, err
	}

	if err := h.debtStore.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// SettleRequest marks one request as reimbursed. A request already settled
// or cancelled is rejected with a conflict so a racing second settlement is
// observable to the caller.
func (h *Service) SettleRequest(ctx context.Context, requestID, actingMemberID string) error {
	if actingMemberID == "" {
		return &ledger.ValidationError{Field: "actingMemberID", Reason: "required"}
	}
	if err := h.debtStore.Settle(ctx, requestID, actingMemberID, h.now()); err != nil {
		return fmt.Errorf("settle request: %w", err)
	}
	return nil
}

// CancelRequest voids a pending request, typically because the underlying
// shared expense was unshared.
func (h *Service) CancelRequest(ctx context.Context, requestID string) error {
	if err := h.debtStore.Cancel(ctx, requestID); err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	return nil
}

func (h *Service) ListPendingDebts(ctx context.Context, filter debt.PendingFilter) ([]debt.PendingDebt, error) {
	pending, err := h.debtStore.ListPending(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return pending, nil
}

// PreviewAllocation computes the FIFO allocation without touching the
// ledger. CommitAllocation runs the same pure function, so what the member
// previews is exactly what gets committed.
func (h *Service) PreviewAllocation(payment ledger.Amount, debts []debt.PendingDebt) (*debt.AllocationResult, error) {
	return debt.Allocate(payment, debts)
}

type CommitAllocationInput struct {
	Payment        ledger.Amount
	Debts          []debt.PendingDebt
	ActingMemberID string
	IdempotencyKey string
}

// CommitAllocationResult reports what was applied. Surplus, when positive,
// was banked as a standalone credit for the debtor/creditor pair.
type CommitAllocationResult struct {
	Allocation *debt.AllocationResult
	Surplus    ledger.Amount
}

// CommitAllocation recomputes the allocation against the provided debts and
// applies it atomically: fully-paid requests are settled, partially-reached
// ones are verified still pending, surplus is banked. If any request raced
// out of pending since the debts were listed, nothing is applied and the
// caller gets a conflict to recompute against fresh state.
func (h *Service) CommitAllocation(ctx context.Context, input CommitAllocationInput) (*CommitAllocationResult, error) {
	if input.ActingMemberID == "" {
		return nil, &ledger.ValidationError{Field: "actingMemberID", Reason: "required"}
	}
	if len(input.Debts) == 0 {
		return nil, &ledger.ValidationError{Field: "debts", Reason: "at least one pending debt is required"}
	}

	debtorID := input.Debts[0].DebtorID
	creditorID := input.Debts[0].CreditorID
	for _, d := range input.Debts {
		if d.DebtorID != debtorID || d.CreditorID != creditorID {
			return nil, &ledger.ValidationError{Field: "debts", Reason: "all debts must share one debtor/creditor pair"}
		}
	}

	result, err := debt.Allocate(input.Payment, input.Debts)
	if err != nil {
		return nil, err
	}

	commit := debt.AllocationCommit{
		ActingMemberID: input.ActingMemberID,
		SettledAt:      h.now(),
		IdempotencyKey: input.IdempotencyKey,
	}
	for _, a := range result.Allocations {
		if a.FullyPaid {
			commit.SettleRequestIDs = append(commit.SettleRequestIDs, a.Debt.RequestID)
		} else {
			commit.VerifyPendingIDs = append(commit.VerifyPendingIDs, a.Debt.RequestID)
		}
	}
	if result.Surplus.IsPositive() {
		commit.Surplus = &debt.SurplusCredit{
			FromMemberID: debtorID,
			ToMemberID:   creditorID,
			Amount:       result.Surplus.Value,
			Currency:     result.Surplus.Currency,
		}
	}

	if err := h.debtStore.ApplyAllocation(ctx, commit); err != nil {
		return nil, fmt.Errorf("apply allocation: %w", err)
	}

	if result.Surplus.IsPositive() {
		log.Printf("Banked allocation surplus of %s for pair %s -> %s\n", result.Surplus, debtorID, creditorID)
	}

	return &CommitAllocationResult{Allocation: result, Surplus: result.Surplus}, nil
}
