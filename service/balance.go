package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

// MemberBalance is the derived position of one member towards another in
// one currency: what they are waiting to receive and what they still owe.
// It is recomputed from the pending requests on every read; there is no
// stored running total to drift from the ledger.
type MemberBalance struct {
	MemberID         string        `json:"member_id"`
	OtherMemberID    string        `json:"other_member_id"`
	PendingToReceive ledger.Amount `json:"pending_to_receive"`
	PendingToPay     ledger.Amount `json:"pending_to_pay"`
}

// MemberBalances derives per-member-pair balances for a family group from
// the pending reimbursement requests.
func (h *Service) MemberBalances(ctx context.Context, groupID string) ([]MemberBalance, error) {
	if h.members == nil {
		return nil, fmt.Errorf("no member directory configured")
	}

	memberIDs, err := h.members.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group members: %w", err)
	}
	if len(memberIDs) == 0 {
		return []MemberBalance{}, nil
	}

	pending, err := h.debtStore.ListPendingForMembers(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("list pending for members: %w", err)
	}

	type pairKey struct {
		member   string
		other    string
		currency string
	}
	balances := make(map[pairKey]*MemberBalance)
	upsert := func(member, other, currency string) *MemberBalance {
		key := pairKey{member: member, other: other, currency: currency}
		if b, ok := balances[key]; ok {
			return b
		}
		b := &MemberBalance{
			MemberID:         member,
			OtherMemberID:    other,
			PendingToReceive: ledger.NewAmount(0, currency),
			PendingToPay:     ledger.NewAmount(0, currency),
		}
		balances[key] = b
		return b
	}

	for _, d := range pending {
		creditor := upsert(d.CreditorID, d.DebtorID, d.Amount.Currency)
		creditor.PendingToReceive.Value += d.Amount.Value

		debtor := upsert(d.DebtorID, d.CreditorID, d.Amount.Currency)
		debtor.PendingToPay.Value += d.Amount.Value
	}

	result := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MemberID != result[j].MemberID {
			return result[i].MemberID < result[j].MemberID
		}
		if result[i].OtherMemberID != result[j].OtherMemberID {
			return result[i].OtherMemberID < result[j].OtherMemberID
		}
		return result[i].PendingToReceive.Currency < result[j].PendingToReceive.Currency
	})
	return result, nil
}

// LoanProgress is derived strictly from the repayment history; none of the
// fields are stored anywhere.
type LoanProgress struct {
	TotalRepaid       ledger.Amount   `json:"total_repaid"`
	TotalInterestPaid ledger.Amount   `json:"total_interest_paid"`
	RemainingBalance  ledger.Amount   `json:"remaining_balance"`
	Percentage        decimal.Decimal `json:"percentage"`
}

// LoanProgress recomputes a loan's repayment progress from its append-only
// history. Percentage is the share of the initial capital repaid, rounded
// to two decimal places.
func (h *Service) LoanProgress(ctx context.Context, loanID string) (*LoanProgress, error) {
	l, err := h.loanStore.GetLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}

	repayments, err := h.loanStore.ListRepayments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("list repayments: %w", err)
	}

	var totalRepaid, totalInterest, totalCapital int64
	for _, rep := range repayments {
		totalRepaid += rep.AmountPaid
		totalInterest += rep.InterestPortion
		totalCapital += rep.CapitalPortion
	}

	percentage := decimal.Zero
	if l.AmountInitial > 0 {
		percentage = decimal.NewFromInt(totalCapital).
			Mul(decimal.NewFromInt(100)).
			DivRound(decimal.NewFromInt(l.AmountInitial), 2)
	}

	return &LoanProgress{
		TotalRepaid:       ledger.NewAmount(totalRepaid, l.Currency),
		TotalInterestPaid: ledger.NewAmount(totalInterest, l.Currency),
		RemainingBalance:  ledger.NewAmount(l.AmountInitial-totalCapital, l.Currency),
		Percentage:        percentage,
	}, nil
}
