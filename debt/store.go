package debt

import (
	"context"
	"time"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

// PendingFilter narrows a pending-debt listing to one side of the pair.
type PendingFilter struct {
	DebtorID   string
	CreditorID string
}

// SurplusCredit is a standalone credit banked for a debtor/creditor pair
// when a payment exceeded the debts it targeted.
type SurplusCredit struct {
	ID           string    `db:"id"`
	FromMemberID string    `db:"from_member_id"`
	ToMemberID   string    `db:"to_member_id"`
	Amount       int64     `db:"amount"`
	Currency     string    `db:"currency"`
	CreatedAt    time.Time `db:"created_at"`
}

func (c *SurplusCredit) Money() ledger.Amount {
	return ledger.NewAmount(c.Amount, c.Currency)
}

// AllocationCommit is the atomic unit applied after a FIFO allocation:
// settle the fully-paid requests, verify the partially-reached ones are
// still pending, bank the surplus. If any request raced out of pending the
// whole commit must fail; partial application is forbidden.
type AllocationCommit struct {
	// SettleRequestIDs are the requests whose allocation covered the full
	// amount; each flips pending -> settled.
	SettleRequestIDs []string
	// VerifyPendingIDs are requests the allocation touched without fully
	// covering; they stay pending but must still be pending at commit time.
	VerifyPendingIDs []string
	ActingMemberID   string
	SettledAt        time.Time
	// Surplus, when non-nil, is persisted in the same transaction.
	Surplus *SurplusCredit
	// IdempotencyKey, when non-empty, guards the commit against blind
	// client retries.
	IdempotencyKey string
}

type Store interface {
	CreateRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	// Settle flips pending -> settled. Returns a conflict error if the
	// request already reached a terminal state; a second settlement attempt
	// must be observably rejected, never a silent no-op.
	Settle(ctx context.Context, requestID, actingMemberID string, at time.Time) error
	// Cancel flips pending -> cancelled with the same terminal-state guard.
	Cancel(ctx context.Context, requestID string) error
	// ListPending returns pending debts ordered ascending by originating
	// date, then by request ID for a stable tie-break.
	ListPending(ctx context.Context, filter PendingFilter) ([]PendingDebt, error)
	// ListPendingForMembers returns pending debts where any given member is
	// debtor or creditor, same ordering as ListPending.
	ListPendingForMembers(ctx context.Context, memberIDs []string) ([]PendingDebt, error)
	// ApplyAllocation applies the commit as one transaction.
	ApplyAllocation(ctx context.Context, commit AllocationCommit) error
	ListSurplusCredits(ctx context.Context, fromMemberID, toMemberID string) ([]SurplusCredit, error)
}
