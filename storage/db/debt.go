package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cyberkelysoatra/bazarkely-sub000/debt"
	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

func (d *DBStore) CreateRequest(ctx context.Context, req *debt.Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	query, args, err := sq.Insert("reimbursement_requests").
		Columns("id", "shared_expense_id", "from_member_id", "to_member_id", "amount", "currency", "status", "note", "created_at", "settled_at", "settled_by").
		Values(req.ID, req.SharedExpenseID, req.FromMemberID, req.ToMemberID, req.Amount, req.Currency, req.Status, req.Note, req.CreatedAt, req.SettledAt, req.SettledBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("generating insert SQL: %w", err)
	}

	if _, err = d.db.ExecContext(ctx, query, args...); err != nil {
		return newExecError("adding reimbursement request", query, err, args...)
	}
	return nil
}

func (d *DBStore) GetRequest(ctx context.Context, id string) (*debt.Request, error) {
	query, args, err := sq.Select("*").From("reimbursement_requests").Where("id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	req := &debt.Request{}
	if err := d.db.GetContext(ctx, req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ledger.NotFoundError{Entity: "reimbursement request", ID: id}
		}
		return nil, newExecError("selecting reimbursement request", query, err, args...)
	}
	return req, nil
}

func (d *DBStore) Settle(ctx context.Context, requestID, actingMemberID string, at time.Time) error {
	return d.inTx(ctx, func(tx *sqlx.Tx) error {
		return settleRequestTx(tx, requestID, actingMemberID, at)
	})
}

func (d *DBStore) Cancel(ctx context.Context, requestID string) error {
	return d.inTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sq.Update("reimbursement_requests").
			Set("status", debt.StatusCancelled).
			Where("id=? AND status=?", requestID, debt.StatusPending).
			ToSql()
		if err != nil {
			return fmt.Errorf("generating update SQL: %w", err)
		}

		res, err := tx.Exec(query, args...)
		if err != nil {
			return newExecError("cancelling reimbursement request", query, err, args...)
		}
		return requireTransitioned(tx, res, requestID, "cancel")
	})
}

// settleRequestTx flips one request pending -> settled with a
// compare-and-set on the status column. Zero rows affected means either the
// request is gone or another writer already moved it to a terminal state.
func settleRequestTx(tx *sqlx.Tx, requestID, actingMemberID string, at time.Time) error {
	query, args, err := sq.Update("reimbursement_requests").
		Set("status", debt.StatusSettled).
		Set("settled_at", at).
		Set("settled_by", actingMemberID).
		Where("id=? AND status=?", requestID, debt.StatusPending).
		ToSql()
	if err != nil {
		return fmt.Errorf("generating update SQL: %w", err)
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return newExecError("settling reimbursement request", query, err, args...)
	}
	return requireTransitioned(tx, res, requestID, "settle")
}

// requireTransitioned turns a zero-row CAS update into the right typed
// error: not found when the row does not exist, conflict when it exists but
// left the pending state.
func requireTransitioned(tx *sqlx.Tx, res sql.Result, requestID, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var status string
	query, args, err := sq.Select("status").From("reimbursement_requests").Where("id=?", requestID).ToSql()
	if err != nil {
		return fmt.Errorf("generating select SQL: %w", err)
	}
	if err := tx.Get(&status, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ledger.NotFoundError{Entity: "reimbursement request", ID: requestID}
		}
		return newExecError("selecting request status", query, err, args...)
	}
	return &ledger.ConflictError{
		Entity: "reimbursement request",
		ID:     requestID,
		Reason: fmt.Sprintf("cannot %s a request in status %q", op, status),
	}
}

func (d *DBStore) ListPending(ctx context.Context, filter debt.PendingFilter) ([]debt.PendingDebt, error) {
	builder := sq.Select("*").From("reimbursement_requests").Where("status=?", debt.StatusPending)
	if filter.DebtorID != "" {
		builder = builder.Where("from_member_id=?", filter.DebtorID)
	}
	if filter.CreditorID != "" {
		builder = builder.Where("to_member_id=?", filter.CreditorID)
	}
	return d.selectPending(ctx, builder)
}

func (d *DBStore) ListPendingForMembers(ctx context.Context, memberIDs []string) ([]debt.PendingDebt, error) {
	if len(memberIDs) == 0 {
		return []debt.PendingDebt{}, nil
	}
	builder := sq.Select("*").From("reimbursement_requests").
		Where("status=?", debt.StatusPending).
		Where(sq.Or{sq.Eq{"from_member_id": memberIDs}, sq.Eq{"to_member_id": memberIDs}})
	return d.selectPending(ctx, builder)
}

func (d *DBStore) selectPending(ctx context.Context, builder sq.SelectBuilder) ([]debt.PendingDebt, error) {
	query, args, err := builder.OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	requests := []*debt.Request{}
	if err := d.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, newExecError("selecting pending requests", query, err, args...)
	}

	pending := make([]debt.PendingDebt, 0, len(requests))
	for _, req := range requests {
		pending = append(pending, debt.PendingDebt{
			RequestID:   req.ID,
			DebtorID:    req.FromMemberID,
			CreditorID:  req.ToMemberID,
			Amount:      req.Money(),
			Date:        req.CreatedAt,
			Description: req.Note,
		})
	}
	return pending, nil
}

// ApplyAllocation commits a FIFO allocation as one transaction: every
// fully-paid request is settled under a CAS guard, every partially-reached
// request is verified still pending, and the surplus credit is banked. Any
// guard miss rolls the whole commit back.
func (d *DBStore) ApplyAllocation(ctx context.Context, commit debt.AllocationCommit) error {
	return d.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := claimIdempotencyKey(tx, commit.IdempotencyKey, "apply_allocation"); err != nil {
			return err
		}

		for _, id := range commit.SettleRequestIDs {
			if err := settleRequestTx(tx, id, commit.ActingMemberID, commit.SettledAt); err != nil {
				return err
			}
		}

		for _, id := range commit.VerifyPendingIDs {
			var status string
			query, args, err := sq.Select("status").From("reimbursement_requests").Where("id=?", id).ToSql()
			if err != nil {
				return fmt.Errorf("generating select SQL: %w", err)
			}
			if err := tx.Get(&status, query, args...); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return &ledger.NotFoundError{Entity: "reimbursement request", ID: id}
				}
				return newExecError("selecting request status", query, err, args...)
			}
			if status != string(debt.StatusPending) {
				return &ledger.ConflictError{
					Entity: "reimbursement request",
					ID:     id,
					Reason: fmt.Sprintf("allocation computed against a pending request now in status %q", status),
				}
			}
		}

		if commit.Surplus != nil {
			if err := insertSurplusCreditTx(tx, commit.Surplus); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertSurplusCreditTx(tx *sqlx.Tx, credit *debt.SurplusCredit) error {
	if credit.ID == "" {
		credit.ID = uuid.NewString()
	}
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = time.Now()
	}

	query, args, err := sq.Insert("member_credits").
		Columns("id", "from_member_id", "to_member_id", "amount", "currency", "created_at").
		Values(credit.ID, credit.FromMemberID, credit.ToMemberID, credit.Amount, credit.Currency, credit.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("generating insert SQL: %w", err)
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return newExecError("adding surplus credit", query, err, args...)
	}
	return nil
}

func (d *DBStore) ListSurplusCredits(ctx context.Context, fromMemberID, toMemberID string) ([]debt.SurplusCredit, error) {
	query, args, err := sq.Select("*").From("member_credits").
		Where("from_member_id=? AND to_member_id=?", fromMemberID, toMemberID).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	credits := []debt.SurplusCredit{}
	if err := d.db.SelectContext(ctx, &credits, query, args...); err != nil {
		return nil, newExecError("selecting surplus credits", query, err, args...)
	}
	return credits, nil
}
