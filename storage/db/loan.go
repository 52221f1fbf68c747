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

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
	"github.com/cyberkelysoatra/bazarkely-sub000/loan"
)

func (d *DBStore) CreateLoan(ctx context.Context, l *loan.Loan) error {
	if l == nil {
		return fmt.Errorf("nil loan")
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	query, args, err := sq.Insert("loans").
		Columns("id", "lender_member_id", "borrower_member_id", "borrower_name", "borrower_phone",
			"amount_initial", "currency", "interest_rate", "interest_frequency", "current_capital",
			"due_date", "status", "linked_creation_transaction_id", "created_at").
		Values(l.ID, l.LenderMemberID, l.BorrowerMemberID, l.BorrowerName, l.BorrowerPhone,
			l.AmountInitial, l.Currency, l.InterestRate, l.InterestFrequency, l.CurrentCapital,
			l.DueDate, l.Status, l.LinkedCreationTransactionID, l.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("generating insert SQL: %w", err)
	}

	if _, err = d.db.ExecContext(ctx, query, args...); err != nil {
		return newExecError("adding loan", query, err, args...)
	}
	return nil
}

func (d *DBStore) GetLoan(ctx context.Context, id string) (*loan.Loan, error) {
	query, args, err := sq.Select("*").From("loans").Where("id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	l := &loan.Loan{}
	if err := d.db.GetContext(ctx, l, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ledger.NotFoundError{Entity: "loan", ID: id}
		}
		return nil, newExecError("selecting loan", query, err, args...)
	}
	return l, nil
}

// AddInterestPeriod opens an accrual window inside one transaction so the
// frozen capital_at_start reflects the loan row at the moment the window
// opened, not a stale read.
func (d *DBStore) AddInterestPeriod(ctx context.Context, loanID string, periodStart, periodEnd time.Time) (*loan.InterestPeriod, error) {
	var period *loan.InterestPeriod
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sq.Select("*").From("loans").Where("id=?", loanID).ToSql()
		if err != nil {
			return fmt.Errorf("generating select SQL: %w", err)
		}
		l := &loan.Loan{}
		if err := tx.Get(l, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &ledger.NotFoundError{Entity: "loan", ID: loanID}
			}
			return newExecError("selecting loan", query, err, args...)
		}

		period, err = loan.NewInterestPeriod(l, periodStart, periodEnd)
		if err != nil {
			return err
		}

		// Periods for a loan are contiguous and non-overlapping; a new
		// window must start at or after the latest known end.
		var overlapping int
		query, args, err = sq.Select("COUNT(*)").From("loan_interest_periods").
			Where("loan_id=? AND period_start < ? AND period_end > ?", loanID, periodEnd, periodStart).
			ToSql()
		if err != nil {
			return fmt.Errorf("generating select SQL: %w", err)
		}
		if err := tx.Get(&overlapping, query, args...); err != nil {
			return newExecError("counting overlapping periods", query, err, args...)
		}
		if overlapping > 0 {
			return &ledger.ValidationError{Field: "period", Reason: "overlaps an existing interest period"}
		}

		var latestEnd sql.NullTime
		query, args, err = sq.Select("MAX(period_end)").From("loan_interest_periods").Where("loan_id=?", loanID).ToSql()
		if err != nil {
			return fmt.Errorf("generating select SQL: %w", err)
		}
		if err := tx.Get(&latestEnd, query, args...); err != nil {
			return newExecError("selecting latest period end", query, err, args...)
		}
		if latestEnd.Valid && periodStart.Before(latestEnd.Time) {
			return &ledger.ValidationError{Field: "period", Reason: "starts before the latest existing period ends"}
		}

		query, args, err = sq.Insert("loan_interest_periods").
			Columns("id", "loan_id", "period_start", "period_end", "capital_at_start", "interest_amount", "currency", "status", "created_at").
			Values(period.ID, period.LoanID, period.PeriodStart, period.PeriodEnd, period.CapitalAtStart, period.InterestAmount, period.Currency, period.Status, period.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("generating insert SQL: %w", err)
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return newExecError("adding interest period", query, err, args...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return period, nil
}

func (d *DBStore) UnpaidInterestPeriods(ctx context.Context, loanID string) ([]*loan.InterestPeriod, error) {
	return d.selectPeriods(ctx, sq.Select("*").From("loan_interest_periods").
		Where("loan_id=? AND status=?", loanID, loan.PeriodUnpaid))
}

func (d *DBStore) ListInterestPeriods(ctx context.Context, loanID string) ([]*loan.InterestPeriod, error) {
	return d.selectPeriods(ctx, sq.Select("*").From("loan_interest_periods").Where("loan_id=?", loanID))
}

func (d *DBStore) selectPeriods(ctx context.Context, builder sq.SelectBuilder) ([]*loan.InterestPeriod, error) {
	query, args, err := builder.OrderBy("period_start ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	periods := []*loan.InterestPeriod{}
	if err := d.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, newExecError("selecting interest periods", query, err, args...)
	}
	return periods, nil
}

// ApplyRepayment commits a repayment split as one transaction: covered
// periods flip unpaid -> paid, the capital decrement is guarded by a
// compare-and-set on the value the split was computed against, and the
// immutable repayment row is appended. A concurrent payment trips a guard
// and rolls everything back, so periods are never marked paid without the
// matching capital decrement.
func (d *DBStore) ApplyRepayment(ctx context.Context, commit loan.RepaymentCommit) error {
	if commit.Repayment == nil {
		return fmt.Errorf("nil repayment")
	}

	return d.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := claimIdempotencyKey(tx, commit.IdempotencyKey, "apply_repayment"); err != nil {
			return err
		}

		for _, periodID := range commit.PaidPeriodIDs {
			query, args, err := sq.Update("loan_interest_periods").
				Set("status", loan.PeriodPaid).
				Where("id=? AND status=?", periodID, loan.PeriodUnpaid).
				ToSql()
			if err != nil {
				return fmt.Errorf("generating update SQL: %w", err)
			}
			res, err := tx.Exec(query, args...)
			if err != nil {
				return newExecError("marking interest period paid", query, err, args...)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if affected != 1 {
				return &ledger.ConflictError{
					Entity: "interest period",
					ID:     periodID,
					Reason: "period is no longer unpaid",
				}
			}
		}

		rep := commit.Repayment
		query, args, err := sq.Update("loans").
			Set("current_capital", commit.NewCapital).
			Set("status", commit.NewStatus).
			Where("id=? AND current_capital=?", rep.LoanID, commit.ExpectedCapital).
			ToSql()
		if err != nil {
			return fmt.Errorf("generating update SQL: %w", err)
		}
		res, err := tx.Exec(query, args...)
		if err != nil {
			return newExecError("updating loan capital", query, err, args...)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected != 1 {
			return &ledger.ConflictError{
				Entity: "loan",
				ID:     rep.LoanID,
				Reason: fmt.Sprintf("capital moved past %d since the split was computed", commit.ExpectedCapital),
			}
		}

		query, args, err = sq.Insert("loan_repayments").
			Columns("id", "loan_id", "linked_transaction_id", "amount_paid", "interest_portion", "capital_portion", "currency", "payment_date", "notes", "created_at").
			Values(rep.ID, rep.LoanID, rep.LinkedTransactionID, rep.AmountPaid, rep.InterestPortion, rep.CapitalPortion, rep.Currency, rep.PaymentDate, rep.Notes, rep.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("generating insert SQL: %w", err)
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return newExecError("adding loan repayment", query, err, args...)
		}
		return nil
	})
}

func (d *DBStore) ListRepayments(ctx context.Context, loanID string) ([]*loan.Repayment, error) {
	query, args, err := sq.Select("*").From("loan_repayments").
		Where("loan_id=?", loanID).
		OrderBy("payment_date ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	repayments := []*loan.Repayment{}
	if err := d.db.SelectContext(ctx, &repayments, query, args...); err != nil {
		return nil, newExecError("selecting loan repayments", query, err, args...)
	}
	return repayments, nil
}
