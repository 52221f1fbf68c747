package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/cyberkelysoatra/bazarkely-sub000/debt"
	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
	"github.com/cyberkelysoatra/bazarkely-sub000/loan"
	"github.com/cyberkelysoatra/bazarkely-sub000/service"
)

type createRequestBody struct {
	DebtorID        string `json:"debtor_id"`
	CreditorID      string `json:"creditor_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	SharedExpenseID string `json:"shared_expense_id"`
	Note            string `json:"note"`
}

func (s *Server) createRequestHandler(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if !s.readJSON(w, r, &body) {
		return
	}

	req, err := s.service.CreateRequest(r.Context(), service.CreateRequestInput{
		DebtorID:        body.DebtorID,
		CreditorID:      body.CreditorID,
		Amount:          ledger.NewAmount(body.Amount, body.Currency),
		SharedExpenseID: body.SharedExpenseID,
		Note:            body.Note,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, req)
}

type settleRequestBody struct {
	ActingMemberID string `json:"acting_member_id"`
}

func (s *Server) settleRequestHandler(w http.ResponseWriter, r *http.Request) {
	var body settleRequestBody
	if !s.readJSON(w, r, &body) {
		return
	}

	if err := s.service.SettleRequest(r.Context(), mux.Vars(r)["id"], body.ActingMemberID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cancelRequestHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelRequest(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPendingHandler(w http.ResponseWriter, r *http.Request) {
	filter := debt.PendingFilter{
		DebtorID:   r.URL.Query().Get("debtor_id"),
		CreditorID: r.URL.Query().Get("creditor_id"),
	}

	pending, err := s.service.ListPendingDebts(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pending)
}

type allocationBody struct {
	Amount         int64              `json:"amount"`
	Currency       string             `json:"currency"`
	Debts          []debt.PendingDebt `json:"debts"`
	ActingMemberID string             `json:"acting_member_id"`
	IdempotencyKey string             `json:"idempotency_key"`
}

func (s *Server) previewAllocationHandler(w http.ResponseWriter, r *http.Request) {
	var body allocationBody
	if !s.readJSON(w, r, &body) {
		return
	}

	result, err := s.service.PreviewAllocation(ledger.NewAmount(body.Amount, body.Currency), body.Debts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) commitAllocationHandler(w http.ResponseWriter, r *http.Request) {
	var body allocationBody
	if !s.readJSON(w, r, &body) {
		return
	}

	result, err := s.service.CommitAllocation(r.Context(), service.CommitAllocationInput{
		Payment:        ledger.NewAmount(body.Amount, body.Currency),
		Debts:          body.Debts,
		ActingMemberID: body.ActingMemberID,
		IdempotencyKey: body.IdempotencyKey,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) memberBalancesHandler(w http.ResponseWriter, r *http.Request) {
	balances, err := s.service.MemberBalances(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balances)
}

type createLoanBody struct {
	LenderMemberID    string     `json:"lender_member_id"`
	BorrowerMemberID  string     `json:"borrower_member_id"`
	BorrowerName      string     `json:"borrower_name"`
	BorrowerPhone     string     `json:"borrower_phone"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	InterestRate      string     `json:"interest_rate"`
	InterestFrequency string     `json:"interest_frequency"`
	DueDate           *time.Time `json:"due_date"`
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var body createLoanBody
	if !s.readJSON(w, r, &body) {
		return
	}

	rate, err := decimal.NewFromString(body.InterestRate)
	if err != nil {
		s.writeError(w, &ledger.ValidationError{Field: "interestRate", Reason: "must be a decimal number"})
		return
	}

	l, err := s.service.CreateLoan(r.Context(), loan.CreateInput{
		LenderMemberID:   body.LenderMemberID,
		BorrowerMemberID: body.BorrowerMemberID,
		BorrowerName:     body.BorrowerName,
		BorrowerPhone:    body.BorrowerPhone,
		Amount:           ledger.NewAmount(body.Amount, body.Currency),
		InterestRate:     rate,
		Frequency:        loan.Frequency(body.InterestFrequency),
		DueDate:          body.DueDate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, l)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	l, err := s.service.GetLoan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, l)
}

type interestPeriodBody struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (s *Server) generateInterestPeriodHandler(w http.ResponseWriter, r *http.Request) {
	var body interestPeriodBody
	if !s.readJSON(w, r, &body) {
		return
	}

	period, err := s.service.GenerateInterestPeriod(r.Context(), mux.Vars(r)["id"], body.PeriodStart, body.PeriodEnd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, period)
}

func (s *Server) unpaidInterestPeriodsHandler(w http.ResponseWriter, r *http.Request) {
	periods, err := s.service.UnpaidInterestPeriods(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, periods)
}

type recordPaymentBody struct {
	Amount              int64     `json:"amount"`
	Currency            string    `json:"currency"`
	Date                time.Time `json:"date"`
	Notes               string    `json:"notes"`
	LinkedTransactionID string    `json:"linked_transaction_id"`
	IdempotencyKey      string    `json:"idempotency_key"`
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var body recordPaymentBody
	if !s.readJSON(w, r, &body) {
		return
	}

	result, err := s.service.RecordPayment(r.Context(), service.RecordPaymentInput{
		LoanID:              mux.Vars(r)["id"],
		Amount:              ledger.NewAmount(body.Amount, body.Currency),
		Date:                body.Date,
		Notes:               body.Notes,
		LinkedTransactionID: body.LinkedTransactionID,
		IdempotencyKey:      body.IdempotencyKey,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) repaymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	repayments, err := s.service.RepaymentHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, repayments)
}

type repaymentIndexResponse struct {
	Index int `json:"index"`
}

func (s *Server) repaymentIndexHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := s.service.RepaymentIndex(r.Context(), vars["id"], vars["repaymentID"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, repaymentIndexResponse{Index: index})
}

func (s *Server) loanProgressHandler(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.LoanProgress(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}
