package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

func unpaidPeriod(id string, interest int64) *InterestPeriod {
	return &InterestPeriod{
		ID:             id,
		LoanID:         "loan",
		PeriodStart:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		CapitalAtStart: 100000,
		InterestAmount: interest,
		Currency:       "MGA",
		Status:         PeriodUnpaid,
	}
}

func TestSplitPayment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		amount          int64
		capital         int64
		periods         []*InterestPeriod
		expectInterest  int64
		expectCapital   int64
		expectSurplus   int64
		expectPaidCount int
	}{
		{
			name:            "Interest then capital",
			amount:          20000,
			capital:         100000,
			periods:         []*InterestPeriod{unpaidPeriod("p1", 5000)},
			expectInterest:  5000,
			expectCapital:   15000,
			expectSurplus:   0,
			expectPaidCount: 1,
		},
		{
			name:            "No periods means all capital",
			amount:          30000,
			capital:         100000,
			periods:         nil,
			expectInterest:  0,
			expectCapital:   30000,
			expectSurplus:   0,
			expectPaidCount: 0,
		},
		{
			name:    "Multiple periods cleared oldest first",
			amount:  13000,
			capital: 100000,
			periods: []*InterestPeriod{
				unpaidPeriod("p1", 5000),
				unpaidPeriod("p2", 5000),
			},
			expectInterest:  10000,
			expectCapital:   3000,
			expectSurplus:   0,
			expectPaidCount: 2,
		},
		{
			name:            "Payment exactly covers interest",
			amount:          5000,
			capital:         100000,
			periods:         []*InterestPeriod{unpaidPeriod("p1", 5000)},
			expectInterest:  5000,
			expectCapital:   0,
			expectSurplus:   0,
			expectPaidCount: 1,
		},
		{
			name:    "Exhausted before later periods",
			amount:  5000,
			capital: 100000,
			periods: []*InterestPeriod{
				unpaidPeriod("p1", 5000),
				unpaidPeriod("p2", 7000),
			},
			expectInterest:  5000,
			expectCapital:   0,
			expectSurplus:   0,
			expectPaidCount: 1,
		},
		{
			name:            "Over-payment is capped with surplus",
			amount:          120000,
			capital:         100000,
			periods:         []*InterestPeriod{unpaidPeriod("p1", 5000)},
			expectInterest:  5000,
			expectCapital:   100000,
			expectSurplus:   15000,
			expectPaidCount: 1,
		},
		{
			name:    "Zero-interest period is covered for free",
			amount:  1000,
			capital: 100000,
			periods: []*InterestPeriod{
				unpaidPeriod("p1", 0),
				unpaidPeriod("p2", 800),
			},
			expectInterest:  800,
			expectCapital:   200,
			expectSurplus:   0,
			expectPaidCount: 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			split, err := SplitPayment(ledger.NewAmount(tc.amount, "MGA"), ledger.NewAmount(tc.capital, "MGA"), tc.periods)
			require.NoError(t, err)

			assert.Equal(t, tc.expectInterest, split.InterestPortion.Value)
			assert.Equal(t, tc.expectCapital, split.CapitalPortion.Value)
			assert.Equal(t, tc.expectSurplus, split.Surplus.Value)
			assert.Len(t, split.PaidPeriodIDs, tc.expectPaidCount)

			// Conservation: interest + capital + surplus == amount.
			assert.Equal(t, tc.amount, split.InterestPortion.Value+split.CapitalPortion.Value+split.Surplus.Value)
		})
	}
}

func TestSplitPaymentRejectsPartialPeriod(t *testing.T) {
	t.Parallel()

	// 3000 against a single 5000 interest period: splitting inside a
	// period is undefined, so the payment is rejected outright.
	_, err := SplitPayment(ledger.NewAmount(3000, "MGA"), ledger.NewAmount(100000, "MGA"),
		[]*InterestPeriod{unpaidPeriod("p1", 5000)})
	assert.True(t, ledger.IsValidation(err))
}

func TestSplitPaymentRejectsShortSecondPeriod(t *testing.T) {
	t.Parallel()

	// First period covered, 2000 left against a 5000 period.
	_, err := SplitPayment(ledger.NewAmount(7000, "MGA"), ledger.NewAmount(100000, "MGA"),
		[]*InterestPeriod{
			unpaidPeriod("p1", 5000),
			unpaidPeriod("p2", 5000),
		})
	assert.True(t, ledger.IsValidation(err))
}

func TestSplitPaymentRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := SplitPayment(ledger.NewAmount(0, "MGA"), ledger.NewAmount(1000, "MGA"), nil)
	assert.True(t, ledger.IsValidation(err))

	_, err = SplitPayment(ledger.NewAmount(100, "EUR"), ledger.NewAmount(1000, "MGA"), nil)
	assert.True(t, ledger.IsValidation(err))

	paid := unpaidPeriod("p1", 500)
	paid.Status = PeriodPaid
	_, err = SplitPayment(ledger.NewAmount(1000, "MGA"), ledger.NewAmount(1000, "MGA"), []*InterestPeriod{paid})
	assert.True(t, ledger.IsValidation(err))
}

func TestNewLoanValidation(t *testing.T) {
	t.Parallel()

	valid := CreateInput{
		LenderMemberID: "lender",
		BorrowerName:   "Cousin",
		BorrowerPhone:  "+261340000000",
		Amount:         ledger.NewAmount(100000, "MGA"),
		InterestRate:   decimal.NewFromInt(5),
		Frequency:      FrequencyMonthly,
	}

	tests := []struct {
		name    string
		mutate  func(*CreateInput)
		wantErr bool
	}{
		{name: "External borrower", mutate: func(i *CreateInput) {}, wantErr: false},
		{name: "Member borrower", mutate: func(i *CreateInput) {
			i.BorrowerName, i.BorrowerPhone = "", ""
			i.BorrowerMemberID = "member-2"
		}, wantErr: false},
		{name: "Zero rate allowed", mutate: func(i *CreateInput) { i.InterestRate = decimal.Zero }, wantErr: false},
		{name: "Missing lender", mutate: func(i *CreateInput) { i.LenderMemberID = "" }, wantErr: true},
		{name: "Name without phone", mutate: func(i *CreateInput) { i.BorrowerPhone = "" }, wantErr: true},
		{name: "No counterparty at all", mutate: func(i *CreateInput) { i.BorrowerName, i.BorrowerPhone = "", "" }, wantErr: true},
		{name: "Non-positive amount", mutate: func(i *CreateInput) { i.Amount = ledger.NewAmount(0, "MGA") }, wantErr: true},
		{name: "Negative rate", mutate: func(i *CreateInput) { i.InterestRate = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "Unknown frequency", mutate: func(i *CreateInput) { i.Frequency = "yearly" }, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)

			l, err := New(input)
			if tc.wantErr {
				assert.True(t, ledger.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, l.ID)
			assert.Equal(t, l.AmountInitial, l.CurrentCapital)
			assert.Equal(t, StatusPending, l.Status)
		})
	}
}

func TestLoanEffectiveStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)
	future := now.AddDate(0, 1, 0)

	l := &Loan{CurrentCapital: 50000, Status: StatusActive}
	assert.Equal(t, StatusActive, l.EffectiveStatus(now))

	l.DueDate = &future
	assert.Equal(t, StatusActive, l.EffectiveStatus(now))

	l.DueDate = &past
	assert.Equal(t, StatusLate, l.EffectiveStatus(now))

	l.CurrentCapital = 0
	assert.Equal(t, StatusClosed, l.EffectiveStatus(now))
}

func TestNewInterestPeriodFreezesCapital(t *testing.T) {
	t.Parallel()

	l := &Loan{
		ID:             "loan",
		CurrentCapital: 80000,
		Currency:       "MGA",
		InterestRate:   decimal.NewFromInt(5),
	}

	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	period, err := NewInterestPeriod(l, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), period.CapitalAtStart)
	assert.Equal(t, int64(4000), period.InterestAmount)
	assert.Equal(t, PeriodUnpaid, period.Status)

	_, err = NewInterestPeriod(l, end, start)
	assert.True(t, ledger.IsValidation(err))

	_, err = NewInterestPeriod(l, start, start)
	assert.True(t, ledger.IsValidation(err))
}
