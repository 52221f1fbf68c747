package debt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func pendingDebt(id string, amount int64, date time.Time) PendingDebt {
	return PendingDebt{
		RequestID:   id,
		DebtorID:    "debtor",
		CreditorID:  "creditor",
		Amount:      ledger.NewAmount(amount, "MGA"),
		Date:        date,
		Description: "groceries",
	}
}

func TestAllocateFIFO(t *testing.T) {
	t.Parallel()

	d1 := pendingDebt("d1", 1000, day(1))
	d2 := pendingDebt("d2", 2000, day(5))
	d3 := pendingDebt("d3", 500, day(10))

	tests := []struct {
		name            string
		payment         int64
		debts           []PendingDebt
		expectAllocated map[string]int64
		expectFullyPaid map[string]bool
		expectSurplus   int64
	}{
		{
			name:            "Partial middle debt",
			payment:         2500,
			debts:           []PendingDebt{d1, d2, d3},
			expectAllocated: map[string]int64{"d1": 1000, "d2": 1500},
			expectFullyPaid: map[string]bool{"d1": true, "d2": false},
			expectSurplus:   0,
		},
		{
			name:            "All paid with surplus",
			payment:         4000,
			debts:           []PendingDebt{d1, d2, d3},
			expectAllocated: map[string]int64{"d1": 1000, "d2": 2000, "d3": 500},
			expectFullyPaid: map[string]bool{"d1": true, "d2": true, "d3": true},
			expectSurplus:   500,
		},
		{
			name:            "Exact single debt",
			payment:         1000,
			debts:           []PendingDebt{d1, d2, d3},
			expectAllocated: map[string]int64{"d1": 1000},
			expectFullyPaid: map[string]bool{"d1": true},
			expectSurplus:   0,
		},
		{
			name:            "Unsorted input is sorted by date",
			payment:         1200,
			debts:           []PendingDebt{d3, d2, d1},
			expectAllocated: map[string]int64{"d1": 1000, "d2": 200},
			expectFullyPaid: map[string]bool{"d1": true, "d2": false},
			expectSurplus:   0,
		},
		{
			name:            "No debts at all is pure surplus",
			payment:         700,
			debts:           []PendingDebt{},
			expectAllocated: map[string]int64{},
			expectFullyPaid: map[string]bool{},
			expectSurplus:   700,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Allocate(ledger.NewAmount(tc.payment, "MGA"), tc.debts)
			require.NoError(t, err)

			assert.Len(t, result.Allocations, len(tc.expectAllocated))
			for _, a := range result.Allocations {
				assert.Equal(t, tc.expectAllocated[a.Debt.RequestID], a.Allocated.Value, "allocated on %s", a.Debt.RequestID)
				assert.Equal(t, tc.expectFullyPaid[a.Debt.RequestID], a.FullyPaid, "fully paid on %s", a.Debt.RequestID)
				assert.Equal(t, a.Debt.Amount.Value-a.Allocated.Value, a.RemainingOnDebt.Value)
			}
			assert.Equal(t, tc.expectSurplus, result.Surplus.Value)

			// Conservation: no money created or destroyed.
			total := result.Surplus.Value
			for _, a := range result.Allocations {
				total += a.Allocated.Value
			}
			assert.Equal(t, tc.payment, total)
		})
	}
}

// A later debt receives anything only if every earlier debt is fully paid.
func TestAllocateOrderingProperty(t *testing.T) {
	t.Parallel()

	debts := []PendingDebt{
		pendingDebt("a", 300, day(3)),
		pendingDebt("b", 700, day(1)),
		pendingDebt("c", 200, day(3)), // same date as "a", later ID
		pendingDebt("d", 900, day(8)),
	}

	for payment := int64(1); payment <= 2200; payment += 157 {
		result, err := Allocate(ledger.NewAmount(payment, "MGA"), debts)
		require.NoError(t, err)

		seenPartial := false
		for _, a := range result.Allocations {
			require.False(t, seenPartial, "allocation after a partially paid debt at payment %d", payment)
			if !a.FullyPaid {
				seenPartial = true
			}
		}
	}
}

func TestAllocateDeterministic(t *testing.T) {
	t.Parallel()

	debts := []PendingDebt{
		pendingDebt(uuid.NewString(), 450, day(2)),
		pendingDebt(uuid.NewString(), 1250, day(1)),
		pendingDebt(uuid.NewString(), 90, day(7)),
	}
	payment := ledger.NewAmount(1500, "MGA")

	first, err := Allocate(payment, debts)
	require.NoError(t, err)
	second, err := Allocate(payment, debts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAllocateTieBreakOnID(t *testing.T) {
	t.Parallel()

	sameDay := []PendingDebt{
		pendingDebt("b", 100, day(4)),
		pendingDebt("a", 100, day(4)),
	}

	result, err := Allocate(ledger.NewAmount(100, "MGA"), sameDay)
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, "a", result.Allocations[0].Debt.RequestID)
}

func TestAllocateRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := Allocate(ledger.NewAmount(0, "MGA"), nil)
	assert.True(t, ledger.IsValidation(err))

	_, err = Allocate(ledger.NewAmount(-10, "MGA"), nil)
	assert.True(t, ledger.IsValidation(err))

	_, err = Allocate(ledger.NewAmount(100, "MGA"), []PendingDebt{
		{RequestID: "x", Amount: ledger.NewAmount(50, "EUR"), Date: day(1)},
	})
	assert.True(t, ledger.IsValidation(err))
}

func TestAllocateDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	debts := []PendingDebt{
		pendingDebt("late", 100, day(9)),
		pendingDebt("early", 100, day(1)),
	}

	_, err := Allocate(ledger.NewAmount(150, "MGA"), debts)
	require.NoError(t, err)

	assert.Equal(t, "late", debts[0].RequestID)
	assert.Equal(t, "early", debts[1].RequestID)
}
