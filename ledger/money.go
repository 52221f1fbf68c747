package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a money value expressed in fixed-point minor units of its
// currency (e.g. 1500 centimes, 1500 ariary). All ledger arithmetic happens
// on integer minor units so allocation and interest math never drift.
type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

func NewAmount(value int64, currency string) Amount {
	return Amount{Value: value, Currency: currency}
}

func (a Amount) IsZero() bool {
	return a.Value == 0
}

func (a Amount) IsPositive() bool {
	return a.Value > 0
}

func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Value, a.Currency)
}

func (a Amount) assertSameCurrency(b Amount) error {
	if a.Currency != b.Currency {
		return &ValidationError{Field: "currency", Reason: fmt.Sprintf("mismatch: %s vs %s", a.Currency, b.Currency)}
	}
	return nil
}

func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.assertSameCurrency(b); err != nil {
		return Amount{}, err
	}
	return Amount{Value: a.Value + b.Value, Currency: a.Currency}, nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.assertSameCurrency(b); err != nil {
		return Amount{}, err
	}
	return Amount{Value: a.Value - b.Value, Currency: a.Currency}, nil
}

// Min returns the smaller of the two amounts.
func (a Amount) Min(b Amount) (Amount, error) {
	if err := a.assertSameCurrency(b); err != nil {
		return Amount{}, err
	}
	if b.Value < a.Value {
		return b, nil
	}
	return a, nil
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(a.Value)
}

// InterestOn computes the interest accrued on a capital amount for one
// period at the given rate (percent per period). The result is rounded
// half away from zero to the nearest minor unit.
func InterestOn(capital Amount, ratePercent decimal.Decimal) Amount {
	interest := capital.Decimal().Mul(ratePercent).Div(decimal.NewFromInt(100))
	return Amount{Value: interest.Round(0).IntPart(), Currency: capital.Currency}
}
