package core

import (
	"bytes"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// FineGraceDays is the number of days a borrow may run before fines accrue.
	FineGraceDays = 20

	// fineScale is the number of fractional digits used when rendering a fine.
	fineScale = 1

	undefinedFineText = "undefined"
)

// FineRatePerDay is the fine charged for each day beyond the grace period.
var FineRatePerDay = decimal.New(2, -1)

// ErrInvalidFine is returned when a fine can't be parsed from its decimal string form.
var ErrInvalidFine = errors.New("fine is not a valid decimal amount")

var jsonNull = []byte("null")

// Fine is an owed amount with exact decimal arithmetic.
// The zero value is the undefined fine of a borrow that has not been returned yet,
// which is not the same as a fine of 0.
type Fine struct {
	amount  decimal.Decimal
	defined bool
}

// UndefinedFine returns the fine of a copy that has not been returned yet.
func UndefinedFine() Fine {
	return Fine{}
}

// FineOf returns a defined fine with the given amount.
func FineOf(amount decimal.Decimal) Fine {
	return Fine{amount: amount, defined: true}
}

// ParseFine parses a decimal string like "0.2". An empty string yields the undefined fine.
func ParseFine(s string) (Fine, error) {
	if s == "" {
		return UndefinedFine(), nil
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return UndefinedFine(), errors.Join(ErrInvalidFine, err)
	}

	return FineOf(amount), nil
}

// CalculateFine computes the fine for a borrow that started at borrowedAt and was returned at returnedAt.
// Only calendar dates in UTC count, the time of day is discarded.
// A nil returnedAt means the copy is still out and the fine is undefined.
func CalculateFine(borrowedAt time.Time, returnedAt *time.Time) Fine {
	if returnedAt == nil {
		return UndefinedFine()
	}

	days := int64(calendarDate(*returnedAt).Sub(calendarDate(borrowedAt)) / (24 * time.Hour))
	overdue := max(0, days-FineGraceDays)

	return FineOf(FineRatePerDay.Mul(decimal.NewFromInt(overdue)))
}

// IsDefined reports whether the fine has been determined.
func (f Fine) IsDefined() bool {
	return f.defined
}

// Amount returns the fine amount and whether it is defined.
func (f Fine) Amount() (decimal.Decimal, bool) {
	return f.amount, f.defined
}

// Equal reports whether both fines are undefined or both carry the same amount.
func (f Fine) Equal(other Fine) bool {
	if f.defined != other.defined {
		return false
	}

	return !f.defined || f.amount.Equal(other.amount)
}

// String renders a defined fine with one fractional digit, e.g. "1.0".
func (f Fine) String() string {
	if !f.defined {
		return undefinedFineText
	}

	return f.amount.StringFixed(fineScale)
}

// MarshalJSON renders a defined fine as a decimal string and the undefined fine as null.
func (f Fine) MarshalJSON() ([]byte, error) {
	if !f.defined {
		return jsonNull, nil
	}

	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string or null.
func (f *Fine) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*f = UndefinedFine()
		return nil
	}

	parsed, err := ParseFine(string(bytes.Trim(data, `"`)))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}
