package core

import "errors"

const (
	// DefaultMaxActiveBorrows is the number of copies a reader may hold at once.
	DefaultMaxActiveBorrows = 10

	// DefaultMaxActiveReserves is the number of copies a reader may have reserved at once.
	DefaultMaxActiveReserves = 10
)

// ErrInvalidLoanPolicy is returned when a limit is not positive.
var ErrInvalidLoanPolicy = errors.New("loan policy limits must be positive")

// LoanPolicy holds the per-reader limits.
// A limit of N means N active records are allowed and the N+1st attempt is rejected.
type LoanPolicy struct {
	MaxActiveBorrows  int
	MaxActiveReserves int
}

// DefaultLoanPolicy returns the policy with both limits at 10.
func DefaultLoanPolicy() LoanPolicy {
	return LoanPolicy{
		MaxActiveBorrows:  DefaultMaxActiveBorrows,
		MaxActiveReserves: DefaultMaxActiveReserves,
	}
}

// Validate checks that both limits are positive.
func (p LoanPolicy) Validate() error {
	if p.MaxActiveBorrows <= 0 || p.MaxActiveReserves <= 0 {
		return ErrInvalidLoanPolicy
	}

	return nil
}

// BorrowLimitReached reports whether a reader with activeBorrows may not borrow another copy.
func (p LoanPolicy) BorrowLimitReached(activeBorrows int) bool {
	return activeBorrows >= p.MaxActiveBorrows
}

// ReserveLimitReached reports whether a reader with activeReserves may not reserve another copy.
func (p LoanPolicy) ReserveLimitReached(activeReserves int) bool {
	return activeReserves >= p.MaxActiveReserves
}
