package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-loans/core"
)

func Test_LoanPolicy_LimitsAreStrict(t *testing.T) {
	// arrange
	policy := core.DefaultLoanPolicy()

	// assert
	assert.False(t, policy.BorrowLimitReached(9), "the 10th borrow must be allowed")
	assert.True(t, policy.BorrowLimitReached(10), "the 11th borrow must be rejected")
	assert.False(t, policy.ReserveLimitReached(9), "the 10th reservation must be allowed")
	assert.True(t, policy.ReserveLimitReached(10), "the 11th reservation must be rejected")
}

func Test_LoanPolicy_Validate(t *testing.T) {
	assert.NoError(t, core.DefaultLoanPolicy().Validate())
	assert.ErrorIs(t, core.LoanPolicy{MaxActiveBorrows: 0, MaxActiveReserves: 1}.Validate(), core.ErrInvalidLoanPolicy)
	assert.ErrorIs(t, core.LoanPolicy{MaxActiveBorrows: 1, MaxActiveReserves: -1}.Validate(), core.ErrInvalidLoanPolicy)
}

func Test_Rejection_IsBusinessRejection(t *testing.T) {
	// act
	err := core.Rejection("CheckoutCopy", core.ErrCopyUnavailable)

	// assert
	assert.True(t, core.IsBusinessRejection(err))
	assert.ErrorIs(t, err, core.ErrCopyUnavailable)
	assert.False(t, core.IsBusinessRejection(errors.New("connection refused")))
}
