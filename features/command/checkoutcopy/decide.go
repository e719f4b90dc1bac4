package checkoutcopy

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// Decide implements the business logic to determine whether a reader may borrow a copy.
// This is a pure function with no side effects.
//
// Business Rules, checked in this order:
//
//	GIVEN: A copy with CopyID and a reader with ReaderID
//	WHEN: CheckoutCopy command is received
//	ERROR: OverBorrowLimit if the reader already holds policy.MaxActiveBorrows borrows
//	ERROR: CopyUnavailable if anyone has the copy borrowed
//	ERROR: CopyUnavailable if another reader holds the copy's reservation
//	THEN: ReservationFulfilled if this reader holds the reservation, then CopyCheckedOut
func Decide(
	availability core.CopyAvailability,
	activity core.ReaderActivity,
	command Command,
	policy core.LoanPolicy,
) core.DecisionResult {
	if policy.BorrowLimitReached(activity.ActiveBorrows) {
		return core.RejectedDecision(core.Rejection(commandType, core.ErrOverBorrowLimit))
	}

	if availability.ActiveBorrow != nil {
		return core.RejectedDecision(core.Rejection(commandType, core.ErrCopyUnavailable))
	}

	checkedOut := core.BuildCopyCheckedOut(command.CopyID, command.ReaderID, command.OccurredAt)

	reserve := availability.ActiveReserve
	if reserve == nil {
		return core.SuccessDecision(checkedOut)
	}

	if reserve.ReaderID != command.ReaderID {
		return core.RejectedDecision(core.Rejection(commandType, core.ErrCopyUnavailable))
	}

	return core.SuccessDecision(
		core.BuildReservationFulfilled(*reserve, command.OccurredAt),
		checkedOut,
	)
}
