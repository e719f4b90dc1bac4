package reservecopy

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// Decide determines whether the reader may reserve the copy. This is a pure function.
//
// Business Rules, checked in this order:
//
//	GIVEN: A copy with CopyID and a reader with ReaderID
//	WHEN: ReserveCopy command is received
//	ERROR: OverReserveLimit if the reader already holds policy.MaxActiveReserves reservations
//	ERROR: CopyUnavailable if anyone has the copy borrowed or reserved
//	THEN: CopyReserved
func Decide(
	availability core.CopyAvailability,
	activity core.ReaderActivity,
	command Command,
	policy core.LoanPolicy,
) core.DecisionResult {
	if policy.ReserveLimitReached(activity.ActiveReserves) {
		return core.RejectedDecision(core.Rejection(commandType, core.ErrOverReserveLimit))
	}

	if availability.Status() != core.StatusAvailable {
		return core.RejectedDecision(core.Rejection(commandType, core.ErrCopyUnavailable))
	}

	return core.SuccessDecision(core.BuildCopyReserved(command.CopyID, command.ReaderID, command.OccurredAt))
}
