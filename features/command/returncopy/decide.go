package returncopy

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// Decide determines whether the reader can return the copy. This is a pure function.
//
// Business Rules:
//
//	GIVEN: A copy with CopyID and a reader with ReaderID
//	WHEN: ReturnCopy command is received
//	THEN: CopyReturned carrying the fine for the days beyond the grace period
//	ERROR: NoActiveBorrow if this reader has no open borrow of the copy
func Decide(availability core.CopyAvailability, command Command) core.DecisionResult {
	borrow := availability.ActiveBorrow
	if borrow == nil || borrow.ReaderID != command.ReaderID {
		return core.RejectedDecision(core.Rejection(commandType, core.ErrNoActiveBorrow))
	}

	return core.SuccessDecision(core.BuildCopyReturned(*borrow, command.OccurredAt))
}
