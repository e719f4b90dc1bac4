package cancelreservation

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// Decide determines whether the reader has a reservation to cancel. This is a pure function.
//
//	GIVEN: A copy with CopyID and a reader with ReaderID
//	WHEN: CancelReservation command is received
//	THEN: ReservationCanceled
//	ERROR: NoActiveReservation if this reader holds no active reservation of the copy
func Decide(availability core.CopyAvailability, command Command) core.DecisionResult {
	reserve := availability.ActiveReserve
	if reserve == nil || reserve.ReaderID != command.ReaderID {
		return core.RejectedDecision(core.Rejection(commandType, core.ErrNoActiveReservation))
	}

	return core.SuccessDecision(core.BuildReservationCanceled(*reserve, command.OccurredAt))
}
