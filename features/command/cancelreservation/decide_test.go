package cancelreservation_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/features/command/cancelreservation"
)

func Test_Decide_Success(t *testing.T) {
	// arrange
	copyID, readerID := uuid.New(), uuid.New()
	now := time.Now()
	reserve := core.Reserve{ID: uuid.New(), CopyID: copyID, ReaderID: readerID, ReservedAt: now.Add(-time.Hour), Active: true}

	// act
	result := cancelreservation.Decide(
		core.AvailabilityOf(copyID, nil, &reserve),
		cancelreservation.BuildCommand(copyID, readerID, now),
	)

	// assert
	assert.False(t, result.IsRejected())
	assert.Equal(t, core.LoanEvents{core.BuildReservationCanceled(reserve, now)}, result.Events)
}

func Test_Decide_BusinessErrors(t *testing.T) {
	copyID, readerID, otherReaderID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	reservedByOther := core.Reserve{ID: uuid.New(), CopyID: copyID, ReaderID: otherReaderID, ReservedAt: now, Active: true}
	borrowedBySelf := core.Borrow{ID: uuid.New(), CopyID: copyID, ReaderID: readerID, BorrowedAt: now}

	testCases := []struct {
		name         string
		availability core.CopyAvailability
	}{
		{name: "copy is not reserved", availability: core.AvailabilityOf(copyID, nil, nil)},
		{name: "copy is reserved by another reader", availability: core.AvailabilityOf(copyID, nil, &reservedByOther)},
		{name: "copy is borrowed by the reader", availability: core.AvailabilityOf(copyID, &borrowedBySelf, nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			result := cancelreservation.Decide(tc.availability, cancelreservation.BuildCommand(copyID, readerID, now))

			// assert
			assert.True(t, result.IsRejected())
			assert.ErrorIs(t, result.HasError(), core.ErrNoActiveReservation)
		})
	}
}
