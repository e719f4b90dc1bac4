package activereservesofreader

import (
	"slices"

	"github.com/AntonStoeckl/library-loans/core"
)

// ProjectReservesOfReader orders the reservations by ReservedAt, oldest first, ties broken by ID.
func ProjectReservesOfReader(readerID core.ReaderID, reserves core.Reserves) ReservesOfReader {
	sorted := slices.Clone(reserves)
	if sorted == nil {
		sorted = core.Reserves{}
	}

	slices.SortFunc(sorted, func(a, b core.Reserve) int {
		if c := a.ReservedAt.Compare(b.ReservedAt); c != 0 {
			return c
		}

		return slices.Compare(a.ID[:], b.ID[:])
	})

	return ReservesOfReader{
		ReaderID: readerID,
		Reserves: sorted,
		Count:    len(sorted),
	}
}
