package copyavailability

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// ProjectCopyAvailability turns the copy's active borrow and reservation into the query result.
// An active borrow wins over a reservation, although the store never holds both for different readers.
func ProjectCopyAvailability(view core.CopyAvailability) CopyAvailability {
	return CopyAvailability{
		CopyID:   view.CopyID,
		Status:   view.Status(),
		ReaderID: view.Holder(),
		Borrow:   view.ActiveBorrow,
		Reserve:  view.ActiveReserve,
	}
}
