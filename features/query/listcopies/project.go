package listcopies

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// ProjectCopyListing flattens the store's overviews into list items.
func ProjectCopyListing(overviews []core.CopyOverview) CopyListing {
	items := make([]CopyItem, 0, len(overviews))

	for _, o := range overviews {
		_, borrowed := o.Availability.ActiveBorrower()
		_, reserved := o.Availability.ActiveReserver()

		items = append(items, CopyItem{
			CopyID:     o.Copy.ID,
			BookID:     o.Copy.BookID,
			BranchID:   o.Copy.BranchID,
			Number:     o.Copy.Number,
			Status:     o.Availability.Status(),
			IsBorrowed: borrowed,
			IsReserved: reserved,
		})
	}

	return CopyListing{Copies: items, Count: len(items)}
}
