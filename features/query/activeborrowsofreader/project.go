package activeborrowsofreader

import (
	"slices"

	"github.com/AntonStoeckl/library-loans/core"
)

// ProjectBorrowsOfReader orders the borrows by BorrowedAt, oldest first, ties broken by ID.
func ProjectBorrowsOfReader(readerID core.ReaderID, borrows core.Borrows) BorrowsOfReader {
	sorted := slices.Clone(borrows)
	if sorted == nil {
		sorted = core.Borrows{}
	}

	slices.SortFunc(sorted, func(a, b core.Borrow) int {
		if c := a.BorrowedAt.Compare(b.BorrowedAt); c != 0 {
			return c
		}

		return slices.Compare(a.ID[:], b.ID[:])
	})

	return BorrowsOfReader{
		ReaderID: readerID,
		Borrows:  sorted,
		Count:    len(sorted),
	}
}
