package activeborrowsofreader

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// BorrowsOfReader represents the query result, oldest borrow first.
type BorrowsOfReader struct {
	ReaderID core.ReaderID
	Borrows  core.Borrows
	Count    int
}
