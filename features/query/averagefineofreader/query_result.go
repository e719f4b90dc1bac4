package averagefineofreader

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// AverageFine represents the query result.
type AverageFine struct {
	ReaderID core.ReaderID
	Average  core.Fine
	// ReturnedBorrows is the number of borrows the average is taken over.
	ReturnedBorrows int
}
