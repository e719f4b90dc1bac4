package activereservesofreader

import (
	"github.com/AntonStoeckl/library-loans/core"
)

// ReservesOfReader represents the query result, oldest reservation first.
type ReservesOfReader struct {
	ReaderID core.ReaderID
	Reserves core.Reserves
	Count    int
}
