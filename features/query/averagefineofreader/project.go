package averagefineofreader

import (
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/library-loans/core"
)

// ProjectAverageFine averages the defined fines of the borrows with exact decimal arithmetic.
func ProjectAverageFine(readerID core.ReaderID, borrows core.Borrows) AverageFine {
	sum := decimal.Zero
	count := 0

	for _, borrow := range borrows {
		amount, defined := borrow.Fine.Amount()
		if !defined {
			continue
		}

		sum = sum.Add(amount)
		count++
	}

	result := AverageFine{
		ReaderID:        readerID,
		Average:         core.UndefinedFine(),
		ReturnedBorrows: count,
	}

	if count > 0 {
		result.Average = core.FineOf(sum.Div(decimal.NewFromInt(int64(count))))
	}

	return result
}
