package averagefineofreader

import (
	"context"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

// Store defines the read needed by the QueryHandler.
type Store interface {
	BorrowsOfReader(ctx context.Context, readerID core.ReaderID, scope loanstore.Scope) (core.Borrows, error)
}

// QueryHandler reads the reader's borrow history and averages the fines.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store Store) QueryHandler {
	return QueryHandler{store: store}
}

// Handle executes the query. A lagging replica only delays fines of fresh returns.
func (h QueryHandler) Handle(ctx context.Context, query Query) (AverageFine, error) {
	ctx = loanstore.WithEventualConsistency(ctx)

	borrows, err := h.store.BorrowsOfReader(ctx, query.ReaderID, loanstore.ScopeAll)
	if err != nil {
		return AverageFine{}, err
	}

	return ProjectAverageFine(query.ReaderID, borrows), nil
}
