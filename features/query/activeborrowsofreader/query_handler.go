package activeborrowsofreader

import (
	"context"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

// Store defines the read needed by the QueryHandler.
type Store interface {
	BorrowsOfReader(ctx context.Context, readerID core.ReaderID, scope loanstore.Scope) (core.Borrows, error)
}

// QueryHandler reads and projects the borrows of a reader.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store Store) QueryHandler {
	return QueryHandler{store: store}
}

// Handle executes the query. The reader's history may be served from a replica.
func (h QueryHandler) Handle(ctx context.Context, query Query) (BorrowsOfReader, error) {
	ctx = loanstore.WithEventualConsistency(ctx)

	borrows, err := h.store.BorrowsOfReader(ctx, query.ReaderID, query.Scope)
	if err != nil {
		return BorrowsOfReader{}, err
	}

	return ProjectBorrowsOfReader(query.ReaderID, borrows), nil
}
