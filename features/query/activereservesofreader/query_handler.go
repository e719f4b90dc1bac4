package activereservesofreader

import (
	"context"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

// Store defines the read needed by the QueryHandler.
type Store interface {
	ReservesOfReader(ctx context.Context, readerID core.ReaderID, scope loanstore.Scope) (core.Reserves, error)
}

// QueryHandler reads and projects the reservations of a reader.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store Store) QueryHandler {
	return QueryHandler{store: store}
}

// Handle executes the query. The reader's history may be served from a replica.
func (h QueryHandler) Handle(ctx context.Context, query Query) (ReservesOfReader, error) {
	ctx = loanstore.WithEventualConsistency(ctx)

	reserves, err := h.store.ReservesOfReader(ctx, query.ReaderID, query.Scope)
	if err != nil {
		return ReservesOfReader{}, err
	}

	return ProjectReservesOfReader(query.ReaderID, reserves), nil
}
