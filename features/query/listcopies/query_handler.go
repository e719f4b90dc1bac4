package listcopies

import (
	"context"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

// Store defines the read needed by the QueryHandler.
type Store interface {
	ListCopies(ctx context.Context, filter loanstore.CopyFilter) ([]core.CopyOverview, error)
}

// QueryHandler lists copies with their availability.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store Store) QueryHandler {
	return QueryHandler{store: store}
}

// Handle executes the query. Browsing the catalog tolerates a lagging replica.
func (h QueryHandler) Handle(ctx context.Context, query Query) (CopyListing, error) {
	ctx = loanstore.WithEventualConsistency(ctx)

	overviews, err := h.store.ListCopies(ctx, query.Filter)
	if err != nil {
		return CopyListing{}, err
	}

	return ProjectCopyListing(overviews), nil
}
