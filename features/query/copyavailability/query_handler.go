package copyavailability

import (
	"context"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

// Store defines the read needed by the QueryHandler.
type Store interface {
	LoadAvailability(ctx context.Context, copyID core.CopyID) (core.CopyAvailability, error)
}

// QueryHandler reads and projects the availability of a copy.
// External wrappers handle all observability concerns.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store Store) QueryHandler {
	return QueryHandler{store: store}
}

// Handle executes the query on the primary, readers act on the answer right away.
func (h QueryHandler) Handle(ctx context.Context, query Query) (CopyAvailability, error) {
	ctx = loanstore.WithStrongConsistency(ctx)

	view, err := h.store.LoadAvailability(ctx, query.CopyID)
	if err != nil {
		return CopyAvailability{}, err
	}

	return ProjectCopyAvailability(view), nil
}
