package coordinator

import (
	"context"

	"github.com/AntonStoeckl/library-loans/core"
)

// DiscardPublisher drops all events. It is used when no broker is configured.
type DiscardPublisher struct{}

// Publish implements core.LoanEventPublisher.
func (DiscardPublisher) Publish(_ context.Context, _ ...core.LoanEvent) error {
	return nil
}
