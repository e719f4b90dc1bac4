package cancelreservation

import (
	"time"

	"github.com/AntonStoeckl/library-loans/core"
)

const (
	commandType = "CancelReservation"
)

// Command represents the intent of a reader to cancel a reservation.
type Command struct {
	CopyID     core.CopyID
	ReaderID   core.ReaderID
	OccurredAt core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(copyID core.CopyID, readerID core.ReaderID, occurredAt time.Time) Command {
	return Command{
		CopyID:     copyID,
		ReaderID:   readerID,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
