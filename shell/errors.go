package shell

import "errors"

var (
	// ErrUnexpectedEvent is returned when a command handler is asked to apply an event it does not know.
	ErrUnexpectedEvent = errors.New("unexpected loan event for this command")
)
