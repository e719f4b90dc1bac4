package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBusinessRuleViolation marks every expected rejection. Callers should treat those as client errors.
	ErrBusinessRuleViolation = errors.New("business rule violation")

	// ErrCopyUnavailable is returned when the copy is borrowed by anyone or reserved by another reader.
	ErrCopyUnavailable = errors.New("copy is borrowed or reserved by another reader")

	// ErrNoActiveBorrow is returned when the reader has no open borrow for the copy.
	ErrNoActiveBorrow = errors.New("reader has no active borrow for the copy")

	// ErrNoActiveReservation is returned when the reader has no active reservation for the copy.
	ErrNoActiveReservation = errors.New("reader has no active reservation for the copy")

	// ErrOverBorrowLimit is returned when the reader already holds the maximum number of borrows.
	ErrOverBorrowLimit = errors.New("reader has reached the active borrow limit")

	// ErrOverReserveLimit is returned when the reader already holds the maximum number of reservations.
	ErrOverReserveLimit = errors.New("reader has reached the active reservation limit")

	// ErrReaderNotFound is returned when the reader does not exist.
	ErrReaderNotFound = errors.New("reader not found")

	// ErrCopyNotFound is returned when the copy does not exist.
	ErrCopyNotFound = errors.New("copy not found")
)

// Rejection wraps reason as a business rule violation of the given command type.
func Rejection(commandType string, reason error) error {
	return fmt.Errorf("%s: %w: %w", commandType, ErrBusinessRuleViolation, reason)
}

// IsBusinessRejection reports whether err is an expected business outcome rather than a failure.
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrBusinessRuleViolation)
}
