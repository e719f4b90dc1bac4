package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/AntonStoeckl/library-loans/core"
)

const (
	msgCopyUnavailable     = "The copy has either been borrowed or reserved by another reader."
	msgNoActiveBorrow      = "Reader does not have an active borrow for that copy."
	msgNoActiveReservation = "Reader does not have an active reservation for that copy."
	msgOverBorrowLimit     = "Reader has reached the maximum number of active borrows."
	msgOverReserveLimit    = "Reader has reached the maximum number of active reservations."
	msgReaderNotFound      = "Reader not found."
	msgCopyNotFound        = "Copy not found."
	msgInvalidBody         = "Invalid request body."
	msgInvalidActiveFlag   = "Query parameter 'active' must be true or false."
	msgInvalidCopyFilter   = "Query parameters 'available' must be true or false, 'book_id' and 'branch_id' must be UUIDs."
	msgInvalidPhone        = "Phone number is not valid."
	msgRequestTimedOut     = "The request timed out."
	msgInternalServerError = "Internal server error."
	msgNotFound            = "Not found."
	msgMethodNotAllowed    = "Method not allowed."
)

var rejectionMessages = []struct {
	reason  error
	message string
}{
	{reason: core.ErrCopyUnavailable, message: msgCopyUnavailable},
	{reason: core.ErrNoActiveBorrow, message: msgNoActiveBorrow},
	{reason: core.ErrNoActiveReservation, message: msgNoActiveReservation},
	{reason: core.ErrOverBorrowLimit, message: msgOverBorrowLimit},
	{reason: core.ErrOverReserveLimit, message: msgOverReserveLimit},
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// statusFor maps an error to status code and message. copyNotFoundStatus differs between reader actions,
// where the copy comes from the body (400), and copy reads, where it is part of the path (404).
func statusFor(err error, copyNotFoundStatus int) (int, string) {
	switch {
	case errors.Is(err, core.ErrReaderNotFound):
		return http.StatusNotFound, msgReaderNotFound

	case errors.Is(err, core.ErrCopyNotFound):
		return copyNotFoundStatus, msgCopyNotFound

	case core.IsBusinessRejection(err):
		for _, rejection := range rejectionMessages {
			if errors.Is(err, rejection.reason) {
				return http.StatusConflict, rejection.message
			}
		}

		return http.StatusConflict, err.Error()

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, msgRequestTimedOut

	default:
		return http.StatusInternalServerError, msgInternalServerError
	}
}
