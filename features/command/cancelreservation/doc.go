// Package cancelreservation implements the Cancel Reservation use case: a reader gives up
// an active reservation and the copy becomes available again.
package cancelreservation
