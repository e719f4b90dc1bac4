// Package copyavailability implements the Copy Availability query: who, if anyone, holds a copy right now.
//
// The answer is a point-in-time read of the copy's active borrow and active reservation.
// Nothing is cached, every call reads the store.
package copyavailability
