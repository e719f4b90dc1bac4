// Package returncopy implements the Return Copy use case: a reader brings a borrowed copy back.
//
// The borrow is closed with the return time and the overdue fine in one update.
// Returning the same borrow twice fails the second time, nothing changes.
package returncopy
