// Package listcopies implements the List Copies query: the catalog's copies with who holds each of them.
//
// Copies can be narrowed by book, by branch and by availability. Availability is derived per copy
// from its active borrow and reservation, exactly as the Copy Availability query derives it.
package listcopies
