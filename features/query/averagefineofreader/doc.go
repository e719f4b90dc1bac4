// Package averagefineofreader implements the Average Fine query: the mean of the fines a reader was charged.
//
// Only returned borrows count, open borrows have no fine yet. A reader without any returned borrow
// has an undefined average, which is not the same as an average of 0.
package averagefineofreader
