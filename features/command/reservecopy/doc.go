// Package reservecopy implements the Reserve Copy use case: a reader claims an available copy
// so that nobody else can borrow it.
//
// Only an available copy can be reserved. Borrowed or already reserved copies are refused,
// also when the requesting reader is the one holding them.
package reservecopy
