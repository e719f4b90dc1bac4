// Package checkoutcopy implements the Checkout Copy use case: a reader borrows a physical copy.
//
// It follows the Load-Decide-Apply pattern. The CommandHandler loads the copy's availability and the
// reader's activity inside one unit of work, the pure Decide function checks the rules, and the
// handler applies the resulting events to the store before the unit commits.
//
// If the reader holds the copy's active reservation, the reservation is fulfilled in the same unit.
package checkoutcopy
