// Package core contains the loan and reservation domain of a public library:
// copies, readers, borrows, reservations and overdue fines.
//
// Everything in here is pure. The package knows nothing about storage, transport or observability.
// Decide functions in the feature slices consume the read models defined here
// (CopyAvailability, ReaderActivity) and return DecisionResults carrying LoanEvents,
// which the imperative shell then applies to the store within one unit of work.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'domain' layer.
package core
