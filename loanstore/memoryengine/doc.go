// Package memoryengine provides an in-process implementation of loanstore.Store.
//
// Every unit of work runs inside one exclusive critical section, and all writes of a unit are rolled back
// when its callback fails. The engine enforces the same uniqueness rules as the SQL schema:
// at most one active borrow and one active reservation per copy.
//
// It is meant for tests, demos and single-process deployments. It keeps nothing across restarts.
package memoryengine
