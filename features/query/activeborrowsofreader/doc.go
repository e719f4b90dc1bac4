// Package activeborrowsofreader implements the query for the copies a reader has borrowed.
//
// By default only open borrows are returned. BuildHistoryQuery returns every borrow of the reader,
// returned ones included with their fines.
package activeborrowsofreader
