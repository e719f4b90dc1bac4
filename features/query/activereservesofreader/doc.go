// Package activereservesofreader implements the query for the copies a reader has reserved.
// BuildHistoryQuery includes canceled and fulfilled reservations.
package activereservesofreader
