package activereservesofreader

import (
	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	queryType = "ActiveReservesOfReader"
)

// Query represents the intent to list the reservations of a reader.
type Query struct {
	ReaderID core.ReaderID
	Scope    loanstore.Scope
}

// BuildQuery creates a Query for the reader's active reservations.
func BuildQuery(readerID core.ReaderID) Query {
	return Query{ReaderID: readerID, Scope: loanstore.ScopeActive}
}

// BuildHistoryQuery creates a Query for all reservations the reader ever made.
func BuildHistoryQuery(readerID core.ReaderID) Query {
	return Query{ReaderID: readerID, Scope: loanstore.ScopeAll}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
