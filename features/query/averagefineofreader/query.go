package averagefineofreader

import (
	"github.com/AntonStoeckl/library-loans/core"
)

const (
	queryType = "AverageFineOfReader"
)

// Query represents the intent to compute the average fine of a reader.
type Query struct {
	ReaderID core.ReaderID
}

// BuildQuery creates a new Query for the reader.
func BuildQuery(readerID core.ReaderID) Query {
	return Query{ReaderID: readerID}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
