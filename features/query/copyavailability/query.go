package copyavailability

import (
	"github.com/AntonStoeckl/library-loans/core"
)

const (
	queryType = "CopyAvailability"
)

// Query represents the intent to look up the availability of one copy.
type Query struct {
	CopyID core.CopyID
}

// BuildQuery creates a new Query for the copy.
func BuildQuery(copyID core.CopyID) Query {
	return Query{CopyID: copyID}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
