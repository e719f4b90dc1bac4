package listcopies

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	queryType = "ListCopies"
)

// Query represents the intent to list copies.
type Query struct {
	Filter loanstore.CopyFilter
}

// BuildQuery creates a Query that lists every copy.
func BuildQuery() Query {
	return Query{}
}

// OfBook narrows the query to copies of one book.
func (q Query) OfBook(bookID uuid.UUID) Query {
	q.Filter.BookID = &bookID
	return q
}

// AtBranch narrows the query to copies kept at one branch.
func (q Query) AtBranch(branchID uuid.UUID) Query {
	q.Filter.BranchID = &branchID
	return q
}

// OnlyAvailable keeps available copies when available is true, held ones otherwise.
func (q Query) OnlyAvailable(available bool) Query {
	q.Filter.Available = &available
	return q
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
