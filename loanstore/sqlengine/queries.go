package sqlengine

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	colID         = "id"
	colName       = "name"
	colAddress    = "address"
	colPhone      = "phone"
	colBookID     = "book_id"
	colBranchID   = "branch_id"
	colNumber     = "number"
	colCopyID     = "copy_id"
	colReaderID   = "reader_id"
	colBorrowedAt = "borrowed_at"
	colReturnedAt = "returned_at"
	colFine       = "fine"
	colReservedAt = "reserved_at"
	colActive     = "active"
)

type sqlQuery struct {
	sql  string
	args []any
}

func toQuery(sql string, args []any, err error) (sqlQuery, error) {
	if err != nil {
		return sqlQuery{}, loanstore.Failure(loanstore.ErrBuildingQueryFailed, err)
	}

	return sqlQuery{sql: sql, args: args}, nil
}

// lockRowQuery selects the id of one row, locking it on databases with row locks.
func (s *Store) lockRowQuery(table string, id uuid.UUID) (sqlQuery, error) {
	ds := s.builder.
		From(goqu.T(table)).
		Select(goqu.C(colID)).
		Where(goqu.C(colID).Eq(id.String())).
		Prepared(true)

	if s.dialect.supportsRowLocks {
		ds = ds.ForUpdate(exp.Wait)
	}

	return toQuery(ds.ToSQL())
}

func (s *Store) selectReaderQuery(readerID core.ReaderID) (sqlQuery, error) {
	return toQuery(s.builder.
		From(goqu.T(s.tables.readers)).
		Select(goqu.C(colID), goqu.C(colName), goqu.C(colAddress), goqu.C(colPhone)).
		Where(goqu.C(colID).Eq(readerID.String())).
		Prepared(true).
		ToSQL())
}

func (s *Store) selectCopyQuery(copyID core.CopyID) (sqlQuery, error) {
	return toQuery(s.builder.
		From(goqu.T(s.tables.copies)).
		Select(goqu.C(colID), goqu.C(colBookID), goqu.C(colBranchID), goqu.C(colNumber)).
		Where(goqu.C(colID).Eq(copyID.String())).
		Prepared(true).
		ToSQL())
}

// copiesInCatalog selects copies by book and branch. Availability is derived later, it is not a column.
func (s *Store) copiesInCatalog(filter loanstore.CopyFilter, columns ...any) *goqu.SelectDataset {
	ds := s.builder.From(goqu.T(s.tables.copies)).Select(columns...)

	if filter.BookID != nil {
		ds = ds.Where(goqu.C(colBookID).Eq(filter.BookID.String()))
	}

	if filter.BranchID != nil {
		ds = ds.Where(goqu.C(colBranchID).Eq(filter.BranchID.String()))
	}

	return ds
}

func (s *Store) selectCopiesQuery(filter loanstore.CopyFilter) (sqlQuery, error) {
	return toQuery(s.copiesInCatalog(filter, goqu.C(colID), goqu.C(colBookID), goqu.C(colBranchID), goqu.C(colNumber)).
		Order(goqu.C(colBookID).Asc(), goqu.C(colBranchID).Asc(), goqu.C(colNumber).Asc()).
		Prepared(true).
		ToSQL())
}

func (s *Store) selectBorrowsQuery(where ...exp.Expression) (sqlQuery, error) {
	return toQuery(s.builder.
		From(goqu.T(s.tables.borrows)).
		Select(
			goqu.C(colID),
			goqu.C(colCopyID),
			goqu.C(colReaderID),
			goqu.C(colBorrowedAt),
			goqu.C(colReturnedAt),
			goqu.C(colFine),
		).
		Where(where...).
		Order(goqu.C(colBorrowedAt).Asc(), goqu.C(colID).Asc()).
		Prepared(true).
		ToSQL())
}

func (s *Store) selectReservesQuery(where ...exp.Expression) (sqlQuery, error) {
	return toQuery(s.builder.
		From(goqu.T(s.tables.reserves)).
		Select(
			goqu.C(colID),
			goqu.C(colCopyID),
			goqu.C(colReaderID),
			goqu.C(colReservedAt),
			goqu.C(colActive),
		).
		Where(where...).
		Order(goqu.C(colReservedAt).Asc(), goqu.C(colID).Asc()).
		Prepared(true).
		ToSQL())
}

func (s *Store) countQuery(table string, where ...exp.Expression) (sqlQuery, error) {
	return toQuery(s.builder.
		From(goqu.T(table)).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		Prepared(true).
		ToSQL())
}

func (s *Store) nextCopyNumberQuery(bookID, branchID uuid.UUID) (sqlQuery, error) {
	return toQuery(s.builder.
		From(goqu.T(s.tables.copies)).
		Select(goqu.COALESCE(goqu.MAX(colNumber), 0)).
		Where(goqu.C(colBookID).Eq(bookID.String()), goqu.C(colBranchID).Eq(branchID.String())).
		Prepared(true).
		ToSQL())
}

func (s *Store) insertQuery(table string, record goqu.Record) (sqlQuery, error) {
	return toQuery(s.builder.
		Insert(goqu.T(table)).
		Rows(record).
		Prepared(true).
		ToSQL())
}

func (s *Store) updateQuery(table string, set goqu.Record, where ...exp.Expression) (sqlQuery, error) {
	return toQuery(s.builder.
		Update(goqu.T(table)).
		Set(set).
		Where(where...).
		Prepared(true).
		ToSQL())
}

/*** predicates ***/

func byID(id uuid.UUID) exp.Expression {
	return goqu.C(colID).Eq(id.String())
}

func byCopy(copyID core.CopyID) exp.Expression {
	return goqu.C(colCopyID).Eq(copyID.String())
}

func byReader(readerID core.ReaderID) exp.Expression {
	return goqu.C(colReaderID).Eq(readerID.String())
}

func (s *Store) copyInCatalog(filter loanstore.CopyFilter) exp.Expression {
	return goqu.C(colCopyID).In(s.copiesInCatalog(filter, goqu.C(colID)))
}

func borrowIsOpen() exp.Expression {
	return goqu.C(colReturnedAt).IsNull()
}

func reserveIsActive() exp.Expression {
	return goqu.C(colActive).IsTrue()
}

func borrowScope(scope loanstore.Scope) []exp.Expression {
	if scope == loanstore.ScopeActive {
		return []exp.Expression{borrowIsOpen()}
	}

	return nil
}

func reserveScope(scope loanstore.Scope) []exp.Expression {
	if scope == loanstore.ScopeActive {
		return []exp.Expression{reserveIsActive()}
	}

	return nil
}

/*** records ***/

func (s *Store) borrowRecord(id uuid.UUID, copyID core.CopyID, readerID core.ReaderID, borrowedAt time.Time) goqu.Record {
	return goqu.Record{
		colID:         id.String(),
		colCopyID:     copyID.String(),
		colReaderID:   readerID.String(),
		colBorrowedAt: s.dialect.timeArg(borrowedAt),
		colReturnedAt: nil,
		colFine:       nil,
	}
}

func (s *Store) closeBorrowRecord(returnedAt time.Time, fine core.Fine) (goqu.Record, error) {
	if !fine.IsDefined() {
		return nil, errUndefinedFineOnReturn
	}

	return goqu.Record{
		colReturnedAt: s.dialect.timeArg(returnedAt),
		colFine:       fine.String(),
	}, nil
}

func (s *Store) reserveRecord(id uuid.UUID, copyID core.CopyID, readerID core.ReaderID, reservedAt time.Time) goqu.Record {
	return goqu.Record{
		colID:         id.String(),
		colCopyID:     copyID.String(),
		colReaderID:   readerID.String(),
		colReservedAt: s.dialect.timeArg(reservedAt),
		colActive:     true,
	}
}

var errUndefinedFineOnReturn = errors.New("a returned borrow needs a defined fine")
