package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine/internal/adapters"
)

const (
	actionGetReader        = "get_reader"
	actionGetCopy          = "get_copy"
	actionAvailability     = "load_availability"
	actionBorrowsOfReader  = "borrows_of_reader"
	actionReservesOfReader = "reserves_of_reader"
	actionCount            = "count"
	actionRegisterReader   = "register_reader"
	actionAddCopy          = "add_copy"
	actionListCopies       = "list_copies"
)

// GetReader returns the reader or loanstore.ErrNotFound.
func (s *Store) GetReader(ctx context.Context, readerID core.ReaderID) (reader core.Reader, err error) {
	ctx, finish := s.observeRead(ctx, actionGetReader)
	defer func() { finish(err) }()

	q, err := s.selectReaderQuery(readerID)
	if err != nil {
		return core.Reader{}, err
	}

	rows, err := s.query(ctx, s.db, actionGetReader, q)
	if err != nil {
		return core.Reader{}, err
	}

	readers, err := collect(rows,
		func() *readerRow { return &readerRow{} },
		(*readerRow).dest,
		(*readerRow).toReader,
	)
	if err != nil {
		return core.Reader{}, err
	}

	if len(readers) == 0 {
		return core.Reader{}, loanstore.ErrNotFound
	}

	return readers[0], nil
}

// GetCopy returns the copy or loanstore.ErrNotFound.
func (s *Store) GetCopy(ctx context.Context, copyID core.CopyID) (c core.Copy, err error) {
	ctx, finish := s.observeRead(ctx, actionGetCopy)
	defer func() { finish(err) }()

	q, err := s.selectCopyQuery(copyID)
	if err != nil {
		return core.Copy{}, err
	}

	rows, err := s.query(ctx, s.db, actionGetCopy, q)
	if err != nil {
		return core.Copy{}, err
	}

	copies, err := collect(rows,
		func() *copyRow { return &copyRow{} },
		(*copyRow).dest,
		(*copyRow).toCopy,
	)
	if err != nil {
		return core.Copy{}, err
	}

	if len(copies) == 0 {
		return core.Copy{}, loanstore.ErrNotFound
	}

	return copies[0], nil
}

// LoadAvailability returns the copy's active borrow and reservation as seen right now.
func (s *Store) LoadAvailability(ctx context.Context, copyID core.CopyID) (availability core.CopyAvailability, err error) {
	ctx, finish := s.observeRead(ctx, actionAvailability)
	defer func() { finish(err) }()

	return s.loadAvailability(ctx, s.db, copyID)
}

// BorrowsOfReader returns the reader's borrows ordered by the time they started.
func (s *Store) BorrowsOfReader(ctx context.Context, readerID core.ReaderID, scope loanstore.Scope) (borrows core.Borrows, err error) {
	ctx, finish := s.observeRead(ctx, actionBorrowsOfReader)
	defer func() { finish(err) }()

	return s.queryBorrows(ctx, s.db, actionBorrowsOfReader, append(borrowScope(scope), byReader(readerID))...)
}

// ReservesOfReader returns the reader's reservations ordered by the time they were made.
func (s *Store) ReservesOfReader(ctx context.Context, readerID core.ReaderID, scope loanstore.Scope) (reserves core.Reserves, err error) {
	ctx, finish := s.observeRead(ctx, actionReservesOfReader)
	defer func() { finish(err) }()

	return s.queryReserves(ctx, s.db, actionReservesOfReader, append(reserveScope(scope), byReader(readerID))...)
}

// ListCopies returns the copies passing filter with their availability, ordered by book, branch and number.
// The active borrows and reservations of the selected copies are read with one query each.
func (s *Store) ListCopies(ctx context.Context, filter loanstore.CopyFilter) (overviews []core.CopyOverview, err error) {
	ctx, finish := s.observeRead(ctx, actionListCopies)
	defer func() { finish(err) }()

	q, err := s.selectCopiesQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, s.db, actionListCopies, q)
	if err != nil {
		return nil, err
	}

	copies, err := collect(rows,
		func() *copyRow { return &copyRow{} },
		(*copyRow).dest,
		(*copyRow).toCopy,
	)
	if err != nil {
		return nil, err
	}

	overviews = make([]core.CopyOverview, 0, len(copies))
	if len(copies) == 0 {
		return overviews, nil
	}

	borrows, err := s.queryBorrows(ctx, s.db, actionListCopies, s.copyInCatalog(filter), borrowIsOpen())
	if err != nil {
		return nil, err
	}

	reserves, err := s.queryReserves(ctx, s.db, actionListCopies, s.copyInCatalog(filter), reserveIsActive())
	if err != nil {
		return nil, err
	}

	activeBorrows := make(map[core.CopyID]*core.Borrow, len(borrows))
	for i := range borrows {
		activeBorrows[borrows[i].CopyID] = &borrows[i]
	}

	activeReserves := make(map[core.CopyID]*core.Reserve, len(reserves))
	for i := range reserves {
		activeReserves[reserves[i].CopyID] = &reserves[i]
	}

	for _, c := range copies {
		availability := core.AvailabilityOf(c.ID, activeBorrows[c.ID], activeReserves[c.ID])
		if filter.Admits(c, availability.Status()) {
			overviews = append(overviews, core.CopyOverview{Copy: c, Availability: availability})
		}
	}

	return overviews, nil
}

// RegisterReader inserts a reader with a generated ID.
func (s *Store) RegisterReader(ctx context.Context, name, address, phone string) (core.Reader, error) {
	id, err := loanstore.NewID()
	if err != nil {
		return core.Reader{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	q, err := s.insertQuery(s.tables.readers, goqu.Record{
		colID:      id.String(),
		colName:    name,
		colAddress: address,
		colPhone:   phone,
	})
	if err != nil {
		return core.Reader{}, err
	}

	if _, err = s.exec(ctx, s.db, actionRegisterReader, q); err != nil {
		return core.Reader{}, err
	}

	return core.Reader{ID: id, Name: name, Address: address, Phone: phone}, nil
}

// AddCopy inserts a copy numbered one above the highest number of the same book at the same branch.
// Two concurrent calls for the same book and branch make one of them fail with loanstore.ErrConcurrencyConflict.
func (s *Store) AddCopy(ctx context.Context, bookID, branchID uuid.UUID) (core.Copy, error) {
	id, err := loanstore.NewID()
	if err != nil {
		return core.Copy{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return core.Copy{}, classify(loanstore.ErrBeginTxFailed, err)
	}
	defer s.rollback(ctx, tx)

	q, err := s.nextCopyNumberQuery(bookID, branchID)
	if err != nil {
		return core.Copy{}, err
	}

	highest, err := s.queryInt(ctx, tx, actionAddCopy, q)
	if err != nil {
		return core.Copy{}, err
	}

	c := core.Copy{ID: id, BookID: bookID, BranchID: branchID, Number: highest + 1}

	q, err = s.insertQuery(s.tables.copies, goqu.Record{
		colID:       id.String(),
		colBookID:   bookID.String(),
		colBranchID: branchID.String(),
		colNumber:   c.Number,
	})
	if err != nil {
		return core.Copy{}, err
	}

	if _, err = s.exec(ctx, tx, actionAddCopy, q); err != nil {
		return core.Copy{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return core.Copy{}, classify(loanstore.ErrCommitFailed, err)
	}

	return c, nil
}

/*** shared helpers, usable with the pool as well as with a transaction ***/

func (s *Store) loadAvailability(ctx context.Context, q adapters.Querier, copyID core.CopyID) (core.CopyAvailability, error) {
	borrows, err := s.queryBorrows(ctx, q, actionAvailability, byCopy(copyID), borrowIsOpen())
	if err != nil {
		return core.CopyAvailability{}, err
	}

	reserves, err := s.queryReserves(ctx, q, actionAvailability, byCopy(copyID), reserveIsActive())
	if err != nil {
		return core.CopyAvailability{}, err
	}

	var activeBorrow *core.Borrow
	if len(borrows) > 0 {
		activeBorrow = &borrows[0]
	}

	var activeReserve *core.Reserve
	if len(reserves) > 0 {
		activeReserve = &reserves[0]
	}

	return core.AvailabilityOf(copyID, activeBorrow, activeReserve), nil
}

func (s *Store) queryBorrows(ctx context.Context, q adapters.Querier, action string, where ...exp.Expression) (core.Borrows, error) {
	sqlQ, err := s.selectBorrowsQuery(where...)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, q, action, sqlQ)
	if err != nil {
		return nil, err
	}

	return collect(rows,
		func() *borrowRow { return &borrowRow{} },
		(*borrowRow).dest,
		(*borrowRow).toBorrow,
	)
}

func (s *Store) queryReserves(ctx context.Context, q adapters.Querier, action string, where ...exp.Expression) (core.Reserves, error) {
	sqlQ, err := s.selectReservesQuery(where...)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, q, action, sqlQ)
	if err != nil {
		return nil, err
	}

	return collect(rows,
		func() *reserveRow { return &reserveRow{} },
		(*reserveRow).dest,
		(*reserveRow).toReserve,
	)
}

func (s *Store) queryCount(ctx context.Context, q adapters.Querier, table string, where ...exp.Expression) (int, error) {
	sqlQ, err := s.countQuery(table, where...)
	if err != nil {
		return 0, err
	}

	return s.queryInt(ctx, q, actionCount, sqlQ)
}

func (s *Store) queryInt(ctx context.Context, q adapters.Querier, action string, sqlQ sqlQuery) (int, error) {
	rows, err := s.query(ctx, q, action, sqlQ)
	if err != nil {
		return 0, err
	}

	values, err := collect(rows,
		func() *int64 { return new(int64) },
		func(v *int64) []any { return []any{v} },
		func(v *int64) (int64, error) { return *v, nil },
	)
	if err != nil {
		return 0, err
	}

	if len(values) == 0 {
		return 0, nil
	}

	return int(values[0]), nil
}

func (s *Store) query(ctx context.Context, q adapters.Querier, action string, sqlQ sqlQuery) (adapters.DBRows, error) {
	start := time.Now()

	rows, err := q.Query(ctx, sqlQ.sql, sqlQ.args...)
	if err != nil {
		s.logError(ctx, action, err, logAttrQuery, sqlQ.sql)
		return nil, classify(loanstore.ErrQueryingFailed, err)
	}

	s.logQueryWithDuration(ctx, sqlQ.sql, action, time.Since(start))

	return rows, nil
}

func (s *Store) exec(ctx context.Context, q adapters.Querier, action string, sqlQ sqlQuery) (int64, error) {
	start := time.Now()

	result, err := q.Exec(ctx, sqlQ.sql, sqlQ.args...)
	if err != nil {
		s.logError(ctx, action, err, logAttrQuery, sqlQ.sql)
		return 0, classify(loanstore.ErrWritingFailed, err)
	}

	s.logQueryWithDuration(ctx, sqlQ.sql, action, time.Since(start))

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	return affected, nil
}

func (s *Store) rollback(ctx context.Context, tx adapters.DBTx) {
	// the context may already be done, rollback must still reach the database
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logError(ctx, logMsgRollbackFailed, err)
	}
}

// observeRead wraps a read with a span and a duration metric.
func (s *Store) observeRead(ctx context.Context, action string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, spanNameRead, map[string]string{spanAttrOperation: action})

	return ctx, func(err error) {
		status := outcomeStatus(err)
		if err != nil && !errors.Is(err, loanstore.ErrNotFound) {
			s.recordError(ctx, action, err)
		}

		s.recordDuration(ctx, metricReadDuration, time.Since(start), action, status)
		s.finishSpan(span, status, err)
	}
}
