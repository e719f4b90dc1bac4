package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine/internal/adapters"
)

const (
	actionLockCopy          = "lock_copy"
	actionLockReader        = "lock_reader"
	actionInsertBorrow      = "insert_borrow"
	actionCloseBorrow       = "close_borrow"
	actionInsertReserve     = "insert_reserve"
	actionDeactivateReserve = "deactivate_reserve"
	operationUnitOfWork     = "unit_of_work"
)

var (
	errBorrowNotActive  = errors.New("borrow is not active")
	errReserveNotActive = errors.New("reservation is not active")
)

// WithinUnitOfWork runs fn in one database transaction.
//
// On PostgreSQL the copy row and then the reader row are locked FOR UPDATE before fn runs, so units touching
// the same copy or the same reader are serialized. SQLite serializes all transactions on its single connection.
// A missing copy or reader fails with loanstore.ErrNotFound before fn is called.
func (s *Store) WithinUnitOfWork(ctx context.Context, key loanstore.LockKey, fn loanstore.UnitOfWorkFunc) (err error) {
	if key.CopyID == uuid.Nil || key.ReaderID == uuid.Nil {
		return loanstore.ErrInvalidLockKey
	}

	start := time.Now()
	ctx, span := s.startSpan(ctx, spanNameUnitOfWork, map[string]string{
		spanAttrCopyID:   key.CopyID.String(),
		spanAttrReaderID: key.ReaderID.String(),
	})

	defer func() {
		status := outcomeStatus(err)
		if status == statusError {
			s.recordError(ctx, operationUnitOfWork, err)
		}

		s.recordDuration(ctx, metricUnitOfWorkDuration, time.Since(start), operationUnitOfWork, status)
		s.finishSpan(span, status, err)
	}()

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return classify(loanstore.ErrBeginTxFailed, err)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			s.rollback(ctx, tx)
			panic(recovered)
		}
	}()

	if err = s.runInTx(ctx, tx, key, fn); err != nil {
		s.rollback(ctx, tx)
		s.logUnitOfWork(ctx, logMsgUnitOfWorkRolledBack, key, time.Since(start), logAttrError, err.Error())

		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.rollback(ctx, tx)
		return classify(loanstore.ErrCommitFailed, err)
	}

	s.logUnitOfWork(ctx, logMsgUnitOfWorkCommitted, key, time.Since(start))

	return nil
}

func (s *Store) runInTx(ctx context.Context, tx adapters.DBTx, key loanstore.LockKey, fn loanstore.UnitOfWorkFunc) error {
	if err := s.lockRow(ctx, tx, actionLockCopy, s.tables.copies, key.CopyID); err != nil {
		return err
	}

	if err := s.lockRow(ctx, tx, actionLockReader, s.tables.readers, key.ReaderID); err != nil {
		return err
	}

	if err := fn(ctx, &unitOfWork{store: s, tx: tx}); err != nil {
		return err
	}

	return ctx.Err()
}

func (s *Store) lockRow(ctx context.Context, tx adapters.DBTx, action, table string, id uuid.UUID) error {
	q, err := s.lockRowQuery(table, id)
	if err != nil {
		return err
	}

	rows, err := s.query(ctx, tx, action, q)
	if err != nil {
		return err
	}

	ids, err := collect(rows,
		func() *string { return new(string) },
		func(v *string) []any { return []any{v} },
		func(v *string) (string, error) { return *v, nil },
	)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		return loanstore.ErrNotFound
	}

	return nil
}

func (s *Store) logUnitOfWork(ctx context.Context, msg string, key loanstore.LockKey, d time.Duration, args ...any) {
	allArgs := append([]any{
		spanAttrCopyID, key.CopyID.String(),
		spanAttrReaderID, key.ReaderID.String(),
		logAttrDurationMS, toMilliseconds(d),
	}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, allArgs...)
	} else if s.logger != nil {
		s.logger.Debug(msg, allArgs...)
	}
}

// unitOfWork implements loanstore.UnitOfWork on top of an open transaction.
type unitOfWork struct {
	store *Store
	tx    adapters.DBTx
}

func (u *unitOfWork) LoadAvailability(ctx context.Context, copyID core.CopyID) (core.CopyAvailability, error) {
	return u.store.loadAvailability(ctx, u.tx, copyID)
}

func (u *unitOfWork) LoadReaderActivity(ctx context.Context, readerID core.ReaderID) (core.ReaderActivity, error) {
	borrows, err := u.store.queryCount(ctx, u.tx, u.store.tables.borrows, byReader(readerID), borrowIsOpen())
	if err != nil {
		return core.ReaderActivity{}, err
	}

	reserves, err := u.store.queryCount(ctx, u.tx, u.store.tables.reserves, byReader(readerID), reserveIsActive())
	if err != nil {
		return core.ReaderActivity{}, err
	}

	return core.ReaderActivity{ReaderID: readerID, ActiveBorrows: borrows, ActiveReserves: reserves}, nil
}

func (u *unitOfWork) InsertBorrow(
	ctx context.Context,
	copyID core.CopyID,
	readerID core.ReaderID,
	borrowedAt time.Time,
) (core.Borrow, error) {
	id, err := loanstore.NewID()
	if err != nil {
		return core.Borrow{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	at := core.ToOccurredAt(borrowedAt)

	q, err := u.store.insertQuery(u.store.tables.borrows, u.store.borrowRecord(id, copyID, readerID, at))
	if err != nil {
		return core.Borrow{}, err
	}

	// the partial unique index turns a second active borrow of the copy into a conflict
	if _, err = u.store.exec(ctx, u.tx, actionInsertBorrow, q); err != nil {
		return core.Borrow{}, err
	}

	return core.Borrow{
		ID:         id,
		CopyID:     copyID,
		ReaderID:   readerID,
		BorrowedAt: at,
		Fine:       core.UndefinedFine(),
	}, nil
}

func (u *unitOfWork) CloseBorrow(
	ctx context.Context,
	borrowID uuid.UUID,
	returnedAt time.Time,
	fine core.Fine,
) (core.Borrow, error) {
	record, err := u.store.closeBorrowRecord(core.ToOccurredAt(returnedAt), fine)
	if err != nil {
		return core.Borrow{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	q, err := u.store.updateQuery(u.store.tables.borrows, record, byID(borrowID), borrowIsOpen())
	if err != nil {
		return core.Borrow{}, err
	}

	affected, err := u.store.exec(ctx, u.tx, actionCloseBorrow, q)
	if err != nil {
		return core.Borrow{}, err
	}

	borrows, err := u.store.queryBorrows(ctx, u.tx, actionCloseBorrow, byID(borrowID))
	if err != nil {
		return core.Borrow{}, err
	}

	switch {
	case len(borrows) == 0:
		return core.Borrow{}, loanstore.ErrNotFound
	case affected == 0:
		return core.Borrow{}, loanstore.Conflict(errBorrowNotActive)
	default:
		return borrows[0], nil
	}
}

func (u *unitOfWork) InsertReserve(
	ctx context.Context,
	copyID core.CopyID,
	readerID core.ReaderID,
	reservedAt time.Time,
) (core.Reserve, error) {
	id, err := loanstore.NewID()
	if err != nil {
		return core.Reserve{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	at := core.ToOccurredAt(reservedAt)

	q, err := u.store.insertQuery(u.store.tables.reserves, u.store.reserveRecord(id, copyID, readerID, at))
	if err != nil {
		return core.Reserve{}, err
	}

	if _, err = u.store.exec(ctx, u.tx, actionInsertReserve, q); err != nil {
		return core.Reserve{}, err
	}

	return core.Reserve{
		ID:         id,
		CopyID:     copyID,
		ReaderID:   readerID,
		ReservedAt: at,
		Active:     true,
	}, nil
}

func (u *unitOfWork) DeactivateReserve(ctx context.Context, reserveID uuid.UUID) (core.Reserve, error) {
	q, err := u.store.updateQuery(u.store.tables.reserves, goqu.Record{colActive: false}, byID(reserveID), reserveIsActive())
	if err != nil {
		return core.Reserve{}, err
	}

	affected, err := u.store.exec(ctx, u.tx, actionDeactivateReserve, q)
	if err != nil {
		return core.Reserve{}, err
	}

	reserves, err := u.store.queryReserves(ctx, u.tx, actionDeactivateReserve, byID(reserveID))
	if err != nil {
		return core.Reserve{}, err
	}

	switch {
	case len(reserves) == 0:
		return core.Reserve{}, loanstore.ErrNotFound
	case affected == 0:
		return core.Reserve{}, loanstore.Conflict(errReserveNotActive)
	default:
		return reserves[0], nil
	}
}

var _ loanstore.Store = (*Store)(nil)
