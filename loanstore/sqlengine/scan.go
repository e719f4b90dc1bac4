package sqlengine

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
	"github.com/AntonStoeckl/library-loans/loanstore/sqlengine/internal/adapters"
)

var errUnsupportedTimeValue = errors.New("unsupported time value")

// dbTime scans timestamps stored natively (PostgreSQL) or as fixed-width text (SQLite).
type dbTime struct {
	time  time.Time
	valid bool
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.time, t.valid = time.Time{}, false
	case time.Time:
		t.time, t.valid = v.UTC(), true
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("%w: %T", errUnsupportedTimeValue, src)
	}

	return nil
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return errors.Join(errUnsupportedTimeValue, err)
	}

	t.time, t.valid = parsed.UTC(), true

	return nil
}

func (t dbTime) ptr() *time.Time {
	if !t.valid {
		return nil
	}

	at := t.time
	return &at
}

var _ sql.Scanner = (*dbTime)(nil)

type readerRow struct {
	id      string
	name    string
	address string
	phone   string
}

func (r *readerRow) dest() []any {
	return []any{&r.id, &r.name, &r.address, &r.phone}
}

func (r *readerRow) toReader() (core.Reader, error) {
	id, err := uuid.Parse(r.id)
	if err != nil {
		return core.Reader{}, loanstore.Failure(loanstore.ErrScanningDBRowFailed, err)
	}

	return core.Reader{ID: id, Name: r.name, Address: r.address, Phone: r.phone}, nil
}

type copyRow struct {
	id       string
	bookID   string
	branchID string
	number   int64
}

func (r *copyRow) dest() []any {
	return []any{&r.id, &r.bookID, &r.branchID, &r.number}
}

func (r *copyRow) toCopy() (core.Copy, error) {
	id, bookID, branchID, err := parseIDs(r.id, r.bookID, r.branchID)
	if err != nil {
		return core.Copy{}, err
	}

	return core.Copy{ID: id, BookID: bookID, BranchID: branchID, Number: int(r.number)}, nil
}

type borrowRow struct {
	id         string
	copyID     string
	readerID   string
	borrowedAt dbTime
	returnedAt dbTime
	fine       decimal.NullDecimal
}

func (r *borrowRow) dest() []any {
	return []any{&r.id, &r.copyID, &r.readerID, &r.borrowedAt, &r.returnedAt, &r.fine}
}

func (r *borrowRow) toBorrow() (core.Borrow, error) {
	id, copyID, readerID, err := parseIDs(r.id, r.copyID, r.readerID)
	if err != nil {
		return core.Borrow{}, err
	}

	fine := core.UndefinedFine()
	if r.fine.Valid {
		fine = core.FineOf(r.fine.Decimal)
	}

	return core.Borrow{
		ID:         id,
		CopyID:     copyID,
		ReaderID:   readerID,
		BorrowedAt: r.borrowedAt.time,
		ReturnedAt: r.returnedAt.ptr(),
		Fine:       fine,
	}, nil
}

type reserveRow struct {
	id         string
	copyID     string
	readerID   string
	reservedAt dbTime
	active     bool
}

func (r *reserveRow) dest() []any {
	return []any{&r.id, &r.copyID, &r.readerID, &r.reservedAt, &r.active}
}

func (r *reserveRow) toReserve() (core.Reserve, error) {
	id, copyID, readerID, err := parseIDs(r.id, r.copyID, r.readerID)
	if err != nil {
		return core.Reserve{}, err
	}

	return core.Reserve{
		ID:         id,
		CopyID:     copyID,
		ReaderID:   readerID,
		ReservedAt: r.reservedAt.time,
		Active:     r.active,
	}, nil
}

func parseIDs(raw ...string) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	var ids [3]uuid.UUID

	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, uuid.Nil, uuid.Nil, loanstore.Failure(loanstore.ErrScanningDBRowFailed, err)
		}

		ids[i] = id
	}

	return ids[0], ids[1], ids[2], nil
}

// collect scans all rows with newRow/convert and closes them.
func collect[R any, T any](rows adapters.DBRows, newRow func() R, dest func(R) []any, convert func(R) (T, error)) ([]T, error) {
	defer func() { _ = rows.Close() }()

	var result []T

	for rows.Next() {
		row := newRow()
		if err := rows.Scan(dest(row)...); err != nil {
			return nil, loanstore.Failure(loanstore.ErrScanningDBRowFailed, err)
		}

		item, err := convert(row)
		if err != nil {
			return nil, err
		}

		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, loanstore.Failure(loanstore.ErrQueryingFailed, err)
	}

	return result, nil
}
