package memoryengine

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	logMsgUnitOfWorkCommitted  = "unit of work committed"
	logMsgUnitOfWorkRolledBack = "unit of work rolled back"
	logAttrCopyID              = "copy_id"
	logAttrReaderID            = "reader_id"
	logAttrWrites              = "writes"
	logAttrError               = "error"
)

var (
	errActiveBorrowExists  = errors.New("copy already has an active borrow")
	errActiveReserveExists = errors.New("copy already has an active reservation")
	errBorrowNotActive     = errors.New("borrow is not active")
	errReserveNotActive    = errors.New("reservation is not active")
)

// Store is an in-memory loanstore.Store.
type Store struct {
	mu sync.RWMutex

	readers  map[uuid.UUID]core.Reader
	copies   map[uuid.UUID]core.Copy
	borrows  map[uuid.UUID]core.Borrow
	reserves map[uuid.UUID]core.Reserve

	// insertion order per reader, used for history reads
	borrowsByReader  map[uuid.UUID][]uuid.UUID
	reservesByReader map[uuid.UUID][]uuid.UUID

	activeBorrowOfCopy  map[uuid.UUID]uuid.UUID
	activeReserveOfCopy map[uuid.UUID]uuid.UUID

	logger           loanstore.Logger
	contextualLogger loanstore.ContextualLogger
}

// Option defines a functional option for configuring Store.
type Option func(*Store)

// WithLogger sets the logger for the Store. Commits and rollbacks are logged at debug level.
func WithLogger(logger loanstore.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithContextualLogger sets the contextual logger for the Store.
func WithContextualLogger(logger loanstore.ContextualLogger) Option {
	return func(s *Store) {
		s.contextualLogger = logger
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		readers:             make(map[uuid.UUID]core.Reader),
		copies:              make(map[uuid.UUID]core.Copy),
		borrows:             make(map[uuid.UUID]core.Borrow),
		reserves:            make(map[uuid.UUID]core.Reserve),
		borrowsByReader:     make(map[uuid.UUID][]uuid.UUID),
		reservesByReader:    make(map[uuid.UUID][]uuid.UUID),
		activeBorrowOfCopy:  make(map[uuid.UUID]uuid.UUID),
		activeReserveOfCopy: make(map[uuid.UUID]uuid.UUID),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithinUnitOfWork runs fn exclusively. If fn fails or ctx ends before fn returns, every write of fn is undone.
// A missing copy or reader fails with loanstore.ErrNotFound before fn is called.
func (s *Store) WithinUnitOfWork(ctx context.Context, key loanstore.LockKey, fn loanstore.UnitOfWorkFunc) error {
	if key.CopyID == uuid.Nil || key.ReaderID == uuid.Nil {
		return loanstore.ErrInvalidLockKey
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.copies[key.CopyID]; !ok {
		return loanstore.ErrNotFound
	}

	if _, ok := s.readers[key.ReaderID]; !ok {
		return loanstore.ErrNotFound
	}

	uow := &unitOfWork{store: s}

	defer func() {
		if recovered := recover(); recovered != nil {
			uow.rollback()
			panic(recovered)
		}
	}()

	err := fn(ctx, uow)
	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		uow.rollback()
		s.debug(ctx, logMsgUnitOfWorkRolledBack, logAttrCopyID, key.CopyID.String(), logAttrReaderID, key.ReaderID.String(), logAttrError, err.Error())

		return err
	}

	s.debug(ctx, logMsgUnitOfWorkCommitted, logAttrCopyID, key.CopyID.String(), logAttrReaderID, key.ReaderID.String(), logAttrWrites, len(uow.undo))

	return nil
}

// GetReader returns the reader or loanstore.ErrNotFound.
func (s *Store) GetReader(_ context.Context, readerID core.ReaderID) (core.Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reader, ok := s.readers[readerID]
	if !ok {
		return core.Reader{}, loanstore.ErrNotFound
	}

	return reader, nil
}

// GetCopy returns the copy or loanstore.ErrNotFound.
func (s *Store) GetCopy(_ context.Context, copyID core.CopyID) (core.Copy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.copies[copyID]
	if !ok {
		return core.Copy{}, loanstore.ErrNotFound
	}

	return c, nil
}

// LoadAvailability returns the current active borrow and reservation of the copy.
func (s *Store) LoadAvailability(_ context.Context, copyID core.CopyID) (core.CopyAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.availabilityOf(copyID), nil
}

// BorrowsOfReader returns the reader's borrows in the order they were created.
func (s *Store) BorrowsOfReader(_ context.Context, readerID core.ReaderID, scope loanstore.Scope) (core.Borrows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	borrows := make(core.Borrows, 0, len(s.borrowsByReader[readerID]))
	for _, id := range s.borrowsByReader[readerID] {
		b := s.borrows[id]
		if scope == loanstore.ScopeActive && !b.IsActive() {
			continue
		}

		borrows = append(borrows, b)
	}

	return borrows, nil
}

// ReservesOfReader returns the reader's reservations in the order they were created.
func (s *Store) ReservesOfReader(_ context.Context, readerID core.ReaderID, scope loanstore.Scope) (core.Reserves, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reserves := make(core.Reserves, 0, len(s.reservesByReader[readerID]))
	for _, id := range s.reservesByReader[readerID] {
		r := s.reserves[id]
		if scope == loanstore.ScopeActive && !r.Active {
			continue
		}

		reserves = append(reserves, r)
	}

	return reserves, nil
}

// ListCopies returns the copies passing filter, ordered by book, branch and number.
func (s *Store) ListCopies(_ context.Context, filter loanstore.CopyFilter) ([]core.CopyOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overviews := make([]core.CopyOverview, 0)
	for _, c := range s.copies {
		availability := s.availabilityOf(c.ID)
		if filter.Admits(c, availability.Status()) {
			overviews = append(overviews, core.CopyOverview{Copy: c, Availability: availability})
		}
	}

	slices.SortFunc(overviews, func(a, b core.CopyOverview) int {
		if byBook := bytes.Compare(a.Copy.BookID[:], b.Copy.BookID[:]); byBook != 0 {
			return byBook
		}

		if byBranch := bytes.Compare(a.Copy.BranchID[:], b.Copy.BranchID[:]); byBranch != 0 {
			return byBranch
		}

		return cmp.Compare(a.Copy.Number, b.Copy.Number)
	})

	return overviews, nil
}

// RegisterReader creates a reader with a generated ID.
func (s *Store) RegisterReader(_ context.Context, name, address, phone string) (core.Reader, error) {
	id, err := loanstore.NewID()
	if err != nil {
		return core.Reader{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	reader := core.Reader{ID: id, Name: name, Address: address, Phone: phone}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.readers[id] = reader

	return reader, nil
}

// AddCopy creates a copy numbered one above the highest number of the same book at the same branch.
func (s *Store) AddCopy(_ context.Context, bookID, branchID uuid.UUID) (core.Copy, error) {
	id, err := loanstore.NewID()
	if err != nil {
		return core.Copy{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	number := 1
	for _, c := range s.copies {
		if c.BookID == bookID && c.BranchID == branchID && c.Number >= number {
			number = c.Number + 1
		}
	}

	c := core.Copy{ID: id, BookID: bookID, BranchID: branchID, Number: number}
	s.copies[id] = c

	return c, nil
}

// availabilityOf must be called with s.mu held.
func (s *Store) availabilityOf(copyID core.CopyID) core.CopyAvailability {
	var activeBorrow *core.Borrow
	if id, ok := s.activeBorrowOfCopy[copyID]; ok {
		b := s.borrows[id]
		activeBorrow = &b
	}

	var activeReserve *core.Reserve
	if id, ok := s.activeReserveOfCopy[copyID]; ok {
		r := s.reserves[id]
		activeReserve = &r
	}

	return core.AvailabilityOf(copyID, activeBorrow, activeReserve)
}

func (s *Store) debug(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// unitOfWork operates on the store while the caller holds s.mu exclusively.
type unitOfWork struct {
	store *Store
	undo  []func()
}

func (u *unitOfWork) LoadAvailability(_ context.Context, copyID core.CopyID) (core.CopyAvailability, error) {
	return u.store.availabilityOf(copyID), nil
}

func (u *unitOfWork) LoadReaderActivity(_ context.Context, readerID core.ReaderID) (core.ReaderActivity, error) {
	activity := core.ReaderActivity{ReaderID: readerID}

	for _, id := range u.store.borrowsByReader[readerID] {
		if u.store.borrows[id].IsActive() {
			activity.ActiveBorrows++
		}
	}

	for _, id := range u.store.reservesByReader[readerID] {
		if u.store.reserves[id].Active {
			activity.ActiveReserves++
		}
	}

	return activity, nil
}

func (u *unitOfWork) InsertBorrow(
	_ context.Context,
	copyID core.CopyID,
	readerID core.ReaderID,
	borrowedAt time.Time,
) (core.Borrow, error) {
	s := u.store

	if _, ok := s.activeBorrowOfCopy[copyID]; ok {
		return core.Borrow{}, loanstore.Conflict(errActiveBorrowExists)
	}

	id, err := loanstore.NewID()
	if err != nil {
		return core.Borrow{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	borrow := core.Borrow{
		ID:         id,
		CopyID:     copyID,
		ReaderID:   readerID,
		BorrowedAt: core.ToOccurredAt(borrowedAt),
		Fine:       core.UndefinedFine(),
	}

	previous := s.borrowsByReader[readerID]
	s.borrows[id] = borrow
	s.borrowsByReader[readerID] = append(previous, id)
	s.activeBorrowOfCopy[copyID] = id

	u.undo = append(u.undo, func() {
		delete(s.borrows, id)
		s.borrowsByReader[readerID] = previous
		delete(s.activeBorrowOfCopy, copyID)
	})

	return borrow, nil
}

func (u *unitOfWork) CloseBorrow(
	_ context.Context,
	borrowID uuid.UUID,
	returnedAt time.Time,
	fine core.Fine,
) (core.Borrow, error) {
	s := u.store

	previous, ok := s.borrows[borrowID]
	if !ok {
		return core.Borrow{}, loanstore.ErrNotFound
	}

	if !previous.IsActive() {
		return core.Borrow{}, loanstore.Conflict(errBorrowNotActive)
	}

	closed := previous
	at := core.ToOccurredAt(returnedAt)
	closed.ReturnedAt = &at
	closed.Fine = fine

	s.borrows[borrowID] = closed
	delete(s.activeBorrowOfCopy, closed.CopyID)

	u.undo = append(u.undo, func() {
		s.borrows[borrowID] = previous
		s.activeBorrowOfCopy[previous.CopyID] = borrowID
	})

	return closed, nil
}

func (u *unitOfWork) InsertReserve(
	_ context.Context,
	copyID core.CopyID,
	readerID core.ReaderID,
	reservedAt time.Time,
) (core.Reserve, error) {
	s := u.store

	if _, ok := s.activeReserveOfCopy[copyID]; ok {
		return core.Reserve{}, loanstore.Conflict(errActiveReserveExists)
	}

	id, err := loanstore.NewID()
	if err != nil {
		return core.Reserve{}, loanstore.Failure(loanstore.ErrWritingFailed, err)
	}

	reserve := core.Reserve{
		ID:         id,
		CopyID:     copyID,
		ReaderID:   readerID,
		ReservedAt: core.ToOccurredAt(reservedAt),
		Active:     true,
	}

	previous := s.reservesByReader[readerID]
	s.reserves[id] = reserve
	s.reservesByReader[readerID] = append(previous, id)
	s.activeReserveOfCopy[copyID] = id

	u.undo = append(u.undo, func() {
		delete(s.reserves, id)
		s.reservesByReader[readerID] = previous
		delete(s.activeReserveOfCopy, copyID)
	})

	return reserve, nil
}

func (u *unitOfWork) DeactivateReserve(_ context.Context, reserveID uuid.UUID) (core.Reserve, error) {
	s := u.store

	previous, ok := s.reserves[reserveID]
	if !ok {
		return core.Reserve{}, loanstore.ErrNotFound
	}

	if !previous.Active {
		return core.Reserve{}, loanstore.Conflict(errReserveNotActive)
	}

	deactivated := previous.Deactivated()
	s.reserves[reserveID] = deactivated
	delete(s.activeReserveOfCopy, deactivated.CopyID)

	u.undo = append(u.undo, func() {
		s.reserves[reserveID] = previous
		s.activeReserveOfCopy[previous.CopyID] = reserveID
	})

	return deactivated, nil
}

func (u *unitOfWork) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}

	u.undo = nil
}
