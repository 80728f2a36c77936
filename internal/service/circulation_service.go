package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/cache"
	"libris/internal/clock"
	apperr "libris/internal/errors"
	"libris/internal/model"
	"libris/internal/repository"
)

// IssueInput describes a loan to open. BorrowDate defaults to today.
type IssueInput struct {
	UserID     uint
	CopyID     uint
	BorrowDate *time.Time
	DueDate    time.Time
}

// CirculationService handles the borrow/return lifecycle of book copies.
type CirculationService interface {
	Issue(ctx context.Context, in IssueInput) (*model.Borrow, error)
	Return(ctx context.Context, borrowID uint, returnDate *time.Time) (*model.Borrow, error)
	ExtendDueDate(ctx context.Context, borrowID uint, newDueDate time.Time) (*model.Borrow, error)
	ListOverdue(ctx context.Context) ([]model.BorrowDetail, error)
	ListDueToday(ctx context.Context) ([]model.BorrowDetail, error)
	ListByUser(ctx context.Context, userID uint) ([]model.BorrowDetail, error)
	ListAll(ctx context.Context) ([]model.BorrowDetail, error)
	History(ctx context.Context, borrowID uint) ([]model.CirculationEvent, error)
}

type circulationService struct {
	store      repository.Store
	cache      *cache.Client
	clock      clock.Clock
	finePerDay decimal.Decimal
}

// NewCirculationService creates a new circulation service.
func NewCirculationService(store repository.Store, cache *cache.Client, clk clock.Clock, finePerDay decimal.Decimal) CirculationService {
	return &circulationService{
		store:      store,
		cache:      cache,
		clock:      clk,
		finePerDay: finePerDay,
	}
}

// Issue lends an available copy to a user. The copy row is locked and flipped
// with a conditional update in the same transaction that creates the record.
func (s *circulationService) Issue(ctx context.Context, in IssueInput) (borrow *model.Borrow, err error) {
	ctx, span := startSpan(ctx, "circulation.issue", trace.WithAttributes(
		attribute.Int("user.id", int(in.UserID)),
		attribute.Int("copy.id", int(in.CopyID)),
	))
	defer func() { endSpan(span, err) }()

	event := &model.CirculationEvent{UserID: in.UserID, CopyID: in.CopyID, Action: model.ActionIssue}
	defer func() { s.record(ctx, event, borrow, err) }()

	if in.UserID == 0 || in.CopyID == 0 || in.DueDate.IsZero() {
		return nil, apperr.Validationf("missing required fields: user_id, copy_id, due_date")
	}

	borrowDate := clock.Today(s.clock)
	if in.BorrowDate != nil && !in.BorrowDate.IsZero() {
		borrowDate = clock.Date(*in.BorrowDate)
	}
	dueDate := clock.Date(in.DueDate)
	if dueDate.Before(borrowDate) {
		return nil, apperr.Validationf("due_date must not be before borrow_date")
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, in.UserID)
		if err != nil {
			return notFound(err, apperr.ErrUserNotFound)
		}
		if user.Status != model.UserStatusActive {
			return apperr.ErrUserInactive
		}

		bookCopy, err := tx.Copies().FindByIDForUpdate(ctx, in.CopyID)
		if err != nil {
			return notFound(err, apperr.ErrCopyNotFound)
		}
		if !bookCopy.IsAvailable {
			return apperr.ErrCopyNotAvailable
		}

		flipped, err := tx.Copies().MarkUnavailable(ctx, bookCopy.ID)
		if err != nil {
			return fmt.Errorf("mark copy unavailable: %w", err)
		}
		if !flipped {
			return apperr.ErrCopyNotAvailable
		}

		record := &model.Borrow{
			UserID:     in.UserID,
			CopyID:     bookCopy.ID,
			BookID:     bookCopy.BookID,
			CopyNumber: bookCopy.CopyNumber,
			BorrowDate: borrowDate,
			DueDate:    dueDate,
			Status:     model.BorrowStatusBorrowed,
		}
		if err := tx.Borrows().Create(ctx, record); err != nil {
			return fmt.Errorf("create borrow: %w", err)
		}
		borrow = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return borrow, nil
}

// Return closes an open record and puts its copy back on the shelf. A record
// that is already returned is left untouched and reported as ErrAlreadyReturned.
func (s *circulationService) Return(ctx context.Context, borrowID uint, returnDate *time.Time) (borrow *model.Borrow, err error) {
	ctx, span := startSpan(ctx, "circulation.return", trace.WithAttributes(attribute.Int("borrow.id", int(borrowID))))
	defer func() { endSpan(span, err) }()

	event := &model.CirculationEvent{Action: model.ActionReturn}
	defer func() { s.record(ctx, event, borrow, err) }()

	returned := clock.Today(s.clock)
	if returnDate != nil && !returnDate.IsZero() {
		returned = clock.Date(*returnDate)
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		record, err := tx.Borrows().FindByIDForUpdate(ctx, borrowID)
		if err != nil {
			return notFound(err, apperr.ErrBorrowNotFound)
		}
		event.BorrowID, event.UserID, event.CopyID = &record.ID, record.UserID, record.CopyID

		if !record.IsOpen() {
			return apperr.ErrAlreadyReturned
		}
		if returned.Before(record.BorrowDate) {
			return apperr.Validationf("return_date must not be before borrow_date")
		}

		record.Status = model.BorrowStatusReturned
		record.ReturnDate = &returned
		if err := tx.Borrows().Update(ctx, record); err != nil {
			return fmt.Errorf("update borrow: %w", err)
		}
		if err := tx.Copies().MarkAvailable(ctx, record.CopyID); err != nil {
			return fmt.Errorf("mark copy available: %w", err)
		}
		borrow = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalog(ctx)
	return borrow, nil
}

// ExtendDueDate moves the due date of an open record.
func (s *circulationService) ExtendDueDate(ctx context.Context, borrowID uint, newDueDate time.Time) (borrow *model.Borrow, err error) {
	ctx, span := startSpan(ctx, "circulation.extend", trace.WithAttributes(attribute.Int("borrow.id", int(borrowID))))
	defer func() { endSpan(span, err) }()

	event := &model.CirculationEvent{Action: model.ActionExtend}
	defer func() { s.record(ctx, event, borrow, err) }()

	if newDueDate.IsZero() {
		return nil, apperr.Validationf("please provide new_due_date")
	}
	due := clock.Date(newDueDate)

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		record, err := tx.Borrows().FindByIDForUpdate(ctx, borrowID)
		if err != nil {
			return notFound(err, apperr.ErrBorrowNotFound)
		}
		event.BorrowID, event.UserID, event.CopyID = &record.ID, record.UserID, record.CopyID

		if !record.IsOpen() {
			return apperr.ErrAlreadyReturned
		}
		if due.Before(record.BorrowDate) {
			return apperr.Validationf("new_due_date must not be before borrow_date")
		}

		record.DueDate = due
		if err := tx.Borrows().Update(ctx, record); err != nil {
			return fmt.Errorf("update borrow: %w", err)
		}
		borrow = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return borrow, nil
}

// ListOverdue lists open records due before today with their accrued fines.
func (s *circulationService) ListOverdue(ctx context.Context) ([]model.BorrowDetail, error) {
	today := clock.Today(s.clock)
	rows, err := s.store.Borrows().ListOpenDueBefore(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	for i := range rows {
		days := int(today.Sub(clock.Date(rows[i].DueDate)).Hours() / 24)
		rows[i].DaysOverdue = days
		rows[i].Fine = s.finePerDay.Mul(decimal.NewFromInt(int64(days)))
	}
	return rows, nil
}

// ListDueToday lists open records due today.
func (s *circulationService) ListDueToday(ctx context.Context) ([]model.BorrowDetail, error) {
	rows, err := s.store.Borrows().ListOpenDueOn(ctx, clock.Today(s.clock))
	if err != nil {
		return nil, fmt.Errorf("list due today: %w", err)
	}
	return rows, nil
}

// ListByUser lists a user's records, most recent first.
func (s *circulationService) ListByUser(ctx context.Context, userID uint) ([]model.BorrowDetail, error) {
	if userID == 0 {
		return nil, apperr.Validationf("user_id is required")
	}
	return s.store.Borrows().ListByUser(ctx, userID)
}

// ListAll lists every record, most recent first.
func (s *circulationService) ListAll(ctx context.Context) ([]model.BorrowDetail, error) {
	return s.store.Borrows().ListAll(ctx)
}

// History returns the audit trail of one record.
func (s *circulationService) History(ctx context.Context, borrowID uint) ([]model.CirculationEvent, error) {
	if _, err := s.store.Borrows().FindByID(ctx, borrowID); err != nil {
		return nil, notFound(err, apperr.ErrBorrowNotFound)
	}
	return s.store.Events().ListByBorrow(ctx, borrowID)
}

// record writes the audit entry for an attempt, whatever its outcome.
func (s *circulationService) record(ctx context.Context, event *model.CirculationEvent, borrow *model.Borrow, err error) {
	event.Outcome = model.OutcomeAccepted
	if err != nil {
		event.Outcome = model.OutcomeFailed
		event.ErrorMessage = err.Error()
	}
	if borrow != nil {
		id := borrow.ID
		event.BorrowID, event.UserID, event.CopyID = &id, borrow.UserID, borrow.CopyID
	}

	if werr := s.store.Events().Create(ctx, event); werr != nil {
		slog.WarnContext(ctx, "write circulation event",
			slog.String("action", string(event.Action)),
			slog.String("error", werr.Error()),
		)
	}
}

func (s *circulationService) invalidateCatalog(ctx context.Context) {
	_ = s.cache.Delete(ctx, overviewCacheKey)
}
