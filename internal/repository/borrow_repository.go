package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"libris/internal/model"
)

// BorrowRepository defines borrow record persistence operations.
type BorrowRepository interface {
	Create(ctx context.Context, borrow *model.Borrow) error
	Update(ctx context.Context, borrow *model.Borrow) error
	FindByID(ctx context.Context, id uint) (*model.Borrow, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Borrow, error)
	CountOpenByCopy(ctx context.Context, copyID uint) (int64, error)
	CountOpenByUser(ctx context.Context, userID uint) (int64, error)
	ListOpenDueBefore(ctx context.Context, day time.Time) ([]model.BorrowDetail, error)
	ListOpenDueOn(ctx context.Context, day time.Time) ([]model.BorrowDetail, error)
	ListByUser(ctx context.Context, userID uint) ([]model.BorrowDetail, error)
	ListAll(ctx context.Context) ([]model.BorrowDetail, error)
}

type borrowRepository struct {
	db *gorm.DB
}

// NewBorrowRepository creates a new borrow repository.
func NewBorrowRepository(db *gorm.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

// Create creates a new borrow record.
func (r *borrowRepository) Create(ctx context.Context, borrow *model.Borrow) error {
	return r.db.WithContext(ctx).Create(borrow).Error
}

// Update writes every column of an existing borrow record.
func (r *borrowRepository) Update(ctx context.Context, borrow *model.Borrow) error {
	return r.db.WithContext(ctx).Save(borrow).Error
}

// FindByID finds a borrow record by ID.
func (r *borrowRepository) FindByID(ctx context.Context, id uint) (*model.Borrow, error) {
	var borrow model.Borrow
	if err := r.db.WithContext(ctx).First(&borrow, id).Error; err != nil {
		return nil, err
	}
	return &borrow, nil
}

// FindByIDForUpdate finds a borrow record by ID with row-level lock for update.
func (r *borrowRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Borrow, error) {
	var borrow model.Borrow
	if err := forUpdate(r.db.WithContext(ctx)).First(&borrow, id).Error; err != nil {
		return nil, err
	}
	return &borrow, nil
}

// CountOpenByCopy counts open records for a copy; the invariant keeps it at 0 or 1.
func (r *borrowRepository) CountOpenByCopy(ctx context.Context, copyID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Borrow{}).
		Where("copy_id = ? AND status = ?", copyID, model.BorrowStatusBorrowed).
		Count(&n).Error
	return n, err
}

// CountOpenByUser counts open records held by a user.
func (r *borrowRepository) CountOpenByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Borrow{}).
		Where("user_id = ? AND status = ?", userID, model.BorrowStatusBorrowed).
		Count(&n).Error
	return n, err
}

// ListOpenDueBefore lists open records whose due date is strictly before day.
func (r *borrowRepository) ListOpenDueBefore(ctx context.Context, day time.Time) ([]model.BorrowDetail, error) {
	var rows []model.BorrowDetail
	err := r.details(ctx).
		Where("borrows.status = ? AND borrows.due_date < ?", model.BorrowStatusBorrowed, day).
		Order("borrows.due_date ASC").
		Order("borrows.id ASC").
		Scan(&rows).Error
	return rows, err
}

// ListOpenDueOn lists open records due on day.
func (r *borrowRepository) ListOpenDueOn(ctx context.Context, day time.Time) ([]model.BorrowDetail, error) {
	var rows []model.BorrowDetail
	err := r.details(ctx).
		Where("borrows.status = ? AND borrows.due_date >= ? AND borrows.due_date < ?",
			model.BorrowStatusBorrowed, day, day.AddDate(0, 0, 1)).
		Order("borrows.id ASC").
		Scan(&rows).Error
	return rows, err
}

// ListByUser lists a user's records, most recent first.
func (r *borrowRepository) ListByUser(ctx context.Context, userID uint) ([]model.BorrowDetail, error) {
	var rows []model.BorrowDetail
	err := r.details(ctx).
		Where("borrows.user_id = ?", userID).
		Order("borrows.borrow_date DESC").
		Order("borrows.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListAll lists every record, most recent first.
func (r *borrowRepository) ListAll(ctx context.Context) ([]model.BorrowDetail, error) {
	var rows []model.BorrowDetail
	err := r.details(ctx).
		Order("borrows.borrow_date DESC").
		Order("borrows.id DESC").
		Scan(&rows).Error
	return rows, err
}

// details joins borrows with users, copies and books. Outer joins keep history
// rows whose copy was retired or whose book was removed.
func (r *borrowRepository) details(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("borrows").
		Select(`borrows.id, borrows.user_id, users.first_name, users.last_name, users.email,
			borrows.copy_id, COALESCE(book_copies.copy_number, borrows.copy_number) AS copy_number,
			COALESCE(book_copies.book_id, borrows.book_id) AS book_id, books.title, books.author, books.image_url,
			borrows.status, borrows.borrow_date, borrows.due_date, borrows.return_date`).
		Joins("LEFT JOIN users ON users.id = borrows.user_id").
		Joins("LEFT JOIN book_copies ON book_copies.id = borrows.copy_id").
		Joins("LEFT JOIN books ON books.id = COALESCE(book_copies.book_id, borrows.book_id)")
}
