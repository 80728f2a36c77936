package repository

import (
	"context"

	"gorm.io/gorm"

	"libris/internal/model"
)

const copyBatchSize = 100

// CopyRepository defines book copy persistence operations.
type CopyRepository interface {
	CreateBatch(ctx context.Context, copies []model.BookCopy) error
	FindByID(ctx context.Context, id uint) (*model.BookCopy, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.BookCopy, error)
	ListByBook(ctx context.Context, bookID uint) ([]model.BookCopy, error)
	ListAll(ctx context.Context) ([]model.CopyListing, error)
	CountByBook(ctx context.Context, bookID uint) (int64, error)
	CountUnavailableByBook(ctx context.Context, bookID uint) (int64, error)
	MaxSequence(ctx context.Context, bookID uint) (int, error)
	MarkUnavailable(ctx context.Context, id uint) (bool, error)
	MarkAvailable(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	DeleteByBook(ctx context.Context, bookID uint) error
}

type copyRepository struct {
	db *gorm.DB
}

// NewCopyRepository creates a new copy repository.
func NewCopyRepository(db *gorm.DB) CopyRepository {
	return &copyRepository{db: db}
}

// CreateBatch inserts copies in batches; the rows are disjoint so one statement per batch suffices.
func (r *copyRepository) CreateBatch(ctx context.Context, copies []model.BookCopy) error {
	if len(copies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&copies, copyBatchSize).Error
}

// FindByID finds a copy by ID.
func (r *copyRepository) FindByID(ctx context.Context, id uint) (*model.BookCopy, error) {
	var c model.BookCopy
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByIDForUpdate finds a copy by ID with row-level lock for update.
func (r *copyRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.BookCopy, error) {
	var c model.BookCopy
	if err := forUpdate(r.db.WithContext(ctx)).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByBook lists the copies of one book in copy-number order.
func (r *copyRepository) ListByBook(ctx context.Context, bookID uint) ([]model.BookCopy, error) {
	var copies []model.BookCopy
	if err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Order("sequence ASC").Find(&copies).Error; err != nil {
		return nil, err
	}
	return copies, nil
}

// ListAll lists every copy with its book title.
func (r *copyRepository) ListAll(ctx context.Context) ([]model.CopyListing, error) {
	var rows []model.CopyListing
	err := r.db.WithContext(ctx).
		Table("book_copies").
		Select("book_copies.id, book_copies.book_id, books.title, book_copies.copy_number, book_copies.is_available, book_copies.created_at").
		Joins("JOIN books ON books.id = book_copies.book_id").
		Order("books.title ASC").
		Order("book_copies.sequence ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByBook counts the copies of a book.
func (r *copyRepository) CountByBook(ctx context.Context, bookID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.BookCopy{}).Where("book_id = ?", bookID).Count(&n).Error
	return n, err
}

// CountUnavailableByBook counts the copies of a book currently on loan.
func (r *copyRepository) CountUnavailableByBook(ctx context.Context, bookID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.BookCopy{}).
		Where("book_id = ? AND is_available = ?", bookID, false).
		Count(&n).Error
	return n, err
}

// MaxSequence returns the highest copy sequence of a book, or 0 when it has none.
func (r *copyRepository) MaxSequence(ctx context.Context, bookID uint) (int, error) {
	var seq int
	err := r.db.WithContext(ctx).Model(&model.BookCopy{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&seq).Error
	return seq, err
}

// MarkUnavailable flips an available copy to on-loan. It reports false when the
// copy was not available, so a lost race never double-issues a copy.
func (r *copyRepository) MarkUnavailable(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.BookCopy{}).
		Where("id = ? AND is_available = ?", id, true).
		Update("is_available", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkAvailable puts a copy back on the shelf.
func (r *copyRepository) MarkAvailable(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.BookCopy{}).
		Where("id = ?", id).
		Update("is_available", true).Error
}

// Delete removes one copy.
func (r *copyRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.BookCopy{}, id).Error
}

// DeleteByBook removes every copy of a book.
func (r *copyRepository) DeleteByBook(ctx context.Context, bookID uint) error {
	return r.db.WithContext(ctx).Where("book_id = ?", bookID).Delete(&model.BookCopy{}).Error
}
