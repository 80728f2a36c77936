package repository

import (
	"context"

	"gorm.io/gorm"

	"libris/internal/model"
)

// BookRepository defines book persistence operations.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	Update(ctx context.Context, book *model.Book) error
	FindByID(ctx context.Context, id uint) (*model.Book, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error)
	Delete(ctx context.Context, id uint) (int64, error)
	List(ctx context.Context) ([]model.Book, error)
	ListOverview(ctx context.Context) ([]model.BookOverview, error)
	Summary(ctx context.Context) ([]model.BookSummary, error)
	AdjustTotalCopies(ctx context.Context, id uint, delta int) error
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository.
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Omit("Copies").Create(book).Error
}

// Update writes every column of an existing book.
func (r *bookRepository) Update(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Omit("Copies").Save(book).Error
}

// FindByID finds a book by ID.
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByIDForUpdate finds a book by ID with row-level lock for update.
func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := forUpdate(r.db.WithContext(ctx)).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes a book and reports how many rows went away.
func (r *bookRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.Book{}, id)
	return res.RowsAffected, res.Error
}

// List lists all books ordered by title.
func (r *bookRepository) List(ctx context.Context) ([]model.Book, error) {
	var books []model.Book
	if err := r.db.WithContext(ctx).Order("title ASC").Order("id ASC").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// ListOverview lists every book with its count of available copies.
func (r *bookRepository) ListOverview(ctx context.Context) ([]model.BookOverview, error) {
	var rows []model.BookOverview
	err := r.db.WithContext(ctx).
		Table("books").
		Select(`books.id, books.title, books.author, books.genre, books.image_url, books.description, books.total_copies,
			COALESCE(SUM(CASE WHEN book_copies.is_available = ? THEN 1 ELSE 0 END), 0) AS available_copies`, true).
		Joins("LEFT JOIN book_copies ON book_copies.book_id = books.id").
		Group("books.id, books.title, books.author, books.genre, books.image_url, books.description, books.total_copies").
		Order("books.title ASC").
		Order("books.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Summary counts total and available copies per book from the copy table.
func (r *bookRepository) Summary(ctx context.Context) ([]model.BookSummary, error) {
	var rows []model.BookSummary
	err := r.db.WithContext(ctx).
		Table("books").
		Select(`books.id, books.title, books.author,
			COUNT(book_copies.id) AS total_copies,
			COALESCE(SUM(CASE WHEN book_copies.is_available = ? THEN 1 ELSE 0 END), 0) AS available_copies`, true).
		Joins("LEFT JOIN book_copies ON book_copies.book_id = books.id").
		Group("books.id, books.title, books.author").
		Order("books.title ASC").
		Order("books.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AdjustTotalCopies shifts total_copies by delta.
func (r *bookRepository) AdjustTotalCopies(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Book{}).
		Where("id = ?", id).
		UpdateColumn("total_copies", gorm.Expr("total_copies + ?", delta)).Error
}
