package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/cache"
	apperr "libris/internal/errors"
	"libris/internal/model"
	"libris/internal/repository"
)

const (
	overviewCacheKey = "books:overview"
	overviewCacheTTL = time.Minute

	// MaxCopiesPerBook bounds total_copies and the copies added by one request.
	MaxCopiesPerBook = 1000
)

// BookInput carries every mutable field of a book. TotalCopies is a pointer so
// a missing value can be told apart from zero.
type BookInput struct {
	Title         string
	Author        string
	Genre         string
	PublishedYear int
	Pages         int
	ImageURL      string
	Description   string
	TotalCopies   *int
}

// BookPatch carries the whitelisted fields of a partial update; nil means untouched.
type BookPatch struct {
	Title         *string
	Author        *string
	Genre         *string
	PublishedYear *int
	Pages         *int
	ImageURL      *string
	Description   *string
	TotalCopies   *int
}

// IsEmpty reports whether no recognized field was supplied.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Genre == nil && p.PublishedYear == nil &&
		p.Pages == nil && p.ImageURL == nil && p.Description == nil && p.TotalCopies == nil
}

// CatalogService manages books and their copies.
type CatalogService interface {
	CreateBook(ctx context.Context, in BookInput) (*model.Book, []model.BookCopy, error)
	GetBook(ctx context.Context, id uint) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	UpdateBook(ctx context.Context, id uint, in BookInput) (*model.Book, []model.BookCopy, error)
	PatchBook(ctx context.Context, id uint, patch BookPatch) (*model.Book, []model.BookCopy, error)
	DeleteBook(ctx context.Context, id uint) error
	ListBooksWithAvailability(ctx context.Context) ([]model.BookOverview, error)
	BooksSummary(ctx context.Context) ([]model.BookSummary, error)
	ListCopies(ctx context.Context) ([]model.CopyListing, error)
	ListCopiesByBook(ctx context.Context, bookID uint) ([]model.BookCopy, error)
	RetireCopy(ctx context.Context, copyID uint) error
}

type catalogService struct {
	store repository.Store
	cache *cache.Client
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store repository.Store, cache *cache.Client) CatalogService {
	return &catalogService{store: store, cache: cache}
}

// CreateBook inserts a book and all of its copies in one transaction.
func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (book *model.Book, copies []model.BookCopy, err error) {
	ctx, span := startSpan(ctx, "catalog.create_book")
	defer func() { endSpan(span, err) }()

	if err := validateBookInput(in); err != nil {
		return nil, nil, err
	}

	book = &model.Book{}
	applyBookInput(book, in)
	book.LastCopySequence = book.TotalCopies

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Books().Create(ctx, book); err != nil {
			return fmt.Errorf("create book: %w", err)
		}
		copies = newCopies(book.ID, 1, book.TotalCopies)
		if err := tx.Copies().CreateBatch(ctx, copies); err != nil {
			return fmt.Errorf("create copies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	span.SetAttributes(attribute.Int("book.id", int(book.ID)), attribute.Int("book.copies", len(copies)))
	s.invalidateOverview(ctx)
	return book, copies, nil
}

// GetBook retrieves a book by ID.
func (s *catalogService) GetBook(ctx context.Context, id uint) (*model.Book, error) {
	book, err := s.store.Books().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.ErrBookNotFound)
	}
	return book, nil
}

// ListBooks lists every book ordered by title.
func (s *catalogService) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.store.Books().List(ctx)
}

// UpdateBook replaces every mutable field and grows the copy set when total_copies increases.
func (s *catalogService) UpdateBook(ctx context.Context, id uint, in BookInput) (book *model.Book, added []model.BookCopy, err error) {
	ctx, span := startSpan(ctx, "catalog.update_book", trace.WithAttributes(attribute.Int("book.id", int(id))))
	defer func() { endSpan(span, err) }()

	if err := validateBookInput(in); err != nil {
		return nil, nil, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		existing, err := tx.Books().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, apperr.ErrBookNotFound)
		}

		applyBookInput(existing, in)
		added, err = syncCopies(ctx, tx, existing)
		if err != nil {
			return err
		}
		if err := tx.Books().Update(ctx, existing); err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		book = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidateOverview(ctx)
	return book, added, nil
}

// PatchBook applies the supplied whitelisted fields only.
func (s *catalogService) PatchBook(ctx context.Context, id uint, patch BookPatch) (book *model.Book, added []model.BookCopy, err error) {
	ctx, span := startSpan(ctx, "catalog.patch_book", trace.WithAttributes(attribute.Int("book.id", int(id))))
	defer func() { endSpan(span, err) }()

	if patch.IsEmpty() {
		return nil, nil, apperr.Validationf("no valid fields provided for update")
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		existing, err := tx.Books().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, apperr.ErrBookNotFound)
		}

		if err := applyBookPatch(existing, patch); err != nil {
			return err
		}
		if patch.TotalCopies != nil {
			added, err = syncCopies(ctx, tx, existing)
			if err != nil {
				return err
			}
		}
		if err := tx.Books().Update(ctx, existing); err != nil {
			return fmt.Errorf("patch book: %w", err)
		}
		book = existing
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidateOverview(ctx)
	return book, added, nil
}

// DeleteBook removes a book and its copies. Books with copies on loan stay.
func (s *catalogService) DeleteBook(ctx context.Context, id uint) (err error) {
	ctx, span := startSpan(ctx, "catalog.delete_book", trace.WithAttributes(attribute.Int("book.id", int(id))))
	defer func() { endSpan(span, err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Books().FindByIDForUpdate(ctx, id); err != nil {
			return notFound(err, apperr.ErrBookNotFound)
		}

		onLoan, err := tx.Copies().CountUnavailableByBook(ctx, id)
		if err != nil {
			return fmt.Errorf("count copies on loan: %w", err)
		}
		if onLoan > 0 {
			return apperr.ErrBookOnLoan
		}

		if err := tx.Copies().DeleteByBook(ctx, id); err != nil {
			return fmt.Errorf("delete copies: %w", err)
		}
		n, err := tx.Books().Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		if n == 0 {
			return apperr.ErrBookNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateOverview(ctx)
	return nil
}

// ListBooksWithAvailability returns every book with its available copy count, cached briefly.
func (s *catalogService) ListBooksWithAvailability(ctx context.Context) ([]model.BookOverview, error) {
	var cached []model.BookOverview
	if s.cache.GetJSON(ctx, overviewCacheKey, &cached) {
		return cached, nil
	}

	rows, err := s.store.Books().ListOverview(ctx)
	if err != nil {
		return nil, fmt.Errorf("list overview: %w", err)
	}

	s.cache.SetJSON(ctx, overviewCacheKey, rows, overviewCacheTTL)
	return rows, nil
}

// BooksSummary counts copies per book straight from the copy table.
func (s *catalogService) BooksSummary(ctx context.Context) ([]model.BookSummary, error) {
	return s.store.Books().Summary(ctx)
}

// ListCopies lists every copy with its book title.
func (s *catalogService) ListCopies(ctx context.Context) ([]model.CopyListing, error) {
	return s.store.Copies().ListAll(ctx)
}

// ListCopiesByBook lists the copies of one book.
func (s *catalogService) ListCopiesByBook(ctx context.Context, bookID uint) ([]model.BookCopy, error) {
	if _, err := s.store.Books().FindByID(ctx, bookID); err != nil {
		return nil, notFound(err, apperr.ErrBookNotFound)
	}
	return s.store.Copies().ListByBook(ctx, bookID)
}

// RetireCopy removes one copy from inventory and keeps total_copies in step.
func (s *catalogService) RetireCopy(ctx context.Context, copyID uint) (err error) {
	ctx, span := startSpan(ctx, "catalog.retire_copy", trace.WithAttributes(attribute.Int("copy.id", int(copyID))))
	defer func() { endSpan(span, err) }()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		bookCopy, err := tx.Copies().FindByIDForUpdate(ctx, copyID)
		if err != nil {
			return notFound(err, apperr.ErrCopyNotFound)
		}
		if !bookCopy.IsAvailable {
			return apperr.ErrCopyNotAvailable
		}
		if _, err := tx.Books().FindByIDForUpdate(ctx, bookCopy.BookID); err != nil {
			return notFound(err, apperr.ErrBookNotFound)
		}

		if err := tx.Copies().Delete(ctx, copyID); err != nil {
			return fmt.Errorf("delete copy: %w", err)
		}
		if err := tx.Books().AdjustTotalCopies(ctx, bookCopy.BookID, -1); err != nil {
			return fmt.Errorf("adjust total copies: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateOverview(ctx)
	return nil
}

func (s *catalogService) invalidateOverview(ctx context.Context) {
	_ = s.cache.Delete(ctx, overviewCacheKey)
}

// syncCopies grows the copy set of book up to book.TotalCopies. Shrinking is
// refused: copies leave the inventory one at a time through RetireCopy.
func syncCopies(ctx context.Context, tx repository.Store, book *model.Book) ([]model.BookCopy, error) {
	count, err := tx.Copies().CountByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("count copies: %w", err)
	}

	requested := int64(book.TotalCopies)
	if requested < count {
		return nil, apperr.Validationf("total_copies (%d) is below the %d existing copies; retire copies instead", requested, count)
	}
	if requested == count {
		return nil, nil
	}
	if requested-count > MaxCopiesPerBook {
		return nil, apperr.Validationf("cannot add more than %d copies at once", MaxCopiesPerBook)
	}

	maxSeq, err := tx.Copies().MaxSequence(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("read copy sequence: %w", err)
	}
	lastSeq := max(maxSeq, book.LastCopySequence)

	copies := newCopies(book.ID, lastSeq+1, int(requested-count))
	if err := tx.Copies().CreateBatch(ctx, copies); err != nil {
		return nil, fmt.Errorf("create copies: %w", err)
	}
	book.LastCopySequence = lastSeq + len(copies)
	return copies, nil
}

// newCopies builds n available copies numbered from firstSeq.
func newCopies(bookID uint, firstSeq, n int) []model.BookCopy {
	copies := make([]model.BookCopy, 0, n)
	for seq := firstSeq; seq < firstSeq+n; seq++ {
		copies = append(copies, model.BookCopy{
			BookID:      bookID,
			Sequence:    seq,
			CopyNumber:  model.CopyNumber(bookID, seq),
			IsAvailable: true,
		})
	}
	return copies
}

func validateBookInput(in BookInput) error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Author) == "" {
		missing = append(missing, "author")
	}
	if in.TotalCopies == nil {
		missing = append(missing, "total_copies")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return apperr.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if *in.TotalCopies < 0 {
		return apperr.Validationf("total_copies must not be negative")
	}
	if *in.TotalCopies > MaxCopiesPerBook {
		return apperr.Validationf("total_copies must not exceed %d", MaxCopiesPerBook)
	}
	if in.PublishedYear < 0 || in.Pages < 0 {
		return apperr.Validationf("published_year and pages must not be negative")
	}
	return nil
}

func applyBookInput(book *model.Book, in BookInput) {
	book.Title = strings.TrimSpace(in.Title)
	book.Author = strings.TrimSpace(in.Author)
	book.Genre = in.Genre
	book.PublishedYear = in.PublishedYear
	book.Pages = in.Pages
	book.ImageURL = in.ImageURL
	book.Description = strings.TrimSpace(in.Description)
	book.TotalCopies = *in.TotalCopies
}

func applyBookPatch(book *model.Book, p BookPatch) error {
	for field, v := range map[string]*string{"title": p.Title, "author": p.Author, "description": p.Description} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return apperr.Validationf("%s must not be empty", field)
		}
	}
	if (p.TotalCopies != nil && *p.TotalCopies < 0) ||
		(p.PublishedYear != nil && *p.PublishedYear < 0) ||
		(p.Pages != nil && *p.Pages < 0) {
		return apperr.Validationf("numeric fields must not be negative")
	}
	if p.TotalCopies != nil && *p.TotalCopies > MaxCopiesPerBook {
		return apperr.Validationf("total_copies must not exceed %d", MaxCopiesPerBook)
	}

	if p.Title != nil {
		book.Title = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		book.Author = strings.TrimSpace(*p.Author)
	}
	if p.Description != nil {
		book.Description = strings.TrimSpace(*p.Description)
	}
	if p.Genre != nil {
		book.Genre = *p.Genre
	}
	if p.ImageURL != nil {
		book.ImageURL = *p.ImageURL
	}
	if p.PublishedYear != nil {
		book.PublishedYear = *p.PublishedYear
	}
	if p.Pages != nil {
		book.Pages = *p.Pages
	}
	if p.TotalCopies != nil {
		book.TotalCopies = *p.TotalCopies
	}
	return nil
}
