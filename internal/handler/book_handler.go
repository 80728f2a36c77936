package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"libris/internal/model"
	"libris/internal/service"
)

// BookHandler handles catalog endpoints.
type BookHandler struct {
	catalog service.CatalogService
}

// NewBookHandler creates a new book handler.
func NewBookHandler(catalog service.CatalogService) *BookHandler {
	return &BookHandler{catalog: catalog}
}

// BookRequest is the body of book creation and full update.
type BookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Genre         string `json:"genre" validate:"max=100"`
	PublishedYear int    `json:"published_year" validate:"gte=0"`
	Pages         int    `json:"pages" validate:"gte=0"`
	ImageURL      string `json:"image_url" validate:"omitempty,url"`
	Description   string `json:"description"`
	TotalCopies   *int   `json:"total_copies" validate:"omitempty,gte=0,lte=1000"`
}

func (r BookRequest) input() service.BookInput {
	return service.BookInput{
		Title:         r.Title,
		Author:        r.Author,
		Genre:         r.Genre,
		PublishedYear: r.PublishedYear,
		Pages:         r.Pages,
		ImageURL:      r.ImageURL,
		Description:   r.Description,
		TotalCopies:   r.TotalCopies,
	}
}

// BookPatchRequest is the body of a partial update. Absent fields stay unchanged.
type BookPatchRequest struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Genre         *string `json:"genre" validate:"omitempty,max=100"`
	PublishedYear *int    `json:"published_year" validate:"omitempty,gte=0"`
	Pages         *int    `json:"pages" validate:"omitempty,gte=0"`
	ImageURL      *string `json:"image_url" validate:"omitempty,url"`
	Description   *string `json:"description"`
	TotalCopies   *int    `json:"total_copies" validate:"omitempty,gte=0,lte=1000"`
}

// BookCreatedResponse is returned after a book is created.
type BookCreatedResponse struct {
	Message string           `json:"message"`
	Book    *model.Book      `json:"book"`
	Copies  []model.BookCopy `json:"copies"`
}

// BookUpdatedResponse is returned after a book is updated.
type BookUpdatedResponse struct {
	Message     string           `json:"message"`
	Book        *model.Book      `json:"book"`
	AddedCopies []model.BookCopy `json:"added_copies"`
}

// BookResponse wraps a single book.
type BookResponse struct {
	Book *model.Book `json:"book"`
}

// BooksResponse wraps a list of books.
type BooksResponse struct {
	Books []model.Book `json:"books"`
}

// BookOverviewResponse wraps books with availability.
type BookOverviewResponse struct {
	Books []model.BookOverview `json:"books"`
}

// BookSummaryResponse wraps per-book copy counts.
type BookSummaryResponse struct {
	Summary []model.BookSummary `json:"summary"`
}

// CreateBook godoc
// @Summary Create a book with its copies
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BookRequest true "Book data"
// @Success 201 {object} BookCreatedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /books [post]
func (h *BookHandler) CreateBook(c echo.Context) error {
	var req BookRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	book, copies, err := h.catalog.CreateBook(c.Request().Context(), req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, BookCreatedResponse{
		Message: "Book added successfully",
		Book:    book,
		Copies:  copies,
	})
}

// ListBooks godoc
// @Summary List books ordered by title
// @Tags books
// @Produce json
// @Success 200 {object} BooksResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /books [get]
func (h *BookHandler) ListBooks(c echo.Context) error {
	books, err := h.catalog.ListBooks(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BooksResponse{Books: books})
}

// Overview godoc
// @Summary List books with their available copy count
// @Tags books
// @Produce json
// @Success 200 {object} BookOverviewResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /books/overview [get]
func (h *BookHandler) Overview(c echo.Context) error {
	books, err := h.catalog.ListBooksWithAvailability(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BookOverviewResponse{Books: books})
}

// Summary godoc
// @Summary Count total and available copies per book
// @Tags books
// @Produce json
// @Success 200 {object} BookSummaryResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /books/summary [get]
func (h *BookHandler) Summary(c echo.Context) error {
	summary, err := h.catalog.BooksSummary(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BookSummaryResponse{Summary: summary})
}

// GetBook godoc
// @Summary Get a book by id
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} BookResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [get]
func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	book, err := h.catalog.GetBook(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BookResponse{Book: book})
}

// UpdateBook godoc
// @Summary Replace a book's fields
// @Description Raising total_copies adds copies; lowering it below the current count is rejected.
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param request body BookRequest true "Book data"
// @Success 200 {object} BookUpdatedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [put]
func (h *BookHandler) UpdateBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req BookRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	book, added, err := h.catalog.UpdateBook(c.Request().Context(), id, req.input())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BookUpdatedResponse{
		Message:     "Book updated successfully",
		Book:        book,
		AddedCopies: added,
	})
}

// PatchBook godoc
// @Summary Update selected fields of a book
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param request body BookPatchRequest true "Fields to change"
// @Success 200 {object} BookUpdatedResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [patch]
func (h *BookHandler) PatchBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req BookPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	book, added, err := h.catalog.PatchBook(c.Request().Context(), id, service.BookPatch{
		Title:         req.Title,
		Author:        req.Author,
		Genre:         req.Genre,
		PublishedYear: req.PublishedYear,
		Pages:         req.Pages,
		ImageURL:      req.ImageURL,
		Description:   req.Description,
		TotalCopies:   req.TotalCopies,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BookUpdatedResponse{
		Message:     "Book updated successfully",
		Book:        book,
		AddedCopies: added,
	})
}

// DeleteBook godoc
// @Summary Delete a book and its copies
// @Tags books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [delete]
func (h *BookHandler) DeleteBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteBook(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Book deleted successfully"})
}
