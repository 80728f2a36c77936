package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"libris/internal/model"
	"libris/internal/service"
)

// CopyHandler handles per-copy inventory endpoints.
type CopyHandler struct {
	catalog service.CatalogService
}

// NewCopyHandler creates a new copy handler.
func NewCopyHandler(catalog service.CatalogService) *CopyHandler {
	return &CopyHandler{catalog: catalog}
}

// CopiesResponse wraps the copies of one book.
type CopiesResponse struct {
	Copies []model.BookCopy `json:"copies"`
}

// CopyListingResponse wraps every copy with its title.
type CopyListingResponse struct {
	Copies []model.CopyListing `json:"copies"`
}

// ListByBook godoc
// @Summary List the copies of a book
// @Tags copies
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} CopiesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id}/copies [get]
func (h *CopyHandler) ListByBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	copies, err := h.catalog.ListCopiesByBook(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, CopiesResponse{Copies: copies})
}

// ListAll godoc
// @Summary List every copy with its book title
// @Tags copies
// @Produce json
// @Success 200 {object} CopyListingResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /bookCopies [get]
func (h *CopyHandler) ListAll(c echo.Context) error {
	copies, err := h.catalog.ListCopies(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, CopyListingResponse{Copies: copies})
}

// Retire godoc
// @Summary Retire an available copy
// @Tags copies
// @Produce json
// @Security BearerAuth
// @Param id path int true "Copy ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /bookCopies/{id} [delete]
func (h *CopyHandler) Retire(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.RetireCopy(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Book copy retired successfully"})
}
