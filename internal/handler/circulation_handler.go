package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"libris/internal/auth"
	"libris/internal/errors"
	"libris/internal/model"
	"libris/internal/service"
)

// CirculationHandler handles issue, return and loan listing endpoints.
type CirculationHandler struct {
	circulation service.CirculationService
}

// NewCirculationHandler creates a new circulation handler.
func NewCirculationHandler(circulation service.CirculationService) *CirculationHandler {
	return &CirculationHandler{circulation: circulation}
}

// IssueRequest opens a loan. Dates accept YYYY-MM-DD or RFC 3339.
type IssueRequest struct {
	UserID     uint   `json:"user_id" validate:"required"`
	CopyID     uint   `json:"copy_id" validate:"required"`
	DueDate    string `json:"due_date" validate:"required"`
	BorrowDate string `json:"borrow_date"`
}

// ReturnRequest closes a loan; return_date defaults to today.
type ReturnRequest struct {
	ReturnDate string `json:"return_date"`
}

// ExtendRequest moves the due date of an open loan.
type ExtendRequest struct {
	NewDueDate string `json:"new_due_date" validate:"required"`
}

// BorrowResponse is returned by loan mutations.
type BorrowResponse struct {
	Message string        `json:"message"`
	Borrow  *model.Borrow `json:"borrow"`
}

// BorrowsResponse wraps loan listings.
type BorrowsResponse struct {
	Borrows []model.BorrowDetail `json:"borrows"`
}

// OverdueResponse wraps overdue loans with their fines.
type OverdueResponse struct {
	Overdue []model.BorrowDetail `json:"overdue"`
}

// DueTodayResponse wraps loans due today.
type DueTodayResponse struct {
	DueToday []model.BorrowDetail `json:"due_today"`
}

// HistoryResponse wraps the audit trail of a loan.
type HistoryResponse struct {
	Events []model.CirculationEvent `json:"events"`
}

// Issue godoc
// @Summary Issue a book copy to a user
// @Tags circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body IssueRequest true "Loan data"
// @Success 201 {object} BorrowResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /issue [post]
func (h *CirculationHandler) Issue(c echo.Context) error {
	var req IssueRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	due, err := requiredDate("due_date", req.DueDate)
	if err != nil {
		return err
	}
	borrowDate, err := optionalDate("borrow_date", req.BorrowDate)
	if err != nil {
		return err
	}

	borrow, err := h.circulation.Issue(c.Request().Context(), service.IssueInput{
		UserID:     req.UserID,
		CopyID:     req.CopyID,
		BorrowDate: borrowDate,
		DueDate:    due,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, BorrowResponse{Message: "Book issued successfully", Borrow: borrow})
}

// Return godoc
// @Summary Return an issued copy
// @Tags circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Borrow ID"
// @Param request body ReturnRequest false "Return date"
// @Success 200 {object} BorrowResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /issue/{id}/return [patch]
func (h *CirculationHandler) Return(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ReturnRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	returnDate, err := optionalDate("return_date", req.ReturnDate)
	if err != nil {
		return err
	}

	borrow, err := h.circulation.Return(c.Request().Context(), id, returnDate)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BorrowResponse{Message: "Book returned successfully", Borrow: borrow})
}

// Extend godoc
// @Summary Extend the due date of an open loan
// @Tags circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Borrow ID"
// @Param request body ExtendRequest true "New due date"
// @Success 200 {object} BorrowResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /issue/{id}/extend [patch]
func (h *CirculationHandler) Extend(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ExtendRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	due, err := requiredDate("new_due_date", req.NewDueDate)
	if err != nil {
		return err
	}

	borrow, err := h.circulation.ExtendDueDate(c.Request().Context(), id, due)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BorrowResponse{Message: "Due date extended successfully", Borrow: borrow})
}

// Overdue godoc
// @Summary List overdue loans with accrued fines
// @Tags circulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} OverdueResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /issue/overdue [get]
func (h *CirculationHandler) Overdue(c echo.Context) error {
	rows, err := h.circulation.ListOverdue(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, OverdueResponse{Overdue: rows})
}

// DueToday godoc
// @Summary List loans due today
// @Tags circulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DueTodayResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /issue/due-today [get]
func (h *CirculationHandler) DueToday(c echo.Context) error {
	rows, err := h.circulation.ListDueToday(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, DueTodayResponse{DueToday: rows})
}

// MyBooks godoc
// @Summary List the caller's loans
// @Tags circulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BorrowsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /issue/mybooks [get]
func (h *CirculationHandler) MyBooks(c echo.Context) error {
	claims, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Message: "missing caller identity",
			Error:   "missing caller identity",
			Code:    "UNAUTHORIZED",
		})
	}

	rows, err := h.circulation.ListByUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BorrowsResponse{Borrows: rows})
}

// ListAll godoc
// @Summary List every loan
// @Tags circulation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BorrowsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /issue/issued [get]
// @Router /borrows [get]
func (h *CirculationHandler) ListAll(c echo.Context) error {
	rows, err := h.circulation.ListAll(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, BorrowsResponse{Borrows: rows})
}

// History godoc
// @Summary List the audit events of a loan
// @Tags circulation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Borrow ID"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /issue/{id}/history [get]
func (h *CirculationHandler) History(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	events, err := h.circulation.History(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, HistoryResponse{Events: events})
}
