package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libris/internal/auth"
	apperr "libris/internal/errors"
	"libris/internal/model"
	"libris/internal/service"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = testValidator{v: validator.New()}
	return e
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperr.ErrorResponse {
	t.Helper()
	var resp apperr.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func intPtr(n int) *int { return &n }

func TestBookHandler_CreateBook(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockCatalogService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "created",
			body: `{"title":"X","author":"Y","description":"Z","total_copies":3}`,
			setupMock: func(m *MockCatalogService) {
				m.On("CreateBook", mock.Anything, service.BookInput{Title: "X", Author: "Y", Description: "Z", TotalCopies: intPtr(3)}).
					Return(&model.Book{ID: 1, Title: "X", TotalCopies: 3}, []model.BookCopy{
						{ID: 1, BookID: 1, Sequence: 1, CopyNumber: "BOOK1-COPY001", IsAvailable: true},
					}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "service validation",
			body: `{"title":"X"}`,
			setupMock: func(m *MockCatalogService) {
				m.On("CreateBook", mock.Anything, mock.Anything).
					Return(nil, nil, apperr.Validationf("missing required fields: author, total_copies, description"))
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "malformed body",
			body:       `{"title":`,
			setupMock:  func(m *MockCatalogService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "negative copies",
			body:       `{"title":"X","author":"Y","description":"Z","total_copies":-2}`,
			setupMock:  func(m *MockCatalogService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "too many copies",
			body:       `{"title":"X","author":"Y","description":"Z","total_copies":1099511627776}`,
			setupMock:  func(m *MockCatalogService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "internal error is hidden",
			body: `{"title":"X","author":"Y","description":"Z","total_copies":1}`,
			setupMock: func(m *MockCatalogService) {
				m.On("CreateBook", mock.Anything, mock.Anything).Return(nil, nil, errors.New("dial tcp: refused"))
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := new(MockCatalogService)
			tt.setupMock(catalog)
			e := newTestEcho()
			e.POST("/books", NewBookHandler(catalog).CreateBook)

			rec := serve(e, http.MethodPost, "/books", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				resp := decodeError(t, rec)
				assert.Equal(t, tt.wantCode, resp.Code)
				if tt.wantCode == "INTERNAL_ERROR" {
					assert.Equal(t, "internal server error", resp.Message)
				}
			} else {
				var resp BookCreatedResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "Book added successfully", resp.Message)
				assert.Len(t, resp.Copies, 1)
			}
			catalog.AssertExpectations(t)
		})
	}
}

func TestBookHandler_GetBook(t *testing.T) {
	catalog := new(MockCatalogService)
	catalog.On("GetBook", mock.Anything, uint(4)).Return(&model.Book{ID: 4, Title: "Emma"}, nil)
	catalog.On("GetBook", mock.Anything, uint(5)).Return(nil, apperr.ErrBookNotFound)

	e := newTestEcho()
	e.GET("/books/:id", NewBookHandler(catalog).GetBook)

	rec := serve(e, http.MethodGet, "/books/4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Emma", resp.Book.Title)

	rec = serve(e, http.MethodGet, "/books/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	rec = serve(e, http.MethodGet, "/books/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, rec).Code)
}

func TestBookHandler_PatchBook(t *testing.T) {
	catalog := new(MockCatalogService)
	genre := "Classic"
	catalog.On("PatchBook", mock.Anything, uint(2), service.BookPatch{Genre: &genre, TotalCopies: intPtr(4)}).
		Return(&model.Book{ID: 2, Genre: genre, TotalCopies: 4}, []model.BookCopy{{ID: 9, CopyNumber: "BOOK2-COPY004"}}, nil)

	e := newTestEcho()
	e.PATCH("/books/:id", NewBookHandler(catalog).PatchBook)

	rec := serve(e, http.MethodPatch, "/books/2", `{"genre":"Classic","total_copies":4,"unknown":"ignored"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BookUpdatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.AddedCopies, 1)

	rec = serve(e, http.MethodPatch, "/books/2", `{"total_copies":1001}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	catalog.AssertExpectations(t)
}

func TestBookHandler_DeleteBook_OnLoan(t *testing.T) {
	catalog := new(MockCatalogService)
	catalog.On("DeleteBook", mock.Anything, uint(3)).Return(apperr.ErrBookOnLoan)

	e := newTestEcho()
	e.DELETE("/books/:id", NewBookHandler(catalog).DeleteBook)

	rec := serve(e, http.MethodDelete, "/books/3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec).Code)
}

func TestCopyHandler(t *testing.T) {
	catalog := new(MockCatalogService)
	catalog.On("ListCopiesByBook", mock.Anything, uint(1)).Return([]model.BookCopy{{ID: 1}, {ID: 2}}, nil)
	catalog.On("RetireCopy", mock.Anything, uint(2)).Return(apperr.ErrCopyNotAvailable)

	h := NewCopyHandler(catalog)
	e := newTestEcho()
	e.GET("/books/:id/copies", h.ListByBook)
	e.DELETE("/bookCopies/:id", h.Retire)

	rec := serve(e, http.MethodGet, "/books/1/copies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CopiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Copies, 2)

	rec = serve(e, http.MethodDelete, "/bookCopies/2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOT_AVAILABLE", decodeError(t, rec).Code)
}

func TestCirculationHandler_Issue(t *testing.T) {
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockCirculationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "issued",
			body: `{"user_id":5,"copy_id":12,"due_date":"2025-07-01"}`,
			setupMock: func(m *MockCirculationService) {
				m.On("Issue", mock.Anything, service.IssueInput{UserID: 5, CopyID: 12, DueDate: due}).
					Return(&model.Borrow{ID: 1, UserID: 5, CopyID: 12, DueDate: due, Status: model.BorrowStatusBorrowed}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "copy on loan",
			body: `{"user_id":5,"copy_id":12,"due_date":"2025-07-01T09:00:00Z"}`,
			setupMock: func(m *MockCirculationService) {
				m.On("Issue", mock.Anything, mock.Anything).Return(nil, apperr.ErrCopyNotAvailable)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "NOT_AVAILABLE",
		},
		{
			name:       "missing copy id",
			body:       `{"user_id":5,"due_date":"2025-07-01"}`,
			setupMock:  func(m *MockCirculationService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unparseable date",
			body:       `{"user_id":5,"copy_id":12,"due_date":"01/07/2025"}`,
			setupMock:  func(m *MockCirculationService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "unknown copy",
			body: `{"user_id":5,"copy_id":99,"due_date":"2025-07-01"}`,
			setupMock: func(m *MockCirculationService) {
				m.On("Issue", mock.Anything, mock.Anything).Return(nil, apperr.ErrCopyNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			circ := new(MockCirculationService)
			tt.setupMock(circ)
			e := newTestEcho()
			e.POST("/issue", NewCirculationHandler(circ).Issue)

			rec := serve(e, http.MethodPost, "/issue", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			}
			circ.AssertExpectations(t)
		})
	}
}

func TestCirculationHandler_ReturnAndExtend(t *testing.T) {
	circ := new(MockCirculationService)
	circ.On("Return", mock.Anything, uint(7), (*time.Time)(nil)).
		Return(&model.Borrow{ID: 7, Status: model.BorrowStatusReturned}, nil).Once()
	circ.On("Return", mock.Anything, uint(7), (*time.Time)(nil)).
		Return(nil, apperr.ErrAlreadyReturned).Once()
	circ.On("ExtendDueDate", mock.Anything, uint(7), time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)).
		Return(nil, apperr.ErrAlreadyReturned)

	h := NewCirculationHandler(circ)
	e := newTestEcho()
	e.PATCH("/issue/:id/return", h.Return)
	e.PATCH("/issue/:id/extend", h.Extend)

	rec := serve(e, http.MethodPatch, "/issue/7/return", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BorrowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.BorrowStatusReturned, resp.Borrow.Status)

	rec = serve(e, http.MethodPatch, "/issue/7/return", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec).Code)

	rec = serve(e, http.MethodPatch, "/issue/7/extend", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

	rec = serve(e, http.MethodPatch, "/issue/7/extend", `{"new_due_date":"2025-07-20"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec).Code)

	circ.AssertExpectations(t)
}

func TestCirculationHandler_MyBooks(t *testing.T) {
	circ := new(MockCirculationService)
	circ.On("ListByUser", mock.Anything, uint(5)).Return([]model.BorrowDetail{{ID: 1, UserID: 5, Title: "Emma"}}, nil)

	h := NewCirculationHandler(circ)
	e := newTestEcho()
	withCaller := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(auth.ContextKey, &jwt.Token{Claims: &auth.Claims{UserID: 5, Role: model.RoleBorrower}})
			return next(c)
		}
	}
	e.GET("/mine", h.MyBooks, withCaller)
	e.GET("/anonymous", h.MyBooks)

	rec := serve(e, http.MethodGet, "/mine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BorrowsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Borrows, 1)
	assert.Equal(t, "Emma", resp.Borrows[0].Title)

	rec = serve(e, http.MethodGet, "/anonymous", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserHandler(t *testing.T) {
	users := new(MockUserService)
	users.On("CreateUser", mock.Anything, service.UserInput{FirstName: "A", LastName: "B", Email: "taken@example.com", Password: "secret1"}).
		Return(nil, apperr.ErrEmailTaken)
	status := "inactive"
	users.On("PatchUser", mock.Anything, uint(3), service.UserPatch{Status: &status}).
		Return(&model.User{ID: 3, Status: model.UserStatusInactive}, nil)
	users.On("DeleteUser", mock.Anything, uint(3)).Return(apperr.ErrUserHasLoans)

	h := NewUserHandler(users)
	e := newTestEcho()
	e.POST("/users", h.CreateUser)
	e.PATCH("/users/:id", h.PatchUser)
	e.DELETE("/users/:id", h.DeleteUser)

	rec := serve(e, http.MethodPost, "/users", `{"first_name":"A","last_name":"B","email":"taken@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)

	rec = serve(e, http.MethodPost, "/users", `{"first_name":"A","last_name":"B","email":"not-an-email","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

	rec = serve(e, http.MethodPatch, "/users/3", `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.UserStatusInactive, resp.User.Status)

	rec = serve(e, http.MethodDelete, "/users/3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec).Code)

	users.AssertExpectations(t)
}
