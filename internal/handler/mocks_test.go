package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/mock"

	"libris/internal/model"
	"libris/internal/service"
)

type testValidator struct {
	v *validator.Validate
}

func (tv testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

// MockCatalogService is a mock implementation of service.CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateBook(ctx context.Context, in service.BookInput) (*model.Book, []model.BookCopy, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	copies, _ := args.Get(1).([]model.BookCopy)
	return args.Get(0).(*model.Book), copies, args.Error(2)
}

func (m *MockCatalogService) GetBook(ctx context.Context, id uint) (*model.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Book), args.Error(1)
}

func (m *MockCatalogService) ListBooks(ctx context.Context) ([]model.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]model.Book)
	return books, args.Error(1)
}

func (m *MockCatalogService) UpdateBook(ctx context.Context, id uint, in service.BookInput) (*model.Book, []model.BookCopy, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	copies, _ := args.Get(1).([]model.BookCopy)
	return args.Get(0).(*model.Book), copies, args.Error(2)
}

func (m *MockCatalogService) PatchBook(ctx context.Context, id uint, patch service.BookPatch) (*model.Book, []model.BookCopy, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	copies, _ := args.Get(1).([]model.BookCopy)
	return args.Get(0).(*model.Book), copies, args.Error(2)
}

func (m *MockCatalogService) DeleteBook(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListBooksWithAvailability(ctx context.Context) ([]model.BookOverview, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]model.BookOverview)
	return rows, args.Error(1)
}

func (m *MockCatalogService) BooksSummary(ctx context.Context) ([]model.BookSummary, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]model.BookSummary)
	return rows, args.Error(1)
}

func (m *MockCatalogService) ListCopies(ctx context.Context) ([]model.CopyListing, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]model.CopyListing)
	return rows, args.Error(1)
}

func (m *MockCatalogService) ListCopiesByBook(ctx context.Context, bookID uint) ([]model.BookCopy, error) {
	args := m.Called(ctx, bookID)
	rows, _ := args.Get(0).([]model.BookCopy)
	return rows, args.Error(1)
}

func (m *MockCatalogService) RetireCopy(ctx context.Context, copyID uint) error {
	return m.Called(ctx, copyID).Error(0)
}

// MockCirculationService is a mock implementation of service.CirculationService.
type MockCirculationService struct {
	mock.Mock
}

func (m *MockCirculationService) Issue(ctx context.Context, in service.IssueInput) (*model.Borrow, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Borrow), args.Error(1)
}

func (m *MockCirculationService) Return(ctx context.Context, borrowID uint, returnDate *time.Time) (*model.Borrow, error) {
	args := m.Called(ctx, borrowID, returnDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Borrow), args.Error(1)
}

func (m *MockCirculationService) ExtendDueDate(ctx context.Context, borrowID uint, newDueDate time.Time) (*model.Borrow, error) {
	args := m.Called(ctx, borrowID, newDueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Borrow), args.Error(1)
}

func (m *MockCirculationService) ListOverdue(ctx context.Context) ([]model.BorrowDetail, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]model.BorrowDetail)
	return rows, args.Error(1)
}

func (m *MockCirculationService) ListDueToday(ctx context.Context) ([]model.BorrowDetail, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]model.BorrowDetail)
	return rows, args.Error(1)
}

func (m *MockCirculationService) ListByUser(ctx context.Context, userID uint) ([]model.BorrowDetail, error) {
	args := m.Called(ctx, userID)
	rows, _ := args.Get(0).([]model.BorrowDetail)
	return rows, args.Error(1)
}

func (m *MockCirculationService) ListAll(ctx context.Context) ([]model.BorrowDetail, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]model.BorrowDetail)
	return rows, args.Error(1)
}

func (m *MockCirculationService) History(ctx context.Context, borrowID uint) ([]model.CirculationEvent, error) {
	args := m.Called(ctx, borrowID)
	rows, _ := args.Get(0).([]model.CirculationEvent)
	return rows, args.Error(1)
}

// MockUserService is a mock implementation of service.UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, in service.UserInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]model.User)
	return users, args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, id uint, in service.UserInput) (*model.User, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) PatchUser(ctx context.Context, id uint, patch service.UserPatch) (*model.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}
