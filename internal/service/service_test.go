package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"libris/internal/clock"
	"libris/internal/db"
	"libris/internal/model"
	"libris/internal/repository"
)

// today is the fixed "now" every service test runs at.
var today = time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	db          *gorm.DB
	store       repository.Store
	catalog     CatalogService
	circulation CirculationService
	users       UserService
}

// newTestEnv wires the services against a private in-memory SQLite database.
// The cache is nil, which behaves as a permanent miss.
func newTestEnv(t testing.TB) *testEnv {
	t.Helper()

	gormDB, err := db.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB, false))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.NewStore(gormDB)
	return &testEnv{
		db:          gormDB,
		store:       store,
		catalog:     NewCatalogService(store, nil),
		circulation: NewCirculationService(store, nil, clock.Fixed(today), decimal.RequireFromString("0.5")),
		users:       NewUserService(store, nil),
	}
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// tb is the part of testing.TB that *rapid.T also provides.
type tb interface {
	require.TestingT
	Helper()
}

func (e *testEnv) createBook(t tb, title string, copies int) (*model.Book, []model.BookCopy) {
	t.Helper()
	book, created, err := e.catalog.CreateBook(context.Background(), BookInput{
		Title:       title,
		Author:      "Author of " + title,
		Description: "About " + title,
		TotalCopies: intPtr(copies),
	})
	require.NoError(t, err)
	return book, created
}

func (e *testEnv) createUser(t tb, email string) *model.User {
	t.Helper()
	user, err := e.users.CreateUser(context.Background(), UserInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "s3cret-pass",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) copyByID(t tb, id uint) *model.BookCopy {
	t.Helper()
	c, err := e.store.Copies().FindByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (e *testEnv) countRows(t tb, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

// requireInventoryConsistent checks both catalog invariants for every book:
// total_copies matches the copy rows, and a copy is unavailable exactly when an
// open borrow references it.
func (e *testEnv) requireInventoryConsistent(t tb) {
	t.Helper()
	ctx := context.Background()

	books, err := e.store.Books().List(ctx)
	require.NoError(t, err)
	for _, b := range books {
		n, err := e.store.Copies().CountByBook(ctx, b.ID)
		require.NoError(t, err)
		require.EqualValues(t, b.TotalCopies, n, "book %d total_copies", b.ID)

		copies, err := e.store.Copies().ListByBook(ctx, b.ID)
		require.NoError(t, err)
		for _, c := range copies {
			open, err := e.store.Borrows().CountOpenByCopy(ctx, c.ID)
			require.NoError(t, err)
			require.Equal(t, open == 0, c.IsAvailable, "copy %s availability", c.CopyNumber)
			require.LessOrEqual(t, open, int64(1), "copy %s open borrows", c.CopyNumber)
		}
	}
}
