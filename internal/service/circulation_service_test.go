package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "libris/internal/errors"
	"libris/internal/model"
)

func TestCirculationService_Issue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Persuasion", 2)
	user := env.createUser(t, "anne@example.com")

	borrow, err := env.circulation.Issue(ctx, IssueInput{
		UserID:  user.ID,
		CopyID:  copies[1].ID,
		DueDate: date(2025, 7, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, model.BorrowStatusBorrowed, borrow.Status)
	assert.Equal(t, date(2025, 7, 1), borrow.BorrowDate)
	assert.Equal(t, date(2025, 7, 1), borrow.DueDate)
	assert.Nil(t, borrow.ReturnDate)
	assert.False(t, env.copyByID(t, copies[1].ID).IsAvailable)
	assert.True(t, env.copyByID(t, copies[0].ID).IsAvailable)
	env.requireInventoryConsistent(t)
}

func TestCirculationService_Issue_CopyAlreadyBorrowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Persuasion", 1)
	first := env.createUser(t, "anne@example.com")
	second := env.createUser(t, "fred@example.com")

	_, err := env.circulation.Issue(ctx, IssueInput{UserID: first.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 8)})
	require.NoError(t, err)

	borrow, err := env.circulation.Issue(ctx, IssueInput{UserID: second.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 8)})
	assert.ErrorIs(t, err, apperr.ErrCopyNotAvailable)
	assert.Nil(t, borrow)
	assert.EqualValues(t, 1, env.countRows(t, &model.Borrow{}))
	assert.False(t, env.copyByID(t, copies[0].ID).IsAvailable)
	env.requireInventoryConsistent(t)
}

func TestCirculationService_Issue_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Sanditon", 1)
	user := env.createUser(t, "reader@example.com")
	inactive := env.createUser(t, "gone@example.com")
	_, err := env.users.PatchUser(ctx, inactive.ID, UserPatch{Status: strPtr("inactive")})
	require.NoError(t, err)

	borrowDate := date(2025, 7, 5)

	tests := []struct {
		name  string
		input IssueInput
		want  error
	}{
		{"missing fields", IssueInput{UserID: user.ID}, apperr.ErrValidation},
		{"due before borrow", IssueInput{UserID: user.ID, CopyID: copies[0].ID, BorrowDate: &borrowDate, DueDate: date(2025, 7, 4)}, apperr.ErrValidation},
		{"unknown user", IssueInput{UserID: 999, CopyID: copies[0].ID, DueDate: date(2025, 7, 9)}, apperr.ErrUserNotFound},
		{"inactive user", IssueInput{UserID: inactive.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 9)}, apperr.ErrUserInactive},
		{"unknown copy", IssueInput{UserID: user.ID, CopyID: 999, DueDate: date(2025, 7, 9)}, apperr.ErrCopyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			borrow, err := env.circulation.Issue(ctx, tt.input)
			assert.Nil(t, borrow)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, env.countRows(t, &model.Borrow{}))
	assert.True(t, env.copyByID(t, copies[0].ID).IsAvailable)
}

func TestCirculationService_Issue_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	_, copies := env.createBook(t, "Contested", 1)

	const workers = 8
	users := make([]*model.User, workers)
	for i := range users {
		users[i] = env.createUser(t, "reader"+string(rune('a'+i))+"@example.com")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			_, err := env.circulation.Issue(context.Background(), IssueInput{UserID: u.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 9)})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrCopyNotAvailable), "unexpected error: %v", err)
		}(users[i])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.EqualValues(t, 1, env.countRows(t, &model.Borrow{}))
	env.requireInventoryConsistent(t)
}

func TestCirculationService_Return(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Mansfield Park", 1)
	user := env.createUser(t, "fanny@example.com")
	borrowDate := date(2025, 6, 20)

	borrow, err := env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[0].ID, BorrowDate: &borrowDate, DueDate: date(2025, 6, 27)})
	require.NoError(t, err)

	returned, err := env.circulation.Return(ctx, borrow.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, model.BorrowStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, date(2025, 7, 1), *returned.ReturnDate)
	assert.True(t, env.copyByID(t, copies[0].ID).IsAvailable)
	env.requireInventoryConsistent(t)

	t.Run("second return is rejected and changes nothing", func(t *testing.T) {
		again, err := env.circulation.Return(ctx, borrow.ID, nil)
		assert.Nil(t, again)
		assert.ErrorIs(t, err, apperr.ErrAlreadyReturned)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)

		stored, err := env.store.Borrows().FindByID(ctx, borrow.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BorrowStatusReturned, stored.Status)
		assert.True(t, env.copyByID(t, copies[0].ID).IsAvailable)
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := env.circulation.Return(ctx, 999, nil)
		assert.ErrorIs(t, err, apperr.ErrBorrowNotFound)
	})
}

func TestCirculationService_Return_BeforeBorrowDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Mansfield Park", 1)
	user := env.createUser(t, "fanny@example.com")

	borrow, err := env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 9)})
	require.NoError(t, err)

	early := date(2025, 6, 1)
	_, err = env.circulation.Return(ctx, borrow.ID, &early)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.False(t, env.copyByID(t, copies[0].ID).IsAvailable)
}

func TestCirculationService_ExtendDueDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Northanger Abbey", 1)
	user := env.createUser(t, "catherine@example.com")

	borrow, err := env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 8)})
	require.NoError(t, err)

	extended, err := env.circulation.ExtendDueDate(ctx, borrow.ID, date(2025, 7, 22))
	require.NoError(t, err)
	assert.Equal(t, date(2025, 7, 22), extended.DueDate)

	_, err = env.circulation.ExtendDueDate(ctx, borrow.ID, date(2025, 6, 1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.circulation.ExtendDueDate(ctx, 999, date(2025, 7, 22))
	assert.ErrorIs(t, err, apperr.ErrBorrowNotFound)

	_, err = env.circulation.Return(ctx, borrow.ID, nil)
	require.NoError(t, err)

	_, err = env.circulation.ExtendDueDate(ctx, borrow.ID, date(2025, 8, 1))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCirculationService_OverdueAndDueToday(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Emma", 4)
	user := env.createUser(t, "emma@example.com")
	borrowDate := date(2025, 6, 1)

	issue := func(copyID uint, due int) *model.Borrow {
		b, err := env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copyID, BorrowDate: &borrowDate, DueDate: date(2025, 6, due)})
		require.NoError(t, err)
		return b
	}
	overdue := issue(copies[0].ID, 27)
	dueToday, err := env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[1].ID, BorrowDate: &borrowDate, DueDate: date(2025, 7, 1)})
	require.NoError(t, err)
	returned := issue(copies[2].ID, 10)
	_, err = env.circulation.Return(ctx, returned.ID, nil)
	require.NoError(t, err)
	_, err = env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[3].ID, DueDate: date(2025, 7, 15)})
	require.NoError(t, err)

	overdueRows, err := env.circulation.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdueRows, 1)
	assert.Equal(t, overdue.ID, overdueRows[0].ID)
	assert.Equal(t, 4, overdueRows[0].DaysOverdue)
	assert.True(t, decimal.RequireFromString("2").Equal(overdueRows[0].Fine), "fine = %s", overdueRows[0].Fine)
	assert.Equal(t, "Emma", overdueRows[0].Title)
	assert.Equal(t, "emma@example.com", overdueRows[0].Email)

	dueRows, err := env.circulation.ListDueToday(ctx)
	require.NoError(t, err)
	require.Len(t, dueRows, 1)
	assert.Equal(t, dueToday.ID, dueRows[0].ID)
}

func TestCirculationService_ListByUserAndAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	book, copies := env.createBook(t, "Lady Susan", 2)
	anne := env.createUser(t, "anne@example.com")
	fred := env.createUser(t, "fred@example.com")
	older := date(2025, 6, 1)

	first, err := env.circulation.Issue(ctx, IssueInput{UserID: anne.ID, CopyID: copies[0].ID, BorrowDate: &older, DueDate: date(2025, 6, 15)})
	require.NoError(t, err)
	second, err := env.circulation.Issue(ctx, IssueInput{UserID: anne.ID, CopyID: copies[1].ID, DueDate: date(2025, 7, 15)})
	require.NoError(t, err)

	mine, err := env.circulation.ListByUser(ctx, anne.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "most recent first")
	assert.Equal(t, first.ID, mine[1].ID)
	assert.Equal(t, book.ID, mine[0].BookID)
	assert.Equal(t, copies[1].CopyNumber, mine[0].CopyNumber)

	none, err := env.circulation.ListByUser(ctx, fred.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.circulation.ListByUser(ctx, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	all, err := env.circulation.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ada", all[0].FirstName)
}

func TestCirculationService_History(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Juvenilia", 1)
	user := env.createUser(t, "reader@example.com")

	borrow, err := env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 8)})
	require.NoError(t, err)
	_, err = env.circulation.ExtendDueDate(ctx, borrow.ID, date(2025, 7, 15))
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, borrow.ID, nil)
	require.NoError(t, err)
	_, err = env.circulation.Return(ctx, borrow.ID, nil)
	require.Error(t, err)

	events, err := env.circulation.History(ctx, borrow.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)

	want := []struct {
		action  model.CirculationAction
		outcome model.CirculationOutcome
	}{
		{model.ActionIssue, model.OutcomeAccepted},
		{model.ActionExtend, model.OutcomeAccepted},
		{model.ActionReturn, model.OutcomeAccepted},
		{model.ActionReturn, model.OutcomeFailed},
	}
	for i, w := range want {
		assert.Equal(t, w.action, events[i].Action)
		assert.Equal(t, w.outcome, events[i].Outcome)
		assert.Equal(t, user.ID, events[i].UserID)
		assert.Equal(t, copies[0].ID, events[i].CopyID)
	}
	assert.Equal(t, apperr.ErrAlreadyReturned.Error(), events[3].ErrorMessage)

	_, err = env.circulation.History(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrBorrowNotFound)
}

func TestCirculationService_FailedIssueIsAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, copies := env.createBook(t, "Juvenilia", 1)
	user := env.createUser(t, "reader@example.com")

	_, err := env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 8)})
	require.NoError(t, err)
	_, err = env.circulation.Issue(ctx, IssueInput{UserID: user.ID, CopyID: copies[0].ID, DueDate: date(2025, 7, 8)})
	require.Error(t, err)

	var events []model.CirculationEvent
	require.NoError(t, env.db.Order("id ASC").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, model.OutcomeAccepted, events[0].Outcome)
	assert.NotNil(t, events[0].BorrowID)
	assert.Equal(t, model.OutcomeFailed, events[1].Outcome)
	assert.Nil(t, events[1].BorrowID)
	assert.Equal(t, copies[0].ID, events[1].CopyID)
}
