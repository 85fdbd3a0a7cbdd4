package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourorg/bibliotheque/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore()
	require.NoError(t, err)
	return store
}

func seedCatalog(t *testing.T, store *Store) (*domain.Author, *domain.Category, *domain.Book) {
	t.Helper()
	ctx := context.Background()

	author := &domain.Author{LastName: "Camus", FirstName: "Albert"}
	require.NoError(t, store.Authors().Create(ctx, author))

	category := &domain.Category{Name: "Roman"}
	require.NoError(t, store.Categories().Create(ctx, category))

	book := &domain.Book{
		Title:       "L'Étranger",
		PublishedAt: time.Date(1942, 5, 19, 0, 0, 0, 0, time.UTC),
		Available:   true,
		AuthorID:    author.ID,
		CategoryID:  category.ID,
	}
	require.NoError(t, store.Books().Create(ctx, book))
	return author, category, book
}

func TestAuthorRepository(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	author := &domain.Author{LastName: "Camus", FirstName: "Albert"}
	require.NoError(t, store.Authors().Create(ctx, author))
	require.NotZero(t, author.ID)

	got, err := store.Authors().GetByID(ctx, author.ID)
	require.NoError(t, err)
	require.Equal(t, "Camus", got.LastName)

	// Mutating the returned copy must not leak into the store.
	got.LastName = "changed"
	again, err := store.Authors().GetByID(ctx, author.ID)
	require.NoError(t, err)
	require.Equal(t, "Camus", again.LastName)

	bio := "Prix Nobel 1957"
	author.Biography = &bio
	require.NoError(t, store.Authors().Update(ctx, author))
	updated, err := store.Authors().GetByID(ctx, author.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.Biography)
	require.Equal(t, bio, *updated.Biography)

	list, err := store.Authors().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.Authors().Delete(ctx, author.ID))
	_, err = store.Authors().GetByID(ctx, author.ID)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestAuthorDeleteConflict(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	author, category, _ := seedCatalog(t, store)

	err := store.Authors().Delete(ctx, author.ID)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	err = store.Categories().Delete(ctx, category.ID)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestListOrderedByID(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	for _, name := range []string{"Zola", "Balzac", "Camus"} {
		require.NoError(t, store.Authors().Create(ctx, &domain.Author{LastName: name, FirstName: "X"}))
	}

	list, err := store.Authors().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		require.Less(t, list[i-1].ID, list[i].ID)
	}
}

func TestWithinLoanTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, _, book := seedCatalog(t, store)

	user := &domain.User{LastName: "Meursault", FirstName: "A"}
	require.NoError(t, store.Users().Create(ctx, user))

	boom := errors.New("boom")
	err := store.WithinLoanTx(ctx, func(tx domain.LoanTx) error {
		loan := &domain.Loan{BookID: book.ID, UserID: user.ID, LoanedAt: time.Now()}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		if err := tx.SetBookAvailable(ctx, book.ID, false); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing from the aborted transaction is visible.
	count, err := store.Loans().CountActiveByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	require.True(t, got.Available)
}

func TestLoanWorkflowThroughTx(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, _, book := seedCatalog(t, store)

	user := &domain.User{LastName: "Meursault", FirstName: "A"}
	require.NoError(t, store.Users().Create(ctx, user))

	var loanID int64
	err := store.WithinLoanTx(ctx, func(tx domain.LoanTx) error {
		b, err := tx.BookForUpdate(ctx, book.ID)
		if err != nil {
			return err
		}
		require.True(t, b.Available)

		loan := &domain.Loan{BookID: book.ID, UserID: user.ID, LoanedAt: time.Now()}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		loanID = loan.ID
		return tx.SetBookAvailable(ctx, book.ID, false)
	})
	require.NoError(t, err)
	require.NotZero(t, loanID)

	count, err := store.Loans().CountActiveByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	details, err := store.Loans().ListDetailed(ctx)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Equal(t, "L'Étranger", details[0].BookTitle)
	require.Equal(t, "Meursault", details[0].UserName)
	require.Nil(t, details[0].ReturnedAt)

	returnedAt := time.Now()
	err = store.WithinLoanTx(ctx, func(tx domain.LoanTx) error {
		if err := tx.SetLoanReturned(ctx, loanID, returnedAt); err != nil {
			return err
		}
		return tx.SetBookAvailable(ctx, book.ID, true)
	})
	require.NoError(t, err)

	count, err = store.Loans().CountActiveByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	// A second SetLoanReturned on the same loan is rejected.
	err = store.WithinLoanTx(ctx, func(tx domain.LoanTx) error {
		return tx.SetLoanReturned(ctx, loanID, time.Now())
	})
	require.Equal(t, domain.KindUnprocessable, domain.KindOf(err))

	stored, err := store.Loans().GetByID(ctx, loanID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReturnedAt)
	require.True(t, stored.ReturnedAt.Equal(returnedAt))
}

func TestUserDeleteConflictOnActiveLoan(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, _, book := seedCatalog(t, store)

	user := &domain.User{LastName: "Meursault", FirstName: "A"}
	require.NoError(t, store.Users().Create(ctx, user))

	err := store.WithinLoanTx(ctx, func(tx domain.LoanTx) error {
		loan := &domain.Loan{BookID: book.ID, UserID: user.ID, LoanedAt: time.Now()}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		return tx.SetBookAvailable(ctx, book.ID, false)
	})
	require.NoError(t, err)

	err = store.Users().Delete(ctx, user.ID)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	err = store.Books().Delete(ctx, book.ID)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestPing(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Ping(context.Background()))
}
