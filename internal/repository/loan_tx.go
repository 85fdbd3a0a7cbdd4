package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// loanTx implements domain.LoanTx inside an open transaction. Book,
// user and loan reads lock their rows so check-and-mutate sequences
// stay consistent under concurrent requests. Locking the user row is
// load-bearing: two borrows by the same user for different books meet
// on that lock, so the loser counts active loans after the winner
// committed.
type loanTx struct {
	tx *sqlx.Tx
}

func bookForUpdateSQL(id int64) (string, []interface{}, error) {
	return pg.From("books").
		Select("id", "title", "published_at", "available", "author_id", "category_id").
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait).
		Prepared(true).ToSQL()
}

func userForUpdateSQL(id int64) (string, []interface{}, error) {
	return pg.From("users").
		Select("id", "last_name", "first_name").
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait).
		Prepared(true).ToSQL()
}

func loanForUpdateSQL(id int64) (string, []interface{}, error) {
	return pg.From("loans").
		Select("id", "book_id", "user_id", "loaned_at", "returned_at").
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait).
		Prepared(true).ToSQL()
}

func countActiveLoansSQL(userID int64) (string, []interface{}, error) {
	return pg.From("loans").
		Select(goqu.COUNT("*")).
		Where(goqu.C("user_id").Eq(userID), goqu.C("returned_at").IsNull()).
		Prepared(true).ToSQL()
}

func (t *loanTx) BookForUpdate(ctx context.Context, id int64) (*domain.Book, error) {
	query, args, err := bookForUpdateSQL(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build book lock query: %w", err)
	}

	book := &domain.Book{}
	if err := t.tx.GetContext(ctx, book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Livre ou utilisateur introuvable")
		}
		return nil, fmt.Errorf("failed to lock book %d: %w", id, err)
	}
	return book, nil
}

func (t *loanTx) UserForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	query, args, err := userForUpdateSQL(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build user lock query: %w", err)
	}

	user := &domain.User{}
	if err := t.tx.GetContext(ctx, user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Livre ou utilisateur introuvable")
		}
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

func (t *loanTx) LoanForUpdate(ctx context.Context, id int64) (*domain.Loan, error) {
	query, args, err := loanForUpdateSQL(id)
	if err != nil {
		return nil, fmt.Errorf("failed to build loan lock query: %w", err)
	}

	loan := &domain.Loan{}
	if err := t.tx.GetContext(ctx, loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Emprunt non trouvé")
		}
		return nil, fmt.Errorf("failed to lock loan %d: %w", id, err)
	}
	return loan, nil
}

func (t *loanTx) CountActiveLoans(ctx context.Context, userID int64) (int, error) {
	query, args, err := countActiveLoansSQL(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to build active loan count query: %w", err)
	}

	var count int
	if err := t.tx.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count active loans for user %d: %w", userID, err)
	}
	return count, nil
}

func (t *loanTx) InsertLoan(ctx context.Context, loan *domain.Loan) error {
	query, args, err := pg.Insert("loans").
		Rows(goqu.Record{
			"book_id":     loan.BookID,
			"user_id":     loan.UserID,
			"loaned_at":   loan.LoanedAt,
			"returned_at": loan.ReturnedAt,
		}).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build loan insert: %w", err)
	}

	if err := t.tx.QueryRowxContext(ctx, query, args...).Scan(&loan.ID); err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (t *loanTx) SetLoanReturned(ctx context.Context, loanID int64, returnedAt time.Time) error {
	query, args, err := pg.Update("loans").
		Set(goqu.Record{"returned_at": returnedAt}).
		Where(goqu.C("id").Eq(loanID), goqu.C("returned_at").IsNull()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build loan return update: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark loan %d returned: %w", loanID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.Unprocessable("Ce livre a déjà été rendu.")
	}
	return nil
}

func (t *loanTx) SetBookAvailable(ctx context.Context, bookID int64, available bool) error {
	query, args, err := pg.Update("books").
		Set(goqu.Record{"available": available}).
		Where(goqu.C("id").Eq(bookID)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build availability update: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update availability of book %d: %w", bookID, err)
	}
	return nil
}
