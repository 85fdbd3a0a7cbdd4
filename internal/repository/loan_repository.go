package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL.
// Mutations go through the workflow transaction, not this type.
type LoanRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *sqlx.DB, logger *slog.Logger) *LoanRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoanRepository{db: db, logger: logger}
}

// GetByID retrieves a loan by ID
func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	query, args, err := pg.From("loans").
		Select("id", "book_id", "user_id", "loaned_at", "returned_at").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build loan query: %w", err)
	}

	loan := &domain.Loan{}
	if err := r.db.GetContext(ctx, loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Emprunt non trouvé")
		}
		r.logger.Error("failed to get loan",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// ListDetailed returns all loans joined with book titles and user names,
// in insertion order.
func (r *LoanRepository) ListDetailed(ctx context.Context) ([]*domain.LoanDetail, error) {
	query, args, err := pg.From(goqu.T("loans").As("l")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.Ex{"l.book_id": goqu.I("b.id")})).
		Join(goqu.T("users").As("u"), goqu.On(goqu.Ex{"l.user_id": goqu.I("u.id")})).
		Select(
			goqu.I("l.id").As("id"),
			goqu.I("b.title").As("book_title"),
			goqu.I("u.last_name").As("user_name"),
			goqu.I("l.loaned_at").As("loaned_at"),
			goqu.I("l.returned_at").As("returned_at"),
		).
		Order(goqu.I("l.id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build loan list query: %w", err)
	}

	loans := []*domain.LoanDetail{}
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		r.logger.Error("failed to list loans", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

// CountActiveByUser counts the user's loans with no return date
func (r *LoanRepository) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	query, args, err := pg.From("loans").
		Select(goqu.COUNT("*")).
		Where(goqu.C("user_id").Eq(userID), goqu.C("returned_at").IsNull()).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build active loan count query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count active loans for user %d: %w", userID, err)
	}
	return count, nil
}
