package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/yourorg/bibliotheque/internal/domain"
)

var pg = goqu.Dialect("postgres")

// Store implements domain.Store on PostgreSQL.
type Store struct {
	db         *sqlx.DB
	logger     *slog.Logger
	authors    *AuthorRepository
	categories *CategoryRepository
	books      *BookRepository
	users      *UserRepository
	loans      *LoanRepository
}

// NewStore creates a PostgreSQL-backed store.
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		db:         db,
		logger:     logger,
		authors:    NewAuthorRepository(db, logger),
		categories: NewCategoryRepository(db, logger),
		books:      NewBookRepository(db, logger),
		users:      NewUserRepository(db, logger),
		loans:      NewLoanRepository(db, logger),
	}
}

func (s *Store) Authors() domain.AuthorRepository       { return s.authors }
func (s *Store) Categories() domain.CategoryRepository  { return s.categories }
func (s *Store) Books() domain.BookRepository           { return s.books }
func (s *Store) Users() domain.UserRepository           { return s.users }
func (s *Store) Loans() domain.LoanRepository           { return s.loans }

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinLoanTx runs fn in one database transaction. The *ForUpdate
// reads inside take row locks, so competing borrow and return calls
// serialize on the book row and the loser re-reads committed state.
func (s *Store) WithinLoanTx(ctx context.Context, fn func(tx domain.LoanTx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&loanTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
		}
		return mapEngineError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapEngineError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// mapEngineError translates Postgres concurrency failures into the
// domain taxonomy. Serialization and deadlock failures are retryable;
// the partial unique index on active loans means another borrow for
// the same book committed first.
func mapEngineError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "40001", "40P01":
		return &domain.Error{
			Kind:    domain.KindConflict,
			Message: "Conflit de transactions, veuillez réessayer",
			Err:     err,
		}
	case "23505":
		if pqErr.Constraint == "idx_loans_one_active_per_book" {
			return domain.Unprocessable("Ce livre est déjà emprunté")
		}
	}
	return err
}

// mapEngineDeleteError turns a foreign-key violation on delete into the
// resource-specific conflict message; anything else stays an internal
// failure.
func mapEngineDeleteError(err error, conflictMsg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return domain.Conflict(conflictMsg)
	}
	return fmt.Errorf("failed to delete: %w", err)
}
