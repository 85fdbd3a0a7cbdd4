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

// AuthorRepository implements domain.AuthorRepository using PostgreSQL
type AuthorRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(db *sqlx.DB, logger *slog.Logger) *AuthorRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthorRepository{db: db, logger: logger}
}

// GetByID retrieves an author by ID
func (r *AuthorRepository) GetByID(ctx context.Context, id int64) (*domain.Author, error) {
	query, args, err := pg.From("authors").
		Select("id", "last_name", "first_name", "biography", "birth_date").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build author query: %w", err)
	}

	author := &domain.Author{}
	if err := r.db.GetContext(ctx, author, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Auteur non trouvé")
		}
		r.logger.Error("failed to get author",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	return author, nil
}

// List returns all authors in insertion order
func (r *AuthorRepository) List(ctx context.Context) ([]*domain.Author, error) {
	query, args, err := pg.From("authors").
		Select("id", "last_name", "first_name", "biography", "birth_date").
		Order(goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build author list query: %w", err)
	}

	authors := []*domain.Author{}
	if err := r.db.SelectContext(ctx, &authors, query, args...); err != nil {
		r.logger.Error("failed to list authors", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

// Create inserts a new author and fills in its generated ID
func (r *AuthorRepository) Create(ctx context.Context, author *domain.Author) error {
	query, args, err := pg.Insert("authors").
		Rows(goqu.Record{
			"last_name":  author.LastName,
			"first_name": author.FirstName,
			"biography":  author.Biography,
			"birth_date": author.BirthDate,
		}).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build author insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&author.ID); err != nil {
		r.logger.Error("failed to create author",
			slog.String("last_name", author.LastName),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create author: %w", err)
	}
	return nil
}

// Update rewrites an existing author
func (r *AuthorRepository) Update(ctx context.Context, author *domain.Author) error {
	query, args, err := pg.Update("authors").
		Set(goqu.Record{
			"last_name":  author.LastName,
			"first_name": author.FirstName,
			"biography":  author.Biography,
			"birth_date": author.BirthDate,
		}).
		Where(goqu.C("id").Eq(author.ID)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build author update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Auteur non trouvé")
	}
	return nil
}

// Delete removes an author unless books still reference it
func (r *AuthorRepository) Delete(ctx context.Context, id int64) error {
	countQuery, countArgs, err := pg.From("books").
		Select(goqu.COUNT("*")).
		Where(goqu.C("author_id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build book count query: %w", err)
	}

	var inUse int
	if err := r.db.GetContext(ctx, &inUse, countQuery, countArgs...); err != nil {
		return fmt.Errorf("failed to count books for author %d: %w", id, err)
	}
	if inUse > 0 {
		return domain.Conflict("Impossible de supprimer un auteur avec des livres associés")
	}

	query, args, err := pg.Delete("authors").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build author delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		// FK violation: a book was created between the check and the delete.
		return mapEngineDeleteError(err, "Impossible de supprimer un auteur avec des livres associés")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Auteur non trouvé")
	}
	return nil
}
