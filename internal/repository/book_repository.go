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

// BookRepository implements domain.BookRepository using PostgreSQL
type BookRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *sqlx.DB, logger *slog.Logger) *BookRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &BookRepository{db: db, logger: logger}
}

// GetByID retrieves a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	query, args, err := pg.From("books").
		Select("id", "title", "published_at", "available", "author_id", "category_id").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build book query: %w", err)
	}

	book := &domain.Book{}
	if err := r.db.GetContext(ctx, book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Livre non trouvé")
		}
		r.logger.Error("failed to get book",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// List returns all books in insertion order
func (r *BookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	query, args, err := pg.From("books").
		Select("id", "title", "published_at", "available", "author_id", "category_id").
		Order(goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build book list query: %w", err)
	}

	books := []*domain.Book{}
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		r.logger.Error("failed to list books", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Create inserts a new book and fills in its generated ID
func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	query, args, err := pg.Insert("books").
		Rows(goqu.Record{
			"title":        book.Title,
			"published_at": book.PublishedAt,
			"available":    book.Available,
			"author_id":    book.AuthorID,
			"category_id":  book.CategoryID,
		}).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build book insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&book.ID); err != nil {
		r.logger.Error("failed to create book",
			slog.String("title", book.Title),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// Update rewrites an existing book
func (r *BookRepository) Update(ctx context.Context, book *domain.Book) error {
	query, args, err := pg.Update("books").
		Set(goqu.Record{
			"title":        book.Title,
			"published_at": book.PublishedAt,
			"available":    book.Available,
			"author_id":    book.AuthorID,
			"category_id":  book.CategoryID,
		}).
		Where(goqu.C("id").Eq(book.ID)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build book update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Livre non trouvé")
	}
	return nil
}

// Delete removes a book unless an active loan exists for it
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	countQuery, countArgs, err := pg.From("loans").
		Select(goqu.COUNT("*")).
		Where(goqu.C("book_id").Eq(id), goqu.C("returned_at").IsNull()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build active loan count query: %w", err)
	}

	var active int
	if err := r.db.GetContext(ctx, &active, countQuery, countArgs...); err != nil {
		return fmt.Errorf("failed to count active loans for book %d: %w", id, err)
	}
	if active > 0 {
		return domain.Conflict("Impossible de supprimer un livre avec des emprunts en cours")
	}

	query, args, err := pg.Delete("books").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build book delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapEngineDeleteError(err, "Impossible de supprimer un livre avec des emprunts en cours")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Livre non trouvé")
	}
	return nil
}
