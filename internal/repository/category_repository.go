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

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sqlx.DB, logger *slog.Logger) *CategoryRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &CategoryRepository{db: db, logger: logger}
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	query, args, err := pg.From("categories").
		Select("id", "name", "description").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build category query: %w", err)
	}

	category := &domain.Category{}
	if err := r.db.GetContext(ctx, category, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Catégorie non trouvée")
		}
		r.logger.Error("failed to get category",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// List returns all categories in insertion order
func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query, args, err := pg.From("categories").
		Select("id", "name", "description").
		Order(goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build category list query: %w", err)
	}

	categories := []*domain.Category{}
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		r.logger.Error("failed to list categories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create inserts a new category and fills in its generated ID
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query, args, err := pg.Insert("categories").
		Rows(goqu.Record{
			"name":        category.Name,
			"description": category.Description,
		}).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build category insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&category.ID); err != nil {
		r.logger.Error("failed to create category",
			slog.String("name", category.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// Update rewrites an existing category
func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query, args, err := pg.Update("categories").
		Set(goqu.Record{
			"name":        category.Name,
			"description": category.Description,
		}).
		Where(goqu.C("id").Eq(category.ID)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build category update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Catégorie non trouvée")
	}
	return nil
}

// Delete removes a category unless books still reference it
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	countQuery, countArgs, err := pg.From("books").
		Select(goqu.COUNT("*")).
		Where(goqu.C("category_id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build book count query: %w", err)
	}

	var inUse int
	if err := r.db.GetContext(ctx, &inUse, countQuery, countArgs...); err != nil {
		return fmt.Errorf("failed to count books for category %d: %w", id, err)
	}
	if inUse > 0 {
		return domain.Conflict("Impossible de supprimer une catégorie avec des livres associés")
	}

	query, args, err := pg.Delete("categories").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build category delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapEngineDeleteError(err, "Impossible de supprimer une catégorie avec des livres associés")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Catégorie non trouvée")
	}
	return nil
}
