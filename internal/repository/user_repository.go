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

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserRepository{db: db, logger: logger}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query, args, err := pg.From("users").
		Select("id", "last_name", "first_name").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	user := &domain.User{}
	if err := r.db.GetContext(ctx, user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("Utilisateur non trouvé")
		}
		r.logger.Error("failed to get user",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns all users in insertion order
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	query, args, err := pg.From("users").
		Select("id", "last_name", "first_name").
		Order(goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build user list query: %w", err)
	}

	users := []*domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		r.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Create inserts a new user and fills in its generated ID
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query, args, err := pg.Insert("users").
		Rows(goqu.Record{
			"last_name":  user.LastName,
			"first_name": user.FirstName,
		}).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build user insert: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&user.ID); err != nil {
		r.logger.Error("failed to create user",
			slog.String("last_name", user.LastName),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update rewrites an existing user
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query, args, err := pg.Update("users").
		Set(goqu.Record{
			"last_name":  user.LastName,
			"first_name": user.FirstName,
		}).
		Where(goqu.C("id").Eq(user.ID)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build user update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Utilisateur non trouvé")
	}
	return nil
}

// Delete removes a user unless active loans exist for it
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	countQuery, countArgs, err := pg.From("loans").
		Select(goqu.COUNT("*")).
		Where(goqu.C("user_id").Eq(id), goqu.C("returned_at").IsNull()).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build active loan count query: %w", err)
	}

	var active int
	if err := r.db.GetContext(ctx, &active, countQuery, countArgs...); err != nil {
		return fmt.Errorf("failed to count active loans for user %d: %w", id, err)
	}
	if active > 0 {
		return domain.Conflict("Impossible de supprimer un utilisateur avec des emprunts en cours")
	}

	query, args, err := pg.Delete("users").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build user delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapEngineDeleteError(err, "Impossible de supprimer un utilisateur avec des emprunts en cours")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NotFound("Utilisateur non trouvé")
	}
	return nil
}
