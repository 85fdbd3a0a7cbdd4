package inmemory

import (
	"context"
	"fmt"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// UserRepository implements domain.UserRepository in memory
type UserRepository struct {
	store *Store
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableUsers, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Utilisateur non trouvé")
	}
	user := *raw.(*domain.User)
	return &user, nil
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableUsers, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := []*domain.User{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		user := *raw.(*domain.User)
		users = append(users, &user)
	}
	return users, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	user.ID = r.store.allocID(tableUsers)
	cp := *user
	if err := txn.Insert(tableUsers, &cp); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableUsers, "id", user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Utilisateur non trouvé")
	}
	cp := *user
	if err := txn.Insert(tableUsers, &cp); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableUsers, "id", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Utilisateur non trouvé")
	}

	it, err := txn.Get(tableLoans, "user_id", id)
	if err != nil {
		return fmt.Errorf("failed to check loans for user %d: %w", id, err)
	}
	for lraw := it.Next(); lraw != nil; lraw = it.Next() {
		if lraw.(*domain.Loan).Active() {
			return domain.Conflict("Impossible de supprimer un utilisateur avec des emprunts en cours")
		}
	}

	if err := txn.Delete(tableUsers, raw); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	txn.Commit()
	return nil
}
