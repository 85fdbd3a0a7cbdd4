package domain

import "context"

// User is a library member who can hold loans.
type User struct {
	ID        int64  `db:"id"`
	LastName  string `db:"last_name"`
	FirstName string `db:"first_name"`
}

// DisplayName is the name shown in loan listings.
func (u *User) DisplayName() string { return u.LastName }

// UserRepository defines data access for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	// Delete fails with a conflict while the user holds active loans.
	Delete(ctx context.Context, id int64) error
}
