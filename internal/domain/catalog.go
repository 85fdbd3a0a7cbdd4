package domain

import (
	"context"
	"time"
)

// Author is a book author. Biography and BirthDate are optional.
type Author struct {
	ID        int64      `db:"id"`
	LastName  string     `db:"last_name"`
	FirstName string     `db:"first_name"`
	Biography *string    `db:"biography"`
	BirthDate *time.Time `db:"birth_date"`
}

// Category is a book category with an optional description.
type Category struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
}

// Book holds a catalogue entry. Available is false exactly while an
// active loan references the book.
type Book struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	PublishedAt time.Time `db:"published_at"`
	Available   bool      `db:"available"`
	AuthorID    int64     `db:"author_id"`
	CategoryID  int64     `db:"category_id"`
}

// AuthorRepository defines data access for authors.
type AuthorRepository interface {
	GetByID(ctx context.Context, id int64) (*Author, error)
	List(ctx context.Context) ([]*Author, error)
	Create(ctx context.Context, author *Author) error
	Update(ctx context.Context, author *Author) error
	// Delete fails with a conflict while books still reference the author.
	Delete(ctx context.Context, id int64) error
}

// CategoryRepository defines data access for categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
	// Delete fails with a conflict while books still reference the category.
	Delete(ctx context.Context, id int64) error
}

// BookRepository defines data access for books.
type BookRepository interface {
	GetByID(ctx context.Context, id int64) (*Book, error)
	List(ctx context.Context) ([]*Book, error)
	Create(ctx context.Context, book *Book) error
	Update(ctx context.Context, book *Book) error
	// Delete fails with a conflict while an active loan exists for the book.
	Delete(ctx context.Context, id int64) error
}
