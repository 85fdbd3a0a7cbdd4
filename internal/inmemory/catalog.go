package inmemory

import (
	"context"
	"fmt"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// AuthorRepository implements domain.AuthorRepository in memory
type AuthorRepository struct {
	store *Store
}

func (r *AuthorRepository) GetByID(_ context.Context, id int64) (*domain.Author, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableAuthors, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Auteur non trouvé")
	}
	return copyAuthor(raw.(*domain.Author)), nil
}

func (r *AuthorRepository) List(_ context.Context) ([]*domain.Author, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableAuthors, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}

	authors := []*domain.Author{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		authors = append(authors, copyAuthor(raw.(*domain.Author)))
	}
	return authors, nil
}

func (r *AuthorRepository) Create(_ context.Context, author *domain.Author) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	author.ID = r.store.allocID(tableAuthors)
	if err := txn.Insert(tableAuthors, copyAuthor(author)); err != nil {
		return fmt.Errorf("failed to create author: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *AuthorRepository) Update(_ context.Context, author *domain.Author) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableAuthors, "id", author.ID)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Auteur non trouvé")
	}
	if err := txn.Insert(tableAuthors, copyAuthor(author)); err != nil {
		return fmt.Errorf("failed to update author: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *AuthorRepository) Delete(_ context.Context, id int64) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableAuthors, "id", id)
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Auteur non trouvé")
	}

	inUse, err := txn.First(tableBooks, "author_id", id)
	if err != nil {
		return fmt.Errorf("failed to check books for author %d: %w", id, err)
	}
	if inUse != nil {
		return domain.Conflict("Impossible de supprimer un auteur avec des livres associés")
	}

	if err := txn.Delete(tableAuthors, raw); err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	txn.Commit()
	return nil
}

// CategoryRepository implements domain.CategoryRepository in memory
type CategoryRepository struct {
	store *Store
}

func (r *CategoryRepository) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableCategories, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Catégorie non trouvée")
	}
	return copyCategory(raw.(*domain.Category)), nil
}

func (r *CategoryRepository) List(_ context.Context) ([]*domain.Category, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableCategories, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := []*domain.Category{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		categories = append(categories, copyCategory(raw.(*domain.Category)))
	}
	return categories, nil
}

func (r *CategoryRepository) Create(_ context.Context, category *domain.Category) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	category.ID = r.store.allocID(tableCategories)
	if err := txn.Insert(tableCategories, copyCategory(category)); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *CategoryRepository) Update(_ context.Context, category *domain.Category) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableCategories, "id", category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Catégorie non trouvée")
	}
	if err := txn.Insert(tableCategories, copyCategory(category)); err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *CategoryRepository) Delete(_ context.Context, id int64) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableCategories, "id", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Catégorie non trouvée")
	}

	inUse, err := txn.First(tableBooks, "category_id", id)
	if err != nil {
		return fmt.Errorf("failed to check books for category %d: %w", id, err)
	}
	if inUse != nil {
		return domain.Conflict("Impossible de supprimer une catégorie avec des livres associés")
	}

	if err := txn.Delete(tableCategories, raw); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	txn.Commit()
	return nil
}

// BookRepository implements domain.BookRepository in memory
type BookRepository struct {
	store *Store
}

func (r *BookRepository) GetByID(_ context.Context, id int64) (*domain.Book, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableBooks, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Livre non trouvé")
	}
	return copyBook(raw.(*domain.Book)), nil
}

func (r *BookRepository) List(_ context.Context) ([]*domain.Book, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableBooks, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	books := []*domain.Book{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		books = append(books, copyBook(raw.(*domain.Book)))
	}
	return books, nil
}

func (r *BookRepository) Create(_ context.Context, book *domain.Book) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	book.ID = r.store.allocID(tableBooks)
	if err := txn.Insert(tableBooks, copyBook(book)); err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *BookRepository) Update(_ context.Context, book *domain.Book) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableBooks, "id", book.ID)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Livre non trouvé")
	}
	if err := txn.Insert(tableBooks, copyBook(book)); err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	txn.Commit()
	return nil
}

func (r *BookRepository) Delete(_ context.Context, id int64) error {
	txn := r.store.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableBooks, "id", id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Livre non trouvé")
	}

	it, err := txn.Get(tableLoans, "book_id", id)
	if err != nil {
		return fmt.Errorf("failed to check loans for book %d: %w", id, err)
	}
	for lraw := it.Next(); lraw != nil; lraw = it.Next() {
		if lraw.(*domain.Loan).Active() {
			return domain.Conflict("Impossible de supprimer un livre avec des emprunts en cours")
		}
	}

	if err := txn.Delete(tableBooks, raw); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	txn.Commit()
	return nil
}

func copyAuthor(a *domain.Author) *domain.Author {
	cp := *a
	if a.Biography != nil {
		bio := *a.Biography
		cp.Biography = &bio
	}
	if a.BirthDate != nil {
		bd := *a.BirthDate
		cp.BirthDate = &bd
	}
	return &cp
}

func copyCategory(c *domain.Category) *domain.Category {
	cp := *c
	if c.Description != nil {
		desc := *c.Description
		cp.Description = &desc
	}
	return &cp
}

func copyBook(b *domain.Book) *domain.Book {
	cp := *b
	return &cp
}
