// Package inmemory implements domain.Store on hashicorp/go-memdb.
// It backs the test suite and STORE_BACKEND=memory for local
// development. go-memdb allows a single write transaction at a time,
// which gives the loan workflow the serialized check-and-mutate it
// needs without a database.
package inmemory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"

	"github.com/yourorg/bibliotheque/internal/domain"
)

const (
	tableAuthors    = "authors"
	tableCategories = "categories"
	tableBooks      = "books"
	tableUsers      = "users"
	tableLoans      = "loans"
)

// Store implements domain.Store in process memory.
type Store struct {
	db         *memdb.MemDB
	nextID     map[string]*atomic.Int64
	authors    *AuthorRepository
	categories *CategoryRepository
	books      *BookRepository
	users      *UserRepository
	loans      *LoanRepository
}

// NewStore builds an empty in-memory store.
func NewStore() (*Store, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableAuthors: {
				Name: tableAuthors,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
			tableCategories: {
				Name: tableCategories,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
			tableBooks: {
				Name: tableBooks,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					"author_id": {
						Name:    "author_id",
						Unique:  false,
						Indexer: &memdb.IntFieldIndex{Field: "AuthorID"},
					},
					"category_id": {
						Name:    "category_id",
						Unique:  false,
						Indexer: &memdb.IntFieldIndex{Field: "CategoryID"},
					},
				},
			},
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
			tableLoans: {
				Name: tableLoans,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					"book_id": {
						Name:    "book_id",
						Unique:  false,
						Indexer: &memdb.IntFieldIndex{Field: "BookID"},
					},
					"user_id": {
						Name:    "user_id",
						Unique:  false,
						Indexer: &memdb.IntFieldIndex{Field: "UserID"},
					},
				},
			},
		},
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid memdb schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory store: %w", err)
	}

	s := &Store{
		db: db,
		nextID: map[string]*atomic.Int64{
			tableAuthors:    {},
			tableCategories: {},
			tableBooks:      {},
			tableUsers:      {},
			tableLoans:      {},
		},
	}
	s.authors = &AuthorRepository{store: s}
	s.categories = &CategoryRepository{store: s}
	s.books = &BookRepository{store: s}
	s.users = &UserRepository{store: s}
	s.loans = &LoanRepository{store: s}
	return s, nil
}

func (s *Store) Authors() domain.AuthorRepository      { return s.authors }
func (s *Store) Categories() domain.CategoryRepository { return s.categories }
func (s *Store) Books() domain.BookRepository          { return s.books }
func (s *Store) Users() domain.UserRepository          { return s.users }
func (s *Store) Loans() domain.LoanRepository          { return s.loans }

// Ping always succeeds: the store lives in process memory.
func (s *Store) Ping(_ context.Context) error { return nil }

// WithinLoanTx runs fn in a single memdb write transaction. go-memdb
// serializes writers, so two concurrent borrow attempts execute one
// after the other and the second observes the committed availability.
func (s *Store) WithinLoanTx(_ context.Context, fn func(tx domain.LoanTx) error) error {
	txn := s.db.Txn(true)
	if err := fn(&loanTx{store: s, txn: txn}); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}

func (s *Store) allocID(table string) int64 {
	return s.nextID[table].Add(1)
}
