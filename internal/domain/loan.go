package domain

import (
	"context"
	"time"
)

// Loan records a user borrowing a book. A loan is active while
// ReturnedAt is nil. Loans are created by the borrow operation, mutated
// once by the return operation, and never deleted.
type Loan struct {
	ID         int64      `db:"id"`
	BookID     int64      `db:"book_id"`
	UserID     int64      `db:"user_id"`
	LoanedAt   time.Time  `db:"loaned_at"`
	ReturnedAt *time.Time `db:"returned_at"`
}

// Active reports whether the loan has not been returned yet.
func (l *Loan) Active() bool { return l.ReturnedAt == nil }

// LoanDetail is the denormalized projection used by the loan listing.
type LoanDetail struct {
	ID         int64      `db:"id"`
	BookTitle  string     `db:"book_title"`
	UserName   string     `db:"user_name"`
	LoanedAt   time.Time  `db:"loaned_at"`
	ReturnedAt *time.Time `db:"returned_at"`
}

// LoanRepository defines read access for loans outside the workflow.
type LoanRepository interface {
	GetByID(ctx context.Context, id int64) (*Loan, error)
	ListDetailed(ctx context.Context) ([]*LoanDetail, error)
	CountActiveByUser(ctx context.Context, userID int64) (int, error)
}

// LoanTx is the unit of work the loan workflow runs in. Implementations
// must make the whole callback atomic: on Postgres the *ForUpdate reads
// take row locks inside one transaction, in memory a single write
// transaction serializes callers. The user row lock is what serializes
// two borrows by the same user for different books, so the active-loan
// count is read against committed state.
type LoanTx interface {
	BookForUpdate(ctx context.Context, id int64) (*Book, error)
	UserForUpdate(ctx context.Context, id int64) (*User, error)
	LoanForUpdate(ctx context.Context, id int64) (*Loan, error)
	CountActiveLoans(ctx context.Context, userID int64) (int, error)
	InsertLoan(ctx context.Context, loan *Loan) error
	SetLoanReturned(ctx context.Context, loanID int64, returnedAt time.Time) error
	SetBookAvailable(ctx context.Context, bookID int64, available bool) error
}

// Store bundles the repositories behind one construction point so the
// server wires a single dependency regardless of the backing engine.
type Store interface {
	Authors() AuthorRepository
	Categories() CategoryRepository
	Books() BookRepository
	Users() UserRepository
	Loans() LoanRepository

	// WithinLoanTx runs fn atomically. If fn returns an error the
	// transaction rolls back and the error is returned unchanged; engine
	// conflicts surface as a retryable Conflict error.
	WithinLoanTx(ctx context.Context, fn func(tx LoanTx) error) error

	// Ping reports whether the backing engine is reachable.
	Ping(ctx context.Context) error
}
