package inmemory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// LoanRepository implements domain.LoanRepository in memory.
// Mutations go through the workflow transaction, not this type.
type LoanRepository struct {
	store *Store
}

func (r *LoanRepository) GetByID(_ context.Context, id int64) (*domain.Loan, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableLoans, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Emprunt non trouvé")
	}
	return copyLoan(raw.(*domain.Loan)), nil
}

func (r *LoanRepository) ListDetailed(_ context.Context) ([]*domain.LoanDetail, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableLoans, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	details := []*domain.LoanDetail{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		loan := raw.(*domain.Loan)
		detail := &domain.LoanDetail{
			ID:       loan.ID,
			LoanedAt: loan.LoanedAt,
		}
		if loan.ReturnedAt != nil {
			at := *loan.ReturnedAt
			detail.ReturnedAt = &at
		}

		braw, err := txn.First(tableBooks, "id", loan.BookID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve book %d: %w", loan.BookID, err)
		}
		if braw != nil {
			detail.BookTitle = braw.(*domain.Book).Title
		}

		uraw, err := txn.First(tableUsers, "id", loan.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user %d: %w", loan.UserID, err)
		}
		if uraw != nil {
			detail.UserName = uraw.(*domain.User).DisplayName()
		}

		details = append(details, detail)
	}
	return details, nil
}

func (r *LoanRepository) CountActiveByUser(_ context.Context, userID int64) (int, error) {
	txn := r.store.db.Txn(false)
	defer txn.Abort()
	return countActiveLoans(txn, userID)
}

// loanTx implements domain.LoanTx on a memdb write transaction. The
// single-writer discipline of go-memdb stands in for row locks.
type loanTx struct {
	store *Store
	txn   *memdb.Txn
}

func (t *loanTx) BookForUpdate(_ context.Context, id int64) (*domain.Book, error) {
	raw, err := t.txn.First(tableBooks, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Livre ou utilisateur introuvable")
	}
	return copyBook(raw.(*domain.Book)), nil
}

func (t *loanTx) UserForUpdate(_ context.Context, id int64) (*domain.User, error) {
	raw, err := t.txn.First(tableUsers, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Livre ou utilisateur introuvable")
	}
	user := *raw.(*domain.User)
	return &user, nil
}

func (t *loanTx) LoanForUpdate(_ context.Context, id int64) (*domain.Loan, error) {
	raw, err := t.txn.First(tableLoans, "id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	if raw == nil {
		return nil, domain.NotFound("Emprunt non trouvé")
	}
	return copyLoan(raw.(*domain.Loan)), nil
}

func (t *loanTx) CountActiveLoans(_ context.Context, userID int64) (int, error) {
	return countActiveLoans(t.txn, userID)
}

func (t *loanTx) InsertLoan(_ context.Context, loan *domain.Loan) error {
	loan.ID = t.store.allocID(tableLoans)
	if err := t.txn.Insert(tableLoans, copyLoan(loan)); err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (t *loanTx) SetLoanReturned(_ context.Context, loanID int64, returnedAt time.Time) error {
	raw, err := t.txn.First(tableLoans, "id", loanID)
	if err != nil {
		return fmt.Errorf("failed to get loan: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Emprunt non trouvé")
	}
	loan := copyLoan(raw.(*domain.Loan))
	if loan.ReturnedAt != nil {
		return domain.Unprocessable("Ce livre a déjà été rendu.")
	}
	loan.ReturnedAt = &returnedAt
	if err := t.txn.Insert(tableLoans, loan); err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	return nil
}

func (t *loanTx) SetBookAvailable(_ context.Context, bookID int64, available bool) error {
	raw, err := t.txn.First(tableBooks, "id", bookID)
	if err != nil {
		return fmt.Errorf("failed to get book: %w", err)
	}
	if raw == nil {
		return domain.NotFound("Livre non trouvé")
	}
	book := copyBook(raw.(*domain.Book))
	book.Available = available
	if err := t.txn.Insert(tableBooks, book); err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

func countActiveLoans(txn *memdb.Txn, userID int64) (int, error) {
	it, err := txn.Get(tableLoans, "user_id", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active loans for user %d: %w", userID, err)
	}
	count := 0
	for raw := it.Next(); raw != nil; raw = it.Next() {
		if raw.(*domain.Loan).Active() {
			count++
		}
	}
	return count, nil
}

func copyLoan(l *domain.Loan) *domain.Loan {
	cp := *l
	if l.ReturnedAt != nil {
		at := *l.ReturnedAt
		cp.ReturnedAt = &at
	}
	return &cp
}
