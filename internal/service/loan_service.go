package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/bibliotheque/internal/domain"
	"github.com/yourorg/bibliotheque/internal/observability/metrics"
)

// MaxActiveLoans is the borrowing policy: a user may hold at most this
// many unreturned loans at once.
const MaxActiveLoans = 4

// LoanService runs the loan lifecycle: borrowing a book, returning it,
// and listing loans. Every check-and-mutate sequence executes inside a
// single store transaction so the availability flag and the active-loan
// count stay consistent under concurrent requests.
type LoanService struct {
	store  domain.Store
	logger *slog.Logger
	now    func() time.Time
}

// ReturnReceipt is the outcome of a successful return.
type ReturnReceipt struct {
	BookTitle  string
	ReturnedAt time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(store domain.Store, logger *slog.Logger) *LoanService {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoanService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Borrow creates a loan of the given book by the given user. It fails
// when either entity is missing, when the book is already on loan, or
// when the user is at the active-loan limit. On success the book is
// flagged unavailable in the same transaction that records the loan.
func (s *LoanService) Borrow(ctx context.Context, bookID, userID int64) (*domain.Loan, error) {
	var loan *domain.Loan

	err := s.store.WithinLoanTx(ctx, func(tx domain.LoanTx) error {
		book, err := tx.BookForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if _, err := tx.UserForUpdate(ctx, userID); err != nil {
			return err
		}

		if !book.Available {
			return domain.Unprocessable("Ce livre est déjà emprunté")
		}

		active, err := tx.CountActiveLoans(ctx, userID)
		if err != nil {
			return err
		}
		if active >= MaxActiveLoans {
			return domain.Unprocessable("Limite de 4 emprunts atteinte")
		}

		loan = &domain.Loan{
			BookID:   bookID,
			UserID:   userID,
			LoanedAt: s.now(),
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return err
		}
		return tx.SetBookAvailable(ctx, bookID, false)
	})
	if err != nil {
		metrics.ObserveBorrow(borrowResult(err))
		s.logger.Warn("borrow rejected",
			slog.Int64("book_id", bookID),
			slog.Int64("user_id", userID),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	metrics.ObserveBorrow("success")
	metrics.IncrementActiveLoans()
	s.logger.Info("book borrowed",
		slog.Int64("loan_id", loan.ID),
		slog.Int64("book_id", bookID),
		slog.Int64("user_id", userID),
	)
	return loan, nil
}

// Return closes the given loan. It fails when the loan is missing or
// already returned. On success the return date is set and the book is
// flagged available again, atomically.
func (s *LoanService) Return(ctx context.Context, loanID int64) (*ReturnReceipt, error) {
	var receipt *ReturnReceipt

	err := s.store.WithinLoanTx(ctx, func(tx domain.LoanTx) error {
		loan, err := tx.LoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Active() {
			return domain.Unprocessable("Ce livre a déjà été rendu.")
		}

		book, err := tx.BookForUpdate(ctx, loan.BookID)
		if err != nil {
			return err
		}

		returnedAt := s.now()
		if err := tx.SetLoanReturned(ctx, loanID, returnedAt); err != nil {
			return err
		}
		if err := tx.SetBookAvailable(ctx, loan.BookID, true); err != nil {
			return err
		}

		receipt = &ReturnReceipt{BookTitle: book.Title, ReturnedAt: returnedAt}
		return nil
	})
	if err != nil {
		metrics.ObserveReturn(returnResult(err))
		s.logger.Warn("return rejected",
			slog.Int64("loan_id", loanID),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	metrics.ObserveReturn("success")
	metrics.DecrementActiveLoans()
	s.logger.Info("book returned", slog.Int64("loan_id", loanID))
	return receipt, nil
}

// List returns every loan with its display fields. Read-only.
func (s *LoanService) List(ctx context.Context) ([]*domain.LoanDetail, error) {
	return s.store.Loans().ListDetailed(ctx)
}

func borrowResult(err error) string {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return "not_found"
	case domain.KindUnprocessable:
		return "rejected"
	case domain.KindConflict:
		return "conflict"
	default:
		return "error"
	}
}

func returnResult(err error) string {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return "not_found"
	case domain.KindUnprocessable:
		return "already_returned"
	case domain.KindConflict:
		return "conflict"
	default:
		return "error"
	}
}
