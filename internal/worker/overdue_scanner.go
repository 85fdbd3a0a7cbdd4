package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/bibliotheque/internal/domain"
	"github.com/yourorg/bibliotheque/internal/observability/metrics"
)

// OverdueScanner periodically walks the loans and publishes how many
// are active and how many of those are overdue. It is read-only: loan
// state only changes through the workflow service.
type OverdueScanner struct {
	loans        domain.LoanRepository
	logger       *slog.Logger
	interval     time.Duration
	overdueAfter time.Duration
}

// NewOverdueScanner creates a new overdue scanner
func NewOverdueScanner(loans domain.LoanRepository, logger *slog.Logger, interval, overdueAfter time.Duration) *OverdueScanner {
	if logger == nil {
		logger = slog.Default()
	}

	return &OverdueScanner{
		loans:        loans,
		logger:       logger,
		interval:     interval,
		overdueAfter: overdueAfter,
	}
}

// Start begins the scan loop and blocks until ctx is cancelled.
func (w *OverdueScanner) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("overdue scanner started",
		slog.Duration("interval", w.interval),
		slog.Duration("overdue_after", w.overdueAfter),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue scanner stopped")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *OverdueScanner) scan(ctx context.Context) {
	loans, err := w.loans.ListDetailed(ctx)
	if err != nil {
		w.logger.Error("failed to list loans", slog.String("error", err.Error()))
		return
	}

	now := time.Now()
	active := 0
	overdue := 0
	for _, l := range loans {
		if l.ReturnedAt != nil {
			continue
		}
		active++
		if now.Sub(l.LoanedAt) > w.overdueAfter {
			overdue++
			w.logger.Warn("loan overdue",
				slog.Int64("loan_id", l.ID),
				slog.String("book_title", l.BookTitle),
				slog.String("user", l.UserName),
				slog.Time("loaned_at", l.LoanedAt),
			)
		}
	}

	metrics.SetActiveLoans(active)
	metrics.SetOverdueLoans(overdue)
}
