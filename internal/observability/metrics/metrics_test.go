package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestActiveLoansGauge(t *testing.T) {
	SetActiveLoans(3)
	if got := testutil.ToFloat64(activeLoans); got != 3 {
		t.Fatalf("expected gauge 3, got %v", got)
	}

	IncrementActiveLoans()
	if got := testutil.ToFloat64(activeLoans); got != 4 {
		t.Fatalf("expected gauge 4, got %v", got)
	}

	DecrementActiveLoans()
	if got := testutil.ToFloat64(activeLoans); got != 3 {
		t.Fatalf("expected gauge 3, got %v", got)
	}

	// Negative counts clamp to zero.
	SetActiveLoans(-1)
	if got := testutil.ToFloat64(activeLoans); got != 0 {
		t.Fatalf("expected gauge 0, got %v", got)
	}
}

func TestOverdueLoansGauge(t *testing.T) {
	SetOverdueLoans(2)
	if got := testutil.ToFloat64(overdueLoans); got != 2 {
		t.Fatalf("expected gauge 2, got %v", got)
	}
}

func TestBorrowCounter(t *testing.T) {
	before := testutil.ToFloat64(borrowsTotal.WithLabelValues("success"))
	ObserveBorrow("success")
	after := testutil.ToFloat64(borrowsTotal.WithLabelValues("success"))
	if after != before+1 {
		t.Fatalf("expected counter to advance by 1, got %v -> %v", before, after)
	}
}
