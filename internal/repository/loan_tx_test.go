package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The borrow workflow depends on these reads taking row locks: the
// book lock serializes competing borrows of one book, the user lock
// serializes borrows by one user for different books so the active
// count always runs against committed state.
func TestWorkflowReadsLockTheirRows(t *testing.T) {
	cases := []struct {
		name  string
		build func(int64) (string, []interface{}, error)
	}{
		{"book", bookForUpdateSQL},
		{"user", userForUpdateSQL},
		{"loan", loanForUpdateSQL},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			query, args, err := c.build(7)
			require.NoError(t, err)
			require.True(t, strings.Contains(query, "FOR UPDATE"), "query %q must lock the row", query)
			require.Equal(t, []interface{}{int64(7)}, args)
		})
	}
}

func TestCountActiveLoansQuery(t *testing.T) {
	query, args, err := countActiveLoansSQL(3)
	require.NoError(t, err)
	require.Contains(t, query, `"returned_at" IS NULL`)
	require.NotContains(t, query, "FOR UPDATE")
	require.Equal(t, []interface{}{int64(3)}, args)
}
