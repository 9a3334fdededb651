package report_repo

import (
	"context"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizreports/internal/core/apperror"
)

func TestVizQueries_ScopedToAccount(t *testing.T) {
	repo := NewReportRepo(nil)

	cases := map[string]squirrel.SelectBuilder{
		"clients":  repo.vizClientsQuery("acct-1"),
		"invoices": repo.vizInvoicesQuery("acct-1"),
		"items":    repo.vizItemsQuery("acct-1"),
		"contacts": repo.vizContactsQuery("acct-1"),
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			sql, args, err := q.ToSql()
			require.NoError(t, err)

			assert.Contains(t, sql, "account_id = $1")
			assert.Equal(t, []any{"acct-1"}, args)
			for _, hidden := range []string{"private_notes", "public_notes", "id_number", "email"} {
				assert.NotContains(t, sql, hidden)
			}
		})
	}
}

func TestVizClientsQuery_TotalsFromInvoices(t *testing.T) {
	sql, _, err := NewReportRepo(nil).vizClientsQuery("acct-1").ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "LEFT JOIN invoices i ON i.client_id = c.id AND i.deleted_at IS NULL AND NOT i.is_quote")
	assert.Contains(t, sql, "c.deleted_at IS NULL GROUP BY c.id ORDER BY c.name, c.id")
}

func TestVizData_RequiresAccount(t *testing.T) {
	_, err := NewReportRepo(nil).VizData(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}
