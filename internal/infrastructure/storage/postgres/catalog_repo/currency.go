// Package catalog_repo provides PostgreSQL access to reference data shared by all accounts.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizreports/internal/core/apperror"
	"bizreports/internal/domain/currency"
	"bizreports/internal/infrastructure/storage/postgres"
)

const currencyTable = "currencies"

var _ currency.Lookup = (*CurrencyRepo)(nil)

// CurrencyRepo loads currencies by id.
type CurrencyRepo struct {
	txm        *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewCurrencyRepo creates a new currency repository.
func NewCurrencyRepo(txm *postgres.TxManager) *CurrencyRepo {
	return &CurrencyRepo{
		txm:        txm,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[currency.Currency](),
	}
}

func (r *CurrencyRepo) getQuery(currencyID int64) squirrel.SelectBuilder {
	return r.builder.Select(r.selectCols...).
		From(currencyTable).
		Where(squirrel.Eq{"id": currencyID}).
		Limit(1)
}

// Get returns a validated currency or NOT_FOUND.
func (r *CurrencyRepo) Get(ctx context.Context, currencyID int64) (*currency.Currency, error) {
	sql, args, err := r.getQuery(currencyID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c currency.Currency
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("currency", currencyID)
		}
		return nil, postgres.QueryError("select currency", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("currency %d: %w", currencyID, err)
	}
	return &c, nil
}
