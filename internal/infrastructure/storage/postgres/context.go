package postgres

import (
	"context"

	"bizreports/internal/core/apperror"
	appctx "bizreports/internal/core/context"
)

// AccountID returns the account every query of this request is scoped to.
// Repositories refuse to run without one.
func AccountID(ctx context.Context) (string, error) {
	account := appctx.GetTenantID(ctx)
	if account == "" {
		return "", apperror.NewUnauthorized("account scope missing from context")
	}
	return account, nil
}
