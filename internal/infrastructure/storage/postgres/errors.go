package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"bizreports/internal/core/apperror"
)

// SQLSTATE codes the repositories classify.
const (
	pgQueryCanceled = "57014"
)

// QueryError classifies a failed query. AppErrors pass through; timeouts become
// NewQueryTimeout; everything else is a database error.
func QueryError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
		return apperror.NewQueryTimeout(operation, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewQueryTimeout(operation, err)
	}
	return apperror.NewDatabase(operation, err)
}
