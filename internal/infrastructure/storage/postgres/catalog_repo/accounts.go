package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizreports/internal/core/apperror"
	appctx "bizreports/internal/core/context"
	"bizreports/internal/infrastructure/storage/postgres"
)

const (
	accountFeatureTable = "account_features"
	userTable           = "users"
)

// AccountRepo reads account capabilities: enabled features and user permissions.
type AccountRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewAccountRepo creates a new account repository.
func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *AccountRepo) featuresQuery(accountID string) squirrel.SelectBuilder {
	return r.builder.Select("feature").
		From(accountFeatureTable).
		Where(squirrel.Eq{"account_id": accountID, "enabled": true}).
		OrderBy("feature")
}

// AccountFeatures returns the names of the features enabled for the account.
func (r *AccountRepo) AccountFeatures(ctx context.Context, accountID string) ([]string, error) {
	sql, args, err := r.featuresQuery(accountID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var features []string
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &features, sql, args...); err != nil {
		return nil, postgres.QueryError("select "+accountFeatureTable, err)
	}
	return features, nil
}

type userRow struct {
	ID          string   `db:"id"`
	AccountID   string   `db:"account_id"`
	Email       string   `db:"email"`
	Permissions []string `db:"permissions"`
	IsAdmin     bool     `db:"is_admin"`
}

func (r *AccountRepo) userQuery(accountID, userID string) squirrel.SelectBuilder {
	return r.builder.Select(postgres.ExtractDBColumns[userRow]()...).
		From(userTable).
		Where(squirrel.Eq{"id": userID, "account_id": accountID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1)
}

// User returns the current permissions of an account user, or NOT_FOUND once the
// user is gone.
func (r *AccountRepo) User(ctx context.Context, accountID, userID string) (*appctx.UserContext, error) {
	sql, args, err := r.userQuery(accountID, userID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row userRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", userID)
		}
		return nil, postgres.QueryError("select "+userTable, err)
	}
	return &appctx.UserContext{
		UserID:      row.ID,
		TenantID:    row.AccountID,
		Email:       row.Email,
		Permissions: row.Permissions,
		IsAdmin:     row.IsAdmin,
	}, nil
}
