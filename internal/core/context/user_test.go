package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext_HasPermission(t *testing.T) {
	var nilUser *UserContext
	assert.False(t, nilUser.HasPermission(PermissionViewAll))

	u := &UserContext{UserID: "u1", Permissions: []string{"reports:read"}}
	assert.False(t, u.HasPermission(PermissionViewAll))

	u.Permissions = append(u.Permissions, PermissionViewAll)
	assert.True(t, u.HasPermission(PermissionViewAll))

	admin := &UserContext{IsAdmin: true}
	assert.True(t, admin.HasPermission("anything"))
}

func TestGetTenantID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetUserID(ctx))

	ctx = WithUser(ctx, &UserContext{UserID: "u1", TenantID: "acc-1"})
	assert.Equal(t, "acc-1", GetTenantID(ctx))
	assert.Equal(t, "u1", GetUserID(ctx))
}
