package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissions(t *testing.T) {
	assert.True(t, HasPermission(RoleUser, PermissionUseAI))
	assert.False(t, HasPermission(RoleUser, PermissionManageOutbox))
	assert.True(t, HasPermission(RoleAdmin, PermissionManageOutbox))
	assert.False(t, HasPermission("ghost", PermissionReadTasks))

	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("ghost"))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission(1, RoleAdmin, PermissionManageOutbox))

	err := CheckPermission(7, RoleUser, PermissionManageOutbox)
	var denied *PermissionDeniedError
	assert.True(t, errors.As(err, &denied))
	assert.Equal(t, int64(7), denied.UserID)
	assert.Equal(t, PermissionManageOutbox, denied.Permission)
}
