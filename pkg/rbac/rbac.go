package rbac

import "slices"

const (
	PermissionReadTasks    = "task:read"
	PermissionWriteTasks   = "task:write"
	PermissionUseAI        = "ai:use"
	PermissionManageOutbox = "outbox:manage"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadTasks,
		PermissionWriteTasks,
		PermissionUseAI,
	},
	RoleAdmin: {
		PermissionReadTasks,
		PermissionWriteTasks,
		PermissionUseAI,
		PermissionManageOutbox,
	},
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission 检查权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int64, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int64
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
