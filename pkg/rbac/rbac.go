package rbac

// 权限常量
const (
	PermissionSubscribeEvents = "events:subscribe"
	PermissionReadFailedItems = "failed_items:read"
)

// 角色常量
const (
	RoleSubscriber = "subscriber"
	RoleAdmin      = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleSubscriber: {
		PermissionSubscribeEvents,
	},
	RoleAdmin: {
		PermissionSubscribeEvents,
		PermissionReadFailedItems,
	},
}

// NormalizeRole 未声明角色的客户端按 subscriber 处理
func NormalizeRole(role string) string {
	if role == "" {
		return RoleSubscriber
	}
	return role
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[NormalizeRole(role)]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查客户端是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(clientID, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			ClientID:   clientID,
			Role:       NormalizeRole(role),
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	ClientID   string
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
