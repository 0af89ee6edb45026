package rbac

// Permissions
const (
	PermissionReadMetrics  = "project:metrics:read"
	PermissionSyncDraws    = "project:draws:sync"
	PermissionRunBatchJobs = "admin:jobs:run"
)

// Roles
const (
	RoleViewer  = "viewer"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadMetrics,
	},
	RoleManager: {
		PermissionReadMetrics,
		PermissionSyncDraws,
	},
	RoleAdmin: {
		PermissionReadMetrics,
		PermissionSyncDraws,
		PermissionRunBatchJobs,
	},
}

// NormalizeRole maps an empty or unknown role to the least privileged one.
func NormalizeRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleViewer
}

func HasPermission(role string, permission string) bool {
	for _, p := range rolePermissions[NormalizeRole(role)] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning an error.
func CheckPermission(userID int, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	UserID     int
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
