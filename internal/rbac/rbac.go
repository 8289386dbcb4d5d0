package rbac

import "strings"

// Role is a workspace membership role as the server names it.
type Role string
type Action string

const (
	RoleViewer Role = "VIEWER"
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
	RoleOwner  Role = "OWNER"
)

const (
	ActionRead            Action = "read"
	ActionWrite           Action = "write"
	ActionShare           Action = "share"
	ActionManageMembers   Action = "manage-members"
	ActionDeleteWorkspace Action = "delete-workspace"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return true
	case RoleAdmin:
		return action != ActionDeleteWorkspace
	case RoleMember:
		return action == ActionRead || action == ActionWrite || action == ActionShare
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// Normalize maps a server role string onto a Role. Unknown roles get the
// least privilege.
func Normalize(role string) Role {
	switch r := Role(strings.ToUpper(strings.TrimSpace(role))); r {
	case RoleViewer, RoleMember, RoleAdmin, RoleOwner:
		return r
	default:
		return RoleViewer
	}
}

// ForShare maps a page share permission (VIEW or EDIT) onto a role.
func ForShare(permission string) Role {
	if strings.EqualFold(strings.TrimSpace(permission), "EDIT") {
		return RoleMember
	}
	return RoleViewer
}

// ReadOnly reports whether an editor opened with this role must reject
// mutations.
func ReadOnly(role Role) bool {
	return !Can(role, ActionWrite)
}
