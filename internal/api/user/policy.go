package user

import (
	"fmt"

	"github.com/FACorreiaa/go-user-directory/internal/types"
)

// Operation enumerates the directory actions gated by role.
type Operation string

const (
	OpList         Operation = "list"
	OpCreate       Operation = "create"
	OpUpdate       Operation = "update"
	OpDelete       Operation = "delete"
	OpUpdateStatus Operation = "update_status"
)

// allowedRoles maps each operation to the roles permitted to perform it.
// Update and Delete stay SuperAdmin-only; everything else extends to Admin.
var allowedRoles = map[Operation]map[types.Role]struct{}{
	OpList:         {types.RoleAdmin: {}, types.RoleSuperAdmin: {}},
	OpCreate:       {types.RoleAdmin: {}, types.RoleSuperAdmin: {}},
	OpUpdate:       {types.RoleSuperAdmin: {}},
	OpDelete:       {types.RoleSuperAdmin: {}},
	OpUpdateStatus: {types.RoleAdmin: {}, types.RoleSuperAdmin: {}},
}

// Authorize checks the requester's current role against the operation.
func Authorize(role types.Role, op Operation) error {
	roles, ok := allowedRoles[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", types.ErrForbidden, op)
	}
	if _, ok := roles[role]; !ok {
		return fmt.Errorf("%w: role %s may not %s users", types.ErrForbidden, role, op)
	}
	return nil
}
