// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "slices"

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Full access to users and tasks
	RoleAdmin UserRole = "ADMIN"

	// Can read users and manage every task
	RoleManager UserRole = "MANAGER"

	// Default role for registered accounts
	RoleUser UserRole = "USER"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

// In reports whether r is a member of roles.
func (r UserRole) In(roles ...UserRole) bool {
	return slices.Contains(roles, r)
}

// # Permissions

const (
	PermUsersRead     = "users:read"
	PermUsersWrite    = "users:write"
	PermTasksRead     = "tasks:read"
	PermTasksWrite    = "tasks:write"
	PermTasksWriteOwn = "tasks:write:own"
)

// rolePermissions is the static role to permission table. The order of each
// slice is the order cached and exposed on the identity.
var rolePermissions = map[UserRole][]string{
	RoleAdmin:   {PermUsersRead, PermUsersWrite, PermTasksRead, PermTasksWrite},
	RoleManager: {PermUsersRead, PermTasksRead, PermTasksWrite},
	RoleUser:    {PermTasksRead, PermTasksWriteOwn},
}

// PermissionsFor derives the permission set of a role. Unknown roles get none.
// The returned slice is a copy and may be modified by the caller.
func PermissionsFor(role UserRole) []string {
	return slices.Clone(rolePermissions[role])
}
