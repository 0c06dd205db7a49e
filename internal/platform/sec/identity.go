// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "slices"

// Identity is the resolved caller attached to the request context once every
// authorization check has passed.
type Identity struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
	Permissions []string `json:"permissions"`
	SessionID   string   `json:"sessionId"`
}

// Can reports whether the identity holds permission.
func (i *Identity) Can(permission string) bool {
	return i != nil && slices.Contains(i.Permissions, permission)
}
