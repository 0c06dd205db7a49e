// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the primary keys of the platform.

Identifiers are UUIDv7: ordered by creation time (millisecond precision), so
new accounts append to the B-tree index of users.account instead of
fragmenting it.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string. Entropy failure is unrecoverable.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}
	return id.String()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
