// Package model defines the data structures shared by the backend API and the
// client session layer.
package model

import "time"

// User represents a registered account.
//
// Email is the lookup key: the backend enforces uniqueness on it and every
// route addresses a user by it (GET /api/users/{email}). ID is an internal
// xid the backend assigns on create; clients never look users up by it.
//
// WHY PasswordHash AND NOT Password?
// The plaintext never leaves the device. The client hashes with bcrypt before
// calling POST /api/users and compares against this field on login, so the
// backend only ever stores and returns the hash.
type User struct {
	ID           string     `json:"id,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	Name         string     `json:"name"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// UserPatch is the body of PUT /api/users/{email}. Nil fields are left as-is.
type UserPatch struct {
	Name         *string `json:"name,omitempty"`
	PasswordHash *string `json:"passwordHash,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.PasswordHash == nil
}
