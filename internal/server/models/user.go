// Package models holds the server-side domain records.
package models

import "time"

// User is the persisted user record. PasswordHash is the opaque string
// produced by the password hasher; the plaintext is never stored.
type User struct {
	ID           string    `json:"id"`
	UserName     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	FullName     *string   `json:"fullName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the view of a User that may leave the server.
type PublicUser struct {
	ID        string    `json:"id"`
	UserName  string    `json:"username"`
	FullName  *string   `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips secret fields.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		UserName:  u.UserName,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}
