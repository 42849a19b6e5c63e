package types

import "time"

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address. Unique across accounts.
	Email string `json:"email" db:"email"`

	// FullName is the user's display or full name.
	FullName string `json:"full_name" db:"full_name"`

	// IsAdmin indicates whether the user may perform administrative
	// operations (catalog deletes, user-data resets, user listing).
	IsAdmin bool `json:"is_admin" db:"is_admin"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// LastLogin is the timestamp of the most recent successful
	// authentication. Nil until the user logs in for the first time.
	LastLogin *time.Time `json:"last_login,omitempty" db:"last_login"`
}
