package model

import "time"

// LocalUser is an on-device account record. It backs two things the remote
// backend never sees: guest identities, and password accounts created in
// local-only mode (or cached by the remote-with-local-fallback mode).
type LocalUser struct {
	ID           string    `json:"id"           db:"id"`
	Email        string    `json:"email"        db:"email"`
	Name         string    `json:"name"         db:"name"`
	PasswordHash string    `json:"-"            db:"password_hash"` // bcrypt; empty for guests
	IsGuest      bool      `json:"isGuest"      db:"is_guest"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}
