package domain

import "time"

// SessionToken is the server-side record binding an issued token to its
// owner. The row is the revocation ledger: a token that verifies
// cryptographically but has no live row here does not authorize.
type SessionToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
