package auth

import "time"

// Principal is an identity that can log in. Provisioned out of band.
type Principal struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}

// Sanitized returns a copy with the credential hash stripped.
func (p Principal) Sanitized() Principal {
	p.PasswordHash = ""
	return p
}

// TokenStatus is the ledger state of an issued token. It moves active -> inactive once.
type TokenStatus string

const (
	TokenActive   TokenStatus = "active"
	TokenInactive TokenStatus = "inactive"
)

// TokenRecord is one row of the token ledger.
type TokenRecord struct {
	ID          int64
	Token       string
	PrincipalID int64
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Status      TokenStatus
	// ClientDescriptor is the user agent that logged in, if known.
	ClientDescriptor string
}
