package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Principals() PrincipalStore
	Tokens() Ledger
}

// PrincipalStore is the credential store.
type PrincipalStore interface {
	Create(ctx context.Context, p *Principal) error
	Find(ctx context.Context, id int64) (*Principal, error)
	FindByName(ctx context.Context, name string) (*Principal, error)
}

// Ledger persists issued tokens and their revocation status.
type Ledger interface {
	// Insert stores rec as active and fills in its ID and IssuedAt.
	Insert(ctx context.Context, rec *TokenRecord) error
	// IsActive is false when no row exists or the row is inactive.
	IsActive(ctx context.Context, token string) (bool, error)
	// Revoke flips the token to inactive. Absent or inactive tokens are a no-op.
	Revoke(ctx context.Context, token string) error
}
