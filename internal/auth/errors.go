package auth

import (
	"errors"

	"invizible.art/internal/apperr"
)

var (
	ErrNotFound = errors.New("auth: not found")

	// ErrInvalidCredentials never reveals whether the name or the password was wrong.
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthenticated, "invalid name or password")
	ErrUnauthenticated    = apperr.New(apperr.KindUnauthenticated, "you are not logged in")

	// Codec failure taxonomy. Callers outside the package only ever see "no identity".
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrDecryptionFailed = errors.New("auth: token decryption failed")
	ErrTokenExpired     = errors.New("auth: token expired")
)
