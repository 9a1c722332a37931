package auth

import "errors"

// Token errors. Format and signature failures map to UNAUTHENTICATED so a
// caller cannot tell a forged MAC from an unknown key.
var (
	ErrMissingSignature   = errors.New("configuration token must be signed")
	ErrInvalidTokenFormat = errors.New("invalid signed token format")
	ErrUnknownKey         = errors.New("unknown secret ID")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrNoSigningKey       = errors.New("no signing secret configured")
)
