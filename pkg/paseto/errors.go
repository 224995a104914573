package pasetotoken

import "errors"

var (
	// ErrConfig reports missing or mismatched keys and settings.
	ErrConfig = errors.New("paseto: invalid config")
	// ErrInvalidToken covers bad signatures, expiry and claim mismatches.
	ErrInvalidToken = errors.New("paseto: invalid token")
)
