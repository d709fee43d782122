package custom_err

import "errors"

var (
	// Store errors
	ErrNotFound             = errors.New("resource not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// Input errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrMalformedTimestamp = errors.New("malformed or missing timestamp")

	// Observer auth errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenNotActive = errors.New("token not active yet")
)
