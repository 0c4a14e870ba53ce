package auth

import "errors"

var (
	// ErrInvalidToken covers bad signatures, malformed claims and tokens
	// without a subject.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned once the clock passes the token expiry.
	ErrExpiredToken = errors.New("token expired")

	// ErrUnauthenticated is the single outward failure of the authentication
	// gate, whatever step failed.
	ErrUnauthenticated = errors.New("could not validate credentials")

	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
)
