package services

import (
	"errors"

	"github.com/postboard/apiserver/internal/auth"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown username and
	// for a wrong password alike. It wraps auth.ErrForbidden.
	ErrInvalidCredentials = &credentialsError{}

	// ErrInvalidInput marks caller mistakes that are not tied to a field schema,
	// such as an unparsable search pattern.
	ErrInvalidInput = errors.New("invalid input")
)

type credentialsError struct{}

func (*credentialsError) Error() string { return "Invalid Credentials" }

func (*credentialsError) Unwrap() error { return auth.ErrForbidden }
