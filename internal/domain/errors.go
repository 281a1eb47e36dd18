package domain

import "errors"

var (
	// ErrUnknownMethod marks a request method outside the fixed, validated
	// set. Should be unreachable; callers must fail closed (deny) on it.
	ErrUnknownMethod = errors.New("unknown http method")

	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingClaims = errors.New("missing claims")
)
