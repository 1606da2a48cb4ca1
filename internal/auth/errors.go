package auth

import "errors"

// ErrInvalidCredentials is returned for any failed login. It never says
// which half of the credential pair was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUnauthorized is returned for a missing, malformed, expired or revoked token
var ErrUnauthorized = errors.New("unauthorized")

// ErrEmptyPassword is returned when hashing an empty credential
var ErrEmptyPassword = errors.New("password must not be empty")
