package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrBadRequest = errors.New("bad request")

	// Authentication gate errors
	ErrInvalidCSRFToken   = errors.New("invalid csrf token")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrIPBlacklisted      = errors.New("ip address is blacklisted")
	ErrNotAuthenticated   = errors.New("not authenticated")
)
