package api

import "errors"

// Sentinel errors for auth and request failures.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSignInFailed     = errors.New("sign-in failed")
	ErrRefreshFailed    = errors.New("session refresh failed")
	ErrRequestFailed    = errors.New("request failed")
)
