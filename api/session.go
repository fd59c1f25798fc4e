// Package api implements the collaborators the container wires around the
// core: the hosted auth provider and the backend HTTP client with response
// caching and in-flight request deduplication.
package api

import (
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated session against the hosted backend.
type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the session's access token is still usable at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// User is the authenticated account.
type User struct {
	ID    string
	Email string
}

func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}
