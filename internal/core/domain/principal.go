package domain

import "time"

// Principal is the caller identity established from a verified bearer token.
type Principal struct {
	Subject string
	Email   string
	Roles   []string
}

type Session struct {
	ID        string
	TokenHash string
	UserID    string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
