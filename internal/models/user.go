package models

import "time"

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSession is the server-side session record kept in Redis alongside
// the JWT. The token alone authenticates; the session record lets us
// revoke on logout and track activity.
type UserSession struct {
	UserID       int64     `json:"user_id"`
	SessionID    string    `json:"session_id"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}
