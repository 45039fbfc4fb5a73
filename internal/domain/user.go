package domain

import (
	"time"
)

// User represents a registered account as stored in the user registry.
type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	EmailVerified      bool       `json:"email_verified"`
	SessionsValidAfter *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Identity is the authenticated principal attached to a request. It never
// carries credential secrets.
type Identity struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	EmailVerified      bool       `json:"email_verified"`
	SessionsValidAfter *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Identity projects the user onto its public identity.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:                 u.ID,
		Username:           u.Username,
		Email:              u.Email,
		Role:               u.Role,
		EmailVerified:      u.EmailVerified,
		SessionsValidAfter: u.SessionsValidAfter,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// SessionStillValid reports whether a credential issued at issuedAt survives
// the identity's logout-all watermark.
func (i *Identity) SessionStillValid(issuedAt time.Time) bool {
	if i.SessionsValidAfter == nil {
		return true
	}
	return issuedAt.After(*i.SessionsValidAfter)
}

// Claims is the decoded content of a bearer credential.
type Claims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is a freshly issued credential returned to the client.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *Identity `json:"user"`
}
