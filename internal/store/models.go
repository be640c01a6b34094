package store

import (
	"strings"
	"time"
)

type User struct {
	ID              string
	Email           string
	DisplayName     string
	Handle          string
	RealName        string
	PasswordHash    string
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Label returns the name shown next to the user's messages: explicit
// display name first, then handle, then real name.
func (u User) Label() string {
	for _, candidate := range []string{u.DisplayName, u.Handle, u.RealName} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

// Message is one guestbook entry. A non-nil ReplyToID marks it as a
// reply to an existing message. Messages are never updated or deleted.
type Message struct {
	ID          string
	AuthorID    string
	AuthorLabel string
	Body        string
	ReplyToID   *string
	CreatedAt   time.Time
}

type VerificationCode struct {
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
