package model

import (
	"net/url"
	"strings"
	"time"
)

// User is an account that can log in, submit review requests and review them.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string // Empty means the password is unusable (externally managed).
	IsActive     bool
	IsStaff      bool
	DateJoined   time.Time
}

// FullName returns "First Last", trimmed. Empty when neither part is set.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName returns the full name when available, else the username.
func (u User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}

// AbsoluteURL returns the path of the user's page.
func (u User) AbsoluteURL() string {
	return "/users/" + url.PathEscape(u.Username) + "/"
}

// Profile holds per-user preferences shown on the My Account page.
type Profile struct {
	UserID             int64
	Timezone           string
	SyntaxHighlighting bool
	OpenAnIssue        bool
	IsPrivate          bool
}

// DefaultProfile returns the profile used for users that never saved one.
func DefaultProfile(userID int64) Profile {
	return Profile{
		UserID:             userID,
		Timezone:           "UTC",
		SyntaxHighlighting: true,
		OpenAnIssue:        true,
	}
}

// Session binds a random token to a logged-in user.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
