// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered learner account.
//
// A user signs up either with email and password or through an external
// OAuth provider (GitHub or Google). Provider and UID record the identity
// the account was created with; the full set of linked identities lives in
// UserProvider rows.
//
// WHY PasswordHash HAS json:"-"?
// The hash must never leave the server. The dash tag makes encoding/json
// skip the field entirely, so returning a *User from a handler is safe.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Email        string    `json:"email"        db:"email"`    // unique, stored lower-case
	Username     string    `json:"username"     db:"username"` // 2..100 characters
	LearningGoal string    `json:"learningGoal" db:"learning_goal"`
	TrackID      string    `json:"trackId"      db:"track_id"` // the one track the user is enrolled in
	PasswordHash string    `json:"-"            db:"password_hash"`
	Provider     string    `json:"provider"     db:"provider"` // e.g. "github"; empty for password accounts
	UID          string    `json:"-"            db:"uid"`      // the provider's user ID
	AvatarURL    string    `json:"avatarUrl"    db:"avatar_url"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// PasswordRequired reports whether password authentication applies to this
// user. Accounts linked to an external identity provider sign in through
// that provider and never need a password.
func (u *User) PasswordRequired() bool {
	return u.Provider == ""
}

// UserProvider links a User to an external OAuth identity.
// Rows are removed together with their user.
type UserProvider struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Provider  string    `json:"provider"  db:"provider"`
	UID       string    `json:"uid"       db:"uid"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ProjectSubmission is a learner's solution to a project lesson.
// Rows are removed together with their user.
type ProjectSubmission struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	LessonID  string    `json:"lessonId"  db:"lesson_id"`
	RepoURL   string    `json:"repoUrl"   db:"repo_url"`
	LiveURL   string    `json:"liveUrl"   db:"live_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
