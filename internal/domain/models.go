// Package domain defines the persistence models for user profiles, chat
// sessions, and messages. These types are mapped with GORM and form the core
// data layer of the tutoring application; the analytics pipeline reads them
// as immutable snapshots and never mutates them.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Roles a registered user can hold. Profiles whose owner cannot be resolved
// during analytics ingestion are reported under RoleUnknown.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
	RoleTester  = "tester"
	RoleUnknown = "unknown"
)

// Dialogue modes a chat session can run in. Socratic sessions answer with
// guiding questions; Direct sessions answer with the material itself.
const (
	ModeSocratic = "Socratic"
	ModeDirect   = "Direct"
)

// Message speakers.
const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

// Feedback rating values attached to assistant messages.
const (
	RatingNegative = 0
	RatingPositive = 1
)

// UserProfile represents a registered account. Profiles are written by the
// (excluded) auth layer and read here for role gating and analytics.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Role: one of student, admin, tester, unknown.
//   - RegisteredAt: account creation time, stored in UTC.
type UserProfile struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Role         string    `json:"role"          gorm:"type:varchar(16);not null;default:'student';check:role IN ('student','admin','tester','unknown')"`
	RegisteredAt time.Time `json:"registered_at" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "user_profiles" }

// ChatSession represents one conversation owned by a user, pinned to a
// dialogue mode for its whole lifetime.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identifier of the session owner; indexed for retrieval.
//   - Mode: Socratic or Direct (enforced by DB constraint).
//   - Title: human-readable title (auto-generated from the first prompt).
//   - StartedAt: session start time, stored in UTC.
//   - DeletedAt: soft deletion marker (retains rows for analytics history).
type ChatSession struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_sessions"`
	Mode      string         `json:"mode"       gorm:"type:varchar(16);not null;check:mode IN ('Socratic','Direct')"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null;default:'New session'"`
	StartedAt time.Time      `json:"started_at" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// Message represents a single utterance within a session, authored either by
// the "user" or the "assistant". Feedback lives inline on the message row:
// assistant messages may carry a binary rating (0 negative, 1 positive) and
// an optional free-text comment. The service layer guarantees feedback
// columns are only ever set on assistant rows.
type Message struct {
	ID             string         `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID      string         `json:"session_id" gorm:"type:char(36);not null;index:idx_session_msgs,priority:1"`
	Speaker        string         `json:"speaker"    gorm:"type:varchar(16);not null;check:speaker IN ('user','assistant')"`
	Body           string         `json:"body"       gorm:"type:text;not null"`
	FeedbackRating *int           `json:"feedback_rating,omitempty" gorm:"check:feedback_rating IN (0,1)"`
	FeedbackText   *string        `json:"feedback_text,omitempty"   gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index:idx_session_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"          gorm:"index"`

	// Session is the parent conversation. Messages are cascade-deleted
	// if their session is removed.
	Session ChatSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// HasFeedback reports whether the message carries a rating.
func (m Message) HasFeedback() bool { return m.FeedbackRating != nil }

// ValidRole reports whether r is one of the known profile roles.
func ValidRole(r string) bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleTester, RoleUnknown:
		return true
	}
	return false
}

// ValidMode reports whether m is a known dialogue mode.
func ValidMode(m string) bool { return m == ModeSocratic || m == ModeDirect }
