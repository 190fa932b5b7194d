package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a widget visitor captured at session start.
// Identity fields are immutable after creation.
type User struct {
	ID    int64     `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
	Token uuid.UUID `json:"token" db:"token"` // Opaque identifier handed to the widget
}

// Session represents one end-to-end conversation between a user and the
// assistant. Messages are append-only; order is conversational turn order.
type Session struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Messages     []Message `json:"messages" db:"messages"` // Stored as a JSONB array in the postgres backend
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
	// Delivered transitions at most once from false to true when the
	// transcript is handed off to the CRM. Never reset.
	Delivered bool `json:"delivered" db:"delivered"`
}

// Message roles. Exactly one of these per message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversational turn. Immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// BusinessRecord is one row of the external directory. Field names follow the
// upstream sheet columns, which is also the JSON shape the directory API
// returns.
type BusinessRecord struct {
	CompanyName     string `json:"Company Name"`
	PrimaryServices string `json:"Primary Services"`
	Category1       string `json:"Category 1"`
	Category2       string `json:"Category 2"`
	Category3       string `json:"Category 3"`
	Phone           string `json:"Phone Number"`
	Email           string `json:"Email"`
	Website         string `json:"Website"`
	CompanyOverview string `json:"Company Overview"`
}

// Categories returns the record's non-empty category labels.
func (b BusinessRecord) Categories() []string {
	cats := make([]string, 0, 3)
	for _, c := range []string{b.Category1, b.Category2, b.Category3} {
		if c != "" {
			cats = append(cats, c)
		}
	}
	return cats
}

// BusinessMatch is the per-query, conversation-facing view of a directory
// record. It is derived when a query matches and never persisted outside the
// session transcript.
type BusinessMatch struct {
	Name            string   `json:"name"`
	PrimaryServices string   `json:"primaryServices"`
	Categories      []string `json:"categories"`
	Phone           string   `json:"phone"`
	Email           string   `json:"email"`
	Website         string   `json:"website"`
}

// MatchFromRecord shapes a directory record into its conversation-facing view.
func MatchFromRecord(rec BusinessRecord) BusinessMatch {
	return BusinessMatch{
		Name:            rec.CompanyName,
		PrimaryServices: rec.PrimaryServices,
		Categories:      rec.Categories(),
		Phone:           rec.Phone,
		Email:           rec.Email,
		Website:         rec.Website,
	}
}
