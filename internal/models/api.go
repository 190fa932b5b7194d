package models

import "time"

// --- Request Structs ---

// StartSessionRequest defines the expected body for the session start endpoint.
type StartSessionRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SendMessageRequest defines the expected body for the message endpoint.
type SendMessageRequest struct {
	SessionID int64  `json:"sessionId"`
	Message   string `json:"message"`
}

// --- Response Structs ---

// StartSessionResponse is returned after a user and session are created.
type StartSessionResponse struct {
	SessionID int64 `json:"sessionId"`
	UserID    int64 `json:"userId"`
}

// SendMessageResponse carries the assistant reply for one turn.
// Business is populated only when the directory produced exactly one match.
type SendMessageResponse struct {
	Message         string         `json:"message"`
	Business        *BusinessMatch `json:"business,omitempty"`
	MultipleMatches bool           `json:"multipleMatches"`
	MatchCount      int            `json:"matchCount"`
	IsClosing       bool           `json:"isClosing"`
}

// SessionResponse is the full session view returned by GET /api/session/{id}.
type SessionResponse struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	Delivered    bool      `json:"delivered"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
