// Package domain defines the data models shared by the API services and
// the store.
package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrCodeUsed       = errors.New("access code already used")
	ErrSessionExpired = errors.New("session invalid or expired")
)

// Access code types.
const (
	CodeOneTime   = "one_time"
	CodePermanent = "permanent"
)

// AccessCode is a login credential handed out per campaign or per user.
// One-time codes are burned on first login; permanent codes never expire.
type AccessCode struct {
	Code        string     `json:"code"`
	Type        string     `json:"type"`
	IsUsed      bool       `json:"is_used"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}

// Session is one authenticated client session.
type Session struct {
	ID           string    `json:"session_id"`
	AccessCode   string    `json:"access_code"`
	CodeType     string    `json:"code_type"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	IsActive     bool      `json:"is_active"`
}

// ChatLog is one user/assistant exchange, recorded for the admin console.
type ChatLog struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	AccessCode  string    `json:"access_code"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Brand       string    `json:"brand"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
