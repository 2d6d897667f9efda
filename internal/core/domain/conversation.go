package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one append-only chat turn; insertion order (the
// auto-assigned id) is the only sequencing guarantee.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session identifies a conversation; it exists only for audit and
// history attribution.
type Session struct {
	ID       string    `json:"session_id"`
	LastTime time.Time `json:"last_time"`
}
