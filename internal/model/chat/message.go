package chat

import "time"

// Role identifies which side of a conversation wrote a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn persists one side of an exchange. Turns are append-only.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"type"`
	Content   string    `json:"content"`
	Provider  string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}
