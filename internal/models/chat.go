package models

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one the engine understands.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// ChatMessage is a single conversation turn as sent to the assistant service.
// The system prompt travels as a ChatMessage but is never persisted.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatLogEntry is a persisted conversation turn. Only user and assistant
// turns are written to the log; Timestamp is zero when the source format
// carried none.
type ChatLogEntry struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Message converts a log entry back into its wire form.
func (e ChatLogEntry) Message() ChatMessage {
	return ChatMessage{Role: e.Role, Content: e.Content}
}
