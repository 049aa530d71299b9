package chat

import "time"

// Message types stored in chat_messages.message_type.
const (
	MessageTypeUser = "user"
	MessageTypeBot  = "bot"
)

// Session is one chat thread attached to a document. A document has at
// most one live session; repeated chats reuse it.
type Session struct {
	ID         string
	DocumentID string
	UserID     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Message is a single chat turn inside a session.
type Message struct {
	ID          string
	SessionID   string
	MessageType string
	Content     string
	Timestamp   time.Time
}

// FilledField reports a document field set from mined chat values.
type FilledField struct {
	ID      string `json:"id"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
}
