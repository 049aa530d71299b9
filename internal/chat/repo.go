package chat

import "context"

// MessageFilter narrows message listings for the operator API.
type MessageFilter struct {
	SessionID   string
	MessageType string
	Search      string
	Limit       int
	Offset      int
}

// Repo persists chat sessions and messages.
type Repo interface {
	// GetOrCreateSession returns the document's session, creating it on
	// first use.
	GetOrCreateSession(ctx context.Context, documentID, userID string) (Session, error)
	// GetSessionByDocument returns the document's session or
	// ErrSessionNotFound.
	GetSessionByDocument(ctx context.Context, documentID string) (Session, error)
	// GetSession returns a session by its own ID.
	GetSession(ctx context.Context, id string) (Session, error)
	// TouchSession bumps updated_at.
	TouchSession(ctx context.Context, id string) error
	// AddMessage appends a message to a session.
	AddMessage(ctx context.Context, msg Message) error
	// ListMessages returns a session's messages oldest-first.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
	// ListSessions pages through all sessions, newest-first.
	ListSessions(ctx context.Context, limit, offset int) ([]Session, error)
	// ListAllMessages pages messages across sessions for the operator API.
	ListAllMessages(ctx context.Context, filter MessageFilter) ([]Message, error)
	// CountMessages counts one session's messages.
	CountMessages(ctx context.Context, sessionID string) (int, error)
	// CountSessions and CountAllMessages feed operator stats.
	CountSessions(ctx context.Context) (int, error)
	CountAllMessages(ctx context.Context) (int, error)
	// DeleteByDocument removes the document's sessions and their messages.
	DeleteByDocument(ctx context.Context, documentID string) error
	// DeleteSession removes one session and its messages.
	DeleteSession(ctx context.Context, id string) error
}
