package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repo used when no database is configured
// and in tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session   // session ID -> row
	messages map[string][]Message // session ID -> ordered messages
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		sessions: make(map[string]Session),
		messages: make(map[string][]Message),
	}
}

// GetOrCreateSession returns the document's newest session, creating one
// when the document has none yet.
func (r *MemoryRepo) GetOrCreateSession(ctx context.Context, documentID, userID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.latestByDocument(documentID); ok {
		return session, nil
	}
	now := time.Now().UTC()
	session := Session{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.sessions[session.ID] = session
	return session, nil
}

// GetSessionByDocument returns the document's newest session.
func (r *MemoryRepo) GetSessionByDocument(ctx context.Context, documentID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.latestByDocument(documentID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// GetSession returns a session by ID.
func (r *MemoryRepo) GetSession(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// TouchSession bumps updated_at.
func (r *MemoryRepo) TouchSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.UpdatedAt = time.Now().UTC()
	r.sessions[id] = session
	return nil
}

// AddMessage appends a message.
func (r *MemoryRepo) AddMessage(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.SessionID] = append(r.messages[msg.SessionID], msg)
	return nil
}

// ListMessages returns a session's messages oldest-first.
func (r *MemoryRepo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyMessages(sessionID), nil
}

// ListSessions pages sessions newest-first.
func (r *MemoryRepo) ListSessions(ctx context.Context, limit, offset int) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, session)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return pageSessions(out, limit, offset), nil
}

// ListAllMessages pages messages across sessions, oldest-first like the
// per-session listing.
func (r *MemoryRepo) ListAllMessages(ctx context.Context, filter MessageFilter) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Message
	for _, msgs := range r.messages {
		for _, msg := range msgs {
			if matchesMessageFilter(msg, filter) {
				out = append(out, msg)
			}
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return pageMessages(out, filter.Limit, filter.Offset), nil
}

// CountMessages counts one session's messages.
func (r *MemoryRepo) CountMessages(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages[sessionID]), nil
}

// CountSessions counts all sessions.
func (r *MemoryRepo) CountSessions(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}

// CountAllMessages counts all messages.
func (r *MemoryRepo) CountAllMessages(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, msgs := range r.messages {
		count += len(msgs)
	}
	return count, nil
}

// DeleteByDocument removes the document's sessions and their messages.
func (r *MemoryRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.DocumentID == documentID {
			delete(r.sessions, id)
			delete(r.messages, id)
		}
	}
	return nil
}

// DeleteSession removes one session and its messages.
func (r *MemoryRepo) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	delete(r.messages, id)
	return nil
}

// latestByDocument scans for the newest session; callers hold the lock.
func (r *MemoryRepo) latestByDocument(documentID string) (Session, bool) {
	var latest Session
	found := false
	for _, session := range r.sessions {
		if session.DocumentID != documentID {
			continue
		}
		if !found || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
			found = true
		}
	}
	return latest, found
}

// copyMessages returns a sorted copy; callers hold at least a read lock.
func (r *MemoryRepo) copyMessages(sessionID string) []Message {
	stored := r.messages[sessionID]
	out := make([]Message, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func matchesMessageFilter(msg Message, filter MessageFilter) bool {
	if filter.SessionID != "" && msg.SessionID != filter.SessionID {
		return false
	}
	if filter.MessageType != "" && msg.MessageType != filter.MessageType {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(msg.Content), needle) {
			return false
		}
	}
	return true
}

func pageSessions(in []Session, limit, offset int) []Session {
	limit, offset = normalizePage(limit, offset)
	if offset >= len(in) {
		return []Session{}
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}

func pageMessages(in []Message, limit, offset int) []Message {
	limit, offset = normalizePage(limit, offset)
	if offset >= len(in) {
		return []Message{}
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ Repo = (*MemoryRepo)(nil)
