package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLRepo implements Repo on database/sql with $1..$n placeholders, which
// both the pgx stdlib driver and modernc sqlite accept.
type SQLRepo struct {
	DB *sql.DB
}

const sessionColumns = `id, document_id, user_id, created_at, updated_at`

const messageColumns = `id, session_id, message_type, content, timestamp`

// GetOrCreateSession returns the document's newest session, creating one
// when the document has none yet.
func (r *SQLRepo) GetOrCreateSession(ctx context.Context, documentID, userID string) (Session, error) {
	session, err := r.GetSessionByDocument(ctx, documentID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return Session{}, err
	}

	now := time.Now().UTC()
	session = Session{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	const query = `
INSERT INTO chat_sessions (id, document_id, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.DB.ExecContext(ctx, query, session.ID, session.DocumentID, nullableUser(session.UserID), session.CreatedAt, session.UpdatedAt); err != nil {
		return Session{}, err
	}
	return session, nil
}

// GetSessionByDocument returns the document's newest session.
func (r *SQLRepo) GetSessionByDocument(ctx context.Context, documentID string) (Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE document_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return scanSessionRow(r.DB.QueryRowContext(ctx, query, documentID))
}

// GetSession returns a session by ID.
func (r *SQLRepo) GetSession(ctx context.Context, id string) (Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE id = $1
LIMIT 1`
	return scanSessionRow(r.DB.QueryRowContext(ctx, query, id))
}

// TouchSession bumps updated_at.
func (r *SQLRepo) TouchSession(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AddMessage appends a message.
func (r *SQLRepo) AddMessage(ctx context.Context, msg Message) error {
	const query = `
INSERT INTO chat_messages (id, session_id, message_type, content, timestamp)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query, msg.ID, msg.SessionID, msg.MessageType, msg.Content, msg.Timestamp)
	return err
}

// ListMessages returns a session's messages oldest-first.
func (r *SQLRepo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	const query = `
SELECT ` + messageColumns + `
FROM chat_messages
WHERE session_id = $1
ORDER BY timestamp, id`
	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// ListSessions pages sessions newest-first.
func (r *SQLRepo) ListSessions(ctx context.Context, limit, offset int) ([]Session, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + sessionColumns + `
FROM chat_sessions
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// ListAllMessages pages messages across sessions, oldest-first like the
// per-session listing.
func (r *SQLRepo) ListAllMessages(ctx context.Context, filter MessageFilter) ([]Message, error) {
	var clauses []string
	var args []any
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		clauses = append(clauses, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.MessageType != "" {
		args = append(args, filter.MessageType)
		clauses = append(clauses, fmt.Sprintf("message_type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(content) LIKE $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = `
WHERE ` + strings.Join(clauses, " AND ")
	}

	limit := clampLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + messageColumns + `
FROM chat_messages` + where + fmt.Sprintf(`
ORDER BY timestamp, id
LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// CountMessages counts one session's messages.
func (r *SQLRepo) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages WHERE session_id = $1`, sessionID).Scan(&count)
	return count, err
}

// CountSessions counts all sessions.
func (r *SQLRepo) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&count)
	return count, err
}

// CountAllMessages counts all messages.
func (r *SQLRepo) CountAllMessages(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&count)
	return count, err
}

// DeleteByDocument removes the document's sessions; messages cascade.
func (r *SQLRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM chat_sessions WHERE document_id = $1`, documentID)
	return err
}

// DeleteSession removes one session; messages cascade.
func (r *SQLRepo) DeleteSession(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionRow(row rowScanner) (Session, error) {
	var session Session
	var userID sql.NullString
	if err := row.Scan(&session.ID, &session.DocumentID, &userID, &session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	session.UserID = userID.String
	return session, nil
}

func collectMessages(rows *sql.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.MessageType, &msg.Content, &msg.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func nullableUser(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

var _ Repo = (*SQLRepo)(nil)
