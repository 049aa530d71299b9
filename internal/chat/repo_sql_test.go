package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*SQLRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &SQLRepo{DB: db}, mock
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "document_id", "user_id", "created_at", "updated_at"})
}

func messageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "session_id", "message_type", "content", "timestamp"})
}

func TestSQLRepoGetOrCreateSessionReusesNewest(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM chat_sessions").
		WithArgs("doc-1").
		WillReturnRows(sessionRows().AddRow("session-1", "doc-1", nil, now, now))

	session, err := repo.GetOrCreateSession(context.Background(), "doc-1", "guest:g")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if session.ID != "session-1" || session.DocumentID != "doc-1" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.UserID != "" {
		t.Fatalf("null user_id should scan empty, got %q", session.UserID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLRepoGetOrCreateSessionInsertsWhenMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM chat_sessions").
		WithArgs("doc-1").
		WillReturnRows(sessionRows())
	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs(sqlmock.AnyArg(), "doc-1", "guest:g", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := repo.GetOrCreateSession(context.Background(), "doc-1", "guest:g")
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	if session.ID == "" || session.DocumentID != "doc-1" || session.UserID != "guest:g" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLRepoTouchSessionMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE chat_sessions").
		WithArgs(sqlmock.AnyArg(), "session-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.TouchSession(context.Background(), "session-9"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSQLRepoAddMessage(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs("msg-1", "session-1", MessageTypeUser, "hello", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AddMessage(context.Background(), Message{
		ID:          "msg-1",
		SessionID:   "session-1",
		MessageType: MessageTypeUser,
		Content:     "hello",
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLRepoListMessages(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM chat_messages").
		WithArgs("session-1").
		WillReturnRows(messageRows().
			AddRow("msg-1", "session-1", MessageTypeUser, "hello", now).
			AddRow("msg-2", "session-1", MessageTypeBot, "hi there", now.Add(time.Second)))

	messages, err := repo.ListMessages(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].ID != "msg-1" || messages[0].MessageType != MessageTypeUser {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Content != "hi there" {
		t.Fatalf("unexpected second message: %+v", messages[1])
	}
}

func TestSQLRepoListAllMessagesFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM chat_messages").
		WithArgs(MessageTypeBot, "%error%", 25, 0).
		WillReturnRows(messageRows())

	_, err := repo.ListAllMessages(context.Background(), MessageFilter{
		MessageType: MessageTypeBot,
		Search:      "Error",
		Limit:       25,
	})
	if err != nil {
		t.Fatalf("ListAllMessages: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLRepoDeleteSessionMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM chat_sessions").
		WithArgs("session-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteSession(context.Background(), "session-9"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSQLRepoDeleteByDocumentIdempotent(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM chat_sessions").
		WithArgs("doc-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Deleting sessions for a document without any is not an error.
	if err := repo.DeleteByDocument(context.Background(), "doc-9"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
}
