package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"autofill-backend/internal/admin"
	"autofill-backend/internal/chat"
	"autofill-backend/internal/documents"
	"autofill-backend/internal/shared/storage/object/local"
)

type fixture struct {
	router   *gin.Engine
	docs     *documents.MemoryRepo
	sessions *chat.MemoryRepo
}

func newFixture(t *testing.T, key string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docRepo := documents.NewMemoryRepo()
	chatRepo := chat.NewMemoryRepo()
	svc := &documents.Service{
		Repo:     docRepo,
		Store:    local.New(t.TempDir()),
		Sessions: chatRepo,
	}

	router := gin.New()
	group := router.Group("/admin", admin.RequireKey(key))
	admin.NewHandler(svc, docRepo, chatRepo).RegisterRoutes(group)

	return &fixture{router: router, docs: docRepo, sessions: chatRepo}
}

func (f *fixture) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedDocument(t *testing.T, filename, status string) documents.Document {
	t.Helper()
	doc := documents.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		FileKey:    "uploads/u/" + filename,
		UploadedAt: time.Now().UTC(),
		Status:     status,
		UserID:     "guest:tester",
	}
	if err := f.docs.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRequireKey(t *testing.T) {
	f := newFixture(t, "op-secret")

	if rec := f.do(t, http.MethodGet, "/admin/stats", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: got %d, want 401", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/admin/stats", "wrong", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: got %d, want 401", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/admin/stats", "op-secret", nil); rec.Code != http.StatusOK {
		t.Fatalf("valid key: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestRequireKeyDisabled(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/admin/stats", "anything", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
	body := decode(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "admin_disabled" {
		t.Fatalf("got code %v, want admin_disabled", errObj["code"])
	}
}

func TestListDocumentsFilters(t *testing.T) {
	f := newFixture(t, "k")
	f.seedDocument(t, "intake-form.png", documents.StatusProcessed)
	f.seedDocument(t, "lease.pdf", documents.StatusProcessed)
	f.seedDocument(t, "broken.pdf", documents.StatusError)

	rec := f.do(t, http.MethodGet, "/admin/documents?q=intake", "k", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	docs, _ := body["documents"].([]any)
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if body["total"].(float64) != 1 {
		t.Fatalf("got total %v, want 1", body["total"])
	}
	row := docs[0].(map[string]any)
	if row["filename"] != "intake-form.png" {
		t.Fatalf("got filename %v", row["filename"])
	}

	rec = f.do(t, http.MethodGet, "/admin/documents?status=error", "k", nil)
	body = decode(t, rec)
	if docs, _ := body["documents"].([]any); len(docs) != 1 {
		t.Fatalf("status filter: got %d documents, want 1", len(docs))
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	f := newFixture(t, "k")

	rec := f.do(t, http.MethodGet, "/admin/documents/"+uuid.NewString(), "k", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
	body := decode(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "document_not_found" {
		t.Fatalf("got code %v", errObj["code"])
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	f := newFixture(t, "k")
	doc := f.seedDocument(t, "to-delete.pdf", documents.StatusProcessed)
	ctx := context.Background()

	session, err := f.sessions.GetOrCreateSession(ctx, doc.ID, doc.UserID)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	rec := f.do(t, http.MethodDelete, "/admin/documents/"+doc.ID, "k", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := f.docs.GetByID(ctx, doc.ID); err != documents.ErrNotFound {
		t.Fatalf("document still present: %v", err)
	}
	if _, err := f.sessions.GetSession(ctx, session.ID); err != chat.ErrSessionNotFound {
		t.Fatalf("session still present: %v", err)
	}
}

func TestPatchField(t *testing.T) {
	f := newFixture(t, "k")
	doc := f.seedDocument(t, "form.png", documents.StatusProcessed)
	ctx := context.Background()

	field := documents.Field{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		FieldType:  documents.FieldTypeGeneral,
		Context:    "name",
	}
	if err := f.docs.CreateFields(ctx, []documents.Field{field}); err != nil {
		t.Fatalf("seed field: %v", err)
	}

	rec := f.do(t, http.MethodPatch, "/admin/fields/"+field.ID, "k", map[string]any{
		"user_content": "Jane Doe",
		"field_type":   "name",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}

	updated, err := f.docs.GetField(ctx, field.ID)
	if err != nil {
		t.Fatalf("get field: %v", err)
	}
	if updated.UserContent != "Jane Doe" || updated.FieldType != "name" {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Context != "name" {
		t.Fatalf("context changed unexpectedly: %q", updated.Context)
	}
}

func TestPatchFieldRejectsUnknownType(t *testing.T) {
	f := newFixture(t, "k")

	rec := f.do(t, http.MethodPatch, "/admin/fields/"+uuid.NewString(), "k", map[string]any{
		"field_type": "favorite_color",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
	body := decode(t, rec)
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "validation_error" {
		t.Fatalf("got code %v", errObj["code"])
	}
}

func TestListMessagesPreview(t *testing.T) {
	f := newFixture(t, "k")
	doc := f.seedDocument(t, "form.png", documents.StatusProcessed)
	ctx := context.Background()

	session, err := f.sessions.GetOrCreateSession(ctx, doc.ID, doc.UserID)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	long := strings.Repeat("My name is Jane and my address is long. ", 4)
	for i, content := range []string{"hi", long} {
		msg := chat.Message{
			ID:          uuid.NewString(),
			SessionID:   session.ID,
			MessageType: chat.MessageTypeUser,
			Content:     content,
			Timestamp:   time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := f.sessions.AddMessage(ctx, msg); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	rec := f.do(t, http.MethodGet, "/admin/messages", "k", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	for _, raw := range messages {
		row := raw.(map[string]any)
		preview := row["content_preview"].(string)
		content := row["content"].(string)
		if len(content) <= 50 {
			if preview != content {
				t.Fatalf("short message preview mismatch: %q vs %q", preview, content)
			}
			continue
		}
		if len(preview) != 53 || !strings.HasSuffix(preview, "...") {
			t.Fatalf("long preview not truncated: %q", preview)
		}
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, "k")
	doc := f.seedDocument(t, "a.pdf", documents.StatusProcessed)
	f.seedDocument(t, "b.pdf", documents.StatusError)
	ctx := context.Background()

	if err := f.docs.CreateFields(ctx, []documents.Field{
		{ID: uuid.NewString(), DocumentID: doc.ID, FieldType: documents.FieldTypeName},
		{ID: uuid.NewString(), DocumentID: doc.ID, FieldType: documents.FieldTypeEmail},
	}); err != nil {
		t.Fatalf("seed fields: %v", err)
	}
	session, err := f.sessions.GetOrCreateSession(ctx, doc.ID, doc.UserID)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := f.sessions.AddMessage(ctx, chat.Message{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		MessageType: chat.MessageTypeBot,
		Content:     "hello",
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/admin/stats", "k", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["documents"].(float64) != 2 {
		t.Fatalf("got documents %v, want 2", body["documents"])
	}
	byStatus := body["documents_by_status"].(map[string]any)
	if byStatus["processed"].(float64) != 1 || byStatus["error"].(float64) != 1 {
		t.Fatalf("unexpected status counts: %v", byStatus)
	}
	if body["fields"].(float64) != 2 {
		t.Fatalf("got fields %v, want 2", body["fields"])
	}
	if body["sessions"].(float64) != 1 || body["messages"].(float64) != 1 {
		t.Fatalf("unexpected session/message counts: %v / %v", body["sessions"], body["messages"])
	}
}
