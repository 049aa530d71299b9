package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"autofill-backend/internal/documents"
)

type stubLLM struct {
	available bool
	reply     func(prompt string) (string, error)
	prompts   []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.reply == nil {
		return "", errors.New("no reply configured")
	}
	return s.reply(prompt)
}

func (s *stubLLM) Available(ctx context.Context) bool {
	return s.available
}

type stubModels struct {
	available bool
	models    []string
	listErr   error
	pullErr   error
	pulled    []string
}

func (s *stubModels) Available(ctx context.Context) bool { return s.available }

func (s *stubModels) ListModels(ctx context.Context) ([]string, error) {
	return s.models, s.listErr
}

func (s *stubModels) Pull(ctx context.Context, name string) error {
	s.pulled = append(s.pulled, name)
	return s.pullErr
}

func (s *stubModels) Model() string { return "llama3.2:3b" }

func newTestService(llmStub *stubLLM, modelStub *stubModels) (*Service, *documents.MemoryRepo) {
	docs := documents.NewMemoryRepo()
	svc := &Service{
		Repo:      NewMemoryRepo(),
		Documents: docs,
		LLM:       llmStub,
		Models:    modelStub,
	}
	return svc, docs
}

// seedDocument stores a processed document with one empty field per given
// context.
func seedDocument(t *testing.T, docs *documents.MemoryRepo, contexts ...string) documents.Document {
	t.Helper()
	ctx := context.Background()
	doc := documents.Document{
		ID:            uuid.NewString(),
		Filename:      "intake.txt",
		FileKey:       "uploads/intake.txt",
		UploadedAt:    time.Now().UTC(),
		Status:        documents.StatusProcessed,
		ExtractedText: "Full Name:\nEmail Address:\nPhone Number:\n",
		TotalBlanks:   len(contexts),
		UserID:        "guest:test-guest",
	}
	if err := docs.Create(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	fields := make([]documents.Field, 0, len(contexts))
	for i, fieldContext := range contexts {
		fields = append(fields, documents.Field{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Position:   i,
			FieldType:  fieldContext,
			Context:    fieldContext,
		})
	}
	if err := docs.CreateFields(ctx, fields); err != nil {
		t.Fatalf("create fields: %v", err)
	}
	loaded, err := docs.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("reload document: %v", err)
	}
	return loaded
}

func TestGeneralRequiresMessage(t *testing.T) {
	svc, _ := newTestService(&stubLLM{}, &stubModels{})

	if _, err := svc.General(context.Background(), "   "); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
}

func TestGeneralFallbackKeywords(t *testing.T) {
	svc, _ := newTestService(&stubLLM{available: false}, &stubModels{})

	cases := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "greeting",
			message: "Hi there",
			want:    "Hello! I'm here to help you fill out your document. Please upload a document and I'll identify the blank spaces that need to be filled.",
		},
		{
			name:    "upload",
			message: "I want to upload a form",
			want:    "Great! Please upload your document using the upload button. I'll analyze it and identify all the blank spaces that need to be filled.",
		},
		{
			name:    "help",
			message: "can you help me",
			want:    "I can help you with:\n1. Upload and analyze documents\n2. Identify blank spaces\n3. Suggest content for each field\n4. Review and edit filled information\n5. Generate final PDF",
		},
		{
			name:    "default",
			message: "want to get started",
			want:    "I'm here to help you with document autofill. Please upload a document or ask me about filling out forms.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.General(context.Background(), tc.message)
			if err != nil {
				t.Fatalf("General: %v", err)
			}
			if got != tc.want {
				t.Fatalf("response = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestChatPersistsTurnAndMinesValues(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(&stubLLM{available: false}, &stubModels{})
	doc := seedDocument(t, docs, "name", "email", "phone")

	message := "My name is Ada Lovelace. My email is ada@example.com"
	res, err := svc.ChatWithDocument(ctx, doc.ID, doc.UserID, message)
	if err != nil {
		t.Fatalf("ChatWithDocument: %v", err)
	}

	want := "I'm here to help you with document autofill. Please upload a document or ask me about filling out forms."
	if res.Response != want {
		t.Fatalf("response = %q, want fallback default", res.Response)
	}

	if len(res.FilledFields) != 2 {
		t.Fatalf("filled fields = %d, want 2", len(res.FilledFields))
	}
	if res.FilledFields[0].Type != "name" || res.FilledFields[0].Content != "Ada Lovelace" {
		t.Fatalf("unexpected first fill: %+v", res.FilledFields[0])
	}
	if res.FilledFields[1].Type != "email" || res.FilledFields[1].Content != "ada@example.com" {
		t.Fatalf("unexpected second fill: %+v", res.FilledFields[1])
	}

	nameField, err := docs.GetField(ctx, doc.Fields[0].ID)
	if err != nil {
		t.Fatalf("get name field: %v", err)
	}
	if nameField.UserContent != "Ada Lovelace" || nameField.AISuggestion != "Ada Lovelace" || !nameField.AIEnhanced {
		t.Fatalf("name field not filled: %+v", nameField)
	}
	phoneField, err := docs.GetField(ctx, doc.Fields[2].ID)
	if err != nil {
		t.Fatalf("get phone field: %v", err)
	}
	if phoneField.UserContent != "" || phoneField.AIEnhanced {
		t.Fatalf("phone field should stay empty: %+v", phoneField)
	}

	if len(res.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(res.Messages))
	}
	if res.Messages[0].MessageType != MessageTypeUser || res.Messages[0].Content != message {
		t.Fatalf("unexpected user message: %+v", res.Messages[0])
	}
	if res.Messages[1].MessageType != MessageTypeBot || res.Messages[1].Content != res.Response {
		t.Fatalf("unexpected bot message: %+v", res.Messages[1])
	}
}

func TestChatReusesSession(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(&stubLLM{available: false}, &stubModels{})
	doc := seedDocument(t, docs, "name")

	if _, err := svc.ChatWithDocument(ctx, doc.ID, doc.UserID, "first turn"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	res, err := svc.ChatWithDocument(ctx, doc.ID, doc.UserID, "second turn")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}

	sessions, err := svc.Repo.CountSessions(ctx)
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if sessions != 1 {
		t.Fatalf("sessions = %d, want 1", sessions)
	}
	if len(res.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(res.Messages))
	}
	wantTypes := []string{MessageTypeUser, MessageTypeBot, MessageTypeUser, MessageTypeBot}
	for i, msg := range res.Messages {
		if msg.MessageType != wantTypes[i] {
			t.Fatalf("message %d type = %q, want %q", i, msg.MessageType, wantTypes[i])
		}
	}
}

func TestChatUsesModelCompletion(t *testing.T) {
	ctx := context.Background()
	llmStub := &stubLLM{
		available: true,
		reply: func(prompt string) (string, error) {
			return "Sure, give me your details.", nil
		},
	}
	svc, docs := newTestService(llmStub, &stubModels{})
	doc := seedDocument(t, docs, "name", "email", "phone")

	res, err := svc.ChatWithDocument(ctx, doc.ID, doc.UserID, "What should I do first?")
	if err != nil {
		t.Fatalf("ChatWithDocument: %v", err)
	}
	if res.Response != "Sure, give me your details." {
		t.Fatalf("response = %q", res.Response)
	}
	if len(res.FilledFields) != 0 {
		t.Fatalf("filled fields = %d, want 0", len(res.FilledFields))
	}

	if len(llmStub.prompts) != 1 {
		t.Fatalf("prompts sent = %d, want 1", len(llmStub.prompts))
	}
	prompt := llmStub.prompts[0]
	for _, fragment := range []string{
		"Document type: form",
		"Number of blank fields: 3",
		"Field types found: name, email, phone",
		"User message: What should I do first?",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestChatGenerateFailureDegrades(t *testing.T) {
	ctx := context.Background()
	llmStub := &stubLLM{
		available: true,
		reply: func(prompt string) (string, error) {
			return "", errors.New("model crashed")
		},
	}
	svc, docs := newTestService(llmStub, &stubModels{})
	doc := seedDocument(t, docs, "name")

	res, err := svc.ChatWithDocument(ctx, doc.ID, doc.UserID, "hello?")
	if err != nil {
		t.Fatalf("ChatWithDocument: %v", err)
	}
	if res.Response != generateErrorText {
		t.Fatalf("response = %q, want %q", res.Response, generateErrorText)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(res.Messages))
	}
}

func TestChatMissingDocument(t *testing.T) {
	svc, _ := newTestService(&stubLLM{}, &stubModels{})

	_, err := svc.ChatWithDocument(context.Background(), uuid.NewString(), "guest:test-guest", "hi")
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected documents.ErrNotFound, got %v", err)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(&stubLLM{available: false}, &stubModels{})
	doc := seedDocument(t, docs, "name")

	if _, err := svc.History(ctx, doc.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if _, err := svc.ChatWithDocument(ctx, doc.ID, doc.UserID, "first turn"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	messages, err := svc.History(ctx, doc.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].MessageType != MessageTypeUser || messages[1].MessageType != MessageTypeBot {
		t.Fatalf("unexpected transcript order: %+v", messages)
	}
}

func TestSuggestReturnsModelText(t *testing.T) {
	ctx := context.Background()
	llmStub := &stubLLM{
		reply: func(prompt string) (string, error) {
			if !strings.Contains(prompt, `field context "name"`) {
				t.Fatalf("prompt missing field context: %s", prompt)
			}
			return "  Jane Doe  ", nil
		},
	}
	svc, docs := newTestService(llmStub, &stubModels{})
	doc := seedDocument(t, docs, "name")

	suggestion, err := svc.Suggest(ctx, doc.ID, doc.Fields[0].ID, "something professional")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if suggestion.Suggestion != "Jane Doe" {
		t.Fatalf("suggestion = %q, want %q", suggestion.Suggestion, "Jane Doe")
	}
	if suggestion.Context != "name" || suggestion.FieldID != doc.Fields[0].ID {
		t.Fatalf("unexpected suggestion envelope: %+v", suggestion)
	}

	// A one-off suggestion never writes the field.
	field, err := docs.GetField(ctx, doc.Fields[0].ID)
	if err != nil {
		t.Fatalf("get field: %v", err)
	}
	if field.UserContent != "" || field.AIEnhanced {
		t.Fatalf("suggest must not persist: %+v", field)
	}
}

func TestSuggestDegradesOnModelError(t *testing.T) {
	svc, docs := newTestService(&stubLLM{}, &stubModels{})
	doc := seedDocument(t, docs, "name")

	suggestion, err := svc.Suggest(context.Background(), doc.ID, doc.Fields[0].ID, "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if suggestion.Suggestion != generateErrorText {
		t.Fatalf("suggestion = %q, want %q", suggestion.Suggestion, generateErrorText)
	}
}

func TestSuggestChecksOwnership(t *testing.T) {
	svc, docs := newTestService(&stubLLM{}, &stubModels{})
	docA := seedDocument(t, docs, "name")
	docB := seedDocument(t, docs, "email")

	_, err := svc.Suggest(context.Background(), docA.ID, docB.Fields[0].ID, "")
	if !errors.Is(err, documents.ErrFieldNotFound) {
		t.Fatalf("expected documents.ErrFieldNotFound, got %v", err)
	}
}

func TestFillAllRequiresModelServer(t *testing.T) {
	svc, docs := newTestService(&stubLLM{available: false}, &stubModels{})
	doc := seedDocument(t, docs, "name")

	_, err := svc.FillAll(context.Background(), doc.ID)
	if !errors.Is(err, ErrLLMUnavailable) {
		t.Fatalf("expected ErrLLMUnavailable, got %v", err)
	}
}

func TestFillAllFillsEmptyFields(t *testing.T) {
	ctx := context.Background()
	llmStub := &stubLLM{
		available: true,
		reply: func(prompt string) (string, error) {
			if strings.Contains(prompt, "for a name field") {
				return "John Smith", nil
			}
			if strings.Contains(prompt, "for a email field") {
				return strings.Repeat("x", 150), nil
			}
			return "ignored", nil
		},
	}
	svc, docs := newTestService(llmStub, &stubModels{})
	doc := seedDocument(t, docs, "name", "email", "phone")

	// A field the user already filled must not be overwritten.
	if err := docs.UpdateFieldContent(ctx, doc.Fields[2].ID, "555-0100"); err != nil {
		t.Fatalf("prefill phone: %v", err)
	}

	res, err := svc.FillAll(ctx, doc.ID)
	if err != nil {
		t.Fatalf("FillAll: %v", err)
	}
	if len(res.FilledFields) != 2 {
		t.Fatalf("filled fields = %d, want 2", len(res.FilledFields))
	}
	if res.FilledFields[0].Type != "" {
		t.Fatalf("bulk fills carry no type, got %q", res.FilledFields[0].Type)
	}
	if res.FilledFields[0].Content != "John Smith" {
		t.Fatalf("name fill = %q", res.FilledFields[0].Content)
	}
	wantTruncated := strings.Repeat("x", 100) + "..."
	if res.FilledFields[1].Content != wantTruncated {
		t.Fatalf("email fill = %q, want truncated value", res.FilledFields[1].Content)
	}

	phoneField, err := docs.GetField(ctx, doc.Fields[2].ID)
	if err != nil {
		t.Fatalf("get phone field: %v", err)
	}
	if phoneField.UserContent != "555-0100" || phoneField.AIEnhanced {
		t.Fatalf("phone field was overwritten: %+v", phoneField)
	}
}

func TestServerStatus(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(&stubLLM{}, &stubModels{available: false})
	status := svc.ServerStatus(ctx)
	if status.Running {
		t.Fatal("server should report not running")
	}
	if status.Models == nil || len(status.Models) != 0 {
		t.Fatalf("models = %#v, want empty slice", status.Models)
	}
	if status.DefaultModel != "llama3.2:3b" {
		t.Fatalf("default model = %q", status.DefaultModel)
	}

	svc, _ = newTestService(&stubLLM{}, &stubModels{available: true, models: []string{"llama3.2:3b", "llama2"}})
	status = svc.ServerStatus(ctx)
	if !status.Running || len(status.Models) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	svc, _ = newTestService(&stubLLM{}, &stubModels{available: true, listErr: errors.New("boom")})
	status = svc.ServerStatus(ctx)
	if !status.Running || len(status.Models) != 0 {
		t.Fatalf("list failure should leave models empty: %+v", status)
	}
}

func TestPullModelDefaultsName(t *testing.T) {
	ctx := context.Background()
	modelStub := &stubModels{}
	svc, _ := newTestService(&stubLLM{}, modelStub)

	name, err := svc.PullModel(ctx, "  ")
	if err != nil {
		t.Fatalf("PullModel: %v", err)
	}
	if name != "llama2" {
		t.Fatalf("name = %q, want llama2", name)
	}
	if len(modelStub.pulled) != 1 || modelStub.pulled[0] != "llama2" {
		t.Fatalf("pulled = %#v", modelStub.pulled)
	}

	modelStub.pullErr = errors.New("no disk")
	name, err = svc.PullModel(ctx, "mistral")
	if err == nil {
		t.Fatal("expected pull error")
	}
	if name != "mistral" {
		t.Fatalf("name = %q, want mistral", name)
	}
}

func TestMineValue(t *testing.T) {
	cases := []struct {
		name     string
		context  string
		user     string
		bot      string
		want     string
		wantHit  bool
	}{
		{name: "name statement", context: "name", user: "my name is Grace Hopper", want: "Grace Hopper", wantHit: true},
		{name: "name reversed", context: "name", user: "Grace Hopper is my name", want: "Grace Hopper", wantHit: true},
		{name: "email bare", context: "email", user: "reach me at ada@example.com today", want: "ada@example.com", wantHit: true},
		{name: "email from response", context: "email", user: "no address here", bot: "write to ada@example.com", want: "ada@example.com", wantHit: true},
		{name: "phone labeled", context: "phone", user: "Phone: (555) 010-7788", want: "(555) 010-7788", wantHit: true},
		{name: "age contraction", context: "age", user: "i'm 34", want: "34", wantHit: true},
		{name: "age single digit rejected", context: "age", user: "i'm 7", wantHit: false},
		{name: "address sentence", context: "address", user: "I live at 221B Baker Street. Thanks", want: "221B Baker Street", wantHit: true},
		{name: "unknown context", context: "general", user: "my name is Ada Lovelace", wantHit: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := mineValue(tc.context, tc.user, tc.bot)
			if ok != tc.wantHit {
				t.Fatalf("hit = %v, want %v (got %q)", ok, tc.wantHit, got)
			}
			if ok && got != tc.want {
				t.Fatalf("value = %q, want %q", got, tc.want)
			}
		})
	}
}
