package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"autofill-backend/internal/documents"
	"autofill-backend/internal/llm"
	"autofill-backend/internal/llm/ollama"
	"autofill-backend/internal/shared/metrics"
	"autofill-backend/internal/shared/telemetry"
)

// generateErrorText stands in for a completion when the model server is up
// but a generation call fails. Clients show it verbatim.
const generateErrorText = "Error: Could not generate response"

// fillValueLimit caps bulk-fill values before they land in a field.
const fillValueLimit = 100

// ModelManager covers the model-server operations the chat API exposes
// directly: status, model listing, and pulls.
type ModelManager interface {
	Available(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	Pull(ctx context.Context, name string) error
	Model() string
}

// Service implements the conversational side of autofill: sessions,
// messages, LLM-backed replies, and mined field values.
type Service struct {
	Repo      Repo
	Documents documents.Repo
	LLM       llm.Client
	Models    ModelManager
}

// ChatResult is what a document chat turn produces.
type ChatResult struct {
	Response     string
	Messages     []Message
	FilledFields []FilledField
}

// FillAllResult reports the outcome of a bulk fill.
type FillAllResult struct {
	FilledFields []FilledField
}

// Suggestion is a one-off content proposal for a single field.
type Suggestion struct {
	FieldID    string
	Suggestion string
	Context    string
}

// Status mirrors the model server's health for the UI.
type Status struct {
	Running      bool     `json:"running"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
}

// General answers a message with no document attached. Nothing is
// persisted.
func (s *Service) General(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrNoMessage
	}
	metrics.IncChatMessage()
	return s.respond(ctx, message, llm.DocumentContext{}, false), nil
}

// ChatWithDocument runs one chat turn against a document: persist the user
// message, produce a reply, mine both texts for field values, persist the
// reply, and return the full transcript.
func (s *Service) ChatWithDocument(ctx context.Context, documentID, userID, message string) (ChatResult, error) {
	doc, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return ChatResult{}, err
	}

	session, err := s.Repo.GetOrCreateSession(ctx, doc.ID, userID)
	if err != nil {
		return ChatResult{}, fmt.Errorf("open chat session: %w", err)
	}
	if err := s.Repo.TouchSession(ctx, session.ID); err != nil {
		telemetry.Warn("chat.touch_failed", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	now := time.Now().UTC()
	if err := s.Repo.AddMessage(ctx, Message{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		MessageType: MessageTypeUser,
		Content:     message,
		Timestamp:   now,
	}); err != nil {
		return ChatResult{}, fmt.Errorf("store user message: %w", err)
	}
	metrics.IncChatMessage()

	docCtx := llm.DocumentContext{
		DocumentType:  "form",
		TotalBlanks:   doc.TotalBlanks,
		FieldTypes:    distinctFieldTypes(doc.Fields),
		ExtractedText: doc.ExtractedText,
	}
	response := s.respond(ctx, message, docCtx, true)

	filled := s.mineAndFill(ctx, message, response, doc)

	if err := s.Repo.AddMessage(ctx, Message{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		MessageType: MessageTypeBot,
		Content:     response,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		return ChatResult{}, fmt.Errorf("store bot message: %w", err)
	}

	messages, err := s.Repo.ListMessages(ctx, session.ID)
	if err != nil {
		return ChatResult{}, fmt.Errorf("load transcript: %w", err)
	}
	return ChatResult{
		Response:     response,
		Messages:     messages,
		FilledFields: filled,
	}, nil
}

// History returns the document's transcript, oldest message first.
func (s *Service) History(ctx context.Context, documentID string) ([]Message, error) {
	session, err := s.Repo.GetSessionByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListMessages(ctx, session.ID)
}

// Suggest asks the model for content for one field. Nothing is persisted;
// the caller decides whether to apply the suggestion.
func (s *Service) Suggest(ctx context.Context, documentID, fieldID, userInput string) (Suggestion, error) {
	field, err := s.Documents.GetField(ctx, fieldID)
	if err != nil {
		return Suggestion{}, err
	}
	if field.DocumentID != documentID {
		return Suggestion{}, documents.ErrFieldNotFound
	}

	text, err := s.LLM.Generate(ctx, llm.FieldSuggestionPrompt(field.Context, userInput))
	if err != nil {
		telemetry.Warn("chat.suggest_failed", map[string]any{
			"field_id": fieldID,
			"error":    err.Error(),
		})
		text = generateErrorText
	}
	return Suggestion{
		FieldID:    fieldID,
		Suggestion: strings.TrimSpace(text),
		Context:    field.Context,
	}, nil
}

// FillAll asks the model for a value for every still-empty field. Requires
// a running model server; callers surface ErrLLMUnavailable as 503.
func (s *Service) FillAll(ctx context.Context, documentID string) (FillAllResult, error) {
	doc, err := s.Documents.GetByID(ctx, documentID)
	if err != nil {
		return FillAllResult{}, err
	}
	if !s.LLM.Available(ctx) {
		return FillAllResult{}, ErrLLMUnavailable
	}

	docCtx := llm.DocumentContext{
		DocumentType:  "form",
		TotalBlanks:   doc.TotalBlanks,
		FieldTypes:    distinctFieldTypes(doc.Fields),
		ExtractedText: doc.ExtractedText,
	}

	var filled []FilledField
	for _, field := range doc.Fields {
		if field.UserContent != "" {
			continue
		}
		text, err := s.LLM.Generate(ctx, llm.ChatPrompt(llm.FillFieldPrompt(field.Context), docCtx))
		if err != nil {
			telemetry.Warn("chat.fill_failed", map[string]any{
				"field_id": field.ID,
				"error":    err.Error(),
			})
			continue
		}
		value := strings.TrimSpace(text)
		if value == "" {
			continue
		}
		if len(value) > fillValueLimit {
			value = value[:fillValueLimit] + "..."
		}
		if err := s.Documents.UpdateFieldAI(ctx, field.ID, value, value); err != nil {
			telemetry.Warn("chat.fill_store_failed", map[string]any{
				"field_id": field.ID,
				"error":    err.Error(),
			})
			continue
		}
		metrics.IncAIFill()
		filled = append(filled, FilledField{ID: field.ID, Content: value})
	}

	telemetry.Info("chat.fill_all", map[string]any{
		"document_id": doc.ID,
		"filled":      len(filled),
	})
	return FillAllResult{FilledFields: filled}, nil
}

// ServerStatus reports whether the model server runs and which models it
// holds.
func (s *Service) ServerStatus(ctx context.Context) Status {
	status := Status{
		Models:       []string{},
		DefaultModel: s.Models.Model(),
	}
	if !s.Models.Available(ctx) {
		return status
	}
	status.Running = true
	models, err := s.Models.ListModels(ctx)
	if err != nil {
		telemetry.Warn("chat.list_models_failed", map[string]any{"error": err.Error()})
		return status
	}
	status.Models = models
	return status
}

// PullModel downloads a model onto the server, defaulting the name when
// the request carries none. The resolved name comes back either way so
// callers can phrase their success or failure message around it.
func (s *Service) PullModel(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = ollama.DefaultPullModel
	}
	return name, s.Models.Pull(ctx, name)
}

// respond produces the reply text: a model completion when the server is
// up, the canned responder otherwise. Generation failures degrade to a
// fixed error string rather than failing the chat turn.
func (s *Service) respond(ctx context.Context, message string, docCtx llm.DocumentContext, hasDocument bool) string {
	if s.LLM.Available(ctx) {
		text, err := s.LLM.Generate(ctx, llm.ChatPrompt(message, docCtx))
		if err != nil {
			telemetry.Warn("chat.generate_failed", map[string]any{"error": err.Error()})
			return generateErrorText
		}
		return text
	}
	return fallbackResponse(message, docCtx.TotalBlanks, hasDocument)
}

// mineAndFill scans the user message and the reply for values matching
// each still-empty field's context and applies what it finds.
func (s *Service) mineAndFill(ctx context.Context, userMessage, botResponse string, doc documents.Document) []FilledField {
	var filled []FilledField
	for _, field := range doc.Fields {
		if field.UserContent != "" {
			continue
		}
		value, ok := mineValue(field.Context, userMessage, botResponse)
		if !ok {
			continue
		}
		if err := s.Documents.UpdateFieldAI(ctx, field.ID, value, value); err != nil {
			telemetry.Warn("chat.field_fill_failed", map[string]any{
				"field_id": field.ID,
				"error":    err.Error(),
			})
			continue
		}
		metrics.IncAIFill()
		filled = append(filled, FilledField{ID: field.ID, Type: field.Context, Content: value})
	}
	return filled
}

// miningPatterns extract a fill value from free text, keyed by field
// context. First submatch wins; values of one character or less are noise
// and get skipped.
var miningPatterns = map[string][]*regexp.Regexp{
	"name": {
		regexp.MustCompile(`(?i)my name is (\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)i am (\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)call me (\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)name:?\s*(\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)(\w+(?:\s+\w+)*) is my name`),
	},
	"email": {
		regexp.MustCompile(`(?i)my email is ([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)email:?\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		regexp.MustCompile(`(?i)contact me at ([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	},
	"phone": {
		regexp.MustCompile(`(?i)my phone is ([\d\s\-\(\)\+]+)`),
		regexp.MustCompile(`(?i)phone:?\s*([\d\s\-\(\)\+]+)`),
		regexp.MustCompile(`(?i)call me at ([\d\s\-\(\)\+]+)`),
		regexp.MustCompile(`(?i)number:?\s*([\d\s\-\(\)\+]+)`),
	},
	"age": {
		regexp.MustCompile(`(?i)i am (\d+) years old`),
		regexp.MustCompile(`(?i)age:?\s*(\d+)`),
		regexp.MustCompile(`(?i)i'm (\d+)`),
		regexp.MustCompile(`(?i)(\d+) years old`),
	},
	"address": {
		regexp.MustCompile(`(?i)my address is ([^.!?]+)`),
		regexp.MustCompile(`(?i)address:?\s*([^.!?]+)`),
		regexp.MustCompile(`(?i)i live at ([^.!?]+)`),
		regexp.MustCompile(`(?i)located at ([^.!?]+)`),
	},
}

// mineValue tries each pattern for the field's context against the user
// message first, then the bot response.
func mineValue(fieldContext, userMessage, botResponse string) (string, bool) {
	patterns, ok := miningPatterns[strings.ToLower(strings.TrimSpace(fieldContext))]
	if !ok {
		return "", false
	}
	for _, re := range patterns {
		for _, text := range [2]string{userMessage, botResponse} {
			match := re.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			value := strings.TrimSpace(match[1])
			if len(value) > 1 {
				return value, true
			}
		}
	}
	return "", false
}

// fallbackResponse answers without a model server using keyword rules.
func fallbackResponse(message string, totalBlanks int, hasDocument bool) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return "Hello! I'm here to help you fill out your document. Please upload a document and I'll identify the blank spaces that need to be filled."
	case strings.Contains(lower, "upload") || strings.Contains(lower, "document"):
		return "Great! Please upload your document using the upload button. I'll analyze it and identify all the blank spaces that need to be filled."
	case strings.Contains(lower, "help"):
		return "I can help you with:\n1. Upload and analyze documents\n2. Identify blank spaces\n3. Suggest content for each field\n4. Review and edit filled information\n5. Generate final PDF"
	case hasDocument && strings.Contains(lower, "fill"):
		return fmt.Sprintf("I found %d blank spaces in your document. I'll help you fill them out. What information would you like to provide?", totalBlanks)
	default:
		return "I'm here to help you with document autofill. Please upload a document or ask me about filling out forms."
	}
}

func distinctFieldTypes(fields []documents.Field) []string {
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, field := range fields {
		if _, ok := seen[field.FieldType]; ok {
			continue
		}
		seen[field.FieldType] = struct{}{}
		out = append(out, field.FieldType)
	}
	return out
}
