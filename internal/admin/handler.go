// Package admin is the operator API: list, search, edit and delete over
// the four tables, guarded by a shared key header. It mirrors the columns
// and filters an operator console shows, not the client-facing shapes.
package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/chat"
	"autofill-backend/internal/documents"
	"autofill-backend/internal/shared/server/respond"
)

const previewLimit = 50

var fieldTypes = map[string]struct{}{
	documents.FieldTypeName:      {},
	documents.FieldTypeAddress:   {},
	documents.FieldTypePhone:     {},
	documents.FieldTypeEmail:     {},
	documents.FieldTypeDate:      {},
	documents.FieldTypeSignature: {},
	documents.FieldTypeGeneral:   {},
}

// Handler serves the operator routes.
type Handler struct {
	Docs    *documents.Service
	DocRepo documents.Repo
	Chat    chat.Repo
}

// NewHandler constructs a Handler.
func NewHandler(docSvc *documents.Service, docRepo documents.Repo, chatRepo chat.Repo) *Handler {
	return &Handler{Docs: docSvc, DocRepo: docRepo, Chat: chatRepo}
}

// RegisterRoutes mounts the operator routes on an already-guarded group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.listDocuments)
	rg.GET("/documents/:id", h.getDocument)
	rg.DELETE("/documents/:id", h.deleteDocument)
	rg.GET("/fields", h.listFields)
	rg.PATCH("/fields/:id", h.patchField)
	rg.GET("/sessions", h.listSessions)
	rg.GET("/sessions/:id", h.getSession)
	rg.GET("/messages", h.listMessages)
	rg.GET("/stats", h.stats)
}

type documentRow struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	UploadedAt  string `json:"uploaded_at"`
	Status      string `json:"status"`
	TotalBlanks int    `json:"total_blanks"`
}

func (h *Handler) listDocuments(c *gin.Context) {
	filter := documents.ListFilter{
		Search: strings.TrimSpace(c.Query("q")),
		Status: strings.TrimSpace(c.Query("status")),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	docs, err := h.DocRepo.List(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, err)
		return
	}
	total, err := h.DocRepo.Count(c.Request.Context(), documents.ListFilter{
		Search: filter.Search,
		Status: filter.Status,
	})
	if err != nil {
		h.internalError(c, err)
		return
	}

	rows := make([]documentRow, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, documentRow{
			ID:          doc.ID,
			Filename:    doc.Filename,
			UploadedAt:  doc.UploadedAt.UTC().Format(time.RFC3339),
			Status:      doc.Status,
			TotalBlanks: doc.TotalBlanks,
		})
	}
	respond.OK(c, gin.H{"documents": rows, "total": total})
}

func (h *Handler) getDocument(c *gin.Context) {
	doc, err := h.DocRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
			return
		}
		h.internalError(c, err)
		return
	}
	respond.OK(c, documents.ToResponse(doc))
}

func (h *Handler) deleteDocument(c *gin.Context) {
	err := h.Docs.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
			return
		}
		h.internalError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

type fieldRow struct {
	ID               string `json:"id"`
	DocumentID       string `json:"document_id"`
	FieldType        string `json:"field_type"`
	XPosition        int    `json:"x_position"`
	YPosition        int    `json:"y_position"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Area             int    `json:"area"`
	SuggestedContent string `json:"suggested_content"`
	UserContent      string `json:"user_content"`
	AISuggestion     string `json:"ai_suggestion"`
	AIEnhanced       bool   `json:"ai_enhanced"`
	Context          string `json:"context"`
}

func (h *Handler) listFields(c *gin.Context) {
	fields, err := h.DocRepo.ListAllFields(c.Request.Context(), documents.FieldFilter{
		DocumentID: strings.TrimSpace(c.Query("document_id")),
		FieldType:  strings.TrimSpace(c.Query("field_type")),
		Search:     strings.TrimSpace(c.Query("q")),
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
	})
	if err != nil {
		h.internalError(c, err)
		return
	}

	rows := make([]fieldRow, 0, len(fields))
	for _, field := range fields {
		rows = append(rows, fieldRow{
			ID:               field.ID,
			DocumentID:       field.DocumentID,
			FieldType:        field.FieldType,
			XPosition:        field.X,
			YPosition:        field.Y,
			Width:            field.Width,
			Height:           field.Height,
			Area:             field.Area,
			SuggestedContent: field.SuggestedContent,
			UserContent:      field.UserContent,
			AISuggestion:     field.AISuggestion,
			AIEnhanced:       field.AIEnhanced,
			Context:          field.Context,
		})
	}
	respond.OK(c, gin.H{"fields": rows})
}

type fieldPatchRequest struct {
	UserContent      *string `json:"user_content"`
	SuggestedContent *string `json:"suggested_content"`
	FieldType        *string `json:"field_type"`
	Context          *string `json:"context"`
}

func (h *Handler) patchField(c *gin.Context) {
	var req fieldPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.FieldType != nil {
		if _, ok := fieldTypes[*req.FieldType]; !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unknown field_type: "+*req.FieldType, nil)
			return
		}
	}

	err := h.DocRepo.PatchField(c.Request.Context(), c.Param("id"), documents.FieldPatch{
		UserContent:      req.UserContent,
		SuggestedContent: req.SuggestedContent,
		FieldType:        req.FieldType,
		Context:          req.Context,
	})
	if err != nil {
		if errors.Is(err, documents.ErrFieldNotFound) {
			respond.Error(c, http.StatusNotFound, "field_not_found", "Field not found", nil)
			return
		}
		h.internalError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

type sessionRow struct {
	ID           string `json:"id"`
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.Chat.ListSessions(c.Request.Context(), intQuery(c, "limit", 50), intQuery(c, "offset", 0))
	if err != nil {
		h.internalError(c, err)
		return
	}

	search := strings.ToLower(strings.TrimSpace(c.Query("q")))
	rows := make([]sessionRow, 0, len(sessions))
	for _, session := range sessions {
		filename := ""
		if doc, err := h.DocRepo.GetByID(c.Request.Context(), session.DocumentID); err == nil {
			filename = doc.Filename
		}
		if search != "" && !strings.Contains(strings.ToLower(filename), search) {
			continue
		}
		count, err := h.Chat.CountMessages(c.Request.Context(), session.ID)
		if err != nil {
			h.internalError(c, err)
			return
		}
		rows = append(rows, sessionRow{
			ID:           session.ID,
			DocumentID:   session.DocumentID,
			Filename:     filename,
			CreatedAt:    session.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:    session.UpdatedAt.UTC().Format(time.RFC3339),
			MessageCount: count,
		})
	}
	respond.OK(c, gin.H{"sessions": rows})
}

func (h *Handler) getSession(c *gin.Context) {
	session, err := h.Chat.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			respond.Error(c, http.StatusNotFound, "session_not_found", "Chat session not found", nil)
			return
		}
		h.internalError(c, err)
		return
	}
	messages, err := h.Chat.ListMessages(c.Request.Context(), session.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	rows := make([]messageRow, 0, len(messages))
	for _, msg := range messages {
		rows = append(rows, toMessageRow(msg))
	}
	respond.OK(c, gin.H{
		"session": sessionRow{
			ID:           session.ID,
			DocumentID:   session.DocumentID,
			CreatedAt:    session.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:    session.UpdatedAt.UTC().Format(time.RFC3339),
			MessageCount: len(messages),
		},
		"messages": rows,
	})
}

type messageRow struct {
	ID             string `json:"id"`
	SessionID      string `json:"session_id"`
	MessageType    string `json:"message_type"`
	ContentPreview string `json:"content_preview"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
}

func toMessageRow(msg chat.Message) messageRow {
	preview := msg.Content
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}
	return messageRow{
		ID:             msg.ID,
		SessionID:      msg.SessionID,
		MessageType:    msg.MessageType,
		ContentPreview: preview,
		Content:        msg.Content,
		Timestamp:      msg.Timestamp.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) listMessages(c *gin.Context) {
	messages, err := h.Chat.ListAllMessages(c.Request.Context(), chat.MessageFilter{
		MessageType: strings.TrimSpace(c.Query("message_type")),
		Search:      strings.TrimSpace(c.Query("q")),
		Limit:       intQuery(c, "limit", 50),
		Offset:      intQuery(c, "offset", 0),
	})
	if err != nil {
		h.internalError(c, err)
		return
	}
	rows := make([]messageRow, 0, len(messages))
	for _, msg := range messages {
		rows = append(rows, toMessageRow(msg))
	}
	respond.OK(c, gin.H{"messages": rows})
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.DocRepo.Count(ctx, documents.ListFilter{})
	if err != nil {
		h.internalError(c, err)
		return
	}
	byStatus := gin.H{}
	for _, status := range []string{
		documents.StatusUploaded,
		documents.StatusProcessing,
		documents.StatusProcessed,
		documents.StatusError,
	} {
		count, err := h.DocRepo.Count(ctx, documents.ListFilter{Status: status})
		if err != nil {
			h.internalError(c, err)
			return
		}
		byStatus[status] = count
	}
	fields, err := h.DocRepo.CountAllFields(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}
	sessions, err := h.Chat.CountSessions(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}
	messages, err := h.Chat.CountAllMessages(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}

	respond.OK(c, gin.H{
		"documents":           total,
		"documents_by_status": byStatus,
		"fields":              fields,
		"sessions":            sessions,
		"messages":            messages,
	})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	respond.Error(c, http.StatusInternalServerError, "internal_error", "operator query failed", map[string]any{
		"reason": err.Error(),
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
