package chat

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/documents"
	"autofill-backend/internal/shared/server/middleware"
	"autofill-backend/internal/shared/server/respond"
)

// Handler exposes the chat API over gin.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the chat endpoints on the given group. The limit
// middleware guards the routes that hit the model server hardest; nil
// disables it.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	rg.POST("/chat/general/", h.general)
	rg.GET("/chat/ollama/status/", h.ollamaStatus)
	rg.POST("/chat/ollama/pull-model/", limit, h.pullModel)
	rg.POST("/chat/:documentId/", limit, h.chat)
	rg.GET("/chat/:documentId/history/", h.history)
	rg.POST("/chat/:documentId/fill-all/", limit, h.fillAll)
	rg.POST("/chat/:documentId/suggest-content/", h.suggest)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) general(c *gin.Context) {
	var req chatRequest
	// An absent or malformed body reads as an empty message.
	_ = c.ShouldBindJSON(&req)

	response, err := h.Svc.General(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, ErrNoMessage) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "No message provided", nil)
			return
		}
		h.chatError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "response": response})
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	// An absent or malformed body reads as an empty message.
	_ = c.ShouldBindJSON(&req)
	userID := middleware.UserIDFromContext(c)

	res, err := h.Svc.ChatWithDocument(c.Request.Context(), c.Param("documentId"), userID, req.Message)
	if err != nil {
		h.chatError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"success":       true,
		"response":      res.Response,
		"messages":      toMessageResponses(res.Messages),
		"filled_fields": filledOrEmpty(res.FilledFields),
	})
}

func (h *Handler) history(c *gin.Context) {
	messages, err := h.Svc.History(c.Request.Context(), c.Param("documentId"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			respond.Error(c, http.StatusNotFound, "session_not_found", "Chat session not found", nil)
			return
		}
		h.chatError(c, err)
		return
	}
	respond.OK(c, gin.H{"success": true, "messages": toMessageResponses(messages)})
}

func (h *Handler) fillAll(c *gin.Context) {
	res, err := h.Svc.FillAll(c.Request.Context(), c.Param("documentId"))
	if err != nil {
		if errors.Is(err, ErrLLMUnavailable) {
			respond.Error(c, http.StatusServiceUnavailable, "ollama_unavailable", "Ollama is not running", nil)
			return
		}
		h.chatError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"success":       true,
		"filled_fields": filledOrEmpty(res.FilledFields),
		"message":       fmt.Sprintf("Filled %d fields with AI suggestions", len(res.FilledFields)),
	})
}

type suggestRequest struct {
	FieldID   string `json:"field_id"`
	UserInput string `json:"user_input"`
}

func (h *Handler) suggest(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.FieldID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "field_id is required", nil)
		return
	}

	suggestion, err := h.Svc.Suggest(c.Request.Context(), c.Param("documentId"), req.FieldID, req.UserInput)
	if err != nil {
		h.chatError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"success":    true,
		"field_id":   suggestion.FieldID,
		"suggestion": suggestion.Suggestion,
		"context":    suggestion.Context,
	})
}

func (h *Handler) ollamaStatus(c *gin.Context) {
	respond.OK(c, h.Svc.ServerStatus(c.Request.Context()))
}

type pullModelRequest struct {
	ModelName string `json:"model_name"`
}

func (h *Handler) pullModel(c *gin.Context) {
	var req pullModelRequest
	// An absent body pulls the default model.
	_ = c.ShouldBindJSON(&req)

	model, err := h.Svc.PullModel(c.Request.Context(), req.ModelName)
	if err != nil {
		respond.OK(c, gin.H{
			"success": false,
			"model":   model,
			"message": fmt.Sprintf("Model %s download failed", model),
		})
		return
	}
	respond.OK(c, gin.H{
		"success": true,
		"model":   model,
		"message": fmt.Sprintf("Model %s downloaded successfully", model),
	})
}

func (h *Handler) chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
	case errors.Is(err, documents.ErrFieldNotFound):
		respond.Error(c, http.StatusNotFound, "field_not_found", "Field not found", nil)
	case errors.Is(err, ErrSessionNotFound):
		respond.Error(c, http.StatusNotFound, "session_not_found", "Chat session not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Error processing chat message", map[string]any{
			"reason": err.Error(),
		})
	}
}

func filledOrEmpty(fields []FilledField) []FilledField {
	if fields == nil {
		return []FilledField{}
	}
	return fields
}
