package documents

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/shared/server/middleware"
	"autofill-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload/", h.upload)
	rg.POST("/documents/clear-session/", h.clearSession)
	rg.GET("/documents/:id/", h.get)
	rg.POST("/documents/:id/update-field/", h.updateField)
	rg.POST("/documents/:id/regenerate/", h.regenerate)
	rg.POST("/documents/:id/generate-pdf/", h.generatePDF)
	rg.GET("/documents/:id/preview/", h.preview)
	rg.GET("/documents/:id/download/", h.download)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := h.Svc.UploadLimit()
	// Headroom for the multipart framing around the capped file part.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+512*1024)

	fileHeader, err := c.FormFile("document")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No document file provided", nil)
		return
	}
	if fileHeader.Size > limit {
		respond.Error(c, http.StatusBadRequest, "validation_error", h.tooLargeMessage(), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFile):
			respond.Error(c, http.StatusBadRequest, "validation_error", "No document file provided", nil)
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusBadRequest, "validation_error", h.tooLargeMessage(), nil)
		case errors.Is(err, ErrUnsupportedType):
			ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
			respond.Error(c, http.StatusBadRequest, "validation_error", "Unsupported file type: "+ext, nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "processing_error", "Error processing document", err.Error())
		}
		return
	}

	respond.OK(c, gin.H{
		"success":     true,
		"document_id": doc.ID,
		"document":    toResponse(doc),
		"result": gin.H{
			"extracted_text": doc.ExtractedText,
			"total_blanks":   doc.TotalBlanks,
		},
	})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.documentError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

type updateFieldRequest struct {
	FieldID string `json:"field_id"`
	Content string `json:"content"`
}

func (h *Handler) updateField(c *gin.Context) {
	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.FieldID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "field_id is required", nil)
		return
	}

	err := h.Svc.UpdateField(c.Request.Context(), c.Param("id"), req.FieldID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrFieldNotFound):
			respond.Error(c, http.StatusNotFound, "field_not_found", "Field not found", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update field", nil)
		}
		return
	}

	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) regenerate(c *gin.Context) {
	res, err := h.Svc.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "processing_error", "Error regenerating document", err.Error())
		return
	}

	respond.OK(c, gin.H{
		"success":      true,
		"output_file":  res.OutputFile,
		"download_url": res.DownloadURL,
		"message":      "Document regenerated with filled fields",
	})
}

func (h *Handler) generatePDF(c *gin.Context) {
	res, err := h.Svc.GenerateSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
		case errors.Is(err, ErrNoFilledFields):
			respond.Error(c, http.StatusBadRequest, "validation_error", "No filled fields to generate PDF", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "processing_error", "Error generating PDF", err.Error())
		}
		return
	}

	respond.OK(c, gin.H{
		"success":      true,
		"pdf_path":     res.PDFKey,
		"download_url": res.DownloadURL,
	})
}

func (h *Handler) preview(c *gin.Context) {
	res, err := h.Svc.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.documentError(c, err)
		return
	}

	body := gin.H{"success": true, "preview_type": res.Type}
	if res.Type == "text" {
		body["content"] = res.Content
	} else {
		body["preview_url"] = res.URL
	}
	respond.OK(c, body)
}

func (h *Handler) download(c *gin.Context) {
	kind := c.DefaultQuery("kind", "original")
	switch kind {
	case "original", "filled", "summary":
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown kind: "+kind, nil)
		return
	}

	res, err := h.Svc.Download(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
		case errors.Is(err, ErrArtifactMissing):
			respond.Error(c, http.StatusNotFound, "artifact_not_found", "Artifact not generated yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read artifact", nil)
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, res.Data)
}

func (h *Handler) clearSession(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.ClearSession(c.Request.Context(), userID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to clear session", nil)
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "Session cleared successfully"})
}

func (h *Handler) documentError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load document", nil)
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", h.Svc.UploadLimit()>>20)
}
