package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"autofill-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.Replace(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Auth("dev"), Logging())
	router.GET("/test", func(c *gin.Context) {
		c.Set("documentId", "doc-1")
		c.Set("chatSessionId", "session-1")
		c.Set("statusTransition", "uploaded->processing")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Guest-Id", "guest1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request.complete entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()

	required := []string{"request_id", "user_id", "document_id", "chat_session_id", "duration_ms", "status", "status_transition"}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if fields["user_id"] != "guest:guest1" {
		t.Fatalf("unexpected user_id: %v", fields["user_id"])
	}
	if fields["document_id"] != "doc-1" {
		t.Fatalf("unexpected document_id: %v", fields["document_id"])
	}
	if fields["chat_session_id"] != "session-1" {
		t.Fatalf("unexpected chat_session_id: %v", fields["chat_session_id"])
	}
	if fields["status_transition"] != "uploaded->processing" {
		t.Fatalf("unexpected status_transition: %v", fields["status_transition"])
	}
}

func TestLoggingSkipsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.Replace(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.OPTIONS("/test", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := logs.FilterMessage("request.complete").Len(); got != 0 {
		t.Fatalf("expected no request log for OPTIONS, got %d", got)
	}
}
