package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/bootstrap"
	"autofill-backend/internal/shared/config"
)

const intakeFixture = `Employee Intake

Full Name:
Email Address:
Phone Number:
Signature:
`

func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:3000"},
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app.Router
}

func addGuestHeader(req *http.Request) {
	req.Header.Set("X-Guest-Id", "test-guest")
}

func uploadFixture(t *testing.T, router *gin.Engine, fileName, content string) string {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("upload: expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var uploaded struct {
		Success    bool   `json:"success"`
		DocumentID string `json:"document_id"`
		Result     struct {
			TotalBlanks int `json:"total_blanks"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !uploaded.Success || uploaded.DocumentID == "" {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}
	return uploaded.DocumentID
}

func getJSON(t *testing.T, router *gin.Engine, path string, wantStatus int) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != wantStatus {
		t.Fatalf("GET %s: expected status %d, got %d: %s", path, wantStatus, resp.Code, resp.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return body
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any, wantStatus int) map[string]any {
	t.Helper()

	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != wantStatus {
		t.Fatalf("POST %s: expected status %d, got %d: %s", path, wantStatus, resp.Code, resp.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return body
}

func TestDocumentLifecycle(t *testing.T) {
	router := newTestApp(t)

	docID := uploadFixture(t, router, "intake.txt", intakeFixture)

	// Serialized document carries the full field set.
	doc := getJSON(t, router, "/api/documents/"+docID+"/", http.StatusOK)
	if doc["status"] != "processed" {
		t.Fatalf("expected processed, got %v", doc["status"])
	}
	fields, ok := doc["fields"].([]any)
	if !ok || len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %v", doc["fields"])
	}
	first, ok := fields[0].(map[string]any)
	if !ok {
		t.Fatalf("field shape: %v", fields[0])
	}
	for _, key := range []string{
		"id", "field_type", "x_position", "y_position", "width", "height",
		"area", "suggested_content", "user_content", "ai_suggestion",
		"ai_enhanced", "context",
	} {
		if _, present := first[key]; !present {
			t.Fatalf("field missing key %q: %v", key, first)
		}
	}
	fieldID, _ := first["id"].(string)
	if fieldID == "" {
		t.Fatal("field id missing")
	}

	// Summary PDF demands at least one filled field.
	errBody := postJSON(t, router, "/api/documents/"+docID+"/generate-pdf/", nil, http.StatusBadRequest)
	if errObj, ok := errBody["error"].(map[string]any); !ok || errObj["message"] != "No filled fields to generate PDF" {
		t.Fatalf("unexpected generate-pdf error: %v", errBody)
	}

	// Fill the first field.
	update := postJSON(t, router, "/api/documents/"+docID+"/update-field/", map[string]string{
		"field_id": fieldID,
		"content":  "Ada Lovelace",
	}, http.StatusOK)
	if update["success"] != true {
		t.Fatalf("update-field response: %v", update)
	}

	// Regenerate writes the filled artifact.
	regen := postJSON(t, router, "/api/documents/"+docID+"/regenerate/", nil, http.StatusOK)
	if regen["output_file"] != "filled_intake.txt" {
		t.Fatalf("output_file: %v", regen["output_file"])
	}
	if regen["message"] != "Document regenerated with filled fields" {
		t.Fatalf("message: %v", regen["message"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/download/?kind=filled", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("download: %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "filled_intake.txt") {
		t.Fatalf("disposition: %q", resp.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(resp.Body.String(), "Full Name: Ada Lovelace") {
		t.Fatalf("filled artifact missing content:\n%s", resp.Body.String())
	}

	// Summary PDF now succeeds.
	summary := postJSON(t, router, "/api/documents/"+docID+"/generate-pdf/", nil, http.StatusOK)
	if summary["success"] != true || summary["pdf_path"] == "" {
		t.Fatalf("generate-pdf response: %v", summary)
	}

	// Text preview returns inline content.
	preview := getJSON(t, router, "/api/documents/"+docID+"/preview/", http.StatusOK)
	if preview["preview_type"] != "text" {
		t.Fatalf("preview_type: %v", preview["preview_type"])
	}
	if content, _ := preview["content"].(string); !strings.Contains(content, "Full Name:") {
		t.Fatalf("preview content: %v", preview["content"])
	}

	// Clearing the session removes the document.
	cleared := postJSON(t, router, "/api/documents/clear-session/", nil, http.StatusOK)
	if cleared["message"] != "Session cleared successfully" {
		t.Fatalf("clear-session response: %v", cleared)
	}
	getJSON(t, router, "/api/documents/"+docID+"/", http.StatusNotFound)
}

func TestDocumentUploadValidation(t *testing.T) {
	router := newTestApp(t)

	// Missing file part.
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload/", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "No document file provided") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}

	// Unsupported extension.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("document", "script.sh")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("#!/bin/sh\n")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/documents/upload/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addGuestHeader(req)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported type, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Unsupported file type: .sh") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestDocumentNotFound(t *testing.T) {
	router := newTestApp(t)

	body := getJSON(t, router, "/api/documents/00000000-0000-0000-0000-000000000000/", http.StatusNotFound)
	errObj, ok := body["error"].(map[string]any)
	if !ok || errObj["code"] != "document_not_found" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestDocumentIdentityRequired(t *testing.T) {
	router := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/abc/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.Code)
	}
}
