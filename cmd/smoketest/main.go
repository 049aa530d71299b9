package main

// Black-box check against a running server:
//   go run ./cmd/smoketest -base http://localhost:8080
// Prints PASS/FAIL per step; the exit code reflects failures.

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"autofill-backend/internal/render"
)

var fieldKeys = []string{
	"id", "field_type", "x_position", "y_position", "width", "height",
	"area", "suggested_content", "user_content", "ai_suggestion",
	"ai_enhanced", "context",
}

type runner struct {
	base   string
	client *http.Client
	failed bool
}

func main() {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	flag.Parse()

	r := &runner{
		base:   strings.TrimRight(*base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	ctx := context.Background()

	// Independent probes run concurrently; the document flow is sequential.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.step("health", func() error { return r.health(gctx) }) })
	g.Go(func() error { return r.step("ollama status", func() error { return r.ollamaStatus(gctx) }) })
	_ = g.Wait()

	docID := ""
	_ = r.step("upload", func() error {
		id, err := r.upload(ctx)
		docID = id
		return err
	})
	if docID != "" {
		_ = r.step("fetch document", func() error { return r.fetchDocument(ctx, docID) })
		_ = r.step("chat roundtrip", func() error { return r.chat(ctx, docID) })
	}

	if r.failed {
		os.Exit(1)
	}
}

func (r *runner) step(name string, fn func() error) error {
	if err := fn(); err != nil {
		fmt.Printf("FAIL  %s: %v\n", name, err)
		r.failed = true
		return err
	}
	fmt.Printf("PASS  %s\n", name)
	return nil
}

func (r *runner) health(ctx context.Context) error {
	body, err := r.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	if ok, _ := body["ok"].(bool); !ok {
		return fmt.Errorf("unexpected body: %v", body)
	}
	return nil
}

func (r *runner) ollamaStatus(ctx context.Context) error {
	body, err := r.get(ctx, "/api/chat/ollama/status/")
	if err != nil {
		return err
	}
	if _, ok := body["running"].(bool); !ok {
		return fmt.Errorf("missing running flag: %v", body)
	}
	return nil
}

func (r *runner) upload(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("document", "smoke-form.txt")
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(part, render.SampleTextForm()); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/api/documents/upload/", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "smoketest")

	body, err := r.do(req)
	if err != nil {
		return "", err
	}
	doc, _ := body["document"].(map[string]any)
	if doc == nil {
		doc = body
	}
	id, _ := doc["id"].(string)
	if id == "" {
		return "", fmt.Errorf("no document id in response: %v", body)
	}
	if status, _ := doc["status"].(string); status != "processed" {
		return "", fmt.Errorf("document status %q, want processed", status)
	}
	return id, nil
}

func (r *runner) fetchDocument(ctx context.Context, docID string) error {
	body, err := r.get(ctx, "/api/documents/"+docID+"/")
	if err != nil {
		return err
	}
	fields, _ := body["fields"].([]any)
	if len(fields) == 0 {
		return fmt.Errorf("document has no fields")
	}
	first, _ := fields[0].(map[string]any)
	for _, key := range fieldKeys {
		if _, ok := first[key]; !ok {
			return fmt.Errorf("field missing key %q", key)
		}
	}
	return nil
}

func (r *runner) chat(ctx context.Context, docID string) error {
	payload, err := json.Marshal(map[string]string{"message": "My name is Smoke Test"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/api/chat/"+docID+"/", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "smoketest")

	body, err := r.do(req)
	if err != nil {
		return err
	}
	if response, _ := body["response"].(string); response == "" {
		return fmt.Errorf("empty chat response: %v", body)
	}
	return nil
}

func (r *runner) get(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Guest-Id", "smoketest")
	return r.do(req)
}

func (r *runner) do(req *http.Request) (map[string]any, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return body, nil
}
