// Package ollama implements llm.Client against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autofill-backend/internal/llm"
	"autofill-backend/internal/shared/metrics"
)

const (
	// DefaultBaseURL is where a stock ollama serve listens.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.2:3b"
	// DefaultPullModel is pulled when a pull request names no model.
	DefaultPullModel = "llama2"
)

// Config carries connection settings for the Ollama server. Zero values
// fall back to defaults.
type Config struct {
	BaseURL         string
	Model           string
	StatusTimeout   time.Duration
	GenerateTimeout time.Duration
	PullTimeout     time.Duration
}

// Client calls the Ollama HTTP API. Generation runs with stream=false so a
// whole completion comes back as one JSON document.
type Client struct {
	baseURL        string
	model          string
	statusClient   *http.Client
	generateClient *http.Client
	pullClient     *http.Client
}

// New constructs a Client.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	statusTimeout := cfg.StatusTimeout
	if statusTimeout <= 0 {
		statusTimeout = 5 * time.Second
	}
	generateTimeout := cfg.GenerateTimeout
	if generateTimeout <= 0 {
		generateTimeout = 120 * time.Second
	}
	pullTimeout := cfg.PullTimeout
	if pullTimeout <= 0 {
		pullTimeout = 300 * time.Second
	}
	return &Client{
		baseURL:        baseURL,
		model:          model,
		statusClient:   &http.Client{Timeout: statusTimeout},
		generateClient: &http.Client{Timeout: generateTimeout},
		pullClient:     &http.Client{Timeout: pullTimeout},
	}
}

// Model returns the default generation model.
func (c *Client) Model() string {
	return c.model
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Available reports whether the server answers /api/tags.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.statusClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of locally installed models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.statusClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: unexpected status %d", resp.StatusCode)
	}
	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ollama tags parse: %w", err)
	}
	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// Pull downloads a model onto the server. Blocks until the pull finishes
// or the pull timeout fires.
func (c *Client) Pull(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		name = DefaultPullModel
	}
	payload, err := json.Marshal(pullRequest{Name: name, Stream: false})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.pullClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama pull %s: %w", name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama pull %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate produces a completion for the prompt using the default model.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	metrics.IncOllamaRequest()

	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.generateClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("ollama generate timeout: %w", err)
		}
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama generate read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama generate: unexpected status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("ollama generate parse: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", parsed.Error)
	}
	return parsed.Response, nil
}

var _ llm.Client = (*Client)(nil)
