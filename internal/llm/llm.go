// Package llm abstracts the local language model behind a small client
// interface so chat and autofill logic can run against a stub in tests.
package llm

import (
	"context"
	"errors"
)

// Client abstracts the model server used for chat and field suggestions.
type Client interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Available reports whether the model server answers right now.
	Available(ctx context.Context) bool
}

// ErrUnavailable is returned when no model server is reachable.
var ErrUnavailable = errors.New("model server unavailable")

// Disabled is a Client for deployments without a model server. Callers see
// Available() == false and fall back to canned responses.
type Disabled struct{}

// Generate returns ErrUnavailable.
func (Disabled) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrUnavailable
}

// Available reports false.
func (Disabled) Available(ctx context.Context) bool {
	_ = ctx
	return false
}
