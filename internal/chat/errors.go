package chat

import "errors"

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrNoMessage       = errors.New("no message provided")
	ErrLLMUnavailable  = errors.New("model server unavailable")
)
