// Package ocr wraps optical character recognition behind a small interface
// so services can run against a stub in tests and Tesseract in production.
package ocr

import (
	"context"
	"fmt"
	"strings"
)

// Engine extracts text from an encoded image (PNG, JPEG, TIFF...).
type Engine interface {
	Text(ctx context.Context, image []byte) (string, error)
}

// Noop is an Engine that recognizes nothing. Useful when Tesseract is not
// installed and scanned-image extraction should degrade instead of failing.
type Noop struct{}

// Text always returns an empty string.
func (Noop) Text(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", nil
}

// Func adapts a function to the Engine interface.
type Func func(ctx context.Context, image []byte) (string, error)

// Text invokes the wrapped function.
func (f Func) Text(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// CleanText collapses recognizer output into trimmed single-spaced lines.
func CleanText(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func wrapErr(op string, err error) error {
	return fmt.Errorf("ocr: %s: %w", op, err)
}
