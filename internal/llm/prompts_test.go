package llm

import (
	"strings"
	"testing"
)

func TestChatPromptIncludesDocumentContext(t *testing.T) {
	docCtx := DocumentContext{
		DocumentType:  "form",
		TotalBlanks:   3,
		FieldTypes:    []string{"name", "email", "phone"},
		ExtractedText: strings.Repeat("x", 600),
	}
	prompt := ChatPrompt("What goes in the first field?", docCtx)

	if !strings.Contains(prompt, "Document type: form") {
		t.Fatalf("missing document type: %q", prompt)
	}
	if !strings.Contains(prompt, "Number of blank fields: 3") {
		t.Fatalf("missing blank count: %q", prompt)
	}
	if !strings.Contains(prompt, "name, email, phone") {
		t.Fatalf("missing field types: %q", prompt)
	}
	if !strings.Contains(prompt, "User message: What goes in the first field?") {
		t.Fatalf("missing user message: %q", prompt)
	}
	if strings.Contains(prompt, strings.Repeat("x", 501)) {
		t.Fatal("extracted text should be truncated to 500 characters")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 500)+"...") {
		t.Fatal("expected truncated excerpt followed by ellipsis")
	}
}

func TestChatPromptDefaultsDocumentType(t *testing.T) {
	prompt := ChatPrompt("hi", DocumentContext{})
	if !strings.Contains(prompt, "Document type: Unknown") {
		t.Fatalf("expected Unknown document type: %q", prompt)
	}
}

func TestFillFieldPrompt(t *testing.T) {
	want := "Suggest appropriate content for a email field in a form. Provide a realistic example value."
	if got := FillFieldPrompt("email"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
