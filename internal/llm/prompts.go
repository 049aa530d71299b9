package llm

import (
	"fmt"
	"strings"
)

// DocumentContext summarizes the active document for prompt building.
type DocumentContext struct {
	DocumentType  string
	TotalBlanks   int
	FieldTypes    []string
	ExtractedText string
}

// extractedTextLimit caps how much document text is inlined into a prompt.
const extractedTextLimit = 500

// ChatPrompt frames a user message with document context.
func ChatPrompt(message string, docCtx DocumentContext) string {
	docType := docCtx.DocumentType
	if docType == "" {
		docType = "Unknown"
	}
	excerpt := docCtx.ExtractedText
	if len(excerpt) > extractedTextLimit {
		excerpt = excerpt[:extractedTextLimit]
	}
	return fmt.Sprintf(`You are an AI assistant helping users fill out documents.

Context about the document:
- Document type: %s
- Number of blank fields: %d
- Field types found: %s
- Extracted text: %s...

User message: %s

Please provide a helpful response to assist with document filling. Be specific and actionable.`,
		docType, docCtx.TotalBlanks, strings.Join(docCtx.FieldTypes, ", "), excerpt, message)
}

// FieldSuggestionPrompt asks for content for one field given user input.
func FieldSuggestionPrompt(fieldContext, userInput string) string {
	return fmt.Sprintf(`Based on the field context %q and user input %q,
suggest appropriate content for this document field.
Provide a specific, realistic example that would be appropriate for this type of field.`,
		fieldContext, userInput)
}

// FillFieldPrompt asks for a realistic value for a field during bulk fill.
func FillFieldPrompt(fieldContext string) string {
	return fmt.Sprintf("Suggest appropriate content for a %s field in a form. Provide a realistic example value.", fieldContext)
}

// FieldAnalysisPrompt asks the model to describe what belongs in a detected
// field based on its surroundings and geometry.
func FieldAnalysisPrompt(fieldContext, surroundingText string, x, y, width, height int) string {
	return fmt.Sprintf(`Analyze this document field and suggest appropriate content:

Field context: %s
Surrounding text: %s
Field position: x=%d, y=%d
Field size: %dx%d

Based on this information, suggest what type of content should go in this field and provide an example.`,
		fieldContext, surroundingText, x, y, width, height)
}
