package documents

import "time"

// Document statuses walk a fixed lifecycle: uploaded -> processing ->
// processed, or error when the pipeline gives up.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusError      = "error"
)

// Normalized field types. Context keeps the raw detected keyword (which
// may also be "age", "dropdown", "checkbox"); FieldType is always one of
// these seven.
const (
	FieldTypeName      = "name"
	FieldTypeAddress   = "address"
	FieldTypePhone     = "phone"
	FieldTypeEmail     = "email"
	FieldTypeDate      = "date"
	FieldTypeSignature = "signature"
	FieldTypeGeneral   = "general"
)

// Document represents an uploaded form and its processing state.
// FileKey is the object-store key of the original upload; FilledKey and
// SummaryKey point at regenerated artifacts once they exist.
type Document struct {
	ID            string
	Filename      string
	FileKey       string
	UploadedAt    time.Time
	Status        string
	ExtractedText string
	TotalBlanks   int
	UserID        string
	ErrorDetail   string
	FilledKey     string
	SummaryKey    string

	// Fields is populated by reads that load the aggregate.
	Fields []Field
}

// Field is one blank region of a document, either detected on the page
// or synthesized from the extracted text. Position preserves insertion
// order.
type Field struct {
	ID               string
	DocumentID       string
	Position         int
	FieldType        string
	X                int
	Y                int
	Width            int
	Height           int
	Area             int
	SuggestedContent string
	UserContent      string
	AISuggestion     string
	AIEnhanced       bool
	Context          string
}

// Filled reports whether a user (or the AI fill flow, which writes
// user_content too) has supplied content for the field.
func (f Field) Filled() bool {
	return f.UserContent != ""
}
