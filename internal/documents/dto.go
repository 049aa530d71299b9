package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID            string          `json:"id"`
	Filename      string          `json:"filename"`
	FilePath      string          `json:"file_path"`
	UploadedAt    string          `json:"uploaded_at"`
	Status        string          `json:"status"`
	ExtractedText string          `json:"extracted_text"`
	TotalBlanks   int             `json:"total_blanks"`
	Fields        []FieldResponse `json:"fields"`
}

// FieldResponse is the outward-facing representation of a blank field.
type FieldResponse struct {
	ID               string `json:"id"`
	FieldType        string `json:"field_type"`
	XPosition        int    `json:"x_position"`
	YPosition        int    `json:"y_position"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Area             int    `json:"area"`
	SuggestedContent string `json:"suggested_content"`
	UserContent      string `json:"user_content"`
	AISuggestion     string `json:"ai_suggestion"`
	AIEnhanced       bool   `json:"ai_enhanced"`
	Context          string `json:"context"`
}

// ToResponse serializes a document for API payloads. The operator API
// reuses it so both surfaces emit the same shape.
func ToResponse(doc Document) DocumentResponse {
	return toResponse(doc)
}

func toResponse(doc Document) DocumentResponse {
	fields := make([]FieldResponse, 0, len(doc.Fields))
	for _, field := range doc.Fields {
		fields = append(fields, toFieldResponse(field))
	}
	return DocumentResponse{
		ID:            doc.ID,
		Filename:      doc.Filename,
		FilePath:      doc.FileKey,
		UploadedAt:    doc.UploadedAt.UTC().Format(time.RFC3339),
		Status:        doc.Status,
		ExtractedText: doc.ExtractedText,
		TotalBlanks:   doc.TotalBlanks,
		Fields:        fields,
	}
}

func toFieldResponse(field Field) FieldResponse {
	return FieldResponse{
		ID:               field.ID,
		FieldType:        field.FieldType,
		XPosition:        field.X,
		YPosition:        field.Y,
		Width:            field.Width,
		Height:           field.Height,
		Area:             field.Area,
		SuggestedContent: field.SuggestedContent,
		UserContent:      field.UserContent,
		AISuggestion:     field.AISuggestion,
		AIEnhanced:       field.AIEnhanced,
		Context:          field.Context,
	}
}
