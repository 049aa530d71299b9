package documents

import "context"

// ListFilter narrows List queries. Zero values mean "no constraint".
type ListFilter struct {
	Status string
	Search string
	UserID string
	Limit  int
	Offset int
}

// FieldFilter narrows cross-document field listings for the operator API.
// Search matches user_content, suggested_content and ai_suggestion.
type FieldFilter struct {
	DocumentID string
	FieldType  string
	Search     string
	Limit      int
	Offset     int
}

// FieldPatch is a partial field update; nil pointers leave the stored
// value untouched.
type FieldPatch struct {
	UserContent      *string
	SuggestedContent *string
	FieldType        *string
	Context          *string
}

// Repo defines persistence for documents and their fields. Fields are
// owned by their document and never outlive it.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	GetCurrentByUser(ctx context.Context, userID string) (Document, error)
	List(ctx context.Context, filter ListFilter) ([]Document, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	UpdateStatus(ctx context.Context, id, status, errorDetail string) error
	UpdateProcessed(ctx context.Context, id, extractedText string, totalBlanks int) error
	UpdateArtifacts(ctx context.Context, id, filledKey, summaryKey string) error
	Delete(ctx context.Context, id string) error

	CreateFields(ctx context.Context, fields []Field) error
	GetField(ctx context.Context, id string) (Field, error)
	ListFields(ctx context.Context, documentID string) ([]Field, error)
	ListAllFields(ctx context.Context, filter FieldFilter) ([]Field, error)
	CountAllFields(ctx context.Context) (int, error)
	UpdateFieldContent(ctx context.Context, id, userContent string) error
	UpdateFieldAI(ctx context.Context, id, content, suggestion string) error
	PatchField(ctx context.Context, id string, patch FieldPatch) error
	DeleteField(ctx context.Context, id string) error
}
