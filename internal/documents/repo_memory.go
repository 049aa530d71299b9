package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory Repo used when no database is configured
// and in tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	docs   map[string]Document // document ID -> row (Fields kept empty)
	fields map[string][]Field  // document ID -> ordered fields
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:   make(map[string]Document),
		fields: make(map[string][]Field),
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Status == "" {
		doc.Status = StatusUploaded
	}
	doc.Fields = nil
	r.docs[doc.ID] = doc
	return nil
}

// GetByID returns a document and its fields.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Fields = r.copyFields(id)
	return doc, nil
}

// GetCurrentByUser returns the caller's latest document with fields.
func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var current Document
	found := false
	for _, doc := range r.docs {
		if doc.UserID != userID {
			continue
		}
		if !found || doc.UploadedAt.After(current.UploadedAt) {
			current = doc
			found = true
		}
	}
	if !found {
		return Document{}, ErrNotFound
	}
	current.Fields = r.copyFields(current.ID)
	return current, nil
}

// List returns documents newest-first, filtered and paged.
func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Document
	for _, doc := range r.docs {
		if matchesFilter(doc, filter) {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Document{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

// Count returns the number of documents matching the filter.
func (r *MemoryRepo) Count(ctx context.Context, filter ListFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, doc := range r.docs {
		if matchesFilter(doc, filter) {
			count++
		}
	}
	return count, nil
}

// UpdateStatus moves a document through its lifecycle.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id, status, errorDetail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	doc.ErrorDetail = errorDetail
	r.docs[id] = doc
	return nil
}

// UpdateProcessed records the pipeline result.
func (r *MemoryRepo) UpdateProcessed(ctx context.Context, id, extractedText string, totalBlanks int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = StatusProcessed
	doc.ExtractedText = extractedText
	doc.TotalBlanks = totalBlanks
	doc.ErrorDetail = ""
	r.docs[id] = doc
	return nil
}

// UpdateArtifacts records artifact keys; empty strings leave the stored
// key unchanged.
func (r *MemoryRepo) UpdateArtifacts(ctx context.Context, id, filledKey, summaryKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	if filledKey != "" {
		doc.FilledKey = filledKey
	}
	if summaryKey != "" {
		doc.SummaryKey = summaryKey
	}
	r.docs[id] = doc
	return nil
}

// Delete removes a document and its fields.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	delete(r.fields, id)
	return nil
}

// CreateFields appends fields to their documents.
func (r *MemoryRepo) CreateFields(ctx context.Context, fields []Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, field := range fields {
		r.fields[field.DocumentID] = append(r.fields[field.DocumentID], field)
	}
	return nil
}

// GetField fetches a field by ID.
func (r *MemoryRepo) GetField(ctx context.Context, id string) (Field, error) {
	if err := ctx.Err(); err != nil {
		return Field{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fields := range r.fields {
		for _, field := range fields {
			if field.ID == id {
				return field, nil
			}
		}
	}
	return Field{}, ErrFieldNotFound
}

// ListFields returns a document's fields in insertion order.
func (r *MemoryRepo) ListFields(ctx context.Context, documentID string) ([]Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyFields(documentID), nil
}

// ListAllFields pages fields across documents for the operator API.
func (r *MemoryRepo) ListAllFields(ctx context.Context, filter FieldFilter) ([]Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Field
	for _, fields := range r.fields {
		for _, field := range fields {
			if matchesFieldFilter(field, filter) {
				out = append(out, field)
			}
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Field{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

// CountAllFields counts every stored field.
func (r *MemoryRepo) CountAllFields(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, fields := range r.fields {
		count += len(fields)
	}
	return count, nil
}

// UpdateFieldContent stores user-entered content.
func (r *MemoryRepo) UpdateFieldContent(ctx context.Context, id, userContent string) error {
	return r.updateField(ctx, id, func(field *Field) {
		field.UserContent = userContent
	})
}

// UpdateFieldAI stores AI-derived content and flags the field enhanced.
func (r *MemoryRepo) UpdateFieldAI(ctx context.Context, id, content, suggestion string) error {
	return r.updateField(ctx, id, func(field *Field) {
		field.UserContent = content
		field.AISuggestion = suggestion
		field.AIEnhanced = true
	})
}

// PatchField applies a partial operator edit to a field.
func (r *MemoryRepo) PatchField(ctx context.Context, id string, patch FieldPatch) error {
	return r.updateField(ctx, id, func(field *Field) {
		if patch.UserContent != nil {
			field.UserContent = *patch.UserContent
		}
		if patch.SuggestedContent != nil {
			field.SuggestedContent = *patch.SuggestedContent
		}
		if patch.FieldType != nil {
			field.FieldType = *patch.FieldType
		}
		if patch.Context != nil {
			field.Context = *patch.Context
		}
	})
}

// DeleteField removes a single field.
func (r *MemoryRepo) DeleteField(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for docID, fields := range r.fields {
		for i, field := range fields {
			if field.ID == id {
				r.fields[docID] = append(fields[:i], fields[i+1:]...)
				return nil
			}
		}
	}
	return ErrFieldNotFound
}

func (r *MemoryRepo) updateField(ctx context.Context, id string, apply func(*Field)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for docID, fields := range r.fields {
		for i := range fields {
			if fields[i].ID == id {
				apply(&fields[i])
				r.fields[docID] = fields
				return nil
			}
		}
	}
	return ErrFieldNotFound
}

// copyFields returns a sorted copy; callers hold at least a read lock.
func (r *MemoryRepo) copyFields(documentID string) []Field {
	stored := r.fields[documentID]
	out := make([]Field, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

func matchesFilter(doc Document, filter ListFilter) bool {
	if filter.Status != "" && doc.Status != filter.Status {
		return false
	}
	if filter.UserID != "" && doc.UserID != filter.UserID {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(doc.Filename), needle) &&
			!strings.Contains(strings.ToLower(doc.ExtractedText), needle) {
			return false
		}
	}
	return true
}

func matchesFieldFilter(field Field, filter FieldFilter) bool {
	if filter.DocumentID != "" && field.DocumentID != filter.DocumentID {
		return false
	}
	if filter.FieldType != "" && field.FieldType != filter.FieldType {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(field.UserContent), needle) &&
			!strings.Contains(strings.ToLower(field.SuggestedContent), needle) &&
			!strings.Contains(strings.ToLower(field.AISuggestion), needle) {
			return false
		}
	}
	return true
}

var _ Repo = (*MemoryRepo)(nil)
