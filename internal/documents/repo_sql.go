package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLRepo implements Repo on database/sql. Placeholders are written
// $1..$n, which both the pgx stdlib driver and modernc sqlite accept.
type SQLRepo struct {
	DB *sql.DB
}

const documentColumns = `id, filename, file_path, uploaded_at, status, extracted_text, total_blanks, user_id, error_detail, filled_key, summary_key`

const fieldColumns = `id, document_id, position, field_type, x_position, y_position, width, height, area, suggested_content, user_content, ai_suggestion, ai_enhanced, context`

// Create inserts a new document row.
func (r *SQLRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    filename,
    file_path,
    uploaded_at,
    status,
    extracted_text,
    total_blanks,
    user_id,
    error_detail,
    filled_key,
    summary_key
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, NULL, NULL)`

	status := doc.Status
	if status == "" {
		status = StatusUploaded
	}
	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.Filename,
		doc.FileKey,
		doc.UploadedAt,
		status,
		doc.ExtractedText,
		doc.TotalBlanks,
		nullable(doc.UserID),
	)
	return err
}

// GetByID fetches a document and its fields.
func (r *SQLRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Fields, err = r.ListFields(ctx, doc.ID)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// GetCurrentByUser returns the caller's latest document with fields.
func (r *SQLRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY uploaded_at DESC
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Fields, err = r.ListFields(ctx, doc.ID)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// List returns documents newest-first, filtered and paged. Fields are
// not loaded; listings only need the row.
func (r *SQLRepo) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	where, args := documentFilterClauses(filter)
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
	query := `
SELECT ` + documentColumns + `
FROM documents` + where + fmt.Sprintf(`
ORDER BY uploaded_at DESC
LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Count returns the number of documents matching the filter.
func (r *SQLRepo) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := documentFilterClauses(filter)
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&count)
	return count, err
}

// UpdateStatus moves a document through its lifecycle. An empty
// errorDetail clears any previous detail.
func (r *SQLRepo) UpdateStatus(ctx context.Context, id, status, errorDetail string) error {
	const query = `
UPDATE documents
SET status = $1, error_detail = $2
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, status, nullable(errorDetail), id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

// UpdateProcessed records the pipeline result and marks the document
// processed.
func (r *SQLRepo) UpdateProcessed(ctx context.Context, id, extractedText string, totalBlanks int) error {
	const query = `
UPDATE documents
SET status = $1, extracted_text = $2, total_blanks = $3, error_detail = NULL
WHERE id = $4`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessed, extractedText, totalBlanks, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

// UpdateArtifacts records regenerated artifact keys. Empty strings leave
// the stored key unchanged.
func (r *SQLRepo) UpdateArtifacts(ctx context.Context, id, filledKey, summaryKey string) error {
	const query = `
UPDATE documents
SET filled_key = COALESCE(NULLIF($1, ''), filled_key),
    summary_key = COALESCE(NULLIF($2, ''), summary_key)
WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, filledKey, summaryKey, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

// Delete removes a document; fields, sessions and messages cascade.
func (r *SQLRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

// CreateFields inserts detected fields in one transaction so a document
// never ends up with a partial field set.
func (r *SQLRepo) CreateFields(ctx context.Context, fields []Field) error {
	if len(fields) == 0 {
		return nil
	}
	const query = `
INSERT INTO document_fields (
    id,
    document_id,
    position,
    field_type,
    x_position,
    y_position,
    width,
    height,
    area,
    suggested_content,
    user_content,
    ai_suggestion,
    ai_enhanced,
    context
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, field := range fields {
		if _, err = tx.ExecContext(
			ctx,
			query,
			field.ID,
			field.DocumentID,
			field.Position,
			field.FieldType,
			field.X,
			field.Y,
			field.Width,
			field.Height,
			field.Area,
			field.SuggestedContent,
			field.UserContent,
			field.AISuggestion,
			field.AIEnhanced,
			field.Context,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetField fetches a single field by ID.
func (r *SQLRepo) GetField(ctx context.Context, id string) (Field, error) {
	const query = `
SELECT ` + fieldColumns + `
FROM document_fields
WHERE id = $1
LIMIT 1`
	field, err := scanField(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Field{}, ErrFieldNotFound
		}
		return Field{}, err
	}
	return field, nil
}

// ListFields returns a document's fields in insertion order.
func (r *SQLRepo) ListFields(ctx context.Context, documentID string) ([]Field, error) {
	const query = `
SELECT ` + fieldColumns + `
FROM document_fields
WHERE document_id = $1
ORDER BY position, id`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Field
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}
	return out, rows.Err()
}

// ListAllFields pages fields across documents for the operator API.
func (r *SQLRepo) ListAllFields(ctx context.Context, filter FieldFilter) ([]Field, error) {
	where, args := fieldFilterClauses(filter)
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
	query := `
SELECT ` + fieldColumns + `
FROM document_fields` + where + fmt.Sprintf(`
ORDER BY document_id, position, id
LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Field
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}
	return out, rows.Err()
}

// CountAllFields counts every stored field.
func (r *SQLRepo) CountAllFields(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_fields`).Scan(&count)
	return count, err
}

// UpdateFieldContent stores user-entered content.
func (r *SQLRepo) UpdateFieldContent(ctx context.Context, id, userContent string) error {
	const query = `
UPDATE document_fields
SET user_content = $1
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, userContent, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrFieldNotFound)
}

// UpdateFieldAI stores AI-derived content and flags the field enhanced.
func (r *SQLRepo) UpdateFieldAI(ctx context.Context, id, content, suggestion string) error {
	const query = `
UPDATE document_fields
SET user_content = $1, ai_suggestion = $2, ai_enhanced = $3
WHERE id = $4`
	res, err := r.DB.ExecContext(ctx, query, content, suggestion, true, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrFieldNotFound)
}

// PatchField applies a partial operator edit to a field.
func (r *SQLRepo) PatchField(ctx context.Context, id string, patch FieldPatch) error {
	var sets []string
	var args []any
	assign := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	assign("user_content", patch.UserContent)
	assign("suggested_content", patch.SuggestedContent)
	assign("field_type", patch.FieldType)
	assign("context", patch.Context)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`
UPDATE document_fields
SET %s
WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res, ErrFieldNotFound)
}

// DeleteField removes a single field.
func (r *SQLRepo) DeleteField(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM document_fields WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrFieldNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var userID, errorDetail, filledKey, summaryKey sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.FileKey,
		&doc.UploadedAt,
		&doc.Status,
		&doc.ExtractedText,
		&doc.TotalBlanks,
		&userID,
		&errorDetail,
		&filledKey,
		&summaryKey,
	); err != nil {
		return Document{}, err
	}
	doc.UserID = userID.String
	doc.ErrorDetail = errorDetail.String
	doc.FilledKey = filledKey.String
	doc.SummaryKey = summaryKey.String
	return doc, nil
}

func scanField(row rowScanner) (Field, error) {
	var field Field
	if err := row.Scan(
		&field.ID,
		&field.DocumentID,
		&field.Position,
		&field.FieldType,
		&field.X,
		&field.Y,
		&field.Width,
		&field.Height,
		&field.Area,
		&field.SuggestedContent,
		&field.UserContent,
		&field.AISuggestion,
		&field.AIEnhanced,
		&field.Context,
	); err != nil {
		return Field{}, err
	}
	return field, nil
}

func documentFilterClauses(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(LOWER(filename) LIKE $%d OR LOWER(extracted_text) LIKE $%d)", n, n))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return `
WHERE ` + strings.Join(clauses, " AND "), args
}

func fieldFilterClauses(filter FieldFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		clauses = append(clauses, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if filter.FieldType != "" {
		args = append(args, filter.FieldType)
		clauses = append(clauses, fmt.Sprintf("field_type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(user_content) LIKE $%d OR LOWER(suggested_content) LIKE $%d OR LOWER(ai_suggestion) LIKE $%d)", n, n, n))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return `
WHERE ` + strings.Join(clauses, " AND "), args
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func requireRow(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return missing
	}
	return nil
}

var _ Repo = (*SQLRepo)(nil)
