package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/sync/errgroup"

	"autofill-backend/internal/detect"
	"autofill-backend/internal/extract"
	"autofill-backend/internal/ocr"
	"autofill-backend/internal/render"
	"autofill-backend/internal/shared/metrics"
	"autofill-backend/internal/shared/storage/object"
	"autofill-backend/internal/shared/telemetry"
)

const defaultMaxUploadBytes = 50 << 20

// SessionPurger removes the chat sessions attached to a document before the
// document row itself is deleted. The SQL schema cascades this on its own;
// the in-memory repos need the explicit call.
type SessionPurger interface {
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Service contains business logic for documents: the upload pipeline, field
// edits, artifact regeneration and session teardown.
type Service struct {
	Repo     Repo
	Store    object.ObjectStore
	Engine   ocr.Engine
	Sessions SessionPurger

	// FontPath points at a TTF used for image overlays and the summary
	// PDF. Empty means the built-in bitmap face.
	FontPath string

	// MediaBase, when set, is the public prefix under which storage keys
	// are directly reachable (the local static mount). Empty routes
	// artifact URLs through the streaming download endpoint instead.
	MediaBase string

	MaxUploadBytes int64
}

// Upload runs the intake pipeline: store the file, record the document,
// extract text and detect blank fields, then persist the results. The
// returned document carries its fields and a processed status; failures
// during analysis leave the row behind with status error.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Document, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." {
		return Document{}, ErrNoFile
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if extract.KindForExt(ext) == extract.KindUnknown {
		return Document{}, ErrUnsupportedType
	}

	limit := s.UploadLimit()
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > limit {
		return Document{}, ErrTooLarge
	}

	key, _, mimeType, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(raw))
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}

	doc := Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		Filename:   fileName,
		FileKey:    key,
		Status:     StatusUploaded,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	metrics.IncDocumentUploaded()

	if err := s.Repo.UpdateStatus(ctx, doc.ID, StatusProcessing, ""); err != nil {
		return Document{}, err
	}

	start := metrics.NowMillis()
	text, fields, err := s.analyze(ctx, doc, raw, mimeType)
	if err != nil {
		metrics.IncProcessingFailed()
		if stErr := s.Repo.UpdateStatus(ctx, doc.ID, StatusError, err.Error()); stErr != nil {
			telemetry.Error("documents.status_update_failed", map[string]any{
				"document_id": doc.ID,
				"error":       stErr.Error(),
			})
		}
		return Document{}, fmt.Errorf("process document: %w", err)
	}

	if err := s.Repo.CreateFields(ctx, fields); err != nil {
		return Document{}, err
	}
	if err := s.Repo.UpdateProcessed(ctx, doc.ID, text, len(fields)); err != nil {
		return Document{}, err
	}
	metrics.IncDocumentProcessed()
	metrics.AddFieldsDetected(len(fields))
	metrics.ObserveProcessingDurationMs(metrics.NowMillis() - start)

	s.persistExtractedText(ctx, key, text)

	telemetry.Info("documents.processed", map[string]any{
		"document_id":  doc.ID,
		"filename":     fileName,
		"total_blanks": len(fields),
	})
	return s.Repo.GetByID(ctx, doc.ID)
}

// analyze extracts text and derives blank fields from the uploaded bytes.
func (s *Service) analyze(ctx context.Context, doc Document, raw []byte, mimeType string) (string, []Field, error) {
	if extract.KindForExt(strings.ToLower(filepath.Ext(doc.Filename))) == extract.KindImage {
		return s.analyzeImage(ctx, doc, raw, mimeType)
	}
	text, err := extract.ExtractTextFromBytes(ctx, s.engine(), raw, mimeType, doc.Filename)
	if err != nil {
		return "", nil, err
	}
	return text, fieldsFromCandidates(doc.ID, detect.VirtualFieldsFromText(text)), nil
}

// analyzeImage runs OCR and blank-region detection concurrently. OCR is
// degradable: a failure logs and leaves the text empty rather than failing
// the upload, since pixel detection carries the field work on its own.
func (s *Service) analyzeImage(ctx context.Context, doc Document, raw []byte, mimeType string) (string, []Field, error) {
	img, err := extract.DecodeImage(raw)
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}
	gray := detect.Grayscale(img)

	var (
		text    string
		regions []detect.Region
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		extracted, err := extract.ExtractTextFromBytes(gctx, s.engine(), raw, mimeType, doc.Filename)
		if err != nil {
			telemetry.Warn("documents.ocr_degraded", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
			return nil
		}
		text = extracted
		return nil
	})
	g.Go(func() error {
		regions = detect.FindBlankRegions(gray)
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	if len(regions) == 0 {
		return text, fieldsFromCandidates(doc.ID, detect.VirtualFieldsFromText(text)), nil
	}

	engine := s.engine()
	fields := make([]Field, 0, len(regions))
	for i, region := range regions {
		fieldContext := detect.ClassifyRegion(ctx, gray, region, text, engine)
		fields = append(fields, Field{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Position:   i,
			FieldType:  detect.NormalizeFieldType(fieldContext),
			X:          region.X,
			Y:          region.Y,
			Width:      region.Width,
			Height:     region.Height,
			Area:       region.Area,
			Context:    fieldContext,
		})
	}
	return text, fields, nil
}

// Get returns a document with its fields.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	return s.Repo.GetByID(ctx, id)
}

// Current returns the most recent document for a user.
func (s *Service) Current(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, errors.New("user id required")
	}
	return s.Repo.GetCurrentByUser(ctx, userID)
}

// UpdateField stores user-entered content on a field. The field must belong
// to the given document.
func (s *Service) UpdateField(ctx context.Context, documentID, fieldID, content string) error {
	field, err := s.Repo.GetField(ctx, fieldID)
	if err != nil {
		return err
	}
	if field.DocumentID != documentID {
		return ErrFieldNotFound
	}
	return s.Repo.UpdateFieldContent(ctx, fieldID, content)
}

// RegenerateResult describes the filled artifact written by Regenerate.
type RegenerateResult struct {
	OutputFile  string
	OutputKey   string
	DownloadURL string
}

// Regenerate rebuilds the document with filled field content written in:
// PDFs get stamped, DOCX paragraphs are rewritten, images get an overlay and
// plain text gets values appended to label lines. Fields without content are
// skipped; a document with none still produces an artifact.
func (s *Service) Regenerate(ctx context.Context, id string) (RegenerateResult, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return RegenerateResult{}, err
	}
	src, err := s.readObject(ctx, doc.FileKey)
	if err != nil {
		return RegenerateResult{}, fmt.Errorf("open original: %w", err)
	}

	fills := fillsFromFields(doc.Fields)
	outName := "filled_" + doc.Filename
	var (
		out         []byte
		contentType string
	)
	switch extract.KindForExt(strings.ToLower(filepath.Ext(doc.Filename))) {
	case extract.KindPDF:
		out, err = render.StampPDF(src, fills)
		contentType = "application/pdf"
	case extract.KindWord:
		out, err = render.FillDocx(src, doc.ExtractedText, fills)
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case extract.KindImage:
		var outExt string
		out, outExt, err = render.FillImage(src, doc.Filename, fills, s.overlayFace())
		if err == nil {
			outName = "filled_" + replaceExt(doc.Filename, outExt)
			contentType = imageContentType(outExt)
		}
	default:
		out = []byte(render.FillText(strings.ToValidUTF8(string(src), ""), fills))
		contentType = "text/plain; charset=utf-8"
	}
	if err != nil {
		return RegenerateResult{}, fmt.Errorf("regenerate %s: %w", doc.Filename, err)
	}

	key := "processed/" + outName
	if _, err := s.Store.SaveWithKey(ctx, key, contentType, bytes.NewReader(out)); err != nil {
		return RegenerateResult{}, fmt.Errorf("store artifact: %w", err)
	}
	if err := s.Repo.UpdateArtifacts(ctx, id, key, ""); err != nil {
		return RegenerateResult{}, err
	}

	telemetry.Info("documents.regenerated", map[string]any{
		"document_id": id,
		"output":      key,
		"fills":       len(fills),
	})
	return RegenerateResult{
		OutputFile:  outName,
		OutputKey:   key,
		DownloadURL: s.artifactURL(id, key, "filled"),
	}, nil
}

// SummaryResult describes the summary PDF written by GenerateSummary.
type SummaryResult struct {
	PDFKey      string
	DownloadURL string
}

// GenerateSummary renders a one-page PDF listing the filled fields. It
// returns ErrNoFilledFields when nothing has been filled in yet.
func (s *Service) GenerateSummary(ctx context.Context, id string) (SummaryResult, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return SummaryResult{}, err
	}

	var entries []render.SummaryEntry
	for _, f := range doc.Fields {
		if !f.Filled() {
			continue
		}
		entries = append(entries, render.SummaryEntry{
			Index:   f.Position + 1,
			Context: f.Context,
			Content: f.UserContent,
		})
	}
	if len(entries) == 0 {
		return SummaryResult{}, ErrNoFilledFields
	}

	data, err := render.SummaryPDF(render.Summary{
		Filename:    doc.Filename,
		DocumentID:  doc.ID,
		UploadedAt:  doc.UploadedAt.UTC().Format(time.RFC3339),
		TotalFields: doc.TotalBlanks,
		Entries:     entries,
	}, s.FontPath)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("render summary: %w", err)
	}

	key := fmt.Sprintf("processed/filled_%s.pdf", doc.ID)
	if _, err := s.Store.SaveWithKey(ctx, key, "application/pdf", bytes.NewReader(data)); err != nil {
		return SummaryResult{}, fmt.Errorf("store summary: %w", err)
	}
	if err := s.Repo.UpdateArtifacts(ctx, id, "", key); err != nil {
		return SummaryResult{}, err
	}

	telemetry.Info("documents.summary_generated", map[string]any{
		"document_id": id,
		"fields":      len(entries),
	})
	return SummaryResult{
		PDFKey:      key,
		DownloadURL: "/api/documents/" + doc.ID + "/download/?kind=summary",
	}, nil
}

// DownloadResult carries artifact bytes plus the name and type to serve
// them under.
type DownloadResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Download streams one of a document's artifacts. Kind selects which:
// "original" (or empty), "filled" or "summary". Artifacts that have not
// been generated yet return ErrArtifactMissing.
func (s *Service) Download(ctx context.Context, id, kind string) (DownloadResult, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return DownloadResult{}, err
	}

	var key, name string
	switch kind {
	case "summary":
		key, name = doc.SummaryKey, fmt.Sprintf("filled_%s.pdf", doc.ID)
	case "filled":
		key, name = doc.FilledKey, filepath.Base(doc.FilledKey)
	default:
		key, name = doc.FileKey, doc.Filename
	}
	if key == "" {
		return DownloadResult{}, ErrArtifactMissing
	}

	data, err := s.readObject(ctx, key)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("open artifact: %w", err)
	}
	return DownloadResult{
		Data:        data,
		Filename:    name,
		ContentType: artifactContentType(name),
	}, nil
}

// PreviewResult is either a URL the client can load directly (pdf, image)
// or inline text content.
type PreviewResult struct {
	Type    string
	URL     string
	Content string
}

// Preview describes how the client should render the original upload.
// Text-like documents are read back from storage; if that fails the stored
// extracted text stands in.
func (s *Service) Preview(ctx context.Context, id string) (PreviewResult, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return PreviewResult{}, err
	}

	switch extract.KindForExt(strings.ToLower(filepath.Ext(doc.Filename))) {
	case extract.KindPDF:
		return PreviewResult{Type: "pdf", URL: s.artifactURL(doc.ID, doc.FileKey, "original")}, nil
	case extract.KindImage:
		return PreviewResult{Type: "image", URL: s.artifactURL(doc.ID, doc.FileKey, "original")}, nil
	default:
		src, err := s.readObject(ctx, doc.FileKey)
		if err != nil {
			telemetry.Warn("documents.preview_read_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
			return PreviewResult{Type: "text", Content: doc.ExtractedText}, nil
		}
		return PreviewResult{Type: "text", Content: strings.ToValidUTF8(string(src), "")}, nil
	}
}

// ClearSession deletes the user's current document along with its stored
// artifacts and chat sessions. A user with no current document is a no-op.
func (s *Service) ClearSession(ctx context.Context, userID string) error {
	doc, err := s.Repo.GetCurrentByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.deleteDocument(ctx, doc); err != nil {
		return err
	}
	telemetry.Info("documents.session_cleared", map[string]any{"document_id": doc.ID})
	return nil
}

// Delete removes a document by ID with the same cascade and store cleanup
// the clear-session flow performs. Used by the operator API.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteDocument(ctx, doc)
}

// deleteDocument drops a document's stored objects, chat sessions and row.
// Store cleanup is best effort; the row delete decides the outcome.
func (s *Service) deleteDocument(ctx context.Context, doc Document) error {
	for _, key := range []string{doc.FileKey, doc.FileKey + ".extracted.txt", doc.FilledKey, doc.SummaryKey} {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Warn("documents.cleanup_failed", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	if s.Sessions != nil {
		if err := s.Sessions.DeleteByDocument(ctx, doc.ID); err != nil {
			telemetry.Warn("documents.session_purge_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
	}
	if err := s.Repo.Delete(ctx, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// UploadLimit reports the effective upload cap in bytes.
func (s *Service) UploadLimit() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func (s *Service) engine() ocr.Engine {
	if s.Engine != nil {
		return s.Engine
	}
	return ocr.Noop{}
}

func (s *Service) overlayFace() font.Face {
	face, err := render.LoadFace(s.FontPath, render.OverlayFontSize)
	if err != nil {
		telemetry.Warn("documents.overlay_font_fallback", map[string]any{
			"path":  s.FontPath,
			"error": err.Error(),
		})
		return render.DefaultFace()
	}
	return face
}

// persistExtractedText writes the OCR output next to the original so later
// chat turns can reread it without another extraction pass. Best effort.
func (s *Service) persistExtractedText(ctx context.Context, fileKey, text string) {
	if text == "" {
		return
	}
	key := fileKey + ".extracted.txt"
	if _, err := s.Store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		telemetry.Warn("documents.extracted_text_persist_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (s *Service) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// artifactURL prefers the static media mount when one is configured and
// falls back to the streaming download route otherwise.
func (s *Service) artifactURL(documentID, key, kind string) string {
	if s.MediaBase != "" {
		return strings.TrimRight(s.MediaBase, "/") + "/" + key
	}
	return "/api/documents/" + documentID + "/download/?kind=" + kind
}

func fieldsFromCandidates(documentID string, candidates []detect.Candidate) []Field {
	fields := make([]Field, 0, len(candidates))
	for i, c := range candidates {
		fields = append(fields, Field{
			ID:               uuid.NewString(),
			DocumentID:       documentID,
			Position:         i,
			FieldType:        detect.NormalizeFieldType(c.Context),
			X:                c.X,
			Y:                c.Y,
			Width:            c.Width,
			Height:           c.Height,
			Area:             c.Area,
			SuggestedContent: c.SuggestedContent,
			Context:          c.Context,
		})
	}
	return fields
}

func fillsFromFields(fields []Field) []render.Fill {
	var fills []render.Fill
	for _, f := range fields {
		if !f.Filled() {
			continue
		}
		fills = append(fills, render.Fill{
			Context: f.Context,
			Content: f.UserContent,
			X:       f.X,
			Y:       f.Y,
			Width:   f.Width,
			Height:  f.Height,
		})
	}
	return fills
}

func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

func imageContentType(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func artifactContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
