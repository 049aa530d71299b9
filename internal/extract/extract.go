// Package extract pulls plain text out of uploaded documents: PDFs through
// github.com/ledongthuc/pdf, Word files through the OOXML container, text
// files as-is, and scanned images through the OCR engine.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ledongthuc/pdf"

	"autofill-backend/internal/ocr"
	"autofill-backend/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Kind is the broad processing category of an upload.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindWord    Kind = "word"
	KindText    Kind = "text"
	KindUnknown Kind = ""
)

// KindForExt maps a file extension (with leading dot) to its processing kind.
func KindForExt(ext string) Kind {
	switch strings.ToLower(ext) {
	case ".pdf":
		return KindPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif", ".webp":
		return KindImage
	case ".doc", ".docx":
		return KindWord
	case ".txt", ".rtf":
		return KindText
	default:
		return KindUnknown
	}
}

// ExtractText pulls text from a stored object and persists a derived
// .extracted.txt copy next to it.
func ExtractText(ctx context.Context, store object.ObjectStore, engine ocr.Engine, fileKey string, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: read: %w", fileKey, mimeType, err)
	}

	text, err := ExtractTextFromBytes(ctx, engine, raw, mimeType, fileName)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	extractedKey := fileKey + ".extracted.txt"
	if _, err := store.SaveWithKey(ctx, extractedKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	return text, nil
}

// ExtractTextFromBytes extracts text from an in-memory payload.
func ExtractTextFromBytes(ctx context.Context, engine ocr.Engine, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := normalizeMimeType(mimeType, fileName, data)
	switch {
	case normalized == mimePDF:
		return extractPDF(data)
	case normalized == mimeDOC, normalized == mimeDOCX:
		return extractWord(data)
	case strings.HasPrefix(normalized, "text/"), normalized == "application/rtf":
		return lossyText(data), nil
	case strings.HasPrefix(normalized, "image/"):
		return extractImage(ctx, engine, data)
	default:
		return "", fmt.Errorf("unsupported mime type: %s", normalized)
	}
}

// DecodeImage decodes an uploaded raster image. Format support matches the
// upload allowlist (PNG, JPEG, GIF, BMP, TIFF, WebP).
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractWord reads document.xml out of the OOXML container. Legacy .doc
// payloads, or any container that will not parse, degrade to a lossy UTF-8
// read so the label scanner still has something to work with.
func extractWord(data []byte) (string, error) {
	if text, err := extractDOCX(data); err == nil {
		return text, nil
	}
	return lossyText(data), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

func extractImage(ctx context.Context, engine ocr.Engine, data []byte) (string, error) {
	if engine == nil {
		engine = ocr.Noop{}
	}
	text, err := engine.Text(ctx, data)
	if err != nil {
		return "", fmt.Errorf("image ocr: %w", err)
	}
	return text, nil
}

func lossyText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if last := buf.Len(); last > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean == "application/zip" {
		if mapOOXMLFromZip(data) {
			return mimeDOCX
		}
	}
	if clean == "" || clean == "application/octet-stream" || clean == "application/zip" {
		if byExt := mimeForExt(filepath.Ext(fileName)); byExt != "" {
			return byExt
		}
	}
	return clean
}

func mapOOXMLFromZip(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return mimePDF
	case ".doc":
		return mimeDOC
	case ".docx":
		return mimeDOCX
	case ".txt":
		return "text/plain"
	case ".rtf":
		return "application/rtf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
