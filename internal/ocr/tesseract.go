package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs OCR through the local tesseract installation. A fresh
// client is created per call because gosseract clients are not safe for
// concurrent use.
type Tesseract struct {
	// Language passed to tesseract, defaults to "eng".
	Language string
}

// Text recognizes the text in an encoded image.
func (t *Tesseract) Text(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	lang := t.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", wrapErr("set language", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", wrapErr("set image", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", wrapErr("recognize", err)
	}
	return CleanText(text), nil
}

var _ Engine = (*Tesseract)(nil)
