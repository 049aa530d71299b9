package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Letter page in points.
const (
	letterWidth  = 612
	letterHeight = 792
)

// StampPDF stamps each filled field onto page one of the source PDF as a
// Helvetica 12 text stamp anchored at the field's detected position.
// Field coordinates count from the page's top-left corner; pdfcpu offsets
// count up from the anchor, hence the negated Y.
func StampPDF(src []byte, fills []Fill) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	current := src
	for _, f := range fills {
		if f.Content == "" {
			continue
		}
		wm, err := api.TextWatermark(f.Content, stampDesc(f), true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("stamp watermark: %w", err)
		}
		var buf bytes.Buffer
		if err := api.AddWatermarks(bytes.NewReader(current), &buf, []string{"1"}, wm, conf); err != nil {
			return nil, fmt.Errorf("stamp page: %w", err)
		}
		current = buf.Bytes()
	}
	return current, nil
}

func stampDesc(f Fill) string {
	offX := f.X + 5
	offY := -(f.Y + f.Height/2 + 4)
	return fmt.Sprintf("fontname:Helvetica, points:12, scale:1 abs, rot:0, pos:tl, off:%d %d, color:#000000, op:1", offX, offY)
}

// SummaryEntry is one filled field on the summary page.
type SummaryEntry struct {
	Index   int
	Context string
	Content string
}

// Summary describes the single-page report of a document's filled
// fields.
type Summary struct {
	Filename    string
	DocumentID  string
	UploadedAt  string
	TotalFields int
	Entries     []SummaryEntry
}

// SummaryPDF renders the summary as a letter-sized page and wraps it
// into a one-page PDF.
func SummaryPDF(s Summary, fontPath string) ([]byte, error) {
	dc := gg.NewContext(letterWidth, letterHeight)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	dc.SetFontFace(faceOr(fontPath, 16))
	dc.DrawString(fmt.Sprintf("Filled Document: %s", s.Filename), 100, 100)

	body := faceOr(fontPath, 12)
	dc.SetFontFace(body)
	y := 150.0
	dc.DrawString(fmt.Sprintf("Document ID: %s", s.DocumentID), 100, y)
	y += 30
	dc.DrawString(fmt.Sprintf("Uploaded: %s", s.UploadedAt), 100, y)
	y += 30
	dc.DrawString(fmt.Sprintf("Total Fields: %d", s.TotalFields), 100, y)
	y += 50

	dc.SetFontFace(faceOr(fontPath, 14))
	dc.DrawString("Filled Fields:", 100, y)
	y += 30

	dc.SetFontFace(body)
	for _, e := range s.Entries {
		dc.DrawString(fmt.Sprintf("Field %d (%s): %s", e.Index, e.Context, e.Content), 120, y)
		y += 25
	}

	var page bytes.Buffer
	if err := dc.EncodePNG(&page); err != nil {
		return nil, fmt.Errorf("encode summary page: %w", err)
	}
	return imagePDF(&page)
}

// imagePDF wraps a single raster page into a letter-sized PDF.
func imagePDF(page io.Reader) ([]byte, error) {
	imp, err := api.Import("form:Letter, pos:full", types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("import config: %w", err)
	}
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, []io.Reader{page}, imp, nil); err != nil {
		return nil, fmt.Errorf("import summary page: %w", err)
	}
	return out.Bytes(), nil
}
