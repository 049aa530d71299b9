package detect

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"autofill-backend/internal/ocr"
)

// contextRules drive the full-text scan in ClassifyRegion. Evaluated in
// order per line; the first hit wins.
var contextRules = []struct {
	fieldType string
	keywords  []string
}{
	{"name", []string{"enter your name", "please enter your name", "name:"}},
	{"name", []string{"dependent", "name of dependent"}},
	{"age", []string{"age"}},
	{"dropdown", []string{"select", "dropdown", "combo"}},
	{"checkbox", []string{"check", "option"}},
	{"email", []string{"email", "e-mail"}},
	{"phone", []string{"phone", "telephone", "tel"}},
	{"address", []string{"address"}},
	{"date", []string{"date", "birth"}},
	{"signature", []string{"signature", "sign"}},
}

const classifyPadding = 50

// ClassifyRegion names the context of a blank region. It scans the page's
// extracted text first; when that is silent it recognizes the neighborhood
// around the region (padded by 50px) and scans that snippet. Everything
// else is general.
func ClassifyRegion(ctx context.Context, img *image.Gray, region Region, fullText string, engine ocr.Engine) string {
	if fieldType := classifyFromText(fullText); fieldType != "" {
		return fieldType
	}
	if img != nil && engine != nil {
		if fieldType := classifyFromNeighborhood(ctx, img, region, engine); fieldType != "" {
			return fieldType
		}
	}
	return "general"
}

func classifyFromText(fullText string) string {
	if fullText == "" {
		return ""
	}
	for _, line := range strings.Split(fullText, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if lower == "" {
			continue
		}
		for _, rule := range contextRules {
			for _, keyword := range rule.keywords {
				if strings.Contains(lower, keyword) {
					return rule.fieldType
				}
			}
		}
	}
	return ""
}

func classifyFromNeighborhood(ctx context.Context, img *image.Gray, region Region, engine ocr.Engine) string {
	snippet, err := encodeRegion(img, region, classifyPadding)
	if err != nil {
		return ""
	}
	text, err := engine.Text(ctx, snippet)
	if err != nil {
		return ""
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "name"):
		return "name"
	case strings.Contains(lower, "address"):
		return "address"
	case strings.Contains(lower, "phone"), strings.Contains(lower, "tel"):
		return "phone"
	case strings.Contains(lower, "email"):
		return "email"
	case strings.Contains(lower, "date"):
		return "date"
	case strings.Contains(lower, "signature"), strings.Contains(lower, "sign"):
		return "signature"
	}
	return ""
}

// encodeRegion crops the region plus padding, clamped to the page, and
// encodes it as PNG for the recognizer.
func encodeRegion(img *image.Gray, region Region, padding int) ([]byte, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	x1 := max(0, region.X-padding)
	y1 := max(0, region.Y-padding)
	x2 := min(w, region.X+region.Width+padding)
	y2 := min(h, region.Y+region.Height+padding)
	if x2 <= x1 || y2 <= y1 {
		return nil, image.ErrFormat
	}

	crop := image.NewGray(image.Rect(0, 0, x2-x1, y2-y1))
	for y := y1; y < y2; y++ {
		srcRow := img.Pix[y*img.Stride:]
		copy(crop.Pix[(y-y1)*crop.Stride:][:x2-x1], srcRow[x1:x2])
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
