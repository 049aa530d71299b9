package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
)

// Fixture forms for manual testing and the seed command. The image form
// exercises pixel detection (outlined boxes on white), the PDF and text
// forms exercise the label-line path.

var imageFormRows = []string{
	"Full Name:",
	"Email Address:",
	"Phone Number:",
	"Address:",
	"Date of Birth:",
	"Signature:",
}

var pdfFormRows = []string{
	"Full Name:",
	"Date of Birth:",
	"Signature:",
	"Address:",
	"Phone Number:",
	"Email:",
	"Date:",
}

// SampleImageForm draws an 800x600 application form with six labeled
// input boxes and returns it PNG-encoded.
func SampleImageForm(fontPath string) ([]byte, error) {
	const width, height = 800, 600
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	dc.SetFontFace(faceOr(fontPath, 24))
	dc.DrawStringAnchored("Application Form", 50, 30, 0, 0.75)

	dc.SetFontFace(faceOr(fontPath, 16))
	dc.SetLineWidth(2)
	for i, label := range imageFormRows {
		y := float64(100 + i*50)
		dc.DrawStringAnchored(label, 50, y, 0, 0.75)
		dc.DrawRectangle(200, y-5, 300, 30)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	return buf.Bytes(), nil
}

// SamplePDFForm renders a letter-sized personal info form and wraps it
// into a one-page PDF.
func SamplePDFForm(fontPath string) ([]byte, error) {
	dc := gg.NewContext(letterWidth, letterHeight)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	dc.SetFontFace(faceOr(fontPath, 16))
	dc.DrawStringAnchored("Personal Info Form", letterWidth/2, 80, 0.5, 0.5)

	dc.SetFontFace(faceOr(fontPath, 12))
	y := 150.0
	for _, label := range pdfFormRows {
		dc.DrawString(label, 100, y)
		y += 40
	}

	var page bytes.Buffer
	if err := dc.EncodePNG(&page); err != nil {
		return nil, fmt.Errorf("encode form page: %w", err)
	}
	return imagePDF(&page)
}

// SampleTextForm returns a plain-text form whose label lines feed the
// virtual field pass.
func SampleTextForm() string {
	return strings.Join([]string{
		"Employee Information Form",
		"",
		"Full Name:",
		"Email Address:",
		"Phone Number:",
		"Address:",
		"Date of Birth:",
		"Signature:",
		"",
	}, "\n")
}
