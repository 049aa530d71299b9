package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register decoder
)

// FillImage overlays filled content onto an image document and encodes
// the result. The returned extension may differ from the input's when
// the source format has no encoder (gif, webp become png).
func FillImage(src []byte, fileName string, fills []Fill, face font.Face) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	out := OverlayImage(img, fills, face)
	return encodeByExt(out, strings.ToLower(filepath.Ext(fileName)))
}

// OverlayImage draws each filled field onto a copy of src: a small white
// backing rectangle for readability, then the content in black, left
// aligned inside the field box.
func OverlayImage(src image.Image, fills []Fill, face font.Face) image.Image {
	bounds := src.Bounds()
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.DrawImage(src, 0, 0)
	if face == nil {
		face = DefaultFace()
	}
	dc.SetFontFace(face)

	for _, f := range fills {
		if f.Content == "" {
			continue
		}
		tw, th := dc.MeasureString(f.Content)
		tx := float64(f.X + 5)
		ty := float64(f.Y) + (float64(f.Height)-th)/2

		dc.SetColor(color.White)
		dc.DrawRectangle(tx-2, ty-1, tw+4, th+2)
		dc.Fill()

		dc.SetColor(color.Black)
		dc.DrawStringAnchored(f.Content, tx, ty, 0, 0.8)
	}
	return dc.Image()
}

func encodeByExt(img image.Image, ext string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch ext {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), ext, nil
	case ".bmp":
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode bmp: %w", err)
		}
		return buf.Bytes(), ext, nil
	case ".tif", ".tiff":
		if err := tiff.Encode(&buf, img, nil); err != nil {
			return nil, "", fmt.Errorf("encode tiff: %w", err)
		}
		return buf.Bytes(), ext, nil
	default:
		// png stays png; gif and webp have no encoder here.
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), ".png", nil
	}
}
