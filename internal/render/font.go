package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// OverlayFontSize is the point size used for image overlays.
const OverlayFontSize = 14

// LoadFace parses the TTF at fontPath at the given size. An empty path
// yields the builtin fixed face.
func LoadFace(fontPath string, size float64) (font.Face, error) {
	if strings.TrimSpace(fontPath) == "" {
		return basicfont.Face7x13, nil
	}
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ttf: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

// DefaultFace is the fallback used when no overlay font is configured or
// the configured one cannot be loaded.
func DefaultFace() font.Face {
	return basicfont.Face7x13
}

func faceOr(fontPath string, size float64) font.Face {
	face, err := LoadFace(fontPath, size)
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
