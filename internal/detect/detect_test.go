package detect

import (
	"image"
	"testing"
)

func newPage(w, h int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

func fillRect(img *image.Gray, x, y, w, h int, value uint8) {
	for yy := y; yy < y+h; yy++ {
		row := img.Pix[yy*img.Stride:]
		for xx := x; xx < x+w; xx++ {
			row[xx] = value
		}
	}
}

func outlineRect(img *image.Gray, x, y, w, h int, value uint8) {
	fillRect(img, x, y, w, 1, value)
	fillRect(img, x, y+h-1, w, 1, value)
	fillRect(img, x, y, 1, h, value)
	fillRect(img, x+w-1, y, 1, h, value)
}

func TestFindBlankRegionsKeepsBoxedField(t *testing.T) {
	page := newPage(800, 600, 255)
	// A drawn form field: thin black outline with a white interior.
	outlineRect(page, 100, 100, 301, 41, 0)
	// Solid ink block: right shape, but not blank inside.
	fillRect(page, 200, 300, 300, 100, 0)
	// Tiny ink blob, too small to be a field.
	fillRect(page, 600, 450, 10, 10, 0)
	// Page border, too large relative to the page.
	outlineRect(page, 5, 5, 790, 590, 0)

	regions := FindBlankRegions(page)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d: %+v", len(regions), regions)
	}
	r := regions[0]
	if r.X != 100 || r.Y != 100 || r.Width != 301 || r.Height != 41 {
		t.Fatalf("unexpected region geometry: %+v", r)
	}
	if r.Area != 301*41 {
		t.Fatalf("expected area %d, got %d", 301*41, r.Area)
	}
}

func TestFindBlankRegionsFallsBackToBrightAreas(t *testing.T) {
	// Mid-gray page: no ink below the primary threshold anywhere.
	page := newPage(800, 600, 180)
	fillRect(page, 50, 80, 200, 50, 255)

	regions := FindBlankRegions(page)
	if len(regions) != 1 {
		t.Fatalf("expected 1 fallback region, got %d: %+v", len(regions), regions)
	}
	r := regions[0]
	if r.X != 50 || r.Y != 80 || r.Width != 200 || r.Height != 50 {
		t.Fatalf("unexpected region geometry: %+v", r)
	}
}

func TestFindBlankRegionsOrdersTopToBottomLeftToRight(t *testing.T) {
	page := newPage(800, 600, 255)
	outlineRect(page, 500, 100, 150, 40, 0)
	outlineRect(page, 50, 300, 150, 40, 0)
	outlineRect(page, 300, 300, 150, 40, 0)

	regions := FindBlankRegions(page)
	if len(regions) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(regions))
	}
	if regions[0].Y != 100 {
		t.Fatalf("expected top region first, got %+v", regions[0])
	}
	if regions[1].X != 50 || regions[2].X != 300 {
		t.Fatalf("expected same-row regions ordered by X, got %+v then %+v", regions[1], regions[2])
	}
}

func TestFindBlankRegionsEmptyInputs(t *testing.T) {
	if got := FindBlankRegions(nil); got != nil {
		t.Fatalf("expected nil for nil image, got %+v", got)
	}
	blank := newPage(800, 600, 255)
	// All white: primary has no ink, fallback sees one page-sized region
	// that is rejected for being too large.
	if got := FindBlankRegions(blank); len(got) != 0 {
		t.Fatalf("expected no regions on a blank page, got %+v", got)
	}
}

func TestGrayscaleConvertsAndNormalizesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 30, 20))
	gray := Grayscale(src)
	if gray.Bounds().Min.X != 0 || gray.Bounds().Min.Y != 0 {
		t.Fatalf("expected origin at (0,0), got %v", gray.Bounds().Min)
	}
	if gray.Bounds().Dx() != 20 || gray.Bounds().Dy() != 10 {
		t.Fatalf("unexpected dimensions: %v", gray.Bounds())
	}
}
