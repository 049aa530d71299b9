package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func grayPage(w, h int, v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func luminanceAt(img image.Image, x, y int) uint32 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (r + g + b) / 3 >> 8
}

func TestOverlayImagePaintsBackingAndInk(t *testing.T) {
	src := grayPage(200, 100, 128)
	out := OverlayImage(src, []Fill{
		{Context: "name", Content: "Hello", X: 10, Y: 20, Width: 120, Height: 30},
	}, nil)

	var sawBacking, sawInk bool
	bounds := out.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			switch lum := luminanceAt(out, x, y); {
			case lum > 240:
				sawBacking = true
			case lum < 64:
				sawInk = true
			}
		}
	}
	if !sawBacking {
		t.Fatalf("expected white backing rectangle on gray page")
	}
	if !sawInk {
		t.Fatalf("expected dark text ink on gray page")
	}

	// Far corner stays untouched.
	if lum := luminanceAt(out, 195, 95); lum < 100 || lum > 160 {
		t.Fatalf("corner pixel disturbed, luminance %d", lum)
	}
}

func TestOverlayImageSkipsEmptyContent(t *testing.T) {
	src := grayPage(50, 50, 128)
	out := OverlayImage(src, []Fill{{Context: "name", X: 5, Y: 5, Width: 20, Height: 10}}, nil)

	bounds := out.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if lum := luminanceAt(out, x, y); lum < 100 || lum > 160 {
				t.Fatalf("pixel (%d,%d) changed, luminance %d", x, y, lum)
			}
		}
	}
}

func TestFillImageRewritesUnencodableFormats(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, grayPage(40, 40, 255)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	// Source claims .gif; output falls back to png.
	data, ext, err := FillImage(buf.Bytes(), "scan.gif", nil, nil)
	if err != nil {
		t.Fatalf("FillImage: %v", err)
	}
	if ext != ".png" {
		t.Fatalf("expected .png fallback, got %q", ext)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("output not decodable png: %v", err)
	}
}

func TestFillImageKeepsJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, grayPage(40, 40, 255)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	_, ext, err := FillImage(buf.Bytes(), "scan.JPG", nil, nil)
	if err != nil {
		t.Fatalf("FillImage: %v", err)
	}
	if ext != ".jpg" {
		t.Fatalf("expected .jpg, got %q", ext)
	}
}

func TestFillImageRejectsJunk(t *testing.T) {
	if _, _, err := FillImage([]byte("not an image"), "x.png", nil, nil); err == nil {
		t.Fatalf("expected decode error")
	}
}
