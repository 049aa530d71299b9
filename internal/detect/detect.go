// Package detect locates blank form fields. Scanned images go through a
// two-pass pixel heuristic over the grayscale raster; text documents get
// virtual fields derived from label keywords.
package detect

import (
	"image"
	"image/draw"
	"sort"
)

// Region is the bounding box of a detected blank area, in pixel
// coordinates with the origin at the top-left of the page.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Area   int
}

const (
	inkThreshold    = 128
	brightThreshold = 240
	blankMean       = 200
)

// FindBlankRegions scans a grayscale page for fillable areas.
//
// The primary pass binarizes ink (intensity below 128), walks 8-connected
// components and keeps boxes that look like form fields: 1000 < area <
// 100000, wider than 50px, taller than 20px, no wider than 80% of the page,
// no taller than 30%, aspect ratio between 0.5 and 10, and a mostly white
// interior (mean intensity above 200). When that finds nothing the fallback
// pass thresholds bright pixels (above 240) and keeps components with
// 1000 < area < 50000, w > 50, h > 20, under 60% page width and 20% height.
//
// Results are ordered top-to-bottom, then left-to-right.
func FindBlankRegions(img *image.Gray) []Region {
	if img == nil {
		return nil
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil
	}

	regions := boxedFieldPass(img, w, h)
	if len(regions) == 0 {
		regions = brightRegionPass(img, w, h)
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Y != regions[j].Y {
			return regions[i].Y < regions[j].Y
		}
		return regions[i].X < regions[j].X
	})
	return regions
}

func boxedFieldPass(img *image.Gray, w, h int) []Region {
	mask := thresholdMask(img, w, h, func(v uint8) bool { return v < inkThreshold })
	boxes := connectedComponents(mask, w, h)

	var out []Region
	for _, b := range boxes {
		area := b.Width * b.Height
		if area <= 1000 || area >= 100000 {
			continue
		}
		if b.Width <= 50 || b.Height <= 20 {
			continue
		}
		if float64(b.Width) >= float64(w)*0.8 || float64(b.Height) >= float64(h)*0.3 {
			continue
		}
		aspect := float64(b.Width) / float64(b.Height)
		if aspect <= 0.5 || aspect >= 10 {
			continue
		}
		if meanIntensity(img, b) <= blankMean {
			continue
		}
		b.Area = area
		out = append(out, b)
	}
	return out
}

func brightRegionPass(img *image.Gray, w, h int) []Region {
	mask := thresholdMask(img, w, h, func(v uint8) bool { return v > brightThreshold })
	boxes := connectedComponents(mask, w, h)

	var out []Region
	for _, b := range boxes {
		area := b.Width * b.Height
		if area <= 1000 || area >= 50000 {
			continue
		}
		if b.Width <= 50 || b.Height <= 20 {
			continue
		}
		if float64(b.Width) >= float64(w)*0.6 || float64(b.Height) >= float64(h)*0.2 {
			continue
		}
		b.Area = area
		out = append(out, b)
	}
	return out
}

// Pix[0] corresponds to Rect.Min, so indexing below is origin-independent.
func thresholdMask(img *image.Gray, w, h int, keep func(uint8) bool) []bool {
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			mask[y*w+x] = keep(row[x])
		}
	}
	return mask
}

// connectedComponents returns bounding boxes of 8-connected set pixels.
func connectedComponents(mask []bool, w, h int) []Region {
	visited := make([]bool, len(mask))
	stack := make([]int, 0, 1024)
	var out []Region

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		minX, minY := w-1, h-1
		maxX, maxY := 0, 0
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					nidx := ny*w + nx
					if mask[nidx] && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
		}
		out = append(out, Region{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1})
	}
	return out
}

// meanIntensity averages pixel values inside a region, coordinates relative
// to the page origin.
func meanIntensity(img *image.Gray, r Region) float64 {
	total, count := 0, 0
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := r.X; x < r.X+r.Width; x++ {
			total += int(row[x])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// Grayscale converts any decoded image to 8-bit grayscale.
func Grayscale(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	bounds := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
	return gray
}
