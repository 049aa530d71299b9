// Package render regenerates document artifacts: filled copies of the
// original upload and summary PDFs. Raster work goes through gg, PDF
// work through pdfcpu, DOCX rewrites through nguyenthenguyen/docx.
package render

import "strings"

// Fill is one placement of user-approved content over a document. X, Y,
// Width and Height are pixel coordinates from the top-left of page one;
// Context is the detected label keyword the field was classified from.
type Fill struct {
	Context string
	Content string
	X       int
	Y       int
	Width   int
	Height  int
}

// labelContent pairs a lowered context label with the content that fills
// it. Label order follows first appearance; a later fill for the same
// label overwrites the content.
type labelContent struct {
	label   string
	content string
}

func orderedFills(fills []Fill) []labelContent {
	var out []labelContent
	index := make(map[string]int)
	for _, f := range fills {
		if f.Content == "" {
			continue
		}
		label := strings.ToLower(f.Context)
		if label == "" {
			continue
		}
		if i, ok := index[label]; ok {
			out[i].content = f.Content
			continue
		}
		index[label] = len(out)
		out = append(out, labelContent{label: label, content: f.Content})
	}
	return out
}

// matchLine decides whether a document line receives fill content: the
// line must mention a filled label and end with a colon.
func matchLine(line string, ordered []labelContent) (string, bool) {
	trimmed := strings.TrimSpace(line)
	lowered := strings.ToLower(trimmed)
	for _, lc := range ordered {
		if !strings.Contains(lowered, lc.label) {
			continue
		}
		if strings.HasSuffix(trimmed, ":") {
			return lc.content, true
		}
	}
	return "", false
}

// FillText appends filled content to every labeled line of a plain-text
// document. Lines that carry no filled label pass through untouched.
func FillText(text string, fills []Fill) string {
	ordered := orderedFills(fills)
	if len(ordered) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if content, ok := matchLine(line, ordered); ok {
			lines[i] = line + " " + content
		}
	}
	return strings.Join(lines, "\n")
}
