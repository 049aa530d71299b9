package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// FillDocx appends filled content to labeled paragraphs of a Word
// document. text is the document's extracted plain text; its lines stand
// in for paragraphs, and each matched line is rewritten in place. Runs
// split mid-label defeat the match and leave the paragraph untouched.
func FillDocx(src []byte, text string, fills []Fill) ([]byte, error) {
	ordered := orderedFills(fills)

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()
	doc := reader.Editable()

	if len(ordered) > 0 {
		for _, line := range strings.Split(text, "\n") {
			content, ok := matchLine(line, ordered)
			if !ok || strings.TrimSpace(line) == "" {
				continue
			}
			if err := doc.Replace(line, line+" "+content, 1); err != nil {
				return nil, fmt.Errorf("fill paragraph: %w", err)
			}
		}
	}

	var out bytes.Buffer
	if err := doc.Write(&out); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return out.Bytes(), nil
}
