package render

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func buildTestDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>")
		body.WriteString(p)
		body.WriteString("</w:t></w:r></w:p>")
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/document.xml", document},
		{"word/_rels/document.xml.rels", docxDocumentRels},
	}
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			t.Fatalf("create %s: %v", entry.name, err)
		}
		if _, err := w.Write([]byte(entry.content)); err != nil {
			t.Fatalf("write %s: %v", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func readDocxDocument(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open output zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open document.xml: %v", err)
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read document.xml: %v", err)
		}
		return string(raw)
	}
	t.Fatalf("output zip has no word/document.xml")
	return ""
}

func TestFillDocxAppendsToLabeledParagraphs(t *testing.T) {
	paragraphs := []string{"Application", "Full Name:", "Phone:", "Notes"}
	src := buildTestDocx(t, paragraphs)
	text := strings.Join(paragraphs, "\n")

	out, err := FillDocx(src, text, []Fill{
		{Context: "name", Content: "Ada Lovelace"},
		{Context: "phone", Content: "555-0101"},
	})
	if err != nil {
		t.Fatalf("FillDocx: %v", err)
	}

	document := readDocxDocument(t, out)
	if !strings.Contains(document, "Full Name: Ada Lovelace") {
		t.Fatalf("name paragraph not filled:\n%s", document)
	}
	if !strings.Contains(document, "Phone: 555-0101") {
		t.Fatalf("phone paragraph not filled:\n%s", document)
	}
	if !strings.Contains(document, "<w:t>Notes</w:t>") {
		t.Fatalf("unlabeled paragraph disturbed:\n%s", document)
	}
}

func TestFillDocxWithoutFillsRoundTrips(t *testing.T) {
	src := buildTestDocx(t, []string{"Full Name:"})
	out, err := FillDocx(src, "Full Name:", nil)
	if err != nil {
		t.Fatalf("FillDocx: %v", err)
	}
	document := readDocxDocument(t, out)
	if !strings.Contains(document, "<w:t>Full Name:</w:t>") {
		t.Fatalf("paragraph changed without fills:\n%s", document)
	}
}

func TestFillDocxRejectsJunk(t *testing.T) {
	if _, err := FillDocx([]byte("junk"), "", nil); err == nil {
		t.Fatalf("expected error for non-docx input")
	}
}
