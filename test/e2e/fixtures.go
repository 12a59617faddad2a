package e2e

import (
	"archive/zip"
	"bytes"
	"html"
	"strings"
)

// Extensions are the upload formats written by the file-based tests. PDF is covered by the
// extractor's own tests; a minimal PDF with extractable text is not generated here.
var Extensions = []string{".txt", ".docx"}

// EncodeFile returns the bytes of a file with the given extension holding text. Blank lines
// separate paragraphs.
func EncodeFile(ext, text string) []byte {
	if ext == ".docx" {
		return minimalDocx(strings.Split(text, "\n\n"))
	}
	return []byte(text)
}

func minimalDocx(paragraphs []string) []byte {
	var body strings.Builder
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + html.EscapeString(p) + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(body.String()))
	_ = w.Close()
	return buf.Bytes()
}
