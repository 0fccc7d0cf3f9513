package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	wordText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// Override elements list PartName and ContentType in either order.
	mainPartName  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	mainPartName2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
	paragraphEnd  = regexp.MustCompile(`</w:p>`)
)

// docxMainPart finds the main document part from [Content_Types].xml,
// falling back to word/document.xml.
func docxMainPart(zr *zip.Reader) string {
	f := findZipFile(zr, contentTypesPath)
	if f == nil {
		return docxDocumentXMLPath
	}
	types, err := readZipFile(f)
	if err != nil {
		return docxDocumentXMLPath
	}
	for _, re := range []*regexp.Regexp{mainPartName, mainPartName2} {
		if m := re.FindStringSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return docxDocumentXMLPath
}

// extractDOCX reads every <w:t> run of the main document part. Paragraph
// ends become newlines so sentences from different paragraphs do not merge.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract docx: not a zip: %w", err)
	}
	path := docxMainPart(zr)
	f := findZipFile(zr, path)
	if f == nil {
		return "", fmt.Errorf("extract docx: %s not found", path)
	}
	xml, err := readZipFile(f)
	if err != nil {
		return "", fmt.Errorf("extract docx: %w", err)
	}

	var b strings.Builder
	for _, para := range paragraphEnd.Split(xml, -1) {
		var line strings.Builder
		appendNodes(&line, para, wordText)
		if line.Len() == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line.String())
	}
	return b.String(), nil
}
