package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// maxZipPartBytes caps a single decompressed part.
const maxZipPartBytes = 64 << 20

// zipTextExtractor pulls text nodes out of the XML parts of a zip-based
// office document.
type zipTextExtractor struct {
	format string
	// part selects the XML parts to read; they are read in name order.
	part  func(name string) bool
	nodes []*regexp.Regexp
}

var (
	drawingText = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	odfText     = regexp.MustCompile(`<text:(?:p|span|h)[^>]*>([^<]*)</text:(?:p|span|h)>`)
)

var pptxExtractor = &zipTextExtractor{
	format: FormatPPTX,
	part: func(name string) bool {
		return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
	},
	nodes: []*regexp.Regexp{drawingText},
}

var odpExtractor = &zipTextExtractor{
	format: FormatODP,
	part:   func(name string) bool { return name == "content.xml" },
	nodes:  []*regexp.Regexp{odfText},
}

var odsExtractor = &zipTextExtractor{
	format: FormatODS,
	part:   func(name string) bool { return name == "content.xml" },
	nodes:  []*regexp.Regexp{odfText},
}

// Extract implements TextExtractor.
func (z *zipTextExtractor) Extract(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", z.format, err)
	}
	files := make([]*zip.File, 0)
	for _, f := range zr.File {
		if z.part(f.Name) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("extract %s: no content parts", z.format)
	}
	sort.Slice(files, func(i, j int) bool { return naturalLess(files[i].Name, files[j].Name) })

	var b strings.Builder
	for _, f := range files {
		xml, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", z.format, err)
		}
		appendNodes(&b, xml, z.nodes...)
	}
	return strings.TrimSpace(b.String()), nil
}

func readZipFile(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxZipPartBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	return string(data), nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// appendNodes writes the inner text of every match, space separated, in document order.
func appendNodes(b *strings.Builder, xml string, nodes ...*regexp.Regexp) {
	for _, re := range nodes {
		for _, m := range re.FindAllStringSubmatch(xml, -1) {
			text := strings.TrimSpace(unescapeXML(m[1]))
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

// naturalLess orders slide2.xml before slide10.xml.
func naturalLess(a, b string) bool {
	da, db := trailingNumber(a), trailingNumber(b)
	if da >= 0 && db >= 0 && strings.TrimRight(strings.TrimSuffix(a, ".xml"), "0123456789") ==
		strings.TrimRight(strings.TrimSuffix(b, ".xml"), "0123456789") {
		return da < db
	}
	return a < b
}

func trailingNumber(name string) int {
	base := strings.TrimSuffix(name, ".xml")
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return -1
	}
	n := 0
	for _, c := range base[i:] {
		n = n*10 + int(c-'0')
	}
	return n
}

// sniffZip identifies an office container by its parts.
func sniffZip(content []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}
	if f := findZipFile(zr, "mimetype"); f != nil {
		mime, err := readZipFile(f)
		if err == nil {
			switch strings.TrimSpace(mime) {
			case "application/vnd.oasis.opendocument.text":
				return FormatODT
			case "application/vnd.oasis.opendocument.presentation":
				return FormatODP
			case "application/vnd.oasis.opendocument.spreadsheet":
				return FormatODS
			}
		}
	}
	for _, f := range zr.File {
		switch {
		case f.Name == docxDocumentXMLPath:
			return FormatDOCX
		case f.Name == "xl/workbook.xml":
			return FormatXLSX
		case strings.HasPrefix(f.Name, "ppt/slides/"):
			return FormatPPTX
		}
	}
	return ""
}
