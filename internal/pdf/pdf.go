// Package pdf pulls plain text out of PDF files for import as topics.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is the text of a PDF, page by page.
type Document struct {
	Pages []string
}

// Text joins the non-empty pages with a blank line between them.
func (d *Document) Text() string {
	var parts []string
	for _, p := range d.Pages {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Title guesses a title from the first substantial line of the first page.
// Returns "" when nothing looks like one.
func (d *Document) Title() string {
	if len(d.Pages) == 0 {
		return ""
	}
	for _, line := range strings.Split(d.Pages[0], "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// Open extracts the text of up to maxPages pages of the file at path.
// maxPages <= 0 reads every page.
func Open(path string, maxPages int) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()
	return read(r, maxPages), nil
}

// Read extracts text from a PDF held in r.
func Read(r io.ReaderAt, size int64, maxPages int) (*Document, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}
	return read(pdfReader, maxPages), nil
}

func read(r *pdf.Reader, maxPages int) *Document {
	n := r.NumPage()
	if maxPages <= 0 || maxPages > n {
		maxPages = n
	}

	doc := &Document{}
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped; the rest is still useful.
			continue
		}
		doc.Pages = append(doc.Pages, Normalize(text))
	}
	return doc
}

// Normalize trims trailing spaces from each line and collapses runs of
// more than one blank line.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var out []string
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

// isHeaderLine checks if a line is likely a running header or footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "journal") {
		return true
	}
	if strings.Contains(lower, "volume") && strings.Contains(lower, "issue") {
		return true
	}
	if strings.Contains(lower, "copyright") {
		return true
	}
	if strings.Contains(lower, "article") && strings.Contains(lower, "published") {
		return true
	}
	return false
}
