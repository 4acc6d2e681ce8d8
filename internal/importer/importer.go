// Package importer reads external documents into topic text.
package importer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/iromo/iromo/internal/pdf"
)

// Source is a document ready to become a topic.
type Source struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"` // "text" or "pdf"
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Options controls Load.
type Options struct {
	// MaxPages limits PDF extraction; 0 reads every page.
	MaxPages int
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads path as PDF when it has a .pdf extension or PDF magic bytes,
// and as UTF-8 text otherwise.
func Load(path string, opts Options) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") || bytes.HasPrefix(data, []byte("%PDF-")) {
		doc, err := pdf.Read(bytes.NewReader(data), int64(len(data)), opts.MaxPages)
		if err != nil {
			return nil, err
		}
		return &Source{Path: path, Kind: "pdf", Title: doc.Title(), Content: doc.Text()}, nil
	}

	text, err := Text(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Source{Path: path, Kind: "text", Content: text}, nil
}

// Text decodes a text file: strips a UTF-8 BOM and converts CRLF and CR
// line endings to LF. Content that is not valid UTF-8 is rejected.
func Text(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}
