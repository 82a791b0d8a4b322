// Package extract turns uploaded document bytes into plain text before
// segmentation. Unreadable or unsupported input surfaces as a
// *service.ExtractionError; nothing downstream runs for such documents.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"chatdoc/internal/service"
)

// Extractor extracts plain text from raw document bytes.
type Extractor interface {
	// Extract returns the full text of the document named name.
	Extract(name string, data []byte) (string, error)
}

// ByExtension dispatches extraction on the uploaded file's extension.
type ByExtension struct{}

// New returns the default extractor supporting .pdf, .md/.markdown and .txt.
func New() *ByExtension {
	return &ByExtension{}
}

// Supported reports whether the file name has an extractable extension.
func (e *ByExtension) Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// Extract extracts plain text from data according to the extension of name.
func (e *ByExtension) Extract(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &service.ExtractionError{Name: name, Err: fmt.Errorf("empty file")}
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return extractPDF(name, data)
	case ".md", ".markdown":
		return extractMarkdown(name, data)
	case ".txt":
		if !utf8.Valid(data) {
			return "", &service.ExtractionError{Name: name, Err: fmt.Errorf("not valid UTF-8 text")}
		}
		return string(data), nil
	default:
		return "", &service.ExtractionError{Name: name, Err: fmt.Errorf("unsupported file type %q", filepath.Ext(name))}
	}
}
