package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"chatdoc/internal/service"
)

// extractPDF reads the plain text of every page in order. A corrupt or
// encrypted document fails extraction before any chunking happens.
func extractPDF(name string, data []byte) (text string, err error) {
	// The pdf package panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &service.ExtractionError{Name: name, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &service.ExtractionError{Name: name, Err: err}
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", &service.ExtractionError{Name: name, Err: err}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", &service.ExtractionError{Name: name, Err: err}
	}
	return buf.String(), nil
}
