// Package pdftext extracts plain text from PDF files.
package pdftext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionError reports a PDF that could not be opened or parsed.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor turns one file into text. Extract satisfies it.
type Extractor func(path string) (string, error)

// Extract returns the text of every page of the PDF at path in page order,
// pages joined by a newline. Every failure is an *ExtractionError.
func Extract(path string) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Path: path, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Path: path, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, content)
	}
	return joinPages(pages), nil
}

// joinPages separates pages by exactly one newline. GetPlainText opens
// every text object with a newline, so page edges are trimmed first.
func joinPages(pages []string) string {
	trimmed := make([]string, len(pages))
	for i, p := range pages {
		trimmed[i] = strings.Trim(p, "\r\n")
	}
	return strings.Join(trimmed, "\n")
}
