package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFLoader extracts plain text from PDF files. The epub and mobi
// extensions are routed here too: true ebook payloads fail to open and the
// caller falls through to LLM extraction, while the common case of a PDF
// with a renamed extension still parses.
type PDFLoader struct{}

func (l *PDFLoader) SupportedExtensions() []string { return []string{"pdf", "epub", "mobi"} }

func (l *PDFLoader) Load(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract.
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return strings.Join(pages, "\n\n"), nil
}
