package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCXLoader extracts plain text from Word .docx files. A docx is a zip
// archive; the document body lives in word/document.xml as WordprocessingML.
type DOCXLoader struct{}

func (l *DOCXLoader) SupportedExtensions() []string { return []string{"docx"} }

func (l *DOCXLoader) Load(ctx context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening docx archive: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx missing word/document.xml: %s", path)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("reading docx body: %w", err)
	}
	defer rc.Close()

	text, err := extractDocumentXML(rc)
	if err != nil {
		return "", fmt.Errorf("parsing docx body: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return text, nil
}

// extractDocumentXML walks the WordprocessingML token stream, collecting
// run text (w:t) and emitting a newline per paragraph (w:p) and a tab per
// explicit tab (w:tab).
func extractDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
