package parser

import (
	"context"
	"fmt"
)

// Loader extracts plain text from a resume file of a specific format.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
	SupportedExtensions() []string
}

// MIMETypes maps resume file extensions to their content types, used when
// handing raw files to a generation service.
var MIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
}

// MIMEType returns the content type for ext, or application/octet-stream.
func MIMEType(ext string) string {
	if mt, ok := MIMETypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Registry maps file extensions to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns a registry with the built-in loaders: PDF-family
// (pdf, epub, mobi), DOCX, and plain text.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, l := range []Loader{&PDFLoader{}, &DOCXLoader{}, &TextLoader{}} {
		for _, ext := range l.SupportedExtensions() {
			r.loaders[ext] = l
		}
	}
	return r
}

// Get returns the loader for a file extension.
func (r *Registry) Get(ext string) (Loader, error) {
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	return l, nil
}

// Register adds or replaces a loader for an extension.
func (r *Registry) Register(ext string, l Loader) {
	r.loaders[ext] = l
}

var defaultRegistry = NewRegistry()

// Load extracts text from path using the default registry.
func Load(path, ext string) (string, error) {
	l, err := defaultRegistry.Get(ext)
	if err != nil {
		return "", err
	}
	return l.Load(context.Background(), path)
}
