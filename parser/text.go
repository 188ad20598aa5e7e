package parser

import (
	"context"
	"fmt"
	"os"
)

// TextLoader handles plain text (.txt) files.
type TextLoader struct{}

func (l *TextLoader) SupportedExtensions() []string { return []string{"txt"} }

func (l *TextLoader) Load(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return string(data), nil
}
