package llm

import (
	"context"
	"log/slog"
)

// fallbackProvider is a composite Provider wrapping a primary and a
// secondary. Generation-family calls that fail on the primary are retried
// against the secondary. Embeddings never fall back: mixing vectors from
// two models in one collection would corrupt search.
type fallbackProvider struct {
	primary   Provider
	secondary Provider
}

// NewFallback wraps primary with secondary as a failure backstop.
func NewFallback(primary, secondary Provider) Provider {
	return &fallbackProvider{primary: primary, secondary: secondary}
}

func (p *fallbackProvider) ModelID() string         { return p.primary.ModelID() }
func (p *fallbackProvider) EmbeddingDimension() int { return p.primary.EmbeddingDimension() }

func (p *fallbackProvider) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Response, error) {
	resp, err := p.primary.Generate(ctx, prompt, cfg)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	slog.Warn("llm: primary generation failed, falling back", "error", err)
	return p.secondary.Generate(ctx, prompt, cfg)
}

// UploadFile tries the primary's file API. Upload failure is not fatal:
// the returned reference keeps the local path so the secondary can still
// extract from it.
func (p *fallbackProvider) UploadFile(ctx context.Context, path, mimeType string) (*FileRef, error) {
	ref, err := p.primary.UploadFile(ctx, path, mimeType)
	if err == nil {
		return ref, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	slog.Warn("llm: primary file upload failed, keeping local reference", "path", path, "error", err)
	return &FileRef{Path: path, MIMEType: mimeType}, nil
}

func (p *fallbackProvider) ExtractResume(ctx context.Context, ref *FileRef) (*ExtractResult, error) {
	if ref != nil && ref.URI != "" {
		res, err := p.primary.ExtractResume(ctx, ref)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("llm: primary extraction failed, falling back", "error", err)
	}
	return p.secondary.ExtractResume(ctx, ref)
}

func (p *fallbackProvider) StructureResumeBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	res, err := p.primary.StructureResumeBatch(ctx, texts)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	slog.Warn("llm: primary batch structuring failed, falling back", "error", err)
	return p.secondary.StructureResumeBatch(ctx, texts)
}

func (p *fallbackProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return p.primary.EmbedDocuments(ctx, texts)
}

func (p *fallbackProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.primary.EmbedQuery(ctx, text)
}
