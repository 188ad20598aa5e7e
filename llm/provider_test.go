package llm

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestNormalizeBatch(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"bare array", `[{"a":1},{"b":2}]`, 2},
		{"resumes key", `{"resumes":[{"a":1},{"b":2},{"c":3}]}`, 3},
		{"other array key", `{"items":[{"a":1}]}`, 1},
		{"single object wrapped", `{"candidate_name":"Jane"}`, 1},
		{"empty array", `[]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := normalizeBatch([]byte(tt.raw))
			if err != nil {
				t.Fatalf("normalizeBatch: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("got %d items, want %d", len(items), tt.want)
			}
		})
	}

	if _, err := normalizeBatch([]byte("not json at all")); err == nil {
		t.Error("non-JSON should fail")
	}
}

func TestL2Normalize(t *testing.T) {
	v := l2Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v", v)
	}

	// Zero vector passes through.
	z := l2Normalize([]float32{0, 0, 0})
	for _, x := range z {
		if x != 0 {
			t.Errorf("zero vector changed: %v", z)
		}
	}
}

// scripted is a minimal Provider for fallback tests.
type scripted struct {
	id       string
	genErr   error
	embedErr error
	calls    int
}

func (s *scripted) ModelID() string         { return s.id }
func (s *scripted) EmbeddingDimension() int { return 4 }

func (s *scripted) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Response, error) {
	s.calls++
	if s.genErr != nil {
		return nil, s.genErr
	}
	return &Response{Content: s.id}, nil
}

func (s *scripted) UploadFile(ctx context.Context, path, mimeType string) (*FileRef, error) {
	return &FileRef{Path: path, MIMEType: mimeType, URI: "files/" + s.id}, nil
}

func (s *scripted) ExtractResume(ctx context.Context, ref *FileRef) (*ExtractResult, error) {
	return &ExtractResult{Content: []byte(`{}`)}, nil
}

func (s *scripted) StructureResumeBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	if s.genErr != nil {
		return nil, s.genErr
	}
	return &BatchResult{}, nil
}

func (s *scripted) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return make([][]float32, len(texts)), nil
}

func (s *scripted) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return make([]float32, 4), nil
}

func TestFallbackGenerate(t *testing.T) {
	primary := &scripted{id: "primary", genErr: errors.New("quota exceeded")}
	secondary := &scripted{id: "secondary"}
	p := NewFallback(primary, secondary)

	resp, err := p.Generate(context.Background(), "hello", GenerateConfig{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "secondary" {
		t.Errorf("content = %q, want secondary", resp.Content)
	}

	// Healthy primary is not bypassed.
	primary.genErr = nil
	resp, err = p.Generate(context.Background(), "hello", GenerateConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "primary" {
		t.Errorf("content = %q, want primary", resp.Content)
	}
}

func TestFallbackEmbeddingsNeverFallBack(t *testing.T) {
	embedErr := errors.New("embed down")
	primary := &scripted{id: "primary", embedErr: embedErr}
	secondary := &scripted{id: "secondary"}
	p := NewFallback(primary, secondary)

	if _, err := p.EmbedQuery(context.Background(), "q"); !errors.Is(err, embedErr) {
		t.Errorf("err = %v, want primary's embed error", err)
	}
	if _, err := p.EmbedDocuments(context.Background(), []string{"a"}); !errors.Is(err, embedErr) {
		t.Errorf("err = %v, want primary's embed error", err)
	}
}
