package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// Provider is the capability set the pipelines expect from a generation
// service: plain generation, file upload, structured resume extraction,
// batch structuring, and document/query embeddings.
type Provider interface {
	// ModelID returns the generation model identifier, used for usage logs.
	ModelID() string

	// EmbeddingDimension returns the dense vector size this provider
	// produces, or 0 if it cannot embed.
	EmbeddingDimension() int

	// Generate sends a single prompt and returns the text response with
	// normalized token usage.
	Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Response, error)

	// UploadFile registers a raw file with the provider for use as
	// generation context. Providers without a file API return a local
	// path reference.
	UploadFile(ctx context.Context, path, mimeType string) (*FileRef, error)

	// ExtractResume asks the provider to read an uploaded resume file and
	// return one structured-resume JSON object.
	ExtractResume(ctx context.Context, ref *FileRef) (*ExtractResult, error)

	// StructureResumeBatch converts N extracted resume texts into N
	// structured-resume JSON objects, in input order.
	StructureResumeBatch(ctx context.Context, texts []string) (*BatchResult, error)

	// EmbedDocuments produces L2-normalized document-task embeddings.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery produces one L2-normalized query-task embedding.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// GenerateConfig tunes a single generation call.
type GenerateConfig struct {
	Temperature     float64
	MaxOutputTokens int
	// JSONResponse asks the provider for a JSON-mode response.
	JSONResponse bool
}

// Usage is the normalized token-usage triple. Provider wire formats differ
// (Gemini reports camel-cased *TokenCount fields, OpenAI-compatible APIs a
// snake-cased usage block); each provider adapts its own shape into this one.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a plain generation result.
type Response struct {
	Content string
	Usage   Usage
}

// FileRef identifies a file for provider-side generation context.
// URI is set when the provider hosts the file; Path always carries the
// local location so fallback providers can re-extract locally.
type FileRef struct {
	Path     string
	MIMEType string
	URI      string
}

// ExtractResult is one structured-resume JSON object plus usage.
type ExtractResult struct {
	Content json.RawMessage
	Usage   Usage
}

// BatchResult is an ordered list of structured-resume JSON objects.
type BatchResult struct {
	Items []json.RawMessage
	Usage Usage
}

// Config configures an LLM provider.
type Config struct {
	Provider string `json:"provider"` // gemini, groq, custom
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	// EmbeddingDim is the requested output dimensionality for embedding
	// models that support it.
	EmbeddingDim int `json:"embedding_dim"`
}

// NewProvider creates an LLM provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(cfg), nil
	case "groq":
		return NewGroq(cfg), nil
	case "custom":
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// normalizeBatch coerces the many shapes models return for "an array of N
// objects" into a flat list: a bare array, an object with a "resumes" key,
// or an object whose first array-valued key holds the items. A lone object
// becomes a single-element list.
func normalizeBatch(raw []byte) ([]json.RawMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("batch response is neither array nor object: %w", err)
	}

	if inner, ok := obj["resumes"]; ok {
		if err := json.Unmarshal(inner, &arr); err == nil {
			return arr, nil
		}
	}
	for _, v := range obj {
		if err := json.Unmarshal(v, &arr); err == nil {
			return arr, nil
		}
	}

	// Single object: wrap it.
	return []json.RawMessage{json.RawMessage(raw)}, nil
}

// l2Normalize scales a vector to unit length in place and returns it.
// Zero vectors are returned unchanged.
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
