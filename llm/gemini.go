package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// geminiProvider implements Provider against the native Gemini REST API.
// It is the only provider with a real file API and document embeddings, so
// it is the usual primary in the fallback composite.
//
// Supported generation models:
//
//	gemini-2.0-flash       — default, fast
//	gemini-2.5-flash       — fast, cost-effective
//	gemini-2.5-pro         — highest capability
//
// Embedding model: gemini-embedding-001 (output dimensionality truncation
// supported; vectors are re-normalized locally).
type geminiProvider struct {
	base           httpClient
	model          string
	embeddingModel string
	embeddingDim   int
}

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// NewGemini creates a provider for Google Gemini.
func NewGemini(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	dim := cfg.EmbeddingDim
	if dim == 0 {
		dim = 768
	}
	return &geminiProvider{
		base:           newHTTPClient(cfg.BaseURL, cfg.APIKey, authGoogle),
		model:          cfg.Model,
		embeddingModel: "gemini-embedding-001",
		embeddingDim:   dim,
	}
}

func (p *geminiProvider) ModelID() string         { return p.model }
func (p *geminiProvider) EmbeddingDimension() int { return p.embeddingDim }

// --- wire types ---

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             float64  `json:"topP,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	// Gemini reports usage camel-cased; normalized into Usage by callers.
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (r *geminiGenerateResponse) usage() Usage {
	return Usage{
		PromptTokens:     r.UsageMetadata.PromptTokenCount,
		CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      r.UsageMetadata.TotalTokenCount,
	}
}

func (r *geminiGenerateResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// generateContent runs a generateContent call with the given parts.
func (p *geminiProvider) generateContent(ctx context.Context, parts []geminiPart, cfg GenerateConfig) (*geminiGenerateResponse, error) {
	temp := cfg.Temperature
	gc := &geminiGenerationConfig{
		Temperature:     &temp,
		TopP:            0.9,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	if gc.MaxOutputTokens == 0 {
		gc.MaxOutputTokens = 2048
	}
	if cfg.JSONResponse {
		gc.ResponseMIMEType = "application/json"
	}

	body, err := json.Marshal(geminiGenerateRequest{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: gc,
	})
	if err != nil {
		return nil, err
	}

	respBody, err := p.base.postJSON(ctx, "/v1beta/models/"+p.model+":generateContent", body, "")
	if err != nil {
		return nil, err
	}

	var resp geminiGenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}
	return &resp, nil
}

func (p *geminiProvider) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Response, error) {
	resp, err := p.generateContent(ctx, []geminiPart{{Text: prompt}}, cfg)
	if err != nil {
		return nil, err
	}
	text, err := resp.text()
	if err != nil {
		return nil, err
	}
	return &Response{Content: text, Usage: resp.usage()}, nil
}

// UploadFile pushes raw file bytes to the Gemini files API and returns a
// reference carrying both the hosted URI and the local path.
func (p *geminiProvider) UploadFile(ctx context.Context, path, mimeType string) (*FileRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	url := p.base.baseURL + "/upload/v1beta/files"
	req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	if p.base.apiKey != "" {
		req.Header.Set("x-goog-api-key", p.base.apiKey)
	}

	resp, err := p.base.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file upload error %d: %s", resp.StatusCode, string(respBody))
	}

	var uploaded struct {
		File struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
		} `json:"file"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if uploaded.File.URI == "" {
		return nil, fmt.Errorf("upload response missing file uri")
	}

	return &FileRef{Path: path, MIMEType: mimeType, URI: uploaded.File.URI}, nil
}

// ExtractResume asks the model to read the uploaded file directly and emit
// one structured-resume object.
func (p *geminiProvider) ExtractResume(ctx context.Context, ref *FileRef) (*ExtractResult, error) {
	if ref == nil || ref.URI == "" {
		return nil, fmt.Errorf("gemini extraction requires an uploaded file reference")
	}

	parts := []geminiPart{
		{FileData: &geminiFileData{MIMEType: ref.MIMEType, FileURI: ref.URI}},
		{Text: ResumeStructurePrompt + "\n\nThis is a single resume. Return ONE JSON object."},
	}
	resp, err := p.generateContent(ctx, parts, GenerateConfig{
		Temperature:     0,
		MaxOutputTokens: 4096,
		JSONResponse:    true,
	})
	if err != nil {
		return nil, err
	}

	text, err := resp.text()
	if err != nil {
		return nil, err
	}

	items, err := normalizeBatch([]byte(text))
	if err != nil || len(items) == 0 {
		return nil, fmt.Errorf("extraction returned no structured object: %w", err)
	}
	return &ExtractResult{Content: items[0], Usage: resp.usage()}, nil
}

// StructureResumeBatch converts N resume texts into N structured objects.
func (p *geminiProvider) StructureResumeBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	prompt := buildBatchPrompt(texts)
	resp, err := p.generateContent(ctx, []geminiPart{{Text: prompt}}, GenerateConfig{
		Temperature:     0,
		MaxOutputTokens: 8192,
		JSONResponse:    true,
	})
	if err != nil {
		return nil, err
	}

	text, err := resp.text()
	if err != nil {
		return nil, err
	}

	items, err := normalizeBatch([]byte(text))
	if err != nil {
		return nil, err
	}
	return &BatchResult{Items: items, Usage: resp.usage()}, nil
}

// buildBatchPrompt labels each resume and asks for an ordered JSON array.
func buildBatchPrompt(texts []string) string {
	var sb strings.Builder
	sb.WriteString(ResumeStructurePrompt)
	fmt.Fprintf(&sb, "\n\nThere are %d resumes below. Return a JSON array of %d objects, one per resume, in the same order.\n\n", len(texts), len(texts))
	for i, text := range texts {
		fmt.Fprintf(&sb, "=== RESUME %d ===\n%s\n=== END RESUME %d ===\n\n", i+1, text, i+1)
	}
	return sb.String()
}

// --- embeddings ---

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"taskType,omitempty"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (p *geminiProvider) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	reqs := make([]geminiEmbedRequest, len(texts))
	for i, text := range texts {
		reqs[i] = geminiEmbedRequest{
			Model:                "models/" + p.embeddingModel,
			Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType:             taskType,
			OutputDimensionality: p.embeddingDim,
		}
	}

	body, err := json.Marshal(geminiBatchEmbedRequest{Requests: reqs})
	if err != nil {
		return nil, err
	}

	respBody, err := p.base.postJSON(ctx, "/v1beta/models/"+p.embeddingModel+":batchEmbedContents", body, "")
	if err != nil {
		return nil, err
	}

	var resp geminiBatchEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed response count %d != request count %d", len(resp.Embeddings), len(texts))
	}

	// Truncated-dimensionality Gemini embeddings are not unit length;
	// normalize so cosine and dot behave identically downstream.
	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = l2Normalize(e.Values)
	}
	return out, nil
}

func (p *geminiProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return p.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

func (p *geminiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
